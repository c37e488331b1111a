package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind 错误类别
type Kind string

const (
	KindValidation Kind = "VALIDATION" // 用户输入缺失或格式错误
	KindUpstream   Kind = "UPSTREAM"   // 第三方服务不可用或返回非成功状态
	KindIO         Kind = "IO"         // 本地文件读取失败
	KindInternal   Kind = "INTERNAL"
)

// AppError 带类别和 HTTP 状态的结构化错误
type AppError struct {
	Kind    Kind
	Status  int
	Message string            // 可以返回给调用方的信息
	Fields  map[string]string // 字段级校验错误
	Err     error             // 仅用于日志的原始错误
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidation 创建 400 校验错误
func NewValidation(msg string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: msg,
	}
}

// NewFieldValidation 创建带字段错误的 422 校验错误
func NewFieldValidation(fields map[string]string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Status:  http.StatusUnprocessableEntity,
		Message: "Please correct the highlighted fields",
		Fields:  fields,
	}
}

// NewUpstream 创建 500 上游错误，Message 固定为通用提示，细节只保存在 Err 中
func NewUpstream(err error) *AppError {
	return &AppError{
		Kind:    KindUpstream,
		Status:  http.StatusInternalServerError,
		Message: "Failed to process image",
		Err:     err,
	}
}

// NewIO 创建本地读取错误
func NewIO(err error) *AppError {
	return &AppError{
		Kind:    KindIO,
		Status:  http.StatusBadRequest,
		Message: "Could not read the selected file",
		Err:     err,
	}
}

// NewInternal 创建 500 内部错误
func NewInternal(err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Status:  http.StatusInternalServerError,
		Message: "internal error",
		Err:     err,
	}
}

// Is 判断 err 链中是否存在指定类别的 AppError
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// As 取出 err 链中的 AppError，不存在时包装为内部错误
func As(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternal(err)
}
