package image

import (
	"encoding/base64"
	"fmt"
	"io"

	"birdrescue-server-go/src/configs"
	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/utils"
)

// ImageProcessor 把上传文件读入内存、校验并生成预览
type ImageProcessor struct {
	config    *configs.SecurityConfig
	validator *ImageSecurityValidator
	logger    *utils.Logger
}

// NewImageProcessor 创建新的图片处理器
func NewImageProcessor(config *configs.SecurityConfig, logger *utils.Logger) *ImageProcessor {
	return &ImageProcessor{
		config:    config,
		validator: NewImageSecurityValidator(config, logger),
		logger:    logger,
	}
}

// Read 读取并校验上传图片。读取失败返回 IO 类错误，内容不合法返回校验类错误。
func (p *ImageProcessor) Read(r io.Reader, filename string) (*Upload, error) {
	limit := p.config.MaxFileSize
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}

	// 多读一个字节用于判断是否超限
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.NewIO(fmt.Errorf("读取图片 %s 失败: %w", filename, err))
	}
	if int64(len(data)) > limit {
		return nil, apperrors.NewValidation(fmt.Sprintf("Image is too large, the maximum is %dMB", limit/1024/1024))
	}

	result := p.validator.Validate(data)
	if !result.IsValid {
		p.logger.Warn(fmt.Sprintf("图片校验失败: %s: %v", filename, result.Error))
		return nil, apperrors.NewValidation("Please upload a valid PNG, JPG, GIF or WEBP image")
	}

	return &Upload{
		Filename:    filename,
		ContentType: "image/" + result.Format,
		Format:      result.Format,
		Data:        data,
	}, nil
}

// DataURL 生成可直接用于 <img src> 的预览地址
func DataURL(upload *Upload) string {
	return fmt.Sprintf("data:%s;base64,%s", upload.ContentType, base64.StdEncoding.EncodeToString(upload.Data))
}
