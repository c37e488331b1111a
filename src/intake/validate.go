package intake

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors 字段级错误信息，没有错误的字段不出现
type FieldErrors map[Field]string

const (
	msgEmailInvalid  = "Please enter a valid email address"
	msgPhoneRequired = "Phone number is required"
	msgPhoneInvalid  = "Please enter a valid phone number"
)

var validate = validator.New()

// phoneSeparators 号码中允许出现的分隔符
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// ValidateEmail 邮箱可以不填，填了必须合法
func ValidateEmail(email string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return ""
	}
	if err := validate.Var(email, "email"); err != nil {
		return msgEmailInvalid
	}
	return ""
}

// ValidatePhone 电话必填，接受 E.164 或 7 到 15 位数字
func ValidatePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return msgPhoneRequired
	}
	normalized := phoneSeparators.Replace(phone)
	tag := "numeric,min=7,max=15"
	if strings.HasPrefix(normalized, "+") {
		tag = "e164"
	}
	if err := validate.Var(normalized, tag); err != nil {
		return msgPhoneInvalid
	}
	return ""
}

// validators 需要校验的字段
var validators = map[Field]func(string) string{
	FieldEmail: ValidateEmail,
	FieldPhone: ValidatePhone,
}

// ValidateField 校验单个字段，不需要校验的字段返回空字符串
func ValidateField(field Field, value string) string {
	if fn, ok := validators[field]; ok {
		return fn(value)
	}
	return ""
}

// ValidateDraft 校验整个草稿
func ValidateDraft(d Draft) FieldErrors {
	errs := FieldErrors{}
	for field, fn := range validators {
		if msg := fn(d.Get(field)); msg != "" {
			errs[field] = msg
		}
	}
	return errs
}
