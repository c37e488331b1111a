package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"birdrescue-server-go/src/configs"
	"birdrescue-server-go/src/core/utils"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

// ImageSecurityValidator 图片安全验证器
type ImageSecurityValidator struct {
	config *configs.SecurityConfig
	logger *utils.Logger
}

// NewImageSecurityValidator 创建新的图片安全验证器
func NewImageSecurityValidator(config *configs.SecurityConfig, logger *utils.Logger) *ImageSecurityValidator {
	return &ImageSecurityValidator{
		config: config,
		logger: logger,
	}
}

// 图片格式魔数签名
var imageSignatures = []struct {
	format    string
	signature []byte
}{
	{"jpeg", []byte{0xFF, 0xD8}},
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"gif", []byte{0x47, 0x49, 0x46, 0x38}},
	{"webp", []byte{0x52, 0x49, 0x46, 0x46}}, // RIFF，需要进一步检查WEBP标识
}

// 出现在文件开头即判定为可疑的签名
var executableSignatures = map[string][]byte{
	"PE":     {0x4D, 0x5A},
	"ELF":    {0x7F, 0x45, 0x4C, 0x46},
	"Mach-O": {0xCA, 0xFE, 0xBA, 0xBE},
	"ZIP":    {0x50, 0x4B, 0x03, 0x04},
}

// DetectFormat 根据文件头检测图片格式，无法识别时返回空字符串
func DetectFormat(data []byte) string {
	for _, s := range imageSignatures {
		if !bytes.HasPrefix(data, s.signature) {
			continue
		}
		if s.format == "webp" {
			if len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")) {
				return "webp"
			}
			continue
		}
		return s.format
	}
	return ""
}

// Validate 验证上传图片的字节内容
func (v *ImageSecurityValidator) Validate(data []byte) ValidationResult {
	result := ValidationResult{IsValid: false, FileSize: int64(len(data))}

	if len(data) == 0 {
		result.Error = fmt.Errorf("图片数据为空")
		return result
	}

	// 1. 基础大小检查
	if v.config.MaxFileSize > 0 && int64(len(data)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf("文件大小超限: %d bytes，最大允许: %d bytes", len(data), v.config.MaxFileSize)
		result.SecurityRisk = "文件过大"
		v.logger.Warn("检测到超大文件", map[string]interface{}{
			"size":     len(data),
			"max_size": v.config.MaxFileSize,
		})
		return result
	}

	// 2. 可执行文件签名
	for name, signature := range executableSignatures {
		if bytes.HasPrefix(data, signature) {
			result.Error = fmt.Errorf("检测到非图片文件签名: %s", name)
			result.SecurityRisk = "可能包含恶意载荷"
			v.logger.Warn("文件开头检测到可执行文件签名", map[string]interface{}{
				"signature_type": name,
			})
			return result
		}
	}

	// 3. 格式支持检查
	format := DetectFormat(data)
	if format == "" {
		result.Error = fmt.Errorf("无法识别的图片格式，文件头: %x", data[:min(len(data), 8)])
		return result
	}
	if !v.isFormatAllowed(format) {
		result.Error = fmt.Errorf("不支持的格式: %s", format)
		return result
	}
	result.Format = format

	// 4. 解码图片头获取尺寸
	return v.validateImageDecoding(data, result)
}

// isFormatAllowed 检查格式是否被允许
func (v *ImageSecurityValidator) isFormatAllowed(format string) bool {
	if len(v.config.AllowedFormats) == 0 {
		return true
	}
	for _, allowedFormat := range v.config.AllowedFormats {
		if strings.EqualFold(allowedFormat, format) {
			return true
		}
	}
	return false
}

// validateImageDecoding 验证图片解码
func (v *ImageSecurityValidator) validateImageDecoding(data []byte, result ValidationResult) ValidationResult {
	config, actualFormat, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Error = fmt.Errorf("图片解码失败: %v", err)
		result.SecurityRisk = "损坏的图片数据"
		return result
	}

	if actualFormat != "" {
		result.Format = actualFormat
	}

	// 检查尺寸限制
	if (v.config.MaxWidth > 0 && config.Width > v.config.MaxWidth) ||
		(v.config.MaxHeight > 0 && config.Height > v.config.MaxHeight) {
		result.Error = fmt.Errorf("图片尺寸超限: %dx%d，最大允许: %dx%d",
			config.Width, config.Height, v.config.MaxWidth, v.config.MaxHeight)
		return result
	}

	// 检查像素总数
	totalPixels := int64(config.Width) * int64(config.Height)
	if v.config.MaxPixels > 0 && totalPixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("像素总数超限: %d，最大允许: %d", totalPixels, v.config.MaxPixels)
		return result
	}

	result.IsValid = true
	result.Width = config.Width
	result.Height = config.Height

	v.logger.Debug("图片验证成功", map[string]interface{}{
		"format": result.Format,
		"width":  result.Width,
		"height": result.Height,
		"size":   result.FileSize,
	})

	return result
}
