package predict

// ErrorResponse 代理接口的错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	// ImageField 上传图片的表单字段名
	ImageField = "image_file"

	msgMissingImage = "No image file provided"
	msgUpstream     = "Failed to process image"
)
