package image

// Upload 读入内存的上传图片
type Upload struct {
	Filename    string // 原始文件名
	ContentType string // 按文件头推断的 MIME 类型
	Format      string // jpeg, png, gif, webp
	Data        []byte
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Format       string // 实际格式
	Width        int    // 图片宽度
	Height       int    // 图片高度
	FileSize     int64  // 文件大小
	Error        error  // 错误信息
	SecurityRisk string // 安全风险描述
}
