package configs

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
		// SessionSecretEnv 会话令牌签名密钥所在的环境变量名
		SessionSecretEnv string `yaml:"session_secret_env"`
		// SecureCookie 会话 cookie 是否只在 HTTPS 下发送，部署在 TLS 之后时开启
		SecureCookie bool `yaml:"secure_cookie"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		// Title 站点名称，显示在页头
		Title   string `yaml:"title"`
		Hotline string `yaml:"hotline"`
	} `yaml:"web"`

	Database struct {
		// DSNEnv 数据库连接串所在的环境变量名，未设置时使用 DSN
		DSNEnv string `yaml:"dsn_env"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Predict PredictConfig  `yaml:"predict"`
	Upload  SecurityConfig `yaml:"upload"`
	Lookup  LookupConfig   `yaml:"lookup"`
}

// PredictConfig 第三方物种识别接口配置
type PredictConfig struct {
	Endpoint  string `yaml:"endpoint"`
	ModelName string `yaml:"model_name"`
	// APIKeyEnv 凭证所在的环境变量名，凭证本身不写入配置文件
	APIKeyEnv string `yaml:"api_key_env"`
	Timeout   string `yaml:"timeout"`
	// ProxyURL 非空时识别流程通过该地址走本服务的代理接口，否则直连第三方
	ProxyURL string `yaml:"proxy_url"`
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`   // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`      // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`       // 最大宽度
	MaxHeight      int      `yaml:"max_height"`      // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"` // 允许的图片格式
}

// LookupConfig 识别结果补充查询配置
type LookupConfig struct {
	Type        string  `yaml:"type"` // openai / ollama / static / none
	ModelName   string  `yaml:"model_name"`
	BaseURL     string  `yaml:"url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// Default 返回带默认值的配置
func Default() *Config {
	config := &Config{}
	config.Server.IP = "0.0.0.0"
	config.Server.Port = 8080
	config.Server.SessionSecretEnv = "SESSION_SECRET"

	config.Log.LogLevel = "info"
	config.Log.LogDir = "logs"
	config.Log.LogFile = "server.log"

	config.Web.Title = "Bird Rescue"
	config.Web.Hotline = "+1 (555) 123-4567"

	config.Database.DSNEnv = "DATABASE_URL"
	config.Database.DSN = "sqlite://data/drafts.db"

	config.Predict = PredictConfig{
		Endpoint:  "https://api.dragoneye.ai/predict",
		ModelName: "dragoneye/animals",
		APIKeyEnv: "DRAGONEYE_API_KEY",
		Timeout:   "30s",
	}

	config.Upload = SecurityConfig{
		MaxFileSize:    10 * 1024 * 1024,
		MaxPixels:      40_000_000,
		MaxWidth:       8192,
		MaxHeight:      8192,
		AllowedFormats: []string{"jpeg", "png", "gif", "webp"},
	}

	config.Lookup = LookupConfig{
		Type:      "static",
		MaxTokens: 300,
		Timeout:   "15s",
	}
	return config
}

// ParseTimeout 解析超时配置，格式错误或非正数时返回 fallback
func ParseTimeout(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// LoadConfig 从文件加载配置，文件中未出现的字段保留默认值
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	config, err := LoadFile(path)
	return config, path, err
}

// LoadFile 从指定路径加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}
