package ollama

import (
	"fmt"
	"strings"

	"birdrescue-server-go/src/core/providers/lookup"
	"birdrescue-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// 注册提供者
func init() {
	lookup.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama查询提供者，走Ollama的OpenAI兼容接口
func NewProvider(config *lookup.Config, logger *utils.Logger) (lookup.Provider, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if config.ModelName == "" {
		return nil, fmt.Errorf("缺少Ollama模型名称配置")
	}

	// 确保URL以/v1结尾
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = baseURL + "/v1"
	}

	// Ollama不需要真正的API key，但openai客户端需要一个值
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL

	return lookup.NewChatProvider(config, clientConfig, logger), nil
}
