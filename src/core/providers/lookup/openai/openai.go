package openai

import (
	"fmt"

	"birdrescue-server-go/src/core/providers/lookup"
	"birdrescue-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// 注册提供者
func init() {
	lookup.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI查询提供者
func NewProvider(config *lookup.Config, logger *utils.Logger) (lookup.Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if config.ModelName == "" {
		config.ModelName = openai.GPT4oMini
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	return lookup.NewChatProvider(config, clientConfig, logger), nil
}
