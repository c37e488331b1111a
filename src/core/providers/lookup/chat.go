package lookup

import (
	"context"
	"fmt"
	"time"

	"birdrescue-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You help volunteers of a wild bird rescue. Answer with at most five short factual " +
	"statements, one per line, no introduction. If you do not know, answer with nothing."

// maxSnippets 每次查询最多保留的片段数
const maxSnippets = 5

// ChatProvider 用 OpenAI 兼容的对话接口实现查询
type ChatProvider struct {
	*BaseProvider
	client *openai.Client
	logger *utils.TaggedLogger
}

// NewChatProvider 创建对话查询提供者，clientConfig 由具体提供者决定
func NewChatProvider(config *Config, clientConfig openai.ClientConfig, logger *utils.Logger) *ChatProvider {
	return &ChatProvider{
		BaseProvider: NewBaseProvider(config),
		client:       openai.NewClientWithConfig(clientConfig),
		logger:       logger.WithTag("lookup"),
	}
}

// Search 实现 Provider 接口
func (p *ChatProvider) Search(ctx context.Context, query string) ([]string, error) {
	config := p.Config()
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(config.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("查询失败: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	snippets := SplitSnippets(resp.Choices[0].Message.Content, maxSnippets)
	p.logger.Debug("查询完成", map[string]interface{}{
		"query":    query,
		"snippets": len(snippets),
	})
	return snippets, nil
}
