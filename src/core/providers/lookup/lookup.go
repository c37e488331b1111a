package lookup

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"birdrescue-server-go/src/core/providers"
	"birdrescue-server-go/src/core/utils"
)

// Config 补充查询提供者配置
type Config struct {
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Provider 补充查询提供者：输入查询文本，返回若干文本片段
type Provider interface {
	providers.Provider
	Search(ctx context.Context, query string) ([]string, error)
}

// BaseProvider 基础实现
type BaseProvider struct {
	config *Config
}

// NewBaseProvider 创建基础提供者
func NewBaseProvider(config *Config) *BaseProvider {
	return &BaseProvider{config: config}
}

// Config 获取配置
func (p *BaseProvider) Config() *Config {
	return p.config
}

// Initialize 初始化提供者
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup 清理资源
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory 工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建并初始化提供者实例
func Create(name string, config *Config, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("未知的查询提供者: %s", name)
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建查询提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化查询提供者失败: %v", err)
	}

	return provider, nil
}

var listMarker = regexp.MustCompile(`^(?:[-*•]|\d+[.)])\s+`)

// maxSnippetRunes 单个片段的长度上限
const maxSnippetRunes = 300

// SplitSnippets 把模型返回的多行文本拆成片段，去掉列表符号、markdown 标记和空行
func SplitSnippets(text string, limit int) []string {
	snippets := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		line = utils.TruncateAtSentence(utils.RemoveMarkdownSyntax(line), maxSnippetRunes)
		if line == "" {
			continue
		}
		snippets = append(snippets, line)
		if limit > 0 && len(snippets) >= limit {
			break
		}
	}
	return snippets
}
