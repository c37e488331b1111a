package static

import (
	"context"
	"strings"

	"birdrescue-server-go/src/core/providers/lookup"
	"birdrescue-server-go/src/core/utils"
)

// 不依赖外部服务的通用护理资料，按查询中的关键词返回
var topics = []struct {
	keyword  string
	snippets []string
}{
	{"habitat", []string{
		"Most songbirds nest in shrubs, hedges and tree cavities close to food sources.",
		"Return a recovered bird to the area where it was found whenever possible.",
	}},
	{"treatment", []string{
		"Place the bird in a ventilated cardboard box lined with a soft towel.",
		"Keep the box somewhere dark, warm and quiet, away from pets and children.",
		"Do not give food or water unless a rehabilitator tells you to.",
		"Contact a licensed wildlife rehabilitator as soon as possible.",
	}},
	{"description", []string{
		"Wild birds stressed by injury often sit fluffed up and allow close approach.",
	}},
}

// Provider 内置资料查询
type Provider struct {
	*lookup.BaseProvider
}

// 注册提供者
func init() {
	lookup.Register("static", NewProvider)
	lookup.Register("none", NewNoneProvider)
}

// NewProvider 创建内置资料查询提供者
func NewProvider(config *lookup.Config, logger *utils.Logger) (lookup.Provider, error) {
	return &Provider{BaseProvider: lookup.NewBaseProvider(config)}, nil
}

// Search 实现 Provider 接口
func (p *Provider) Search(ctx context.Context, query string) ([]string, error) {
	q := strings.ToLower(query)
	for _, topic := range topics {
		if strings.Contains(q, topic.keyword) {
			return append([]string(nil), topic.snippets...), nil
		}
	}
	return nil, nil
}

// NoneProvider 关闭补充查询时使用，总是返回空结果
type NoneProvider struct {
	*lookup.BaseProvider
}

// NewNoneProvider 创建空查询提供者
func NewNoneProvider(config *lookup.Config, logger *utils.Logger) (lookup.Provider, error) {
	return &NoneProvider{BaseProvider: lookup.NewBaseProvider(config)}, nil
}

// Search 实现 Provider 接口
func (p *NoneProvider) Search(ctx context.Context, query string) ([]string, error) {
	return nil, nil
}
