package intake

import (
	"context"
	"fmt"
	"strings"

	"birdrescue-server-go/src/core/utils"

	"golang.org/x/sync/errgroup"
)

// Lookup 补充资料查询：输入查询文本，返回若干文本片段
type Lookup interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Enrichment 根据物种名查到的补充资料，查询失败的部分为空
type Enrichment struct {
	Description string
	Habitat     string
	Treatment   []string
}

// Enricher 并发执行补充查询，任何失败都不会向上传播
type Enricher struct {
	lookup Lookup
	logger *utils.TaggedLogger
}

// NewEnricher 创建补充查询器，lookup 为 nil 时总是返回空结果
func NewEnricher(lookup Lookup, logger *utils.Logger) *Enricher {
	return &Enricher{
		lookup: lookup,
		logger: logger.WithTag("enrich"),
	}
}

// Enrich 查询描述、栖息地和救治建议
func (e *Enricher) Enrich(ctx context.Context, species string) Enrichment {
	var result Enrichment
	if e == nil || e.lookup == nil || species == "" || species == UnknownSpecies {
		return result
	}

	var description, habitat, treatment []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		description = e.search(gctx, fmt.Sprintf("%s bird description", species))
		return nil
	})
	g.Go(func() error {
		habitat = e.search(gctx, fmt.Sprintf("%s habitat", species))
		return nil
	})
	g.Go(func() error {
		treatment = e.search(gctx, fmt.Sprintf("%s injured bird rescue treatment", species))
		return nil
	})
	_ = g.Wait()

	result.Description = strings.Join(description, " ")
	if len(habitat) > 0 {
		result.Habitat = habitat[0]
	}
	result.Treatment = treatment
	return result
}

// search 单次查询，出错时记录日志并返回空
func (e *Enricher) search(ctx context.Context, query string) (snippets []string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn(fmt.Sprintf("补充查询异常: %v", r), map[string]interface{}{"query": query})
			snippets = nil
		}
	}()

	snippets, err := e.lookup.Search(ctx, query)
	if err != nil {
		e.logger.Warn(fmt.Sprintf("补充查询失败: %v", err), map[string]interface{}{"query": query})
		return nil
	}
	return snippets
}
