package dragoneye

import (
	"encoding/json"
	"fmt"
	"strings"
)

// simpleResult 兼容直接返回物种字段的识别服务
type simpleResult struct {
	Species        string  `json:"species"`
	ScientificName string  `json:"scientificName"`
	Confidence     float64 `json:"confidence"`
}

// ParseIdentification 从识别服务的 JSON 中提取得分最高的最细分类。
// 没有任何预测时返回空的 Identification，由调用方决定兜底值。
func ParseIdentification(body []byte) (Identification, error) {
	var simple simpleResult
	if err := json.Unmarshal(body, &simple); err != nil {
		return Identification{}, fmt.Errorf("解析识别结果失败: %w", err)
	}
	if simple.Species != "" {
		return Identification{
			Species:        strings.TrimSpace(simple.Species),
			ScientificName: strings.TrimSpace(simple.ScientificName),
			Score:          simple.Confidence,
		}, nil
	}

	var resp PredictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Identification{}, fmt.Errorf("解析识别结果失败: %w", err)
	}

	var best Identification
	for _, prediction := range resp.Predictions {
		leaf := deepest(prediction.Category)
		if leaf.Score > best.Score || best.Species == "" {
			best = Identification{
				Species:        displayName(leaf),
				ScientificName: scientificName(leaf),
				Score:          leaf.Score,
			}
		}
	}
	return best, nil
}

// deepest 沿得分最高的子节点下降到叶子
func deepest(category Category) Category {
	for len(category.Children) > 0 {
		next := category.Children[0]
		for _, child := range category.Children[1:] {
			if child.Score > next.Score {
				next = child
			}
		}
		category = next
	}
	return category
}

func displayName(c Category) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// scientificName 只有当 name 看起来是学名（双名法）时才返回
func scientificName(c Category) string {
	if c.Name == "" || c.Name == c.DisplayName {
		return ""
	}
	parts := strings.Fields(c.Name)
	if len(parts) == 2 && parts[0] != "" && parts[0][0] >= 'A' && parts[0][0] <= 'Z' && strings.ToLower(parts[1]) == parts[1] {
		return c.Name
	}
	return ""
}
