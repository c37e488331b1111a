package dragoneye

// PredictResponse DragonEye /predict 返回结构
type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// Prediction 单个检测框的预测
type Prediction struct {
	NormalizedBBox []float64  `json:"normalizedBbox,omitempty"`
	Category       Category   `json:"category"`
	Traits         []Category `json:"traits,omitempty"`
}

// Category 分类节点，children 为更细的分类
type Category struct {
	ID          int64      `json:"id"`
	Type        string     `json:"type,omitempty"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Score       float64    `json:"score"`
	Children    []Category `json:"children,omitempty"`
}

// Identification 从响应中提取出的最佳结果
type Identification struct {
	Species        string
	ScientificName string
	Score          float64
}
