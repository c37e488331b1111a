package intake

// UnknownSpecies 识别服务没有给出物种时使用的占位值
const UnknownSpecies = "Unknown species"

// BirdInfo 展示给用户的识别结果和护理建议
type BirdInfo struct {
	Species          string   `json:"species"`
	ScientificName   string   `json:"scientificName"`
	Confidence       float64  `json:"confidence,omitempty"`
	CommonIssues     []string `json:"commonIssues"`
	ImmediateActions []string `json:"immediateActions"`
	Description      string   `json:"description,omitempty"`
	Habitat          string   `json:"habitat,omitempty"`
	Treatment        []string `json:"treatment,omitempty"`
}

var defaultCommonIssues = []string{
	"Wing injuries",
	"Dehydration",
	"Malnutrition",
}

var defaultImmediateActions = []string{
	"Keep in a quiet, warm place",
	"Avoid handling unnecessarily",
	"Do not attempt to feed",
}

// 按状况追加的第一步建议
var conditionActions = map[Condition]string{
	ConditionOrphaned: "Watch from a distance for an hour, the parents may still be feeding it",
	ConditionSick:     "Wash your hands after handling and keep the bird away from pets",
}

// immediateActions 生成非空的紧急处理建议
func immediateActions(condition Condition) []string {
	actions := make([]string, 0, len(defaultImmediateActions)+1)
	if extra, ok := conditionActions[condition]; ok {
		actions = append(actions, extra)
	}
	return append(actions, defaultImmediateActions...)
}

func commonIssues() []string {
	return append([]string(nil), defaultCommonIssues...)
}
