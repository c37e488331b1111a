package intake

import (
	"encoding/json"
	"fmt"
)

// DraftStorageKey 草稿在存储中的固定键
const DraftStorageKey = "bird-rescue-report-draft"

// Condition 鸟的状况
type Condition string

const (
	ConditionInjured  Condition = "Injured"
	ConditionSick     Condition = "Sick"
	ConditionOrphaned Condition = "Orphaned"
	ConditionNotSure  Condition = "Not Sure"
)

// Conditions 表单下拉框的选项顺序
var Conditions = []Condition{ConditionInjured, ConditionSick, ConditionOrphaned, ConditionNotSure}

// ParseCondition 解析状况，未知值返回 false
func ParseCondition(value string) (Condition, bool) {
	for _, c := range Conditions {
		if string(c) == value {
			return c, true
		}
	}
	return "", false
}

// Field 表单字段名，与草稿 JSON 的键一致
type Field string

const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldLocation    Field = "location"
	FieldCondition   Field = "condition"
	FieldDescription Field = "description"
	FieldTimeFound   Field = "timeFound"
)

// Fields 全部可编辑字段
var Fields = []Field{FieldName, FieldEmail, FieldPhone, FieldLocation, FieldCondition, FieldDescription, FieldTimeFound}

// Draft 正在填写的报告
type Draft struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Location    string    `json:"location"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	TimeFound   string    `json:"timeFound"` // datetime-local 格式，如 2026-10-19T08:30
}

// NewDraft 创建空草稿
func NewDraft() Draft {
	return Draft{Condition: ConditionInjured}
}

// Get 读取字段值
func (d Draft) Get(field Field) string {
	switch field {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldPhone:
		return d.Phone
	case FieldLocation:
		return d.Location
	case FieldCondition:
		return string(d.Condition)
	case FieldDescription:
		return d.Description
	case FieldTimeFound:
		return d.TimeFound
	}
	return ""
}

// With 返回修改了一个字段的新草稿
func (d Draft) With(field Field, value string) (Draft, error) {
	switch field {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldPhone:
		d.Phone = value
	case FieldLocation:
		d.Location = value
	case FieldCondition:
		c, ok := ParseCondition(value)
		if !ok {
			return d, fmt.Errorf("unknown condition %q", value)
		}
		d.Condition = c
	case FieldDescription:
		d.Description = value
	case FieldTimeFound:
		d.TimeFound = value
	default:
		return d, fmt.Errorf("unknown field %q", field)
	}
	return d, nil
}

// MarshalDraft 序列化草稿
func MarshalDraft(d Draft) ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDraft 反序列化草稿，缺失或非法的状况回落到默认值
func UnmarshalDraft(data []byte) (Draft, error) {
	d := NewDraft()
	if err := json.Unmarshal(data, &d); err != nil {
		return NewDraft(), err
	}
	if _, ok := ParseCondition(string(d.Condition)); !ok {
		d.Condition = ConditionInjured
	}
	return d, nil
}
