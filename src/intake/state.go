package intake

// ActionKind 表单动作类型
type ActionKind string

const (
	ActionChange ActionKind = "change" // 字段内容变化
	ActionBlur   ActionKind = "blur"   // 字段失去焦点
	ActionReset  ActionKind = "reset"  // 提交成功后清空
)

// Action 作用于表单状态的一次动作
type Action struct {
	Kind  ActionKind `json:"kind"`
	Field Field      `json:"field"`
	Value string     `json:"value"`
}

// FormState 表单的全部界面状态
type FormState struct {
	Draft   Draft          `json:"draft"`
	Touched map[Field]bool `json:"touched"`
	Errors  FieldErrors    `json:"errors"`
}

// NewFormState 用已有草稿初始化状态，此时没有字段被触碰，也没有错误
func NewFormState(d Draft) FormState {
	return FormState{
		Draft:   d,
		Touched: map[Field]bool{},
		Errors:  FieldErrors{},
	}
}

// clone 复制 map，保证 Reduce 不修改传入的状态
func (s FormState) clone() FormState {
	next := FormState{
		Draft:   s.Draft,
		Touched: make(map[Field]bool, len(s.Touched)),
		Errors:  make(FieldErrors, len(s.Errors)),
	}
	for k, v := range s.Touched {
		next.Touched[k] = v
	}
	for k, v := range s.Errors {
		next.Errors[k] = v
	}
	return next
}

// revalidate 重新计算单个字段的错误
func (s *FormState) revalidate(field Field) {
	if msg := ValidateField(field, s.Draft.Get(field)); msg != "" {
		s.Errors[field] = msg
	} else {
		delete(s.Errors, field)
	}
}

// Reduce 表单状态的唯一更新入口。
// change 修改字段，字段被触碰过时重新校验；blur 标记触碰并校验；reset 回到空草稿。
func Reduce(s FormState, a Action) (FormState, error) {
	next := s.clone()

	switch a.Kind {
	case ActionChange:
		d, err := next.Draft.With(a.Field, a.Value)
		if err != nil {
			return s, err
		}
		next.Draft = d
		if next.Touched[a.Field] {
			next.revalidate(a.Field)
		}
	case ActionBlur:
		if _, err := next.Draft.With(a.Field, next.Draft.Get(a.Field)); err != nil {
			return s, err
		}
		next.Touched[a.Field] = true
		next.revalidate(a.Field)
	case ActionReset:
		next = NewFormState(NewDraft())
	default:
		return s, errUnknownAction(a.Kind)
	}

	return next, nil
}

// touchAll 提交时把所有需要校验的字段标记为已触碰并给出错误
func touchAll(s FormState) FormState {
	next := s.clone()
	for field := range validators {
		next.Touched[field] = true
		next.revalidate(field)
	}
	return next
}

type errUnknownAction ActionKind

func (e errUnknownAction) Error() string {
	return "unknown action " + string(e)
}
