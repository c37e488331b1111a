package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduce_ChangeBeforeBlurShowsNoError(t *testing.T) {
	s := NewFormState(NewDraft())

	s, err := Reduce(s, Action{Kind: ActionChange, Field: FieldEmail, Value: "not-an-email"})
	require.NoError(t, err)
	assert.Equal(t, "not-an-email", s.Draft.Email)
	assert.Empty(t, s.Errors)

	s, err = Reduce(s, Action{Kind: ActionBlur, Field: FieldEmail})
	require.NoError(t, err)
	assert.True(t, s.Touched[FieldEmail])
	assert.Equal(t, msgEmailInvalid, s.Errors[FieldEmail])

	// 触碰过的字段在修改时立即重新校验
	s, err = Reduce(s, Action{Kind: ActionChange, Field: FieldEmail, Value: "a@b.co"})
	require.NoError(t, err)
	assert.NotContains(t, s.Errors, FieldEmail)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := NewFormState(NewDraft())
	next, err := Reduce(s, Action{Kind: ActionBlur, Field: FieldPhone})
	require.NoError(t, err)

	assert.Empty(t, s.Touched)
	assert.Empty(t, s.Errors)
	assert.Equal(t, msgPhoneRequired, next.Errors[FieldPhone])
}

func TestReduce_Condition(t *testing.T) {
	s := NewFormState(NewDraft())
	assert.Equal(t, ConditionInjured, s.Draft.Condition)

	s, err := Reduce(s, Action{Kind: ActionChange, Field: FieldCondition, Value: "Orphaned"})
	require.NoError(t, err)
	assert.Equal(t, ConditionOrphaned, s.Draft.Condition)

	unchanged, err := Reduce(s, Action{Kind: ActionChange, Field: FieldCondition, Value: "Dead"})
	assert.Error(t, err)
	assert.Equal(t, s, unchanged)
}

func TestReduce_Rejects(t *testing.T) {
	s := NewFormState(NewDraft())

	_, err := Reduce(s, Action{Kind: ActionChange, Field: "age", Value: "3"})
	assert.Error(t, err)

	_, err = Reduce(s, Action{Kind: "submit"})
	assert.EqualError(t, err, "unknown action submit")
}

func TestReduce_Reset(t *testing.T) {
	s := NewFormState(NewDraft())
	s, _ = Reduce(s, Action{Kind: ActionChange, Field: FieldName, Value: "Ana"})
	s, _ = Reduce(s, Action{Kind: ActionBlur, Field: FieldPhone})

	s, err := Reduce(s, Action{Kind: ActionReset})
	require.NoError(t, err)
	assert.Equal(t, NewDraft(), s.Draft)
	assert.Empty(t, s.Touched)
	assert.Empty(t, s.Errors)
}
