package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUpstream_HidesDetail(t *testing.T) {
	err := NewUpstream(fmt.Errorf("dragoneye 401: invalid key sk-secret"))

	assert.Equal(t, KindUpstream, err.Kind)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Equal(t, "Failed to process image", err.Message)
	assert.NotContains(t, err.Message, "sk-secret")
}

func TestIs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("读取失败: %w", NewIO(stderrors.New("unexpected EOF")))

	assert.True(t, Is(wrapped, KindIO))
	assert.False(t, Is(wrapped, KindUpstream))
	assert.False(t, Is(stderrors.New("plain"), KindIO))
}

func TestAs_DefaultsToInternal(t *testing.T) {
	appErr := As(stderrors.New("boom"))
	assert.Equal(t, KindInternal, appErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)

	v := NewFieldValidation(map[string]string{"phone": "Phone number is required"})
	assert.Same(t, v, As(v))
	assert.Equal(t, http.StatusUnprocessableEntity, v.Status)
}

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "VALIDATION: No image file provided", NewValidation("No image file provided").Error())
	assert.Equal(t, "IO: Could not read the selected file: eof", NewIO(stderrors.New("eof")).Error())
}
