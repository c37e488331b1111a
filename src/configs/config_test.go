package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_KeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  secure_cookie: true
predict:
  timeout: 5s
lookup:
  type: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.IP)
	assert.True(t, config.Server.SecureCookie)
	assert.False(t, Default().Server.SecureCookie)
	assert.Equal(t, "dragoneye/animals", config.Predict.ModelName)
	assert.Equal(t, "https://api.dragoneye.ai/predict", config.Predict.Endpoint)
	assert.Equal(t, "5s", config.Predict.Timeout)
	assert.Equal(t, "none", config.Lookup.Type)
	assert.Equal(t, int64(10*1024*1024), config.Upload.MaxFileSize)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"有效值", "5s", 5 * time.Second},
		{"空字符串", "", 30 * time.Second},
		{"格式错误", "soon", 30 * time.Second},
		{"负数", "-1s", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTimeout(tt.input, 30*time.Second))
		})
	}
}
