package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"birdrescue-server-go/src/configs"
	"birdrescue-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCfgService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config := configs.Default()
	config.Lookup.Type = "none"

	service, err := NewDefaultCfgService(config, utils.NewWriterLogger(io.Discard, utils.InfoLevel))
	require.NoError(t, err)
	router := gin.New()
	require.NoError(t, service.Start(context.Background(), router, router.Group("/api")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cfg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got PublicConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"Injured", "Sick", "Orphaned", "Not Sure"}, got.Conditions)
	assert.Equal(t, int64(10*1024*1024), got.MaxFileSize)
	assert.False(t, got.Enrichment)
	assert.NotContains(t, rec.Body.String(), "DRAGONEYE_API_KEY")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/cfg", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
