package server

import (
	"context"

	"github.com/gin-gonic/gin"
)

// CfgService 定义公开配置服务接口
type CfgService interface {
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// PublicConfig 前端需要知道的配置，不含任何凭证或连接串
type PublicConfig struct {
	Title          string   `json:"title"`
	Hotline        string   `json:"hotline"`
	Conditions     []string `json:"conditions"`
	MaxFileSize    int64    `json:"maxFileSize"`
	AllowedFormats []string `json:"allowedFormats"`
	Enrichment     bool     `json:"enrichment"`
}
