package server

import (
	"context"
	"net/http"

	"birdrescue-server-go/src/configs"
	"birdrescue-server-go/src/core/utils"
	"birdrescue-server-go/src/intake"

	"github.com/gin-gonic/gin"
)

type DefaultCfgService struct {
	logger *utils.Logger
	config *configs.Config
}

// NewDefaultCfgService 构造函数
func NewDefaultCfgService(config *configs.Config, logger *utils.Logger) (*DefaultCfgService, error) {
	service := &DefaultCfgService{
		logger: logger,
		config: config,
	}

	return service, nil
}

// Start 实现 CfgService 接口，注册公开配置路由
func (s *DefaultCfgService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {

	apiGroup.GET("/cfg", s.handleGet)
	apiGroup.OPTIONS("/cfg", s.handleOptions)

	s.logger.Info("Cfg HTTP服务路由注册完成")
	return nil
}

// Public 生成可以公开的配置
func (s *DefaultCfgService) Public() PublicConfig {
	conditions := make([]string, 0, len(intake.Conditions))
	for _, c := range intake.Conditions {
		conditions = append(conditions, string(c))
	}
	lookupType := s.config.Lookup.Type
	return PublicConfig{
		Title:          s.config.Web.Title,
		Hotline:        s.config.Web.Hotline,
		Conditions:     conditions,
		MaxFileSize:    s.config.Upload.MaxFileSize,
		AllowedFormats: append([]string(nil), s.config.Upload.AllowedFormats...),
		Enrichment:     lookupType != "" && lookupType != "none",
	}
}

func (s *DefaultCfgService) handleGet(c *gin.Context) {
	addCORSHeaders(c)
	c.JSON(http.StatusOK, s.Public())
}

func (s *DefaultCfgService) handleOptions(c *gin.Context) {
	addCORSHeaders(c)
	c.Status(http.StatusNoContent)
}

func addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}
