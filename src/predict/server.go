package predict

import (
	"context"
	"fmt"
	"net/http"

	"birdrescue-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// 解析multipart时保留在内存中的上限，超出部分落到临时文件
	maxMemory = 10 * 1024 * 1024
)

type DefaultPredictService struct {
	logger    *utils.TaggedLogger
	forwarder Forwarder
}

// NewDefaultPredictService 构造函数
func NewDefaultPredictService(forwarder Forwarder, logger *utils.Logger) *DefaultPredictService {
	return &DefaultPredictService{
		logger:    logger.WithTag("predict"),
		forwarder: forwarder,
	}
}

// Start 实现 PredictService 接口，注册代理路由
func (s *DefaultPredictService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/predict", s.handleGet)
	apiGroup.POST("/predict", s.handlePost)
	apiGroup.OPTIONS("/predict", s.handleOptions)

	s.logger.Info("识别代理路由注册完成")
	return nil
}

// handleOptions 处理OPTIONS预检请求，只返回CORS头
func (s *DefaultPredictService) handleOptions(c *gin.Context) {
	addCORSHeaders(c)
	c.Status(http.StatusOK)
}

// handleGet 状态检查
func (s *DefaultPredictService) handleGet(c *gin.Context) {
	addCORSHeaders(c)
	c.String(http.StatusOK, "Prediction proxy is running")
}

// handlePost 接收图片并转发给第三方识别接口
func (s *DefaultPredictService) handlePost(c *gin.Context) {
	addCORSHeaders(c)
	requestID := uuid.NewString()

	if err := c.Request.ParseMultipartForm(maxMemory); err != nil {
		s.logger.Warn(fmt.Sprintf("解析multipart表单失败: %v", err), map[string]interface{}{"request_id": requestID})
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingImage})
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	file, header, err := c.Request.FormFile(ImageField)
	if err != nil {
		s.logger.Warn("请求缺少图片文件", map[string]interface{}{"request_id": requestID})
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingImage})
		return
	}
	defer file.Close()

	s.logger.Info("转发识别请求", map[string]interface{}{
		"request_id": requestID,
		"filename":   header.Filename,
		"size":       header.Size,
	})

	body, err := s.forwarder.Predict(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		// 细节只写日志，调用方只拿到通用提示
		s.logger.Error(fmt.Sprintf("Prediction error: %v", err), map[string]interface{}{"request_id": requestID})
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgUpstream})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}

// addCORSHeaders 添加CORS头
func addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
