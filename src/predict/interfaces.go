package predict

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
)

// PredictService 定义识别代理服务接口
type PredictService interface {
	// 将代理路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// Forwarder 持有凭证、负责调用第三方识别接口
type Forwarder interface {
	Predict(ctx context.Context, filename, contentType string, image io.Reader) ([]byte, error)
}
