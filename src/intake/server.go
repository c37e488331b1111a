package intake

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"birdrescue-server-go/src/core/auth"
	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
)

const (
	// ImageField 上传表单中图片字段名
	ImageField = "image_file"

	maxMultipartMemory = 10 * 1024 * 1024
	msgMissingImage    = "No image file provided"
)

// DefaultIntakeService 报告表单和上传识别的 HTTP 接口
type DefaultIntakeService struct {
	service *Service
	hub     *StatusHub
	logger  *utils.TaggedLogger
}

// NewDefaultIntakeService 构造函数，hub 为 nil 时不注册状态推送
func NewDefaultIntakeService(service *Service, hub *StatusHub, logger *utils.Logger) *DefaultIntakeService {
	return &DefaultIntakeService{
		service: service,
		hub:     hub,
		logger:  logger.WithTag("intake"),
	}
}

type changeRequest struct {
	Field Field  `json:"field" binding:"required"`
	Value string `json:"value"`
}

type blurRequest struct {
	Field Field `json:"field" binding:"required"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type identifyResponse struct {
	Snapshot
	Error string `json:"error,omitempty"`
}

type reportResponse struct {
	ID    string    `json:"id"`
	State FormState `json:"state"`
}

// Start 注册路由，所有路由都需要会话中间件
func (s *DefaultIntakeService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	apiGroup.GET("/draft", s.handleDraft)
	apiGroup.POST("/draft/change", s.handleChange)
	apiGroup.POST("/draft/blur", s.handleBlur)
	apiGroup.POST("/identify", s.handleIdentify)
	apiGroup.POST("/report", s.handleReport)
	if s.hub != nil {
		engine.GET("/ws/status", s.handleStatus)
	}

	s.logger.Info("报告表单路由注册完成")
	return nil
}

func (s *DefaultIntakeService) form(c *gin.Context) (*Form, bool) {
	form, err := s.service.Form(c.Request.Context(), auth.SessionID(c))
	if err != nil {
		s.abort(c, err)
		return nil, false
	}
	return form, true
}

func (s *DefaultIntakeService) handleDraft(c *gin.Context) {
	form, ok := s.form(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, form.State())
}

func (s *DefaultIntakeService) handleChange(c *gin.Context) {
	var req changeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "field is required"})
		return
	}
	s.dispatch(c, Action{Kind: ActionChange, Field: req.Field, Value: req.Value})
}

func (s *DefaultIntakeService) handleBlur(c *gin.Context) {
	var req blurRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "field is required"})
		return
	}
	s.dispatch(c, Action{Kind: ActionBlur, Field: req.Field})
}

func (s *DefaultIntakeService) dispatch(c *gin.Context, a Action) {
	form, ok := s.form(c)
	if !ok {
		return
	}
	state, err := form.Dispatch(c.Request.Context(), a)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// handleIdentify 接收图片并运行上传识别流程
func (s *DefaultIntakeService) handleIdentify(c *gin.Context) {
	sessionID := auth.SessionID(c)
	flow, err := s.service.Flow(c.Request.Context(), sessionID)
	if err != nil {
		s.abort(c, err)
		return
	}

	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		c.JSON(http.StatusBadRequest, identifyResponse{Snapshot: flow.Snapshot(), Error: msgMissingImage})
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	file, header, err := c.Request.FormFile(ImageField)
	if err != nil {
		c.JSON(http.StatusBadRequest, identifyResponse{Snapshot: flow.Snapshot(), Error: msgMissingImage})
		return
	}
	defer file.Close()

	condition := ConditionInjured
	if form, err := s.service.Form(c.Request.Context(), sessionID); err == nil {
		condition = form.State().Draft.Condition
	}

	// 浏览器断开后识别仍然完成，结果通过状态推送送达
	ctx := context.WithoutCancel(c.Request.Context())
	snap, err := flow.Upload(ctx, header.Filename, file, condition)
	if err != nil {
		appErr := apperrors.As(err)
		msg := appErr.Message
		if appErr.Kind == apperrors.KindUpstream || appErr.Kind == apperrors.KindInternal || appErr.Kind == apperrors.KindIO {
			msg = snap.Notice
		}
		c.JSON(appErr.Status, identifyResponse{Snapshot: snap, Error: msg})
		return
	}
	c.JSON(http.StatusOK, identifyResponse{Snapshot: snap})
}

func (s *DefaultIntakeService) handleReport(c *gin.Context) {
	report, state, err := s.service.Submit(c.Request.Context(), auth.SessionID(c))
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse{ID: report.ID, State: state})
}

// handleStatus 升级为 websocket 并推送当前会话的流程状态
func (s *DefaultIntakeService) handleStatus(c *gin.Context) {
	sessionID := auth.SessionID(c)
	flow, err := s.service.Flow(c.Request.Context(), sessionID)
	if err != nil {
		s.abort(c, err)
		return
	}
	snap := flow.Snapshot()
	s.hub.Serve(c.Writer, c.Request, sessionID, StatusEvent{
		Seq:     snap.Seq,
		Status:  snap.Status,
		Notice:  snap.Notice,
		Result:  snap.Result,
		Updated: time.Now(),
	})
}

// abort 把错误转换为 JSON 响应，内部细节只写日志
func (s *DefaultIntakeService) abort(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.Status >= http.StatusInternalServerError {
		s.logger.Error(fmt.Sprintf("请求处理失败: %v", err), map[string]interface{}{"path": c.FullPath()})
	}
	c.JSON(appErr.Status, errorResponse{Error: appErr.Message, Fields: appErr.Fields})
}
