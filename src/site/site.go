package site

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"birdrescue-server-go/src/configs"
	"birdrescue-server-go/src/core/auth"
	"birdrescue-server-go/src/core/utils"
	"birdrescue-server-go/src/intake"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html content/*.md
var pageFS embed.FS

//go:embed static/*
var staticFS embed.FS

// page markdown 页面的路由、标题和内容文件
type page struct {
	path      string
	nav       string
	title     string
	file      string
	emergency bool
}

var pages = []page{
	{path: "/", nav: "home", title: "Saving Birds, Preserving Nature", file: "content/home.md"},
	{path: "/help", nav: "help", title: "Emergency Bird Help", file: "content/help.md", emergency: true},
	{path: "/rescue", nav: "rescue", title: "Professional Bird Rescue Services", file: "content/rescue.md"},
	{path: "/faq", nav: "faq", title: "Frequently Asked Questions", file: "content/faq.md"},
}

// ContactPageData 报告表单页
type ContactPageData struct {
	PageData
	State      intake.FormState
	Flow       intake.Snapshot
	Conditions []intake.Condition
	Errors     map[string]string
	Preview    template.URL // data URL，已由图片校验保证格式
}

// DefaultSiteService 站点页面
type DefaultSiteService struct {
	config   *configs.Config
	intake   *intake.Service
	renderer *Renderer
	logger   *utils.TaggedLogger
	bodies   map[string][]byte
}

// NewDefaultSiteService 构造函数，markdown 内容在启动时读取
func NewDefaultSiteService(config *configs.Config, service *intake.Service, logger *utils.Logger) (*DefaultSiteService, error) {
	bodies := make(map[string][]byte, len(pages))
	for _, p := range pages {
		data, err := fs.ReadFile(pageFS, p.file)
		if err != nil {
			return nil, fmt.Errorf("读取页面内容 %s 失败: %w", p.file, err)
		}
		bodies[p.path] = data
	}

	return &DefaultSiteService{
		config:   config,
		intake:   service,
		renderer: NewRenderer(pageFS, logger),
		logger:   logger.WithTag("site"),
		bodies:   bodies,
	}, nil
}

// Start 注册页面路由
func (s *DefaultSiteService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	for _, p := range pages {
		p := p
		engine.GET(p.path, func(c *gin.Context) {
			s.renderer.renderPage(c.Writer, http.StatusOK, "page", MarkdownPageData{
				PageData:  s.pageData(p.title, p.nav),
				Body:      s.renderer.renderMarkdown(s.bodies[p.path]),
				Emergency: p.emergency,
			})
		})
	}
	engine.GET("/contact", s.handleContact)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	engine.StaticFS("/static", http.FS(static))
	engine.NoRoute(s.handleNotFound)

	s.logger.Info("站点页面路由注册完成")
	return nil
}

func (s *DefaultSiteService) pageData(title, nav string) PageData {
	return PageData{
		Title:   title,
		Site:    s.config.Web.Title,
		Hotline: s.config.Web.Hotline,
		Nav:     nav,
	}
}

// handleContact 渲染报告表单，字段值来自保存的草稿
func (s *DefaultSiteService) handleContact(c *gin.Context) {
	sessionID := auth.SessionID(c)
	form, err := s.intake.Form(c.Request.Context(), sessionID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	flow, err := s.intake.Flow(c.Request.Context(), sessionID)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	state := form.State()
	snap := flow.Snapshot()
	errs := make(map[string]string, len(state.Errors))
	for field, msg := range state.Errors {
		errs[string(field)] = msg
	}

	s.renderer.renderPage(c.Writer, http.StatusOK, "contact", ContactPageData{
		PageData:   s.pageData("Report an Injured Bird", "contact"),
		State:      state,
		Flow:       snap,
		Conditions: intake.Conditions,
		Errors:     errs,
		Preview:    template.URL(snap.Preview),
	})
}

func (s *DefaultSiteService) handleNotFound(c *gin.Context) {
	s.renderError(c, http.StatusNotFound, "We couldn't find that page.")
}

func (s *DefaultSiteService) renderError(c *gin.Context, status int, message string) {
	s.renderer.renderPage(c.Writer, status, "error", ErrorPageData{
		PageData:   s.pageData(fmt.Sprintf("Error %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}
