package site

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"birdrescue-server-go/src/core/utils"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// PageData 所有页面共用的字段
type PageData struct {
	Title   string
	Site    string
	Hotline string
	Nav     string // 当前导航项
}

// MarkdownPageData 由 markdown 内容渲染的静态页面
type MarkdownPageData struct {
	PageData
	Body      template.HTML
	Emergency bool // 是否显示紧急热线横幅
}

// ErrorPageData 错误页
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer 解析并渲染页面模板
type Renderer struct {
	templates map[string]*template.Template
	markdown  goldmark.Markdown
	logger    *utils.TaggedLogger
}

// NewRenderer 从模板文件系统解析全部页面，模板错误直接 panic
func NewRenderer(templateFS fs.FS, logger *utils.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).Option("missingkey=zero").ParseFS(templateFS, "templates/layout.html"))

	pages := map[string]string{
		"page":    "templates/page.html",
		"contact": "templates/contact.html",
		"error":   "templates/error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		logger: logger.WithTag("site"),
	}
}

// renderPage 以指定状态码渲染页面
func (r *Renderer) renderPage(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error(fmt.Sprintf("模板 %s 不存在", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.logger.Error(fmt.Sprintf("模板渲染失败: %v", err), map[string]interface{}{"template": name})
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderMarkdown 把 markdown 转为 HTML，失败时返回转义后的原文
func (r *Renderer) renderMarkdown(md []byte) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert(md, &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(string(md)))
	}
	return template.HTML(buf.String())
}
