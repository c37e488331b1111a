package dragoneye

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/utils"
)

const (
	// 上游错误体最多读取的字节数，仅用于日志
	maxErrorBody = 4 * 1024
	// 成功响应体上限
	maxResponseBody = 2 * 1024 * 1024
)

// Config DragonEye 客户端配置
type Config struct {
	Endpoint  string
	ModelName string
	APIKey    string
	Timeout   time.Duration
}

// Client DragonEye 预测接口客户端。凭证只在这里使用，不会出现在返回值或日志中。
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *utils.TaggedLogger
}

// NewClient 创建 DragonEye 客户端
func NewClient(config *Config, logger *utils.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithTag("dragoneye"),
	}
}

// HasCredential 是否配置了凭证
func (c *Client) HasCredential() bool {
	return c.config.APIKey != ""
}

// Predict 将图片转发给 DragonEye，成功时返回原始 JSON。
// 失败一律返回 UPSTREAM 类错误，只尝试一次。
func (c *Client) Predict(ctx context.Context, filename, contentType string, image io.Reader) ([]byte, error) {
	if !c.HasCredential() {
		return nil, apperrors.NewUpstream(fmt.Errorf("未配置 DragonEye 凭证"))
	}

	body, formContentType, err := c.buildForm(filename, contentType, image)
	if err != nil {
		return nil, apperrors.NewUpstream(fmt.Errorf("构建multipart请求失败: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, apperrors.NewUpstream(fmt.Errorf("创建请求失败: %w", err))
	}
	req.Header.Set("Content-Type", formContentType)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstream(fmt.Errorf("DragonEye请求失败: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorText, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("DragonEye API error", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(errorText),
		})
		return nil, apperrors.NewUpstream(fmt.Errorf("DragonEye API error: %s", resp.Status))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, apperrors.NewUpstream(fmt.Errorf("读取DragonEye响应失败: %w", err))
	}
	if !json.Valid(data) {
		c.logger.Error("DragonEye返回了非JSON内容", map[string]interface{}{
			"size": len(data),
		})
		return nil, apperrors.NewUpstream(fmt.Errorf("DragonEye响应不是合法JSON"))
	}

	c.logger.Debug("DragonEye预测完成", map[string]interface{}{
		"filename": filename,
		"elapsed":  time.Since(start).String(),
		"size":     len(data),
	})
	return data, nil
}

// buildForm 构建 model_name + image_file 两个字段的表单
func (c *Client) buildForm(filename, contentType string, image io.Reader) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writer.WriteField("model_name", c.config.ModelName); err != nil {
		return nil, "", err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image_file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
