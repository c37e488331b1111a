package intake

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
	"birdrescue-server-go/src/core/image"
	"birdrescue-server-go/src/core/providers/dragoneye"
)

// Identifier 识别上传图片中的物种
type Identifier interface {
	Identify(ctx context.Context, upload *image.Upload) (dragoneye.Identification, error)
}

// Predictor 直接调用第三方识别接口的客户端，由 dragoneye.Client 实现
type Predictor interface {
	Predict(ctx context.Context, filename, contentType string, image io.Reader) ([]byte, error)
}

// DirectIdentifier 在服务端直接调用第三方识别接口
type DirectIdentifier struct {
	predictor Predictor
}

// NewDirectIdentifier 创建直连识别器
func NewDirectIdentifier(predictor Predictor) *DirectIdentifier {
	return &DirectIdentifier{predictor: predictor}
}

// Identify 实现 Identifier 接口
func (d *DirectIdentifier) Identify(ctx context.Context, upload *image.Upload) (dragoneye.Identification, error) {
	body, err := d.predictor.Predict(ctx, upload.Filename, upload.ContentType, bytes.NewReader(upload.Data))
	if err != nil {
		return dragoneye.Identification{}, err
	}
	ident, err := dragoneye.ParseIdentification(body)
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewUpstream(err)
	}
	return ident, nil
}

// ProxyIdentifier 通过识别代理接口识别，不持有任何凭证
type ProxyIdentifier struct {
	url        string
	httpClient *http.Client
}

// NewProxyIdentifier 创建代理识别器
func NewProxyIdentifier(url string, timeout time.Duration) *ProxyIdentifier {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ProxyIdentifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Identify 实现 Identifier 接口
func (p *ProxyIdentifier) Identify(ctx context.Context, upload *image.Upload) (dragoneye.Identification, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image_file"; filename=%q`, upload.Filename))
	header.Set("Content-Type", upload.ContentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewInternal(err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return dragoneye.Identification{}, apperrors.NewInternal(err)
	}
	if err := writer.Close(); err != nil {
		return dragoneye.Identification{}, apperrors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, body)
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewInternal(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewUpstream(fmt.Errorf("识别代理请求失败: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewUpstream(fmt.Errorf("读取识别代理响应失败: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errResp)
		return dragoneye.Identification{}, apperrors.NewUpstream(fmt.Errorf("识别代理返回 %d: %s", resp.StatusCode, errResp.Error))
	}

	ident, err := dragoneye.ParseIdentification(data)
	if err != nil {
		return dragoneye.Identification{}, apperrors.NewUpstream(err)
	}
	return ident, nil
}
