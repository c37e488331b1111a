package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"birdrescue-server-go/src/core/auth"
	"birdrescue-server-go/src/core/providers/dragoneye"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newTestClient(t *testing.T, svc *Service) *testClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	at, err := auth.NewAuthToken("test-secret")
	require.NoError(t, err)

	router := gin.New()
	router.Use(auth.SessionMiddleware(at, false))
	intake := NewDefaultIntakeService(svc, NewStatusHub(testLogger()), testLogger())
	require.NoError(t, intake.Start(context.Background(), router, router.Group("/api")))
	return &testClient{t: t, router: router}
}

func (c *testClient) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == auth.SessionCookie {
			c.cookie = cookie
		}
	}
	return rec
}

func (c *testClient) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	require.NoError(c.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *testClient) upload(filename string, data []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile(ImageField, filename)
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/identify", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestServer_DraftLifecycle(t *testing.T) {
	client := newTestClient(t, newTestService(&stubIdentifier{}, nil, nil))

	rec := client.do(httptest.NewRequest(http.MethodGet, "/api/draft", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[FormState](t, rec)
	assert.Equal(t, ConditionInjured, state.Draft.Condition)

	rec = client.postJSON("/api/draft/change", map[string]string{"field": "email", "value": "not-an-email"})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[FormState](t, rec)
	assert.Equal(t, "not-an-email", state.Draft.Email)
	assert.Empty(t, state.Errors)

	rec = client.postJSON("/api/draft/blur", map[string]string{"field": "email"})
	require.Equal(t, http.StatusOK, rec.Code)
	state = decode[FormState](t, rec)
	assert.Equal(t, msgEmailInvalid, state.Errors[FieldEmail])

	// 同一个 cookie 读到同一份草稿
	rec = client.do(httptest.NewRequest(http.MethodGet, "/api/draft", nil))
	assert.Equal(t, "not-an-email", decode[FormState](t, rec).Draft.Email)

	rec = client.postJSON("/api/draft/change", map[string]string{"field": "age", "value": "3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = client.postJSON("/api/draft/change", map[string]string{"value": "3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Report(t *testing.T) {
	client := newTestClient(t, newTestService(&stubIdentifier{}, nil, nil))

	rec := client.postJSON("/api/report", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[errorResponse](t, rec)
	assert.Equal(t, msgPhoneRequired, resp.Fields["phone"])

	rec = client.postJSON("/api/draft/change", map[string]string{"field": "phone", "value": "555-123-4567"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = client.postJSON("/api/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[reportResponse](t, rec)
	assert.NotEmpty(t, report.ID)
	assert.Empty(t, report.State.Draft.Phone)
}

func TestServer_Identify(t *testing.T) {
	identifier := &stubIdentifier{results: []func(context.Context) (dragoneye.Identification, error){
		species("Passer domesticus"),
		upstreamFailure,
	}}
	client := newTestClient(t, newTestService(identifier, nil, nil))

	rec := client.upload("", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgMissingImage, decode[identifyResponse](t, rec).Error)

	rec = client.upload("bird.jpg", pngBytes(t))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[identifyResponse](t, rec)
	assert.Equal(t, StatusSuccess, resp.Status)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Passer domesticus", resp.Result.Species)
	assert.NotEmpty(t, resp.Result.ImmediateActions)

	rec = client.upload("bird.jpg", pngBytes(t))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp = decode[identifyResponse](t, rec)
	assert.Equal(t, StatusFailure, resp.Status)
	assert.Equal(t, msgIdentifyFailed, resp.Error)
	assert.NotContains(t, rec.Body.String(), "dragoneye 503")
	require.NotNil(t, resp.Result)
	assert.Equal(t, "Passer domesticus", resp.Result.Species)

	rec = client.upload("notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(decode[identifyResponse](t, rec).Error, "valid"))
}
