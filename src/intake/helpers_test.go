package intake

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"birdrescue-server-go/src/configs"
	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/image"
	"birdrescue-server-go/src/core/providers/dragoneye"
	"birdrescue-server-go/src/core/utils"

	"github.com/stretchr/testify/require"
)

func testLogger() *utils.Logger {
	return utils.NewWriterLogger(io.Discard, utils.InfoLevel)
}

func testProcessor() *image.ImageProcessor {
	config := configs.Default().Upload
	return image.NewImageProcessor(&config, testLogger())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 120, G: 90, B: 60, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// stubIdentifier 按调用顺序返回预设结果
type stubIdentifier struct {
	mu      sync.Mutex
	calls   int
	results []func(ctx context.Context) (dragoneye.Identification, error)
}

func (s *stubIdentifier) Identify(ctx context.Context, upload *image.Upload) (dragoneye.Identification, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if i >= len(s.results) {
		return dragoneye.Identification{}, errors.New("unexpected call")
	}
	return s.results[i](ctx)
}

func (s *stubIdentifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func species(name string) func(context.Context) (dragoneye.Identification, error) {
	return func(context.Context) (dragoneye.Identification, error) {
		return dragoneye.Identification{Species: name, Score: 0.9}, nil
	}
}

func upstreamFailure(context.Context) (dragoneye.Identification, error) {
	return dragoneye.Identification{}, apperrors.NewUpstream(errors.New("dragoneye 503"))
}

// stubLookup 按查询关键字返回片段
type stubLookup struct {
	mu      sync.Mutex
	queries []string
	answers map[string][]string
	err     error
	panics  bool
}

func (s *stubLookup) Search(ctx context.Context, query string) ([]string, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.panics {
		panic("lookup exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.answers[query], nil
}

func (s *stubLookup) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// recordingNotifier 记录发布的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (r *recordingNotifier) Publish(sessionID string, event StatusEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingNotifier) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	statuses := make([]Status, 0, len(r.events))
	for _, e := range r.events {
		statuses = append(statuses, e.Status)
	}
	return statuses
}

// failingStore 写入总是失败
type failingStore struct {
	*MemoryDraftStore
}

func (failingStore) Save(ctx context.Context, sessionID string, d Draft) error {
	return errors.New("disk full")
}

func newTestService(identifier Identifier, lookup Lookup, store DraftStore) *Service {
	if store == nil {
		store = NewMemoryDraftStore()
	}
	return NewService(Options{
		Store:      store,
		Processor:  testProcessor(),
		Identifier: identifier,
		Lookup:     lookup,
		Notifier:   &recordingNotifier{},
		Logger:     testLogger(),
	})
}
