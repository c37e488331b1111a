package intake

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/image"
	"birdrescue-server-go/src/core/utils"
)

// Status 上传识别流程的状态
type Status string

const (
	StatusIdle      Status = "idle"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
)

const (
	msgIdentifyFailed = "We couldn't identify the bird. Please try again."
	msgReadFailed     = "We couldn't read that file. Please try another photo."
)

// StatusEvent 推送给前端的状态变化
type StatusEvent struct {
	Seq     uint64    `json:"seq"`
	Status  Status    `json:"status"`
	Notice  string    `json:"notice,omitempty"`
	Result  *BirdInfo `json:"result,omitempty"`
	Updated time.Time `json:"updated"`
}

// Notifier 接收状态变化
type Notifier interface {
	Publish(sessionID string, event StatusEvent)
}

// Snapshot 流程当前状态的只读副本
type Snapshot struct {
	Seq     uint64    `json:"seq"`
	Status  Status    `json:"status"`
	Preview string    `json:"preview,omitempty"`
	Result  *BirdInfo `json:"result,omitempty"`
	Notice  string    `json:"notice,omitempty"`
}

// Flow 单个会话的上传识别流程。
// 每次上传领取一个递增序号，只有最新一次上传的结果会被采用。
type Flow struct {
	sessionID  string
	processor  *image.ImageProcessor
	identifier Identifier
	enricher   *Enricher
	notifier   Notifier
	logger     *utils.TaggedLogger

	mu      sync.Mutex
	seq     uint64
	status  Status
	preview string
	result  *BirdInfo
	notice  string
}

// FlowDeps 创建流程需要的依赖
type FlowDeps struct {
	Processor  *image.ImageProcessor
	Identifier Identifier
	Enricher   *Enricher
	Notifier   Notifier
	Logger     *utils.Logger
}

// NewFlow 创建处于 idle 状态的流程
func NewFlow(sessionID string, deps FlowDeps) *Flow {
	return &Flow{
		sessionID:  sessionID,
		processor:  deps.Processor,
		identifier: deps.Identifier,
		enricher:   deps.Enricher,
		notifier:   deps.Notifier,
		logger:     deps.Logger.WithTag("flow"),
		status:     StatusIdle,
	}
}

// Snapshot 返回当前状态
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	snap := Snapshot{
		Seq:     f.seq,
		Status:  f.status,
		Preview: f.preview,
		Notice:  f.notice,
	}
	if f.result != nil {
		r := *f.result
		snap.Result = &r
	}
	return snap
}

// Upload 读取图片、生成预览、识别并合并结果。
// 读取或校验失败时预览和结果保持不变；识别失败时只更新状态和提示。
func (f *Flow) Upload(ctx context.Context, filename string, r io.Reader, condition Condition) (Snapshot, error) {
	upload, err := f.processor.Read(r, filename)
	if err != nil {
		f.mu.Lock()
		if apperrors.Is(err, apperrors.KindIO) {
			f.notice = msgReadFailed
		} else {
			f.notice = apperrors.As(err).Message
		}
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Warn(fmt.Sprintf("读取上传图片失败: %v", err), map[string]interface{}{"session_id": f.sessionID})
		return snap, err
	}

	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.preview = image.DataURL(upload)
	f.status = StatusUploading
	f.notice = ""
	f.mu.Unlock()
	f.publish(StatusEvent{Seq: seq, Status: StatusUploading})

	ident, err := f.identifier.Identify(ctx, upload)
	if err != nil {
		f.logger.Error(fmt.Sprintf("识别失败: %v", err), map[string]interface{}{"session_id": f.sessionID, "seq": seq})
		return f.finish(seq, nil, err)
	}

	info := &BirdInfo{
		Species:          ident.Species,
		ScientificName:   ident.ScientificName,
		Confidence:       ident.Score,
		CommonIssues:     commonIssues(),
		ImmediateActions: immediateActions(condition),
	}
	if info.Species == "" {
		info.Species = UnknownSpecies
	}

	enrichment := f.enricher.Enrich(ctx, info.Species)
	info.Description = enrichment.Description
	info.Habitat = enrichment.Habitat
	info.Treatment = enrichment.Treatment

	f.logger.Info("识别完成", map[string]interface{}{
		"session_id": f.sessionID,
		"seq":        seq,
		"species":    info.Species,
	})
	return f.finish(seq, info, nil)
}

// finish 在序号仍是最新时提交结果，否则丢弃
func (f *Flow) finish(seq uint64, info *BirdInfo, identifyErr error) (Snapshot, error) {
	f.mu.Lock()
	if seq != f.seq {
		snap := f.snapshotLocked()
		f.mu.Unlock()
		f.logger.Info("丢弃过期的识别结果", map[string]interface{}{"seq": seq, "latest": snap.Seq})
		return snap, nil
	}

	event := StatusEvent{Seq: seq}
	if identifyErr != nil {
		f.status = StatusFailure
		f.notice = msgIdentifyFailed
		event.Status = StatusFailure
		event.Notice = msgIdentifyFailed
	} else {
		f.status = StatusSuccess
		f.result = info
		f.notice = ""
		r := *info
		event.Status = StatusSuccess
		event.Result = &r
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()

	f.publish(event)
	return snap, identifyErr
}

// Result 最近一次成功识别的结果
func (f *Flow) Result() *BirdInfo {
	return f.Snapshot().Result
}

func (f *Flow) publish(event StatusEvent) {
	if f.notifier == nil {
		return
	}
	event.Updated = time.Now()
	f.notifier.Publish(f.sessionID, event)
}
