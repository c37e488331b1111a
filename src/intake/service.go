package intake

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/image"
	"birdrescue-server-go/src/core/utils"
)

// sessionIdleTTL 会话在内存中的保留时间，草稿本身仍在存储中
const sessionIdleTTL = 2 * time.Hour

// Form 单个会话的表单，内存状态与存储中的草稿在每次动作后保持一致
type Form struct {
	sessionID string
	store     DraftStore

	mu    sync.Mutex
	state FormState
}

// State 返回当前表单状态
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

// Dispatch 执行一次动作并写穿到存储。写入失败时内存状态不变。
func (f *Form) Dispatch(ctx context.Context, a Action) (FormState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next, err := Reduce(f.state, a)
	if err != nil {
		return f.state.clone(), apperrors.NewValidation(err.Error())
	}

	switch {
	case a.Kind == ActionReset:
		if err := f.store.Clear(ctx, f.sessionID); err != nil {
			return f.state.clone(), apperrors.NewInternal(err)
		}
	case next.Draft != f.state.Draft:
		if err := f.store.Save(ctx, f.sessionID, next.Draft); err != nil {
			return f.state.clone(), apperrors.NewInternal(err)
		}
	}

	f.state = next
	return f.state.clone(), nil
}

// submit 在同一把锁内校验全部字段、提交并清空草稿，期间的其他动作排在其后。
// 校验失败时返回字段错误，草稿保留；清空失败时 commit 已执行，返回错误和当前状态。
func (f *Form) submit(ctx context.Context, commit func(Draft)) (FormState, FieldErrors, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = touchAll(f.state)
	if errs := ValidateDraft(f.state.Draft); len(errs) > 0 {
		return f.state.clone(), errs, nil
	}

	commit(f.state.Draft)

	next, err := Reduce(f.state, Action{Kind: ActionReset})
	if err != nil {
		return f.state.clone(), nil, apperrors.NewInternal(err)
	}
	if err := f.store.Clear(ctx, f.sessionID); err != nil {
		return f.state.clone(), nil, apperrors.NewInternal(err)
	}
	f.state = next
	return f.state.clone(), nil, nil
}

type session struct {
	form     *Form
	flow     *Flow
	lastUsed time.Time
}

// Service 管理所有会话的表单和上传识别流程
type Service struct {
	store      DraftStore
	processor  *image.ImageProcessor
	identifier Identifier
	enricher   *Enricher
	notifier   Notifier
	logger     *utils.Logger

	mu       sync.Mutex
	sessions map[string]*session
	now      func() time.Time
}

// Options 创建 Service 需要的依赖
type Options struct {
	Store      DraftStore
	Processor  *image.ImageProcessor
	Identifier Identifier
	Lookup     Lookup
	Notifier   Notifier
	Logger     *utils.Logger
}

// NewService 创建 Service
func NewService(opts Options) *Service {
	return &Service{
		store:      opts.Store,
		processor:  opts.Processor,
		identifier: opts.Identifier,
		enricher:   NewEnricher(opts.Lookup, opts.Logger),
		notifier:   opts.Notifier,
		logger:     opts.Logger,
		sessions:   make(map[string]*session),
		now:        time.Now,
	}
}

// session 取得或创建会话。草稿只在会话创建时从存储读取一次，读取期间不持有全局锁。
func (s *Service) session(ctx context.Context, sessionID string) (*session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastUsed = s.now()
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	d, found, err := s.store.Load(ctx, sessionID)
	if err != nil {
		// 草稿损坏时从空草稿开始，不阻塞填写
		s.logger.Warn(fmt.Sprintf("加载草稿失败，使用空草稿: %v", err), map[string]interface{}{"session_id": sessionID})
		d = NewDraft()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 并发请求可能已经创建了同一会话
	if sess, ok := s.sessions[sessionID]; ok {
		sess.lastUsed = s.now()
		return sess, nil
	}
	if found {
		s.logger.Debug("已恢复草稿", map[string]interface{}{"session_id": sessionID})
	}

	sess := &session{
		form: &Form{sessionID: sessionID, store: s.store, state: NewFormState(d)},
		flow: NewFlow(sessionID, FlowDeps{
			Processor:  s.processor,
			Identifier: s.identifier,
			Enricher:   s.enricher,
			Notifier:   s.notifier,
			Logger:     s.logger,
		}),
		lastUsed: s.now(),
	}
	s.sessions[sessionID] = sess
	return sess, nil
}

// Form 返回会话的表单
func (s *Service) Form(ctx context.Context, sessionID string) (*Form, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.form, nil
}

// Flow 返回会话的上传识别流程
func (s *Service) Flow(ctx context.Context, sessionID string) (*Flow, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.flow, nil
}

// Sweep 清理长时间未使用的会话，返回清理数量
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-sessionIdleTTL)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor 定期清理会话，直到 ctx 结束
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info(fmt.Sprintf("清理过期会话 %d 个", n))
			}
		}
	}
}
