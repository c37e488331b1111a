package intake

import (
	"bytes"
	"context"
	"testing"
	"time"

	apperrors "birdrescue-server-go/src/core/errors"
	"birdrescue-server-go/src/core/providers/dragoneye"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForm_DispatchWritesThrough(t *testing.T) {
	store := NewMemoryDraftStore()
	svc := newTestService(&stubIdentifier{}, nil, store)
	ctx := context.Background()

	form, err := svc.Form(ctx, "session-a")
	require.NoError(t, err)
	_, err = form.Dispatch(ctx, Action{Kind: ActionChange, Field: FieldName, Value: "Ana"})
	require.NoError(t, err)

	saved, found, err := store.Load(ctx, "session-a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ana", saved.Name)

	// 新的服务实例从存储恢复草稿
	restored := newTestService(&stubIdentifier{}, nil, store)
	form, err = restored.Form(ctx, "session-a")
	require.NoError(t, err)
	assert.Equal(t, "Ana", form.State().Draft.Name)
	assert.Empty(t, form.State().Touched)
}

func TestForm_SaveFailureKeepsState(t *testing.T) {
	svc := newTestService(&stubIdentifier{}, nil, failingStore{NewMemoryDraftStore()})
	ctx := context.Background()

	form, err := svc.Form(ctx, "session-a")
	require.NoError(t, err)
	_, err = form.Dispatch(ctx, Action{Kind: ActionChange, Field: FieldName, Value: "Ana"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInternal))
	assert.Empty(t, form.State().Draft.Name)

	// blur 不修改草稿，不需要写入
	state, err := form.Dispatch(ctx, Action{Kind: ActionBlur, Field: FieldPhone})
	require.NoError(t, err)
	assert.Equal(t, msgPhoneRequired, state.Errors[FieldPhone])
}

func TestSubmit_InvalidBlocks(t *testing.T) {
	store := NewMemoryDraftStore()
	identifier := &stubIdentifier{}
	svc := newTestService(identifier, nil, store)
	ctx := context.Background()

	form, err := svc.Form(ctx, "session-a")
	require.NoError(t, err)
	_, err = form.Dispatch(ctx, Action{Kind: ActionChange, Field: FieldEmail, Value: "not-an-email"})
	require.NoError(t, err)

	report, state, err := svc.Submit(ctx, "session-a")
	require.Error(t, err)
	assert.Nil(t, report)

	appErr := apperrors.As(err)
	assert.Equal(t, 422, appErr.Status)
	assert.Equal(t, msgEmailInvalid, appErr.Fields["email"])
	assert.Equal(t, msgPhoneRequired, appErr.Fields["phone"])
	assert.True(t, state.Touched[FieldPhone])
	assert.Equal(t, msgPhoneRequired, state.Errors[FieldPhone])

	// 草稿保留，没有调用识别服务
	saved, found, err := store.Load(ctx, "session-a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "not-an-email", saved.Email)
	assert.Zero(t, identifier.Calls())
}

func TestSubmit_ValidClearsDraft(t *testing.T) {
	store := NewMemoryDraftStore()
	identifier := &stubIdentifier{results: []func(context.Context) (dragoneye.Identification, error){
		species("Passer domesticus"),
	}}
	svc := newTestService(identifier, nil, store)
	ctx := context.Background()

	form, err := svc.Form(ctx, "session-a")
	require.NoError(t, err)
	for _, a := range []Action{
		{Kind: ActionChange, Field: FieldName, Value: "Ana"},
		{Kind: ActionChange, Field: FieldEmail, Value: "a@b.co"},
		{Kind: ActionChange, Field: FieldPhone, Value: "+15551234567"},
		{Kind: ActionChange, Field: FieldLocation, Value: "Riverside park"},
	} {
		_, err := form.Dispatch(ctx, a)
		require.NoError(t, err)
	}

	flow, err := svc.Flow(ctx, "session-a")
	require.NoError(t, err)
	_, err = flow.Upload(ctx, "bird.jpg", bytes.NewReader(pngBytes(t)), ConditionInjured)
	require.NoError(t, err)

	report, state, err := svc.Submit(ctx, "session-a")
	require.NoError(t, err)
	assert.Len(t, report.ID, 26)
	assert.Equal(t, "Ana", report.Draft.Name)
	require.NotNil(t, report.Bird)
	assert.Equal(t, "Passer domesticus", report.Bird.Species)

	assert.Equal(t, NewDraft(), state.Draft)
	_, found, err := store.Load(ctx, "session-a")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestService_Sweep(t *testing.T) {
	svc := newTestService(&stubIdentifier{}, nil, nil)
	now := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := svc.Form(ctx, "old")
	require.NoError(t, err)
	now = now.Add(sessionIdleTTL + time.Minute)
	_, err = svc.Form(ctx, "fresh")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Sweep())
	assert.Len(t, svc.sessions, 1)
	assert.Contains(t, svc.sessions, "fresh")
}

// gatedStore 读取指定会话时阻塞，直到 release 关闭
type gatedStore struct {
	*MemoryDraftStore
	slow    string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Load(ctx context.Context, sessionID string) (Draft, bool, error) {
	if sessionID == g.slow {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.MemoryDraftStore.Load(ctx, sessionID)
}

func TestService_SlowLoadDoesNotBlockOtherSessions(t *testing.T) {
	store := &gatedStore{
		MemoryDraftStore: NewMemoryDraftStore(),
		slow:             "slow",
		entered:          make(chan struct{}, 2),
		release:          make(chan struct{}),
	}
	svc := newTestService(&stubIdentifier{}, nil, store)
	ctx := context.Background()

	forms := make(chan *Form, 2)
	for i := 0; i < 2; i++ {
		go func() {
			form, err := svc.Form(ctx, "slow")
			assert.NoError(t, err)
			forms <- form
		}()
	}
	for i := 0; i < 2; i++ {
		select {
		case <-store.entered:
		case <-time.After(5 * time.Second):
			t.Fatal("slow load never started")
		}
	}

	fast := make(chan error, 1)
	go func() {
		_, err := svc.Form(ctx, "fast")
		fast <- err
	}()
	select {
	case err := <-fast:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("other session blocked by a slow draft load")
	}

	close(store.release)
	first, second := <-forms, <-forms
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Len(t, svc.sessions, 2)
}

func TestSubmit_ChangeDuringSubmitSurvivesReset(t *testing.T) {
	store := NewMemoryDraftStore()
	svc := newTestService(&stubIdentifier{}, nil, store)
	ctx := context.Background()

	form, err := svc.Form(ctx, "session-a")
	require.NoError(t, err)
	_, err = form.Dispatch(ctx, Action{Kind: ActionChange, Field: FieldPhone, Value: "+15551234567"})
	require.NoError(t, err)

	dispatched := make(chan error, 1)
	state, errs, err := form.submit(ctx, func(d Draft) {
		assert.Equal(t, "+15551234567", d.Phone)
		go func() {
			_, err := form.Dispatch(ctx, Action{Kind: ActionChange, Field: FieldName, Value: "Late"})
			dispatched <- err
		}()
		// 提交持有表单锁，期间的动作必须等待
		select {
		case <-dispatched:
			t.Error("dispatch ran inside submit")
		case <-time.After(50 * time.Millisecond):
		}
	})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, NewDraft(), state.Draft)

	select {
	case err := <-dispatched:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch never ran")
	}

	// 提交之后的修改落在新草稿上，没有被清空
	assert.Equal(t, "Late", form.State().Draft.Name)
	assert.Empty(t, form.State().Draft.Phone)
	saved, found, err := store.Load(ctx, "session-a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Late", saved.Name)
}
