package editor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/pkg/errors"
)

// stubGenerator 可控的生成器，release 非空时阻塞到被放行或 context 结束
type stubGenerator struct {
	mu      sync.Mutex
	calls   []entity.GenerationInput
	started chan struct{}
	release chan struct{}
	text    string
	err     error
}

func newBlockingGenerator(text string, err error) *stubGenerator {
	return &stubGenerator{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
		text:    text,
		err:     err,
	}
}

func (g *stubGenerator) Generate(ctx context.Context, in entity.GenerationInput) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, in)
	g.mu.Unlock()

	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.text, g.err
}

func (g *stubGenerator) Calls() []entity.GenerationInput {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]entity.GenerationInput(nil), g.calls...)
}

func waitIdle(t *testing.T, m *Machine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Wait(ctx))
}

func TestMachine_InitialState(t *testing.T) {
	m := NewMachine(&stubGenerator{})

	snap := m.Snapshot()
	assert.Equal(t, PhaseUninitialized, snap.Phase)
	assert.Equal(t, entity.StyleAuto, snap.Style)
	assert.False(t, snap.EditorReady)
	assert.Empty(t, snap.Error)

	assert.False(t, m.RequestContinuation(entity.Cursor(0)))
	assert.False(t, m.Continue())
}

func TestMachine_SuccessInsertsAtInsertionPoint(t *testing.T) {
	gen := &stubGenerator{text: "and it was good."}
	m := NewMachine(gen)
	doc := NewDocument("The day began")

	require.True(t, m.Attach(doc))
	require.True(t, m.Continue())
	waitIdle(t, m)

	assert.Equal(t, "The day began and it was good.", doc.FullText())
	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Error)
	assert.NoError(t, m.Err())

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "The day began", calls[0].ContextText)
	assert.False(t, calls[0].IsSelection)
	assert.Equal(t, entity.StyleAuto, calls[0].Style)
}

func TestMachine_SelectionInsertsAfterSelection(t *testing.T) {
	gen := &stubGenerator{text: "Truly."}
	m := NewMachine(gen)
	doc := NewDocument("Hello world")

	require.True(t, m.Attach(doc))
	require.True(t, m.RequestContinuation(entity.Span(0, 5)))
	waitIdle(t, m)

	assert.Equal(t, "Hello Truly. world", doc.FullText())
	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Hello", calls[0].ContextText)
	assert.True(t, calls[0].IsSelection)
}

func TestMachine_FailureRecordsError(t *testing.T) {
	gen := &stubGenerator{err: errors.New(errors.CodeUpstreamError, "rate limited")}
	m := NewMachine(gen)
	doc := NewDocument("Hello world")

	require.True(t, m.Attach(doc))
	require.True(t, m.Continue())
	waitIdle(t, m)

	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "rate limited", snap.Error)
	assert.True(t, errors.Is(m.Err(), errors.CodeUpstreamError))
	assert.Equal(t, "Hello world", doc.FullText())
}

func TestMachine_NewRequestClearsError(t *testing.T) {
	gen := newBlockingGenerator("", errors.New(errors.CodeUpstreamError, "rate limited"))
	m := NewMachine(gen)
	doc := NewDocument("Hello")

	require.True(t, m.Attach(doc))
	require.True(t, m.Continue())
	gen.release <- struct{}{}
	waitIdle(t, m)
	require.Equal(t, "rate limited", m.Snapshot().Error)

	require.True(t, m.Continue())
	<-gen.started
	<-gen.started
	snap := m.Snapshot()
	assert.Equal(t, PhaseFetching, snap.Phase)
	assert.Empty(t, snap.Error)

	close(gen.release)
	waitIdle(t, m)
}

func TestMachine_RejectsRequestWhileFetching(t *testing.T) {
	gen := newBlockingGenerator("more", nil)
	m := NewMachine(gen)
	doc := NewDocument("Start")

	require.True(t, m.Attach(doc))
	require.True(t, m.Continue())
	<-gen.started

	assert.True(t, m.Snapshot().Fetching())
	assert.False(t, m.Continue())
	assert.False(t, m.RequestContinuation(entity.Cursor(0)))
	assert.False(t, m.Attach(NewDocument("other")))

	close(gen.release)
	waitIdle(t, m)

	assert.Len(t, gen.Calls(), 1)
	assert.Equal(t, "Start more", doc.FullText())
}

func TestMachine_SetStyleWhileFetching(t *testing.T) {
	gen := newBlockingGenerator("ok", nil)
	m := NewMachine(gen)
	doc := NewDocument("Text")

	require.True(t, m.Attach(doc))
	require.True(t, m.SetStyle(entity.StyleProfessional))
	require.True(t, m.Continue())
	<-gen.started

	assert.True(t, m.SetStyle(entity.StyleCreative))
	assert.Equal(t, entity.StyleCreative, m.Snapshot().Style)

	close(gen.release)
	waitIdle(t, m)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, entity.StyleProfessional, calls[0].Style)
	assert.Equal(t, entity.StyleCreative, m.Snapshot().Style)
}

func TestMachine_SetStyleIdempotent(t *testing.T) {
	m := NewMachine(&stubGenerator{})

	assert.True(t, m.SetStyle(entity.StyleCasual))
	assert.True(t, m.SetStyle(entity.StyleCasual))
	assert.Equal(t, entity.StyleCasual, m.Snapshot().Style)

	assert.False(t, m.SetStyle(entity.Style("poetic")))
	assert.Equal(t, entity.StyleCasual, m.Snapshot().Style)
}

func TestMachine_DetachDuringFetch(t *testing.T) {
	gen := newBlockingGenerator("late", nil)
	m := NewMachine(gen)
	doc := NewDocument("Body")

	require.True(t, m.Attach(doc))
	require.True(t, m.Continue())
	<-gen.started

	require.True(t, m.Detach())
	snap := m.Snapshot()
	assert.Equal(t, PhaseUninitialized, snap.Phase)
	assert.False(t, snap.EditorReady)
	assert.Equal(t, "editor not ready", snap.Error)

	waitIdle(t, m)
	assert.Equal(t, "Body", doc.FullText())
	assert.Equal(t, PhaseUninitialized, m.Snapshot().Phase)
}

func TestMachine_NeverFetchingWithoutHost(t *testing.T) {
	gen := newBlockingGenerator("x", nil)
	m := NewMachine(gen)

	require.True(t, m.Attach(NewDocument("abc")))
	require.True(t, m.Continue())
	<-gen.started
	require.True(t, m.Detach())

	snap := m.Snapshot()
	assert.False(t, snap.Fetching() && !snap.EditorReady)

	close(gen.release)
	waitIdle(t, m)
}

func TestMachine_InvalidSelectionReturnsToIdle(t *testing.T) {
	gen := &stubGenerator{text: "never"}
	m := NewMachine(gen)
	doc := NewDocument("short")

	require.True(t, m.Attach(doc))
	require.True(t, m.RequestContinuation(entity.Span(2, 40)))

	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "invalid selection", snap.Error)
	assert.Empty(t, gen.Calls())
}

// shrinkingHost 模拟生成期间文档被用户删短，插入位置失效
type shrinkingHost struct {
	*Document
}

func (h shrinkingHost) InsertTextAt(pos int, text string) error {
	return h.Document.InsertTextAt(pos+100, text)
}

func TestMachine_InsertFailureRecordsError(t *testing.T) {
	gen := &stubGenerator{text: "tail"}
	m := NewMachine(gen)
	doc := NewDocument("0123456789")

	require.True(t, m.Attach(shrinkingHost{doc}))
	require.True(t, m.Continue())
	waitIdle(t, m)

	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "insertion point no longer exists", snap.Error)
	assert.True(t, errors.Is(m.Err(), errors.CodeInvalidSelection))
	assert.Equal(t, "0123456789", doc.FullText())
}

// reentrantHost 模拟富文本编辑器：读取选区与插入文本时同步触发变更回调，回调读取状态机快照
type reentrantHost struct {
	*Document
	m         *Machine
	mu        sync.Mutex
	snapshots []Snapshot
}

func (h *reentrantHost) onChange() {
	snap := h.m.Snapshot()
	h.mu.Lock()
	h.snapshots = append(h.snapshots, snap)
	h.mu.Unlock()
}

func (h *reentrantHost) Selection() entity.Selection {
	h.onChange()
	return h.Document.Selection()
}

func (h *reentrantHost) InsertTextAt(pos int, text string) error {
	h.onChange()
	// 插入期间的续写请求应被拒绝
	h.m.Continue()
	return h.Document.InsertTextAt(pos, text)
}

func TestMachine_HostCallbacksMayReenter(t *testing.T) {
	gen := &stubGenerator{text: "and then it rained."}
	m := NewMachine(gen)
	host := &reentrantHost{Document: NewDocument("It was sunny"), m: m}

	require.True(t, m.Attach(host))
	require.True(t, m.Continue())
	waitIdle(t, m)

	assert.Equal(t, "It was sunny and then it rained.", host.FullText())
	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.Error)
	assert.Len(t, gen.Calls(), 1)

	host.mu.Lock()
	defer host.mu.Unlock()
	require.Len(t, host.snapshots, 2)
	assert.Equal(t, PhaseIdle, host.snapshots[0].Phase)
	assert.Equal(t, PhaseFetching, host.snapshots[1].Phase)
}

func TestMachine_TimeoutBecomesError(t *testing.T) {
	gen := newBlockingGenerator("slow", nil)
	m := NewMachine(gen, WithTimeout(20*time.Millisecond))

	require.True(t, m.Attach(NewDocument("abc")))
	require.True(t, m.Continue())
	waitIdle(t, m)

	snap := m.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, context.DeadlineExceeded.Error(), snap.Error)
}

func TestMachine_GeneratorPanicRecovered(t *testing.T) {
	gen := GeneratorFunc(func(ctx context.Context, in entity.GenerationInput) (string, error) {
		panic("boom")
	})
	m := NewMachine(gen)

	require.True(t, m.Attach(NewDocument("abc")))
	require.True(t, m.Continue())
	waitIdle(t, m)

	assert.Equal(t, PhaseIdle, m.Snapshot().Phase)
	assert.True(t, errors.Is(m.Err(), errors.CodeInternalError))
}

func TestMachine_Watch(t *testing.T) {
	gen := newBlockingGenerator("done", nil)
	m := NewMachine(gen)
	ch, cancel := m.Watch()
	defer cancel()

	initial := <-ch
	assert.Equal(t, PhaseUninitialized, initial.Phase)

	require.True(t, m.Attach(NewDocument("abc")))
	assert.Equal(t, PhaseIdle, (<-ch).Phase)

	require.True(t, m.Continue())
	assert.Equal(t, PhaseFetching, (<-ch).Phase)

	close(gen.release)
	waitIdle(t, m)
	final := <-ch
	assert.Equal(t, PhaseIdle, final.Phase)
	assert.Empty(t, final.Error)
}

func TestMachine_WatchCancelClosesChannel(t *testing.T) {
	m := NewMachine(&stubGenerator{})
	ch, cancel := m.Watch()
	<-ch

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, m.SetStyle(entity.StyleCasual))
}

func TestMachine_BaseContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := newBlockingGenerator("never", nil)
	m := NewMachine(gen, WithContext(ctx))

	require.True(t, m.Attach(NewDocument("abc")))
	require.True(t, m.Continue())
	<-gen.started
	cancel()
	waitIdle(t, m)

	assert.ErrorIs(t, m.Err(), context.Canceled)
	assert.Equal(t, PhaseIdle, m.Snapshot().Phase)
}
