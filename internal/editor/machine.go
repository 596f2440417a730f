package editor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/pkg/errors"
	"quill-ai-editor/pkg/logger"
)

// Phase 交互状态
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseIdle          Phase = "idle"
	PhaseFetching      Phase = "fetching"
)

// String 实现 fmt.Stringer
func (p Phase) String() string {
	return string(p)
}

// DefaultTimeout 单次生成尝试的默认超时
const DefaultTimeout = 30 * time.Second

// Event 状态机事件，只能是本包定义的四种类型
type Event interface {
	isEvent()
}

// EditorReady 宿主编辑器就绪，附带宿主引用
type EditorReady struct {
	Host Host
}

// EditorDetached 宿主编辑器被销毁
type EditorDetached struct{}

// SetStyle 切换写作风格
type SetStyle struct {
	Style entity.Style
}

// RequestContinuation 用户触发续写，附带触发瞬间的选区
type RequestContinuation struct {
	Selection entity.Selection
}

func (EditorReady) isEvent()         {}
func (EditorDetached) isEvent()      {}
func (SetStyle) isEvent()            {}
func (RequestContinuation) isEvent() {}

// Snapshot 状态机对外可见的状态
type Snapshot struct {
	Phase       Phase
	Style       entity.Style
	Error       string
	EditorReady bool
}

// Fetching 是否正在生成
func (s Snapshot) Fetching() bool {
	return s.Phase == PhaseFetching
}

// Option 状态机选项
type Option func(*Machine)

// WithTimeout 设置单次生成尝试的超时，非正值表示不设超时
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) {
		m.timeout = d
	}
}

// WithContext 设置后台生成使用的父 context，取消后在途请求随之终止
func WithContext(ctx context.Context) Option {
	return func(m *Machine) {
		if ctx != nil {
			m.baseCtx = ctx
		}
	}
}

// WithStyle 设置初始风格
func WithStyle(s entity.Style) Option {
	return func(m *Machine) {
		if s.Valid() {
			m.style = s
		}
	}
}

// Machine 续写交互状态机
//
// 状态迁移：uninitialized --EditorReady--> idle --RequestContinuation--> fetching --完成--> idle。
// fetching 期间拒绝新的续写请求，风格切换仍被接受但不影响在途请求。
// 所有状态变更在互斥锁内完成，生成调用在独立 goroutine 中执行。
// 调用宿主方法时不持锁，宿主回调中可以读取快照或投递事件。
type Machine struct {
	gen     Generator
	baseCtx context.Context
	timeout time.Duration

	mu      sync.Mutex
	phase   Phase
	style   entity.Style
	host    Host
	lastErr error
	// hostSeq 每次挂载或分离宿主时递增，用于识别锁外读写期间宿主是否变化
	hostSeq uint64

	// current 为在途尝试编号，0 表示没有需要处理结果的尝试
	attemptSeq uint64
	current    uint64
	cancel     context.CancelFunc

	// running 为仍在运行的生成 goroutine 数，归零时关闭 drained
	running int
	drained chan struct{}

	watchers    map[uint64]chan Snapshot
	nextWatcher uint64
}

// attempt 单次生成尝试，在进入 fetching 时捕获
type attempt struct {
	id    uint64
	ctx   context.Context
	req   entity.RequestContext
	input entity.GenerationInput
}

// NewMachine 创建状态机，初始状态为 uninitialized，风格为 auto
func NewMachine(gen Generator, opts ...Option) *Machine {
	m := &Machine{
		gen:      gen,
		baseCtx:  context.Background(),
		timeout:  DefaultTimeout,
		phase:    PhaseUninitialized,
		style:    entity.DefaultStyle,
		watchers: make(map[uint64]chan Snapshot),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send 投递事件，返回事件是否被当前状态接受
func (m *Machine) Send(ev Event) bool {
	switch e := ev.(type) {
	case RequestContinuation:
		return m.requestContinuation(&e.Selection)
	case *RequestContinuation:
		if e != nil {
			return m.requestContinuation(&e.Selection)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatchLocked(ev)
}

// Attach 等价于 Send(EditorReady{Host: h})
func (m *Machine) Attach(h Host) bool {
	return m.Send(EditorReady{Host: h})
}

// Detach 等价于 Send(EditorDetached{})
func (m *Machine) Detach() bool {
	return m.Send(EditorDetached{})
}

// SetStyle 等价于 Send(SetStyle{Style: s})
func (m *Machine) SetStyle(s entity.Style) bool {
	return m.Send(SetStyle{Style: s})
}

// RequestContinuation 等价于 Send(RequestContinuation{Selection: sel})
func (m *Machine) RequestContinuation(sel entity.Selection) bool {
	return m.Send(RequestContinuation{Selection: sel})
}

// Continue 读取宿主当前选区并触发续写
func (m *Machine) Continue() bool {
	return m.requestContinuation(nil)
}

// Snapshot 返回当前状态
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Err 返回最近一次失败的原始错误，成功或新请求开始后为 nil
func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Watch 订阅状态变化
//
// 返回的通道容量为 1，只保留最新快照，慢消费者不会阻塞状态机。
// 订阅时立即推送当前快照。调用 cancel 后通道被关闭。
func (m *Machine) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	m.mu.Lock()
	id := m.nextWatcher
	m.nextWatcher++
	m.watchers[id] = ch
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}

// Wait 等待在途生成结束，没有在途生成时立即返回
func (m *Machine) Wait(ctx context.Context) error {
	m.mu.Lock()
	if m.running == 0 {
		m.mu.Unlock()
		return nil
	}
	drained := m.drained
	m.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Machine) dispatchLocked(ev Event) bool {
	var accepted bool
	switch e := ev.(type) {
	case EditorReady:
		accepted = m.onEditorReady(e)
	case *EditorReady:
		accepted = e != nil && m.onEditorReady(*e)
	case EditorDetached, *EditorDetached:
		accepted = m.onEditorDetached()
	case SetStyle:
		accepted = m.onSetStyle(e)
	case *SetStyle:
		accepted = e != nil && m.onSetStyle(*e)
	}

	if accepted {
		m.publishLocked()
	} else {
		m.ignoredLocked(ev)
	}
	return accepted
}

func (m *Machine) ignoredLocked(ev Event) {
	logger.Debug(m.baseCtx, "editor event ignored",
		"event", fmt.Sprintf("%T", ev),
		"phase", m.phase.String(),
	)
}

func (m *Machine) onEditorReady(e EditorReady) bool {
	if e.Host == nil || m.phase == PhaseFetching {
		return false
	}
	m.host = e.Host
	m.hostSeq++
	m.phase = PhaseIdle
	return true
}

func (m *Machine) onEditorDetached() bool {
	if m.host == nil {
		return false
	}
	m.host = nil
	m.hostSeq++
	if m.phase == PhaseFetching {
		// 放弃在途尝试，其结果到达后被丢弃
		m.abandonLocked()
		m.lastErr = errors.ErrEditorNotReady
	}
	m.phase = PhaseUninitialized
	return true
}

func (m *Machine) onSetStyle(e SetStyle) bool {
	if !e.Style.Valid() {
		return false
	}
	m.style = e.Style
	return true
}

// requestContinuation 处理续写请求。sel 为 nil 时读取宿主当前选区。
// 选区与上下文在锁外读取，重新加锁后确认仍处于 idle 且宿主未变化才进入 fetching
func (m *Machine) requestContinuation(sel *entity.Selection) bool {
	m.mu.Lock()
	if m.phase != PhaseIdle {
		m.ignoredLocked(RequestContinuation{})
		m.mu.Unlock()
		return false
	}
	host, seq := m.host, m.hostSeq
	m.mu.Unlock()

	var req entity.RequestContext
	err := error(errors.ErrEditorNotReady)
	if host != nil {
		req, err = readRequest(host, sel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseIdle || m.hostSeq != seq {
		m.ignoredLocked(RequestContinuation{})
		return false
	}

	m.lastErr = nil
	m.phase = PhaseFetching
	if err != nil {
		m.failLocked(err)
	} else {
		m.startLocked(req)
	}
	m.publishLocked()
	return true
}

// startLocked 为已提取的上下文启动一次生成尝试
func (m *Machine) startLocked(req entity.RequestContext) {
	ctx := logger.WithContext(m.baseCtx, logger.StyleKey, m.style.String())
	var cancel context.CancelFunc
	if m.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	m.attemptSeq++
	a := attempt{
		id:  m.attemptSeq,
		ctx: ctx,
		req: req,
		input: entity.GenerationInput{
			ContextText: req.Text,
			Style:       m.style,
			IsSelection: req.IsSelection,
		},
	}
	m.current = a.id
	m.cancel = cancel

	if m.running == 0 {
		m.drained = make(chan struct{})
	}
	m.running++

	go m.run(a)
}

func (m *Machine) run(a attempt) {
	ctx := a.ctx
	logger.Debug(ctx, "continuation requested",
		"mode", string(a.req.Mode()),
		"context_runes", utf8.RuneCountInString(a.input.ContextText),
		"insert_at", a.req.InsertAt,
	)

	text, err := m.generate(ctx, a.input)

	m.mu.Lock()
	host, seq := m.host, m.hostSeq
	current := m.current == a.id
	m.mu.Unlock()

	// 插入在锁外进行，宿主的变更回调可以重入状态机
	var insertErr error
	if current && err == nil && host != nil {
		insertErr = safeInsert(host, a.req.InsertAt, " "+text)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == a.id {
		attached := host != nil && m.host != nil && m.hostSeq == seq
		m.completeLocked(ctx, err, insertErr, attached, a.req.InsertAt)
		m.current = 0
		m.cancel()
		m.cancel = nil
		m.publishLocked()
	} else {
		logger.Debug(ctx, "stale continuation result discarded")
	}

	m.running--
	if m.running == 0 {
		close(m.drained)
	}
}

func (m *Machine) generate(ctx context.Context, in entity.GenerationInput) (text string, err error) {
	if m.gen == nil {
		return "", errors.ErrServiceUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeInternalError, fmt.Sprintf("generator panic: %v", r))
		}
	}()
	return m.gen.Generate(ctx, in)
}

func (m *Machine) completeLocked(ctx context.Context, err, insertErr error, attached bool, insertAt int) {
	if err != nil {
		logger.Warn(ctx, "continuation failed",
			"code", string(errors.CodeOf(err)),
			"error", err.Error(),
		)
		m.failLocked(err)
		return
	}

	if !attached {
		m.failLocked(errors.ErrEditorNotReady)
		return
	}

	if insertErr != nil {
		logger.Warn(ctx, "insert generated text failed", "error", insertErr.Error())
		m.failLocked(errors.Wrap(insertErr, errors.CodeInvalidSelection, "insertion point no longer exists"))
		return
	}

	m.lastErr = nil
	m.phase = PhaseIdle
	logger.Debug(ctx, "continuation inserted", "insert_at", insertAt)
}

// abandonLocked 取消在途尝试并使其结果失效
func (m *Machine) abandonLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.current = 0
}

// failLocked 记录错误并回到 idle，宿主已分离时回到 uninitialized
func (m *Machine) failLocked(err error) {
	m.lastErr = err
	if m.host == nil {
		m.phase = PhaseUninitialized
		return
	}
	m.phase = PhaseIdle
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{
		Phase:       m.phase,
		Style:       m.style,
		Error:       strings.TrimSpace(errors.Message(m.lastErr)),
		EditorReady: m.host != nil,
	}
}

func (m *Machine) publishLocked() {
	snap := m.snapshotLocked()
	for _, ch := range m.watchers {
		// 发送方只在持锁时写入，清空后必有空位
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// readRequest 读取选区并提取上下文，宿主 panic 转为错误
func readRequest(h Host, sel *entity.Selection) (req entity.RequestContext, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.CodeInternalError, fmt.Sprintf("host panic: %v", r))
		}
	}()
	var s entity.Selection
	if sel != nil {
		s = *sel
	} else {
		s = h.Selection()
	}
	return Extract(s, h)
}

func safeInsert(h Host, pos int, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host insert panic: %v", r)
		}
	}()
	return h.InsertTextAt(pos, text)
}
