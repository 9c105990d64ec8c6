package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/resize/pkg/formgate"
	"github.com/vango-dev/resize/pkg/protocol"
	"github.com/vango-dev/resize/pkg/telemetry"
	"github.com/vango-dev/resize/pkg/transcript"
)

// transcriptSaveTimeout bounds a single transcript upload.
const transcriptSaveTimeout = 10 * time.Second

// Form is a submitted change-type form.
type Form struct {
	// Action is the form's declared submission URL. Relative actions are
	// resolved against the manager's page URL.
	Action string

	// Value is the selected instance type.
	Value string

	// Gate guards the form against duplicate submissions.
	Gate *formgate.Gate

	// View receives the operation's effects.
	View View
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDialer replaces the WebSocket dialer built from the config.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) {
		if d != nil {
			m.dialer = d
		}
	}
}

// WithMetrics records operation metrics.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithTracer records a span per operation.
func WithTracer(tracer *telemetry.Tracer) Option {
	return func(m *Manager) { m.tracer = tracer }
}

// WithTranscripts saves a transcript of every finished operation.
func WithTranscripts(store transcript.Store) Option {
	return func(m *Manager) { m.transcripts = store }
}

// Manager owns the channels of the operations started from one page. All
// channel callbacks are serialized through a single event loop goroutine,
// which is also the only goroutine that calls into views.
type Manager struct {
	page   *url.URL
	config *Config
	dialer *websocket.Dialer
	logger *slog.Logger

	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
	transcripts transcript.Store

	events  chan loopEvent
	done    chan struct{}
	stopped chan struct{}
	saves   sync.WaitGroup

	mu     sync.Mutex
	live   map[uuid.UUID]*Operation
	byForm map[*Form]*Operation
	closed bool

	closeOnce sync.Once
}

// loopEvent is an event addressed to one operation. A shutdown event
// carries no token.
type loopEvent struct {
	token    uuid.UUID
	event    Event
	shutdown bool
}

// NewManager creates a manager for the page at pageURL and starts its event
// loop. A nil config uses DefaultConfig. Call Close to stop it.
func NewManager(pageURL string, config *Config, opts ...Option) (*Manager, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("channel: invalid page URL: %w", err)
	}
	if !page.IsAbs() || page.Host == "" {
		return nil, fmt.Errorf("channel: page URL %q is not absolute", pageURL)
	}

	if config == nil {
		config = DefaultConfig()
	} else {
		config = config.Clone()
	}
	config.normalize()

	m := &Manager{
		page:   page,
		config: config,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
		logger:  slog.Default().With("component", "channel"),
		events:  make(chan loopEvent, config.EventQueueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		live:    make(map[uuid.UUID]*Operation),
		byForm:  make(map[*Form]*Operation),
	}
	for _, opt := range opts {
		opt(m)
	}

	go m.loop()
	return m, nil
}

// Config returns a copy of the manager's effective configuration.
func (m *Manager) Config() *Config {
	return m.config.Clone()
}

// Begin starts an operation for form. It acquires the form's gate, derives
// the channel URL and dials in the background; ctx bounds the dial only.
// It returns ErrFormBusy, without opening a channel, when the form already
// has an operation in flight.
//
// Submitting a form whose previous operation ended with a server-reported
// error while its channel is still open supersedes that channel.
func (m *Manager) Begin(ctx context.Context, form *Form) (*Operation, error) {
	if form == nil || form.Gate == nil || form.View == nil {
		return nil, ErrInvalidForm
	}
	payload, err := protocol.EncodeCommand(form.Value)
	if err != nil {
		return nil, err
	}
	target, err := ChannelURL(m.page, form.Action)
	if err != nil {
		return nil, err
	}

	if !form.Gate.TryAcquire() {
		return nil, ErrFormBusy
	}

	op := &Operation{
		id:         uuid.New(),
		form:       form,
		manager:    m,
		channelURL: target.String(),
		startedAt:  time.Now(),
		done:       make(chan struct{}),
	}
	// The gate is held from here on, even if a teardown overtakes the submit.
	op.state.Busy = true

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		form.Gate.Release()
		return nil, ErrManagerClosed
	}
	prev := m.byForm[form]
	m.live[op.id] = op
	m.byForm[form] = op
	m.mu.Unlock()

	if prev != nil {
		m.logger.Debug("superseding channel", "op", prev.id, "by", op.id)
		m.post(prev.id, Event{Kind: EventTeardown})
	}
	m.post(op.id, Event{Kind: EventSubmit, Data: payload})

	go op.dial(ctx)
	return op, nil
}

// Close tears down every live operation, stops the event loop and waits
// for pending transcript uploads. It must not be called from a View.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()

		m.events <- loopEvent{shutdown: true}
		<-m.stopped
		m.saves.Wait()
	})
	return nil
}

// post queues an event for the loop. Events posted after the loop stopped
// are dropped.
func (m *Manager) post(token uuid.UUID, ev Event) {
	select {
	case m.events <- loopEvent{token: token, event: ev}:
	case <-m.done:
	}
}

// loop is the manager's single event loop.
func (m *Manager) loop() {
	defer close(m.stopped)

	for le := range m.events {
		if le.shutdown {
			m.shutdown()
			return
		}
		m.handle(le)
	}
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	ops := make([]*Operation, 0, len(m.live))
	for _, op := range m.live {
		ops = append(ops, op)
	}
	m.mu.Unlock()

	for _, op := range ops {
		m.apply(op, Event{Kind: EventTeardown})
	}
	close(m.done)
}

func (m *Manager) handle(le loopEvent) {
	m.mu.Lock()
	op := m.live[le.token]
	m.mu.Unlock()

	if op == nil {
		m.logger.Debug("dropping event for revoked channel",
			"op", le.token,
			"event", le.event.Kind)
		return
	}
	m.apply(op, le.event)
}

// apply runs one transition for op and performs its effects.
func (m *Manager) apply(op *Operation, ev Event) {
	prev := op.state
	next, effects := Transition(prev, ev, m.config.ClosePolicy)
	op.state = next

	m.observe(op, prev, next, ev)
	for _, eff := range effects {
		m.perform(op, eff)
	}

	if next.Phase == PhaseTerminated && prev.Phase != PhaseTerminated {
		m.finish(op)
	}
}

// observe records an event in logs, metrics, the span and the transcript.
func (m *Manager) observe(op *Operation, prev, next State, ev Event) {
	switch ev.Kind {
	case EventSubmit:
		if next.Phase == PhaseConnecting {
			m.metrics.OperationStarted()
			_, op.span = m.tracer.StartOperation(context.Background(), telemetry.OperationInfo{
				ID:         op.id.String(),
				ChannelURL: op.channelURL,
				Request:    next.Request,
			})
			op.record = &transcript.Transcript{
				ID:         op.id.String(),
				Action:     op.form.Action,
				ChannelURL: op.channelURL,
				Request:    next.Request,
				StartedAt:  op.startedAt,
			}
			m.logger.Info("operation started",
				"op", op.id,
				"url", op.channelURL,
				"request", next.Request)
		}

	case EventOpen:
		if next.Phase == PhaseOpen {
			op.span.Event("open")
			m.logger.Debug("channel open", "op", op.id)
		}

	case EventFrame:
		if next.Frames == prev.Frames {
			return
		}
		op.record.Record(time.Now(), ev.Data)
		if next.Outcome == OutcomeDecodeError {
			m.metrics.DecodeError()
			m.metrics.FrameReceived("invalid")
			op.span.Event("decode_error")
			m.logger.Warn("undecodable frame",
				"op", op.id,
				"error", next.Err)
			return
		}
		m.metrics.FrameReceived(next.Last.Status.String())
		op.span.Frame(next.Last.Status.String(), next.Last.Message)
		m.logger.Debug("frame",
			"op", op.id,
			"status", next.Last.Status,
			"message", next.Last.Message)

	case EventChannelError:
		if next.ChannelFailed && !prev.ChannelFailed {
			m.metrics.ChannelError()
			op.span.Event("channel_error")
			m.logger.Warn("channel error",
				"op", op.id,
				"error", ev.Err)
		}
	}
}

func (m *Manager) perform(op *Operation, eff Effect) {
	view := op.form.View

	switch eff.Kind {
	case EffectSend:
		go op.send(eff.Payload)
	case EffectShowWaiting:
		m.callView(op, "ShowWaiting", view.ShowWaiting)
	case EffectArmTimer:
		op.armTimer(m.config.FirstFrameTimeout)
	case EffectSetIndicator:
		m.callView(op, "SetIndicator", func() { view.SetIndicator(eff.Indicator) })
	case EffectShowError:
		m.callView(op, "ShowError", func() { view.ShowError(eff.Message) })
	case EffectReload:
		m.callView(op, "Reload", view.Reload)
	case EffectReleaseGate:
		op.form.Gate.Release()
	case EffectCloseChannel:
		go op.closeConn()
	case EffectUnknownOutcome:
		m.callView(op, "ShowUnknownOutcome", view.ShowUnknownOutcome)
	}
}

// callView runs a view callback, recovering panics so a faulty view cannot
// take down the loop.
func (m *Manager) callView(op *Operation, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("view panic",
				"op", op.id,
				"call", name,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// finish revokes op's liveness token and publishes its result.
func (m *Manager) finish(op *Operation) {
	m.mu.Lock()
	delete(m.live, op.id)
	if m.byForm[op.form] == op {
		delete(m.byForm, op.form)
	}
	m.mu.Unlock()

	op.stopTimer()
	go op.closeConn()

	state := op.state
	elapsed := time.Since(op.startedAt)
	m.metrics.OperationFinished(state.Outcome.String(), elapsed)
	op.span.End(state.Outcome.String(), state.Err)

	if state.Err != nil && state.Outcome != OutcomeServerError {
		m.logger.Warn("operation finished",
			"op", op.id,
			"outcome", state.Outcome,
			"duration", elapsed,
			"error", state.Err)
	} else {
		m.logger.Info("operation finished",
			"op", op.id,
			"outcome", state.Outcome,
			"duration", elapsed)
	}

	if m.transcripts != nil && op.record != nil {
		op.record.Finish(time.Now(), state.Outcome.String(), state.Err)
		m.saves.Add(1)
		go m.saveTranscript(op.record)
	}

	op.outcome = state.Outcome
	op.err = state.Err
	close(op.done)
}

func (m *Manager) saveTranscript(t *transcript.Transcript) {
	defer m.saves.Done()

	ctx, cancel := context.WithTimeout(context.Background(), transcriptSaveTimeout)
	defer cancel()

	if err := m.transcripts.Save(ctx, t); err != nil {
		m.logger.Error("save transcript failed", "op", t.ID, "error", err)
	}
}
