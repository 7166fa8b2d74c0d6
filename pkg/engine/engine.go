package engine

import (
	"bytes"
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lockwatch-dev/lockwatch/internal/clock"
	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/metrics"
	"github.com/lockwatch-dev/lockwatch/pkg/protocol"
	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

const tracerName = "github.com/lockwatch-dev/lockwatch/pkg/engine"

// Engine maintains the connection to one endpoint.
type Engine struct {
	id        string
	endpoint  Endpoint
	url       string
	policy    Policy
	publisher publish.Publisher
	dialer    Dialer
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	handshake bool

	mailbox chan message
	done    chan struct{}
	state   atomic.Int32

	// Owned by the loop goroutine.
	current     State
	conn        Conn
	generation  uint64
	attempt     int
	retryTimer  *clock.Timer
	lastImage   []byte
	failureSent bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets where status, image and failure notifications go.
// Default: publish.Discard
func WithPublisher(p publish.Publisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithDialer sets the transport.
// Default: NewWebSocketDialer()
func WithDialer(d Dialer) Option {
	return func(e *Engine) {
		e.dialer = d
	}
}

// WithClock sets the clock used for retry timers.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics sets the collectors. Nil disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer for dial and command spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithHandshake makes the engine send the PHONE_CLIENT greeting after each
// successful open.
func WithHandshake(enabled bool) Option {
	return func(e *Engine) {
		e.handshake = enabled
	}
}

// New creates an Engine in the Disconnected state and starts its loop.
// Call Connect to dial and Close to stop.
func New(endpoint Endpoint, policy Policy, opts ...Option) *Engine {
	if endpoint.Port == 0 {
		endpoint.Port = DefaultPort
	}
	if policy.Delay <= 0 {
		policy.Delay = DefaultRetryDelay
	}

	e := &Engine{
		id:        uuid.NewString(),
		endpoint:  endpoint,
		url:       endpoint.URL(),
		policy:    policy,
		publisher: publish.Discard,
		clock:     clock.Real(),
		mailbox:   make(chan message),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.publisher == nil {
		e.publisher = publish.Discard
	}
	if e.dialer == nil {
		e.dialer = NewWebSocketDialer()
	}
	if e.clock == nil {
		e.clock = clock.Real()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	e.logger = e.logger.With("engine_id", e.id, "endpoint", e.url)

	e.state.Store(int32(StateDisconnected))
	e.metrics.SetState(StateDisconnected.String())

	go e.loop()
	return e
}

// ID returns the unique identifier of this engine instance.
func (e *Engine) ID() string { return e.id }

// Endpoint returns the endpoint the engine dials.
func (e *Engine) Endpoint() Endpoint { return e.endpoint }

// Policy returns the reconnect policy.
func (e *Engine) Policy() Policy { return e.policy }

// State returns the current connection state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Connect starts a connection attempt. It does nothing unless the engine is
// Disconnected and not closed.
func (e *Engine) Connect() {
	e.post(connectMsg{})
}

// SendCommand writes cmd if the engine is connected and reports whether the
// frame was transmitted.
func (e *Engine) SendCommand(cmd protocol.Command) bool {
	reply := make(chan bool, 1)
	if !e.post(sendMsg{cmd: cmd, reply: reply}) {
		return false
	}
	return <-reply
}

// LastImage returns a copy of the most recent snapshot received from the PC.
func (e *Engine) LastImage() ([]byte, bool) {
	reply := make(chan []byte, 1)
	if !e.post(imageQuery{reply: reply}) {
		return nil, false
	}
	img := <-reply
	return img, img != nil
}

// Close cancels any pending retry, closes the connection with a normal
// closure and stops the engine. The engine cannot be reused.
func (e *Engine) Close() error {
	e.post(closeMsg{})
	<-e.done
	return nil
}

// Done is closed once the engine has stopped.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Mailbox messages.
type (
	message interface{}

	connectMsg struct{}

	dialResult struct {
		generation uint64
		conn       Conn
		err        error
	}

	frameMsg struct {
		generation uint64
		data       []byte
	}

	readError struct {
		generation uint64
		err        error
	}

	retryMsg struct {
		generation uint64
	}

	sendMsg struct {
		cmd   protocol.Command
		reply chan bool
	}

	imageQuery struct {
		reply chan []byte
	}

	closeMsg struct{}
)

// post delivers m to the loop. The mailbox is unbuffered, so a true result
// means the loop has taken the message; false means the loop has stopped.
func (e *Engine) post(m message) bool {
	select {
	case e.mailbox <- m:
		return true
	case <-e.done:
		return false
	}
}

func (e *Engine) loop() {
	defer close(e.done)

	for m := range e.mailbox {
		if stop := e.handle(m); stop {
			return
		}
	}
}

func (e *Engine) handle(m message) bool {
	switch m := m.(type) {
	case connectMsg:
		e.handleConnect()
	case dialResult:
		e.handleDialResult(m)
	case frameMsg:
		e.handleFrame(m)
	case readError:
		e.handleReadError(m)
	case retryMsg:
		e.handleRetry(m)
	case sendMsg:
		m.reply <- e.handleSend(m.cmd)
	case imageQuery:
		m.reply <- bytes.Clone(e.lastImage)
	case closeMsg:
		e.teardown()
		return true
	}
	return false
}

func (e *Engine) handleConnect() {
	if e.current != StateDisconnected {
		e.logger.Debug("connect ignored", "state", e.current)
		return
	}
	e.dial()
}

// dial starts one attempt in its own goroutine. The attempt is never
// interrupted; its result is matched against the generation on arrival.
func (e *Engine) dial() {
	e.generation++
	e.attempt++
	e.setState(StateConnecting)
	e.metrics.ConnectAttempt()

	generation := e.generation
	attempt := e.attempt
	e.logger.Debug("dialing", "attempt", attempt)

	go func() {
		ctx, span := e.tracer.Start(context.Background(), "lockwatch.connect",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("lockwatch.engine_id", e.id),
				attribute.String("lockwatch.endpoint", e.url),
				attribute.Int("lockwatch.attempt", attempt),
			),
		)
		conn, err := e.dialer.Dial(ctx, e.url)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if !e.post(dialResult{generation: generation, conn: conn, err: err}) && conn != nil {
			// The engine stopped while dialing.
			conn.Close()
		}
	}()
}

func (e *Engine) handleDialResult(m dialResult) {
	if m.generation != e.generation || e.current != StateConnecting {
		if m.conn != nil {
			m.conn.Close()
		}
		return
	}

	if m.err != nil {
		e.metrics.ConnectFailure(metrics.PhaseOpen)
		e.logger.Warn("connect failed", "attempt", e.attempt, "error", m.err)
		e.lost()
		return
	}

	e.conn = m.conn
	e.setState(StateConnected)
	e.metrics.ConnectionOpened()
	e.logger.Info("connected", "attempt", e.attempt)
	e.publisher.PublishStatus(StatusConnected)

	if e.handshake {
		if err := e.conn.WriteMessage([]byte(protocol.Handshake)); err != nil {
			e.logger.Error("handshake error", "error", lwerrors.New("E401").Wrap(err))
		}
	}

	go e.readLoop(e.generation, e.conn)
}

func (e *Engine) readLoop(generation uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			e.post(readError{generation: generation, err: err})
			return
		}
		if !e.post(frameMsg{generation: generation, data: data}) {
			return
		}
	}
}

func (e *Engine) handleFrame(m frameMsg) {
	if m.generation != e.generation || e.current != StateConnected {
		return
	}

	ev := protocol.Decode(m.data)
	e.metrics.FrameReceived(ev.Kind.String())

	if ev.Kind != protocol.KindStateUpdate {
		e.logger.Debug("frame ignored", "bytes", len(m.data))
		return
	}

	if ev.Threat {
		e.publisher.PublishStatus(StatusIntruder)
	} else {
		e.publisher.PublishStatus(StatusConnected)
	}

	switch ev.Image.Status {
	case protocol.ImagePresent:
		// Subscribers get their own copy of the snapshot.
		e.lastImage = ev.Image.Data
		e.publisher.PublishImage(true, bytes.Clone(ev.Image.Data))
	case protocol.ImageAbsent:
		e.lastImage = nil
		e.publisher.PublishImage(false, nil)
	case protocol.ImageInvalid:
		e.metrics.ImageDecodeFailure()
		e.logger.Warn("image decode failed, keeping previous image")
	}
}

func (e *Engine) handleReadError(m readError) {
	if m.generation != e.generation || e.current != StateConnected {
		return
	}
	e.metrics.ConnectFailure(metrics.PhaseRead)
	e.logger.Info("connection lost", "error", m.err)
	e.lost()
}

// lost applies the reconnect policy after an open or read failure.
func (e *Engine) lost() {
	e.releaseConn()

	if e.policy.Mode == GiveUpAfterFirstFailure {
		e.publisher.PublishStatus(StatusFailed)
		if !e.failureSent {
			e.failureSent = true
			e.publisher.PublishConnectionFailure()
		}
		e.setState(StateFailed)
		return
	}

	e.publisher.PublishStatus(StatusRetrying)
	generation := e.generation
	e.retryTimer = e.clock.AfterFunc(e.policy.Delay, func() {
		e.post(retryMsg{generation: generation})
	})
	e.metrics.ReconnectScheduled()
	e.setState(StateRetrying)
	e.logger.Debug("reconnect scheduled", "delay", e.policy.Delay)
}

func (e *Engine) handleRetry(m retryMsg) {
	if m.generation != e.generation || e.current != StateRetrying {
		return
	}
	e.retryTimer = nil
	e.dial()
}

func (e *Engine) handleSend(cmd protocol.Command) bool {
	if e.current != StateConnected {
		e.logger.Debug("command dropped", "action", cmd.Action, "state", e.current)
		return false
	}

	_, span := e.tracer.Start(context.Background(), "lockwatch.command",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("lockwatch.engine_id", e.id),
			attribute.String("lockwatch.action", string(cmd.Action)),
		),
	)
	defer span.End()

	if err := e.conn.WriteMessage(protocol.Encode(cmd)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("command write error", "action", cmd.Action, "error", err)
		return false
	}

	e.metrics.CommandSent(string(cmd.Action))
	e.logger.Info("command sent", "action", cmd.Action)
	e.publisher.PublishStatus(cmd.SentStatus())
	return true
}

func (e *Engine) teardown() {
	e.retryTimer.Stop()
	e.retryTimer = nil
	e.releaseConn()
	e.lastImage = nil
	// Invalidate results still in flight.
	e.generation++
	e.setState(StateDisconnected)
	e.logger.Info("engine closed")
}

func (e *Engine) releaseConn() {
	if e.conn == nil {
		return
	}
	if err := e.conn.Close(); err != nil {
		e.logger.Debug("close error", "error", err)
	}
	e.conn = nil
}

func (e *Engine) setState(s State) {
	if e.current == s {
		return
	}
	e.logger.Debug("state change", "from", e.current, "to", s)
	e.current = s
	e.state.Store(int32(s))
	e.metrics.SetState(s.String())
}
