// Package metrics exposes Prometheus collectors for the connection engine.
//
// A nil *Metrics is valid and records nothing, so instrumentation is optional.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "lockwatch").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "lockwatch",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Failure phases for ConnectFailure.
const (
	PhaseOpen = "open"
	PhaseRead = "read"
)

// Metrics holds the engine's collectors.
type Metrics struct {
	connectAttempts     prometheus.Counter
	connectionsOpened   prometheus.Counter
	connectFailures     *prometheus.CounterVec
	reconnectsScheduled prometheus.Counter
	framesReceived      *prometheus.CounterVec
	imageDecodeFailures prometheus.Counter
	commandsSent        *prometheus.CounterVec
	connectionState     *prometheus.GaugeVec

	stateMu   sync.Mutex
	lastState string
}

// New creates and registers the collectors.
//
// Metrics collected:
//   - lockwatch_connect_attempts_total: socket open attempts
//   - lockwatch_connections_opened_total: successful opens
//   - lockwatch_connect_failures_total{phase}: open failures and dropped connections
//   - lockwatch_reconnects_scheduled_total: retry timers scheduled
//   - lockwatch_frames_received_total{kind}: inbound frames by decoded kind
//   - lockwatch_image_decode_failures_total: STATE images that did not decode
//   - lockwatch_commands_sent_total{action}: commands written to the wire
//   - lockwatch_connection_state{state}: 1 for the current engine state
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		connectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connect_attempts_total",
			Help:        "Total number of connection attempts",
			ConstLabels: config.ConstLabels,
		}),

		connectionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connections_opened_total",
			Help:        "Total number of successfully opened connections",
			ConstLabels: config.ConstLabels,
		}),

		connectFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connect_failures_total",
			Help:        "Total connection failures by phase",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		reconnectsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconnects_scheduled_total",
			Help:        "Total number of reconnect attempts scheduled",
			ConstLabels: config.ConstLabels,
		}),

		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_received_total",
			Help:        "Total inbound frames by decoded kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		imageDecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "image_decode_failures_total",
			Help:        "Total STATE images that could not be decoded",
			ConstLabels: config.ConstLabels,
		}),

		commandsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commands_sent_total",
			Help:        "Total commands written to the connection by action",
			ConstLabels: config.ConstLabels,
		}, []string{"action"}),

		connectionState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connection_state",
			Help:        "1 for the current connection state, 0 otherwise",
			ConstLabels: config.ConstLabels,
		}, []string{"state"}),
	}
}

// ConnectAttempt records a socket open attempt.
func (m *Metrics) ConnectAttempt() {
	if m != nil {
		m.connectAttempts.Inc()
	}
}

// ConnectionOpened records a successful open.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connectionsOpened.Inc()
	}
}

// ConnectFailure records a failed open (PhaseOpen) or a dropped
// connection (PhaseRead).
func (m *Metrics) ConnectFailure(phase string) {
	if m != nil {
		m.connectFailures.WithLabelValues(phase).Inc()
	}
}

// ReconnectScheduled records a scheduled retry.
func (m *Metrics) ReconnectScheduled() {
	if m != nil {
		m.reconnectsScheduled.Inc()
	}
}

// FrameReceived records an inbound frame of the given decoded kind.
func (m *Metrics) FrameReceived(kind string) {
	if m != nil {
		m.framesReceived.WithLabelValues(kind).Inc()
	}
}

// ImageDecodeFailure records an image field that did not decode.
func (m *Metrics) ImageDecodeFailure() {
	if m != nil {
		m.imageDecodeFailures.Inc()
	}
}

// CommandSent records a command written to the wire.
func (m *Metrics) CommandSent(action string) {
	if m != nil {
		m.commandsSent.WithLabelValues(action).Inc()
	}
}

// SetState marks state as current and clears the previous one.
func (m *Metrics) SetState(state string) {
	if m == nil {
		return
	}
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	if m.lastState != "" && m.lastState != state {
		m.connectionState.WithLabelValues(m.lastState).Set(0)
	}
	m.connectionState.WithLabelValues(state).Set(1)
	m.lastState = state
}
