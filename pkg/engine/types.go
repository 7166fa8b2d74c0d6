package engine

import (
	"net"
	"strconv"
	"time"
)

const (
	// DefaultPort is the port the PC-side server listens on.
	DefaultPort = 12345

	// DefaultRetryDelay is the pause between reconnect attempts.
	DefaultRetryDelay = 3 * time.Second
)

// Status texts published by the engine.
const (
	StatusConnected = "Connected"
	StatusRetrying  = "Disconnected — retrying…"
	StatusFailed    = "Connection Failed"
	StatusIntruder  = "⚠️ INTRUDER DETECTED"
)

// Endpoint is the address of the monitored PC.
type Endpoint struct {
	Host string
	Port int
}

// URL returns the WebSocket URL for the endpoint.
func (e Endpoint) URL() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return "ws://" + net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// String returns host:port.
func (e Endpoint) String() string {
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

// State is the connection state of an Engine.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateRetrying
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryMode selects what happens after a connection failure.
type RetryMode int

const (
	// RetryForever reconnects after every failure, with no attempt limit.
	RetryForever RetryMode = iota

	// GiveUpAfterFirstFailure stops at the first failure and publishes a
	// connection failure so the caller can ask for a new endpoint.
	GiveUpAfterFirstFailure
)

// String returns the string representation of the mode.
func (m RetryMode) String() string {
	switch m {
	case RetryForever:
		return "forever"
	case GiveUpAfterFirstFailure:
		return "give-up"
	default:
		return "unknown"
	}
}

// Policy is the reconnect configuration of an Engine.
type Policy struct {
	// Delay is the pause before each reconnect attempt.
	Delay time.Duration

	// Mode selects retrying or giving up.
	Mode RetryMode
}

// DefaultPolicy returns a Policy that retries forever every 3 seconds.
func DefaultPolicy() Policy {
	return Policy{
		Delay: DefaultRetryDelay,
		Mode:  RetryForever,
	}
}
