// Package command maps operator intents to outbound commands.
package command

import (
	"log/slog"
	"strings"

	"github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/protocol"
)

// Sender transmits a command. *engine.Engine implements it.
type Sender interface {
	SendCommand(cmd protocol.Command) bool
}

// Gateway resolves command names and hands them to a Sender.
type Gateway struct {
	sender Sender
	logger *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// New creates a Gateway that sends through sender.
func New(sender Sender, opts ...Option) *Gateway {
	g := &Gateway{sender: sender}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Issue sends the command called name ("lock") and reports whether a frame
// was transmitted. Unknown names return an E201 error.
func (g *Gateway) Issue(name string) (bool, error) {
	action, ok := protocol.ParseAction(name)
	if !ok {
		return false, errors.New("E201").WithDetail("Unknown command " + quote(name))
	}

	sent := g.sender.SendCommand(protocol.Command{Action: action})
	if !sent {
		g.logger.Debug("command not sent", "action", action)
	}
	return sent, nil
}

// Names returns the accepted command names in lower case.
func Names() []string {
	actions := protocol.Actions()
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = strings.ToLower(string(a))
	}
	return names
}

func quote(s string) string {
	return `"` + strings.TrimSpace(s) + `"`
}
