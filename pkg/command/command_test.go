package command

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lockwatch-dev/lockwatch/internal/errors"
	"github.com/lockwatch-dev/lockwatch/pkg/protocol"
)

type fakeSender struct {
	connected bool
	sent      []protocol.Command
}

func (s *fakeSender) SendCommand(cmd protocol.Command) bool {
	if !s.connected {
		return false
	}
	s.sent = append(s.sent, cmd)
	return true
}

func TestGateway_Issue(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		connected bool
		wantSent  bool
		wantCode  string
	}{
		{"lock connected", "lock", true, true, ""},
		{"upper case", "LOCK", true, true, ""},
		{"padded", "  Lock\n", true, true, ""},
		{"lock disconnected", "lock", false, false, ""},
		{"unknown", "shutdown", true, false, "E201"},
		{"empty", "", true, false, "E201"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{connected: tt.connected}
			g := New(sender)

			sent, err := g.Issue(tt.input)
			if sent != tt.wantSent {
				t.Errorf("Issue(%q) sent = %v, want %v", tt.input, sent, tt.wantSent)
			}
			if got := errors.CodeOf(err); got != tt.wantCode {
				t.Errorf("Issue(%q) error code = %q, want %q (err=%v)", tt.input, got, tt.wantCode, err)
			}
			if tt.wantCode != "" && len(sender.sent) != 0 {
				t.Errorf("unknown command reached the sender: %v", sender.sent)
			}
			if tt.wantSent {
				if diff := cmp.Diff([]protocol.Command{protocol.Lock}, sender.sent); diff != "" {
					t.Errorf("sent mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestNames(t *testing.T) {
	if diff := cmp.Diff([]string{"lock"}, Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}
