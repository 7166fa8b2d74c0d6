package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lockwatch-dev/lockwatch/pkg/metrics"
	"github.com/lockwatch-dev/lockwatch/pkg/protocol"
)

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	h := newHarness(t, RetryForever, WithMetrics(m))

	h.engine.Connect()
	h.dialer.refuse(t)
	waitForState(t, h.engine, StateRetrying)
	if !h.clock.WaitForPending(1, 2*time.Second) {
		t.Fatal("no retry timer scheduled")
	}
	h.clock.Advance(3 * time.Second)

	conn := newFakeConn()
	h.dialer.accept(t, conn)
	waitForState(t, h.engine, StateConnected)

	conn.deliver(t, stateFrame(false, "AQID"))
	conn.deliver(t, stateFrame(false, "%%%"))
	conn.deliver(t, `{"type":"PING"}`)
	h.engine.SendCommand(protocol.Lock)
	h.sync()

	expected := `
# HELP lockwatch_connect_attempts_total Total number of connection attempts
# TYPE lockwatch_connect_attempts_total counter
lockwatch_connect_attempts_total 2
# HELP lockwatch_connect_failures_total Total connection failures by phase
# TYPE lockwatch_connect_failures_total counter
lockwatch_connect_failures_total{phase="open"} 1
# HELP lockwatch_reconnects_scheduled_total Total number of reconnect attempts scheduled
# TYPE lockwatch_reconnects_scheduled_total counter
lockwatch_reconnects_scheduled_total 1
# HELP lockwatch_frames_received_total Total inbound frames by decoded kind
# TYPE lockwatch_frames_received_total counter
lockwatch_frames_received_total{kind="state"} 2
lockwatch_frames_received_total{kind="unrecognized"} 1
# HELP lockwatch_image_decode_failures_total Total STATE images that could not be decoded
# TYPE lockwatch_image_decode_failures_total counter
lockwatch_image_decode_failures_total 1
# HELP lockwatch_commands_sent_total Total commands written to the connection by action
# TYPE lockwatch_commands_sent_total counter
lockwatch_commands_sent_total{action="LOCK"} 1
# HELP lockwatch_connection_state 1 for the current connection state, 0 otherwise
# TYPE lockwatch_connection_state gauge
lockwatch_connection_state{state="connected"} 1
lockwatch_connection_state{state="connecting"} 0
lockwatch_connection_state{state="disconnected"} 0
lockwatch_connection_state{state="retrying"} 0
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"lockwatch_connect_attempts_total",
		"lockwatch_connect_failures_total",
		"lockwatch_reconnects_scheduled_total",
		"lockwatch_frames_received_total",
		"lockwatch_image_decode_failures_total",
		"lockwatch_commands_sent_total",
		"lockwatch_connection_state",
	)
	if err != nil {
		t.Error(err)
	}
}
