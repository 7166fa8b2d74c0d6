package engine

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lockwatch-dev/lockwatch/pkg/protocol"
	"github.com/lockwatch-dev/lockwatch/pkg/publish"
)

// pcServer is a minimal stand-in for the monitored PC.
type pcServer struct {
	srv      *httptest.Server
	received chan string
	closeErr chan error
	conns    chan *websocket.Conn
}

func newPCServer(t *testing.T) *pcServer {
	t.Helper()
	s := &pcServer{
		received: make(chan string, 8),
		closeErr: make(chan error, 1),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		s.conns <- conn

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				s.closeErr <- err
				return
			}
			s.received <- string(data)
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *pcServer) endpoint() Endpoint {
	addr := s.srv.Listener.Addr().(*net.TCPAddr)
	return Endpoint{Host: addr.IP.String(), Port: addr.Port}
}

func TestWebSocketDialer_EndToEnd(t *testing.T) {
	pc := newPCServer(t)
	broker := publish.NewBroker()
	defer broker.Close()
	images, cancel := broker.SubscribeImage()
	defer cancel()

	e := New(pc.endpoint(), DefaultPolicy(),
		WithPublisher(broker),
		WithHandshake(true),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	defer e.Close()
	e.Connect()

	var server *websocket.Conn
	select {
	case server = <-pc.conns:
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw a connection")
	}

	select {
	case got := <-pc.received:
		if got != protocol.Handshake {
			t.Fatalf("first frame = %q, want %q", got, protocol.Handshake)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handshake not received")
	}

	// Binary frames are skipped by the transport.
	if err := server.WriteMessage(websocket.BinaryMessage, []byte{0xff}); err != nil {
		t.Fatalf("write binary: %v", err)
	}
	frame := `{"type":"STATE","payload":{"threat":true,"image":"AQID"}}`
	if err := server.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write state: %v", err)
	}

	select {
	case img := <-images:
		if !img.Present || string(img.Data) != "\x01\x02\x03" {
			t.Fatalf("image = %+v", img)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("image not published")
	}

	if !e.SendCommand(protocol.Lock) {
		t.Fatal("SendCommand() = false")
	}
	select {
	case got := <-pc.received:
		if got != `{"type":"COMMAND","payload":{"action":"LOCK"}}` {
			t.Errorf("command frame = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("command not received")
	}

	e.Close()
	select {
	case err := <-pc.closeErr:
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("close error = %v, want normal closure", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe close")
	}
}

func TestWebSocketDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	d := NewWebSocketDialer()
	d.HandshakeTimeout = time.Second
	if _, err := d.Dial(context.Background(), "ws://"+addr); err == nil {
		t.Fatal("Dial() to closed port succeeded")
	}
}
