package ipc

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

func dialServer(t *testing.T) (*Server, net.Conn, func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	manager := device.NewManager()
	router := NewRouter(manager)
	router.RegisterInline("ping", func(ctx context.Context, cmd Command) Response {
		return ok(cmd, map[string]string{"pong": "1"})
	})
	srv := NewServer(ln, router, manager)
	go srv.Serve()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	cleanup := func() {
		conn.Close()
		srv.Stop()
	}
	return srv, conn, cleanup
}

func TestServerRoundTripsACommand(t *testing.T) {
	_, conn, cleanup := dialServer(t)
	defer cleanup()

	fw := newFrameWriter(conn)
	fr := newFrameReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	// Drain the system_status_check event emitted on connect before
	// exercising the command path, since it races the client's first write.
	var startupEvent Event
	if err := fr.readJSON(&startupEvent); err != nil {
		t.Fatalf("read startup event: %v", err)
	}

	cmd := Command{ProtocolVersion: ProtocolVersion, Kind: "command", CommandID: "1", Type: "ping"}
	if err := fw.writeJSON(cmd); err != nil {
		t.Fatalf("write command: %v", err)
	}

	var resp Response
	if err := fr.readJSON(&resp); err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.Status != StatusOK || resp.Result["pong"] != "1" {
		t.Fatalf("got %+v", resp)
	}
}

func TestServerEmitsSystemStatusCheckOnConnect(t *testing.T) {
	_, conn, cleanup := dialServer(t)
	defer cleanup()

	fr := newFrameReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := fr.readJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.EventType != EvtSystemStatusCheck {
		t.Fatalf("first message eventType = %q, want %q", ev.EventType, EvtSystemStatusCheck)
	}
	if ev.Data["allHealthy"] != "true" {
		t.Fatalf("allHealthy = %q, want true with no registered devices", ev.Data["allHealthy"])
	}
	if ev.EventID == "" {
		t.Fatal("EmitEvent should fill in a non-empty EventID")
	}
}

func TestServerPreemptsPriorClientOnNewConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	manager := device.NewManager()
	router := NewRouter(manager)
	srv := NewServer(ln, router, manager)
	go srv.Serve()
	defer srv.Stop()

	first, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	defer first.Close()

	second, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	first.SetReadDeadline(time.Now().Add(2 * time.Second))
	// The first client may be sent its own system_status_check event before
	// it is dropped, so read to end of stream rather than a single byte.
	_, err = io.Copy(io.Discard, first)
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		t.Fatal("expected the first connection to be closed once a second client connects")
	}
}
