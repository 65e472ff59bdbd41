package ipc

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kiosko/devicectld/internal/device"
)

// statusCheckBudget bounds how long system_status_check is allowed to
// block command processing before it finishes in the background
// (spec.md §4.5.5).
const statusCheckBudget = 5 * time.Second

const cancelSettleDelay = 500 * time.Millisecond

// Server owns the accept loop and the single live client connection
// (spec.md §4.5.1: at most one client at a time).
type Server struct {
	listener net.Listener
	router   *Router
	manager  *device.Manager

	mu         sync.Mutex
	writeMu    sync.Mutex
	frameOut   *frameWriter
	clientConn net.Conn

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewServer(listener net.Listener, router *Router, manager *device.Manager) *Server {
	return &Server{
		listener: listener,
		router:   router,
		manager:  manager,
		stopCh:   make(chan struct{}),
	}
}

// Serve runs the accept loop until Stop is called. One client is served at
// a time; a new connection preempts whatever client was previously
// attached.
func (s *Server) Serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				log.Warningf("ipc: accept error: %v", err)
				continue
			}
		}
		s.wg.Add(1)
		go s.handleClient(conn)
	}
}

func (s *Server) Stop() {
	close(s.stopCh)
	s.listener.Close()
	s.router.Stop()
	s.wg.Wait()
}

func (s *Server) handleClient(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.mu.Lock()
	if s.clientConn != nil {
		s.clientConn.Close()
	}
	s.clientConn = conn
	s.frameOut = newFrameWriter(&lockedWriter{mu: &s.writeMu, w: conn})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.clientConn == conn {
			s.clientConn = nil
			s.frameOut = nil
		}
		s.mu.Unlock()
		s.onClientDisconnected()
	}()

	go s.onClientConnected()

	cache := newIdempotencyCache()
	fr := newFrameReader(conn)
	for {
		var cmd Command
		if err := fr.readJSON(&cmd); err != nil {
			return
		}
		ctx := context.Background()
		resp := s.router.Dispatch(ctx, cmd, cache)
		s.mu.Lock()
		out := s.frameOut
		s.mu.Unlock()
		if out == nil {
			continue
		}
		if err := out.writeJSON(resp); err != nil {
			return
		}
	}
}

// lockedWriter serializes writes from command responses and event
// broadcasts, which otherwise race on the same connection.
type lockedWriter struct {
	mu *sync.Mutex
	w  net.Conn
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// EmitEvent writes ev to the currently connected client, if any. Events
// emitted with no client attached are dropped by design (spec.md §4.5.4).
func (s *Server) EmitEvent(ev Event) {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	ev.ProtocolVersion = ProtocolVersion
	ev.Kind = "event"

	s.mu.Lock()
	out := s.frameOut
	s.mu.Unlock()
	if out == nil {
		return
	}
	if err := out.writeJSON(ev); err != nil {
		log.Warningf("ipc: event write failed: %v", err)
	}
}

// onClientDisconnected cancels any in-flight payment campaign, best
// effort and non-blocking (spec.md §4.5.2).
func (s *Server) onClientDisconnected() {
	for _, id := range s.manager.AllIDs() {
		adapter, ok := s.manager.Lookup(id)
		if !ok {
			continue
		}
		if pt, ok := adapter.(device.PaymentTerminal); ok && pt.GetState() == device.StateProcessing {
			go pt.CancelPayment()
		}
	}
}

// onClientConnected runs the system status check (spec.md §4.5.5): for
// any payment terminal mid-transaction it first cancels and waits for the
// state to settle, then runs check_device on every registered device and
// emits a single system_status_check event. The whole pass is budgeted at
// 5s; past that it keeps running in the background and the event still
// fires whenever it finishes.
func (s *Server) onClientConnected() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runStatusCheck()
	}()
	select {
	case <-done:
	case <-time.After(statusCheckBudget):
		log.Warning("ipc: system status check exceeded budget, continuing in background")
	}
}

func (s *Server) runStatusCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	allHealthy := true
	type deviceStatus struct {
		id      string
		kind    device.Kind
		state   device.State
		healthy bool
	}
	var statuses []deviceStatus

	for _, id := range s.manager.AllIDs() {
		adapter, ok := s.manager.Lookup(id)
		if !ok {
			continue
		}
		if pt, ok := adapter.(device.PaymentTerminal); ok && pt.GetState() == device.StateProcessing {
			pt.CancelPayment()
			time.Sleep(cancelSettleDelay)
		}

		var checkErr error
		switch d := adapter.(type) {
		case device.PaymentTerminal:
			checkErr = d.CheckDevice(ctx)
		case device.Camera:
			// Camera has no check_device; readiness is its reported state.
		case device.Printer:
			// Printer has no check_device; readiness is its reported state.
		}

		info := adapter.GetDeviceInfo()
		healthy := checkErr == nil && info.State != device.StateError && info.State != device.StateHung
		if !healthy {
			allHealthy = false
		}
		statuses = append(statuses, deviceStatus{id: id, kind: info.Kind, state: info.State, healthy: healthy})
	}

	data := map[string]string{
		"allHealthy": boolString(allHealthy),
	}
	for _, st := range statuses {
		data["device."+st.id+".state"] = st.state.String()
		data["device."+st.id+".healthy"] = boolString(st.healthy)
	}

	s.EmitEvent(Event{
		EventType:   EvtSystemStatusCheck,
		TimestampMs: time.Now().UnixMilli(),
		Data:        data,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
