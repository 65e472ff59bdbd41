package smartro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/serialport"
)

const (
	ackTimeout      = 5 * time.Second
	responseTimeout = 10 * time.Second
	scanTimeout     = 100 * time.Millisecond
)

type queuedResponse struct {
	frame *Frame
	err   error
}

// Comm owns one serial port dedicated to a SMARTRO terminal. It serializes
// every write/exchange through mu (spec.md §5: "every serial port is
// serialized by a single mutex inside its Comm object") and runs a
// background receiver goroutine that scans for frames and an event-monitor
// goroutine that drains the resulting queue, dispatching unsolicited '@'
// frames to onEvent and solicited responses to whichever Exchange is
// waiting.
type Comm struct {
	mu         sync.Mutex
	port       serialport.Port
	terminalID string

	queue   chan queuedResponse
	waiting chan queuedResponse
	ackCh   chan byte
	stopCh  chan struct{}
	wg      sync.WaitGroup

	onEvent func(*Frame)
}

func NewComm(port serialport.Port, terminalID string) *Comm {
	return &Comm{
		port:       port,
		terminalID: terminalID,
		queue:      make(chan queuedResponse, 16),
		waiting:    make(chan queuedResponse, 1),
		ackCh:      make(chan byte, 1),
		stopCh:     make(chan struct{}),
	}
}

// SetEventCallback installs the handler invoked for unsolicited '@' frames.
// Must be called before Start.
func (c *Comm) SetEventCallback(fn func(*Frame)) {
	c.onEvent = fn
}

// Start launches the receiver and event-monitor goroutines.
func (c *Comm) Start() {
	c.wg.Add(2)
	go c.receiveLoop()
	go c.eventMonitorLoop()
}

// Stop signals both goroutines to exit and waits for them.
func (c *Comm) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// receiveLoop is the "SMARTRO receiver" thread (spec.md §5): it scans the
// port 100ms at a time for STX, reads the complete frame on a hit, and
// pushes it onto the queue. Plain ACK/NACK bytes (no STX) are routed
// directly to ackCh instead, since they belong to an in-flight Exchange
// rather than to the response queue.
func (c *Comm) receiveLoop() {
	defer c.wg.Done()
	c.port.SetReadTimeout(scanTimeout)
	buf := make([]byte, 1)
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}
		n, err := c.port.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		switch buf[0] {
		case ack, nack:
			select {
			case c.ackCh <- buf[0]:
			default:
			}
		case stx:
			frame, err := c.readFrame()
			c.queue <- queuedResponse{frame: frame, err: err}
		default:
			// discarded: not part of any recognized token
		}
	}
}

// readFrame is called right after an STX byte has already been consumed.
// It reads the remaining header bytes to learn the declared data length,
// then reads exactly that many bytes plus ETX and BCC.
func (c *Comm) readFrame() (*Frame, error) {
	header := make([]byte, headerLen)
	header[0] = stx
	if err := c.readFull(header[1:]); err != nil {
		return nil, FrameError{err}
	}
	total, err := FrameLength(header)
	if err != nil {
		return nil, FrameError{err}
	}
	rest := make([]byte, total-headerLen)
	if err := c.readFull(rest); err != nil {
		return nil, FrameError{err}
	}
	full := append(header, rest...)
	frame, err := ParseFrame(full)
	if err != nil {
		return nil, FrameError{err}
	}
	return frame, nil
}

func (c *Comm) readFull(buf []byte) error {
	got := 0
	deadline := time.Now().Add(responseTimeout)
	for got < len(buf) {
		if time.Now().After(deadline) {
			return HandshakeTimeout{Stage: "frame body"}
		}
		n, err := c.port.Read(buf[got:])
		if err != nil {
			return err
		}
		got += n
	}
	return nil
}

// eventMonitorLoop is the "SMARTRO event monitor" thread: it drains the
// response queue and dispatches unsolicited '@' frames to onEvent. Solicited
// responses (and frame errors) are forwarded onto the waiting side channel
// that Exchange reads from; since only one Exchange runs at a time (mu),
// that channel never has more than one reader.
func (c *Comm) eventMonitorLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case qr := <-c.queue:
			if qr.err != nil {
				// A framing/BCC fault (spec.md §4.2.1: "reject the frame
				// and signal NACK to the peer"). Forward it to whichever
				// Exchange is waiting so it NACKs immediately instead of
				// blocking the full response timeout.
				select {
				case c.waiting <- qr:
				case <-time.After(responseTimeout):
				}
				continue
			}
			if qr.frame.Job == JobEvent {
				if c.onEvent != nil {
					c.onEvent(qr.frame)
				}
				continue
			}
			select {
			case c.waiting <- qr:
			case <-time.After(responseTimeout):
			}
		}
	}
}

// Exchange performs one full request/response handshake for job, holding
// the comm mutex for its duration (spec.md §4.2.2): write request, await
// ACK/NACK, await the response frame, then ACK or NACK it back depending
// on whether it parsed.
func (c *Comm) Exchange(ctx context.Context, job JobCode, data []byte) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	datetime := time.Now().Format("20060102150405")
	reqFrame, err := BuildRequest(c.terminalID, datetime, job, data)
	if err != nil {
		return nil, err
	}
	if _, err := c.port.Write(reqFrame); err != nil {
		return nil, fmt.Errorf("smartro: write request: %w", err)
	}

	// The ACK byte and the response frame race here: some terminals skip
	// the ACK phase entirely and answer with the STX response directly
	// (spec.md §4.2.2, "STX is treated as an inline response start"), so
	// both channels are read from the same select instead of two
	// sequential ones — a response that arrives before any ACK must not
	// be mistaken for a stale leftover by the caller's next Exchange.
	select {
	case b := <-c.ackCh:
		if b == nack {
			return nil, NACKReceived{}
		}
		return c.awaitResponse(ctx)
	case qr := <-c.waiting:
		return c.finishResponse(qr)
	case <-time.After(ackTimeout):
		return nil, HandshakeTimeout{Stage: "ACK"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Comm) awaitResponse(ctx context.Context) (*Frame, error) {
	select {
	case qr := <-c.waiting:
		return c.finishResponse(qr)
	case <-time.After(responseTimeout):
		return nil, HandshakeTimeout{Stage: "response"}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Comm) finishResponse(qr queuedResponse) (*Frame, error) {
	if qr.err != nil {
		c.port.Write([]byte{nack})
		return nil, qr.err
	}
	c.port.Write([]byte{ack})
	return qr.frame, nil
}
