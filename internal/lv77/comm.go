package lv77

import (
	"fmt"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/serialport"
)

// Comm owns (or borrows) the serial port and serializes every write
// through a single mutex, same as SMARTRO's Comm (spec.md §4.3.1).
type Comm struct {
	mu   sync.Mutex
	port serialport.Port
}

func NewComm(port serialport.Port) *Comm {
	return &Comm{port: port}
}

func (c *Comm) send(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.port.Write([]byte{b})
	return err
}

// readByte reads exactly one byte within timeout, returning ok=false on a
// timeout with no error (a silent tick, not a fault).
func (c *Comm) readByte(timeout time.Duration) (b byte, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.port.SetReadTimeout(timeout)
	buf := make([]byte, 1)
	n, err := c.port.Read(buf)
	if err != nil {
		return 0, false, err
	}
	if n == 0 {
		return 0, false, nil
	}
	return buf[0], true, nil
}

// PowerUpSync drains a pending byte, sends sync-ack, and consumes the
// optional sync-ok reply plus its two-byte country code, per spec.md
// §4.3.3. It returns an error only when the port write or read itself
// fails: an absent or unexpected reply is tolerated because the device may
// already be in steady state.
func (c *Comm) PowerUpSync() error {
	c.readByte(50 * time.Millisecond) // drain a pending 0x80, if any

	if err := c.send(CmdSyncAck); err != nil {
		return fmt.Errorf("lv77: sync-ack write: %w", err)
	}
	b, ok, err := c.readByte(2 * time.Second)
	if err != nil {
		return fmt.Errorf("lv77: sync-ack read: %w", err)
	}
	if !ok || b != RespSyncOK {
		return nil
	}
	// two optional country-code bytes, discarded
	c.readByte(200 * time.Millisecond)
	c.readByte(200 * time.Millisecond)
	return nil
}
