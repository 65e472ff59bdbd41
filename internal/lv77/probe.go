package lv77

import (
	"context"
	"time"

	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/serialport"
)

const probeBaud = 9600

// TryPort opens the candidate port at 9600 8E1, syncs, enables, and polls
// one byte; it accepts the port if the first byte is 0x3E or 0x5E
// (spec.md §4.3.6).
func TryPort(ctx context.Context, open serialport.Opener, portName string) bool {
	cfg := serialport.DefaultConfig(probeBaud)
	cfg.Parity = serialport.ParityEven
	port, err := serialport.OpenWithTimeout(open, portName, cfg)
	if err != nil {
		return false
	}
	defer port.Close()

	comm := NewComm(port)
	comm.PowerUpSync()
	comm.send(CmdEnable)
	comm.send(CmdPollStatus)

	b, ok, err := comm.readByte(2 * time.Second)
	if err != nil || !ok {
		return false
	}
	return b == RespEnabled || b == RespInhibited
}

// Create builds a registered Adapter for a port TryPort has already
// claimed.
func Create(open serialport.Opener, deviceID, portName string) device.PaymentTerminal {
	cfg := serialport.DefaultConfig(probeBaud)
	cfg.Parity = serialport.ParityEven
	port, err := serialport.OpenWithTimeout(open, portName, cfg)
	if err != nil {
		return nil
	}
	return NewAdapter(deviceID, portName, port)
}
