package smartro

import (
	"context"
	"time"

	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/serialport"
)

const probeBaud = 115200

// TryPort opens the candidate port at 115200 8N1, sends a device-check
// request, and reports whether a well-formed 'a' response arrived within
// 1s of ACK (spec.md §4.2.7). It closes the port on every exit path so a
// failed probe leaks neither threads nor handles.
func TryPort(ctx context.Context, open serialport.Opener, portName string) bool {
	port, err := serialport.OpenWithTimeout(open, portName, serialport.DefaultConfig(probeBaud))
	if err != nil {
		return false
	}
	defer port.Close()

	comm := NewComm(port, defaultTerminalID)
	comm.Start()
	defer comm.Stop()

	probeCtx, cancel := context.WithTimeout(ctx, 1*time.Second+ackTimeout)
	defer cancel()

	frame, err := comm.Exchange(probeCtx, JobDeviceCheck, nil)
	if err != nil || frame == nil {
		return false
	}
	_, err = ParseDeviceCheckResult(frame.Data)
	return err == nil
}

// Create builds a registered Adapter for a port TryPort has already
// claimed.
func Create(open serialport.Opener, deviceID, portName string) device.PaymentTerminal {
	port, err := serialport.OpenWithTimeout(open, portName, serialport.DefaultConfig(probeBaud))
	if err != nil {
		return nil
	}
	return NewAdapter(deviceID, portName, port)
}
