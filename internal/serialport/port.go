// Package serialport wraps the raw byte-oriented serial line every protocol
// engine (SMARTRO, LV77) talks over. It is deliberately thin: baud rate,
// parity, and timeout configuration plus Open/Read/Write/Close, grounded on
// the same small surface Daedaluz-goserial exposes, but built on
// golang.org/x/sys so the daemon needs no cgo and no vendored ioctl
// submodule.
package serialport

import (
	"errors"
	"fmt"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

var ErrClosed = errors.New("serialport: port already closed")

// openTimeout bounds how long a single Open attempt may run before the
// caller gives up on that port and moves on (spec.md §4.1: "a single
// unresponsive port cannot stall detection").
const openTimeout = 2 * time.Second

type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// Config is the line configuration every vendor adapter asks for. SMARTRO
// runs 115200 8N1 and LV77 runs 9600 8E1, so the type is not hardcoded to
// either and a future vendor can ask for something else.
type Config struct {
	BaudRate    int
	DataBits    int // 5-8, default 8
	Parity      Parity
	StopBits    int // 1 or 2, default 1
	ReadTimeout time.Duration
}

func DefaultConfig(baud int) Config {
	return Config{BaudRate: baud, DataBits: 8, Parity: ParityNone, StopBits: 1, ReadTimeout: 500 * time.Millisecond}
}

// Port is the line a protocol engine reads and writes. Exactly one
// goroutine owns a Port at a time; callers above this package are
// responsible for the per-port mutex spec.md's concurrency model requires.
type Port interface {
	Write(data []byte) (int, error)
	Read(data []byte) (int, error)
	SetReadTimeout(timeout time.Duration)
	Flush() error
	Close() error
	Name() string
}

// Opener is the indirection the protocol probes use so tests can substitute
// a fake transport without touching a real tty/COM port.
type Opener func(name string, cfg Config) (Port, error)

// OpenWithTimeout runs open(name, cfg) under a supervisor goroutine and
// gives up after openTimeout, classifying the outcome into the small
// device.ErrorKind vocabulary (PORT_BUSY/PORT_NOT_FOUND/PORT_TIMEOUT) so a
// single wedged device node can never stall the rest of detection
// (spec.md §4.1). Every probe and Create path opens a port through this,
// never through an Opener directly.
//
// If open never returns (a truly hung driver), the goroutine running it
// is abandoned rather than killed — Go has no portable way to interrupt a
// blocked open syscall — but the caller is unblocked on schedule either
// way.
func OpenWithTimeout(open Opener, name string, cfg Config) (Port, error) {
	type result struct {
		port Port
		err  error
	}
	done := make(chan result, 1)
	go func() {
		port, err := open(name, cfg)
		done <- result{port, err}
	}()

	select {
	case r := <-done:
		return r.port, r.err
	case <-time.After(openTimeout):
		return nil, device.NewError(device.ErrPortTimeout, fmt.Sprintf("open %s timed out after %s", name, openTimeout))
	}
}

// classifyOpenError maps the raw OS error from an Open attempt into the
// device.ErrorKind vocabulary the router understands, falling back to a
// plain wrapped error for anything it doesn't recognize.
func classifyOpenError(name string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundErr(err) {
		return device.NewError(device.ErrPortNotFound, fmt.Sprintf("%s: no such port", name))
	}
	if isBusyErr(err) {
		return device.NewError(device.ErrPortBusy, fmt.Sprintf("%s: port busy", name))
	}
	if isTimeoutErr(err) {
		return device.NewError(device.ErrPortTimeout, fmt.Sprintf("%s: open timed out", name))
	}
	return fmt.Errorf("serialport: open %s: %w", name, err)
}

// classifyWriteError maps a raw OS error from a Write attempt into
// device.ErrWriteError.
func classifyWriteError(name string, err error) error {
	if err == nil {
		return nil
	}
	return device.NewError(device.ErrWriteError, fmt.Sprintf("%s: write failed: %v", name, err))
}
