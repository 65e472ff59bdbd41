//go:build windows

package serialport

import (
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sys/windows"
)

type windowsPort struct {
	h       windows.Handle
	closed  atomic.Bool
	name    string
	timeout time.Duration
}

// Open configures a COM port via the Win32 comm API: CreateFile, then
// GetCommState/SetCommState for the DCB (baud/parity/data/stop bits) and
// SetCommTimeouts for the read deadline, following the same
// CreateFile-then-configure sequence go-winio uses for named pipes
// elsewhere in this daemon.
func Open(name string, cfg Config) (Port, error) {
	path := `\\.\` + name
	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(pathPtr,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil, windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return nil, classifyOpenError(name, err)
	}

	var dcb windowsDCB
	dcb.DCBlength = uint32(dcbSize)
	if err := getCommState(h, &dcb); err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("serialport: get comm state %s: %w", name, err)
	}
	dcb.BaudRate = uint32(cfg.BaudRate)
	dcb.ByteSize = uint8(cfg.DataBits)
	if cfg.StopBits == 2 {
		dcb.StopBits = twoStopBits
	} else {
		dcb.StopBits = oneStopBit
	}
	switch cfg.Parity {
	case ParityOdd:
		dcb.Parity = oddParity
	case ParityEven:
		dcb.Parity = evenParity
	default:
		dcb.Parity = noParity
	}
	dcb.setBinary(true)
	dcb.setDTRControl(dtrControlEnable)
	if err := setCommState(h, &dcb); err != nil {
		windows.CloseHandle(h)
		return nil, fmt.Errorf("serialport: set comm state %s: %w", name, err)
	}

	p := &windowsPort{h: h, name: name, timeout: cfg.ReadTimeout}
	if err := p.applyTimeouts(); err != nil {
		windows.CloseHandle(h)
		return nil, err
	}
	return p, nil
}

func (p *windowsPort) applyTimeouts() error {
	ms := uint32(p.timeout / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	return setCommTimeouts(p.h, windowsCommTimeouts{
		ReadIntervalTimeout:        ms,
		ReadTotalTimeoutMultiplier: 0,
		ReadTotalTimeoutConstant:   ms,
	})
}

func (p *windowsPort) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	var written uint32
	err := windows.WriteFile(p.h, data, &written, nil)
	return int(written), classifyWriteError(p.name, err)
}

func (p *windowsPort) Read(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	var read uint32
	err := windows.ReadFile(p.h, data, &read, nil)
	return int(read), err
}

func (p *windowsPort) SetReadTimeout(timeout time.Duration) {
	p.timeout = timeout
	p.applyTimeouts()
}

func (p *windowsPort) Flush() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return purgeComm(p.h)
}

func (p *windowsPort) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}
	return windows.CloseHandle(p.h)
}

func (p *windowsPort) Name() string { return p.name }
