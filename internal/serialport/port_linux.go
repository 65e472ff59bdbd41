//go:build linux

package serialport

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

type unixPort struct {
	f       *os.File
	closed  atomic.Bool
	name    string
	timeout time.Duration
}

// Open configures and opens a POSIX tty at name (e.g. /dev/ttyUSB0). The
// termios attributes are set the way Daedaluz-goserial's MakeRaw does:
// cleared canonical/echo/signal processing and 8N1 framing, then cfg's data
// bits, stop bits and parity applied over that, then the requested baud
// rate applied via cfsetispeed/cfsetospeed equivalents.
func Open(name string, cfg Config) (Port, error) {
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, classifyOpenError(name, err)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: get termios %s: %w", name, err)
	}

	speed, ok := baudConstant(cfg.BaudRate)
	if !ok {
		f.Close()
		return nil, fmt.Errorf("serialport: unsupported baud rate %d", cfg.BaudRate)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	switch cfg.DataBits {
	case 5:
		t.Cflag = t.Cflag&^unix.CSIZE | unix.CS5
	case 6:
		t.Cflag = t.Cflag&^unix.CSIZE | unix.CS6
	case 7:
		t.Cflag = t.Cflag&^unix.CSIZE | unix.CS7
	}
	if cfg.StopBits == 2 {
		t.Cflag |= unix.CSTOPB
	}
	switch cfg.Parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	}

	t.Cflag &^= cBaudMask
	t.Cflag |= speed
	t.Ispeed = speed
	t.Ospeed = speed

	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: set termios %s: %w", name, err)
	}

	// Drop O_NONBLOCK now that the line is configured; reads block up to
	// the per-call poll deadline enforced in Read via SetReadDeadline.
	if err := unix.SetNonblock(fd, false); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: clear nonblock %s: %w", name, err)
	}

	p := &unixPort{f: f, name: name, timeout: cfg.ReadTimeout}
	return p, nil
}

func (p *unixPort) Write(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	n, err := p.f.Write(data)
	return n, classifyWriteError(p.name, err)
}

func (p *unixPort) Read(data []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	if p.timeout > 0 {
		p.f.SetReadDeadline(time.Now().Add(p.timeout))
	} else {
		p.f.SetReadDeadline(time.Time{})
	}
	return p.f.Read(data)
}

func (p *unixPort) SetReadTimeout(timeout time.Duration) {
	p.timeout = timeout
}

func (p *unixPort) Flush() error {
	if p.closed.Load() {
		return ErrClosed
	}
	return unix.IoctlSetInt(int(p.f.Fd()), unix.TCFLSH, unix.TCIOFLUSH)
}

func (p *unixPort) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}
	return p.f.Close()
}

func (p *unixPort) Name() string { return p.name }

const cBaudMask = unix.CBAUD | unix.CBAUDEX

func baudConstant(rate int) (uint32, bool) {
	switch rate {
	case 1200:
		return unix.B1200, true
	case 2400:
		return unix.B2400, true
	case 4800:
		return unix.B4800, true
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	default:
		return 0, false
	}
}
