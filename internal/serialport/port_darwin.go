//go:build darwin

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

// Open mirrors port_linux.go's sequence but uses BSD termios ioctls
// (TIOCGETA/TIOCSETA) and literal baud-rate speeds, since macOS's termios
// has no Linux-style encoded CBAUD field.
func Open(name string, cfg Config) (Port, error) {
	f, err := os.OpenFile(name, os.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, classifyOpenError(name, err)
	}

	fd := int(f.Fd())
	t, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: get termios %s: %w", name, err)
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

	t.Ispeed = uint64(cfg.BaudRate)
	t.Ospeed = uint64(cfg.BaudRate)
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TIOCSETA, t); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: set termios %s: %w", name, err)
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		f.Close()
		return nil, fmt.Errorf("serialport: clear nonblock %s: %w", name, err)
	}

	return &unixPort{f: f, name: name, timeout: cfg.ReadTimeout}, nil
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
	return unix.IoctlSetInt(int(p.f.Fd()), unix.TIOCFLUSH, unix.FREAD|unix.FWRITE)
}

func (p *unixPort) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}
	return p.f.Close()
}

func (p *unixPort) Name() string { return p.name }
