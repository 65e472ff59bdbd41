//go:build windows

package serialport

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// windowsDCB mirrors the Win32 DCB struct member for member; the
// reserved/XonChar/XoffChar members are left zero, which the comm API
// treats as "not configured".
type windowsDCB struct {
	DCBlength  uint32
	BaudRate   uint32
	bitfield   uint32
	WReserved  uint16
	XonLim     uint16
	XoffLim    uint16
	ByteSize   uint8
	Parity     uint8
	StopBits   uint8
	XonChar    uint8
	XoffChar   uint8
	ErrorChar  uint8
	EofChar    uint8
	EvtChar    uint8
	WReserved1 uint16
}

const dcbSize = unsafe.Sizeof(windowsDCB{})

const (
	noParity   = 0
	oddParity  = 1
	evenParity = 2

	oneStopBit  = 0
	twoStopBits = 2

	dtrControlEnable = 1
)

func (d *windowsDCB) setBinary(v bool) {
	d.setBit(0, v)
}

func (d *windowsDCB) setDTRControl(mode uint32) {
	d.bitfield &^= 0x3 << 4
	d.bitfield |= (mode & 0x3) << 4
}

func (d *windowsDCB) setBit(pos uint, v bool) {
	if v {
		d.bitfield |= 1 << pos
	} else {
		d.bitfield &^= 1 << pos
	}
}

type windowsCommTimeouts struct {
	ReadIntervalTimeout         uint32
	ReadTotalTimeoutMultiplier  uint32
	ReadTotalTimeoutConstant    uint32
	WriteTotalTimeoutMultiplier uint32
	WriteTotalTimeoutConstant   uint32
}

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procGetCommState     = modkernel32.NewProc("GetCommState")
	procSetCommState     = modkernel32.NewProc("SetCommState")
	procSetCommTimeouts  = modkernel32.NewProc("SetCommTimeouts")
	procPurgeComm        = modkernel32.NewProc("PurgeComm")
)

const (
	purgeTxAbort = 0x1
	purgeRxAbort = 0x2
	purgeTxClear = 0x4
	purgeRxClear = 0x8
)

func getCommState(h windows.Handle, dcb *windowsDCB) error {
	r, _, err := procGetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(dcb)))
	if r == 0 {
		return err
	}
	return nil
}

func setCommState(h windows.Handle, dcb *windowsDCB) error {
	r, _, err := procSetCommState.Call(uintptr(h), uintptr(unsafe.Pointer(dcb)))
	if r == 0 {
		return err
	}
	return nil
}

func setCommTimeouts(h windows.Handle, t windowsCommTimeouts) error {
	r, _, err := procSetCommTimeouts.Call(uintptr(h), uintptr(unsafe.Pointer(&t)))
	if r == 0 {
		return err
	}
	return nil
}

func purgeComm(h windows.Handle) error {
	r, _, err := procPurgeComm.Call(uintptr(h), uintptr(purgeTxAbort|purgeRxAbort|purgeTxClear|purgeRxClear))
	if r == 0 {
		return err
	}
	return nil
}
