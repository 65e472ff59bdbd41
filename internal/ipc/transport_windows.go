//go:build windows

package ipc

import (
	"net"

	winio "github.com/Microsoft/go-winio"
)

const PipeName = `\\.\pipe\DeviceControllerService`

// ListenPipe binds the daemon's control channel to a named pipe on
// Windows, where unix-domain sockets aren't available (spec.md §4.5.1).
func ListenPipe() (net.Listener, error) {
	return winio.ListenPipe(PipeName, nil)
}
