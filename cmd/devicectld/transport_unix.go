//go:build !windows

package main

import (
	"net"

	"github.com/kiosko/devicectld/internal/ipc"
)

func bindTransport(stateDir string) (net.Listener, error) {
	return ipc.ListenUnix(stateDir)
}
