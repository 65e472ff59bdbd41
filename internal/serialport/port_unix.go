//go:build linux || darwin

package serialport

import (
	"errors"
	"syscall"
)

func isNotFoundErr(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ENOENT
	}
	return false
}

func isBusyErr(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EBUSY
	}
	return false
}

func isTimeoutErr(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ETIMEDOUT
	}
	return false
}
