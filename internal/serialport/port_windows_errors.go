//go:build windows

package serialport

import (
	"errors"

	"golang.org/x/sys/windows"
)

// Classification follows the same Win32 error codes the original SMARTRO
// serial port wrapper checked after CreateFile (ERROR_ACCESS_DENIED for a
// COM port another process already holds, ERROR_FILE_NOT_FOUND for a port
// that doesn't exist, ERROR_SEM_TIMEOUT for a device that never answers).
func isNotFoundErr(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == windows.ERROR_FILE_NOT_FOUND
	}
	return false
}

func isBusyErr(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == windows.ERROR_ACCESS_DENIED || errno == windows.ERROR_SHARING_VIOLATION
	}
	return false
}

func isTimeoutErr(err error) bool {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return errno == windows.ERROR_SEM_TIMEOUT
	}
	return false
}
