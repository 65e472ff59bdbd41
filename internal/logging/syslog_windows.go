//go:build windows

package logging

import "github.com/op/go-logging"

// Windows has no syslog; the daemon falls back to the stderr backend
// (or, under the service wrapper, to whatever redirects stderr — the
// service installer is out of scope per spec.md §1).
func newSyslogBackend(module string) logging.Backend {
	return nil
}
