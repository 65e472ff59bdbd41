// Package logging wires up the daemon's shared go-logging backend. New
// installs the backend and returns the logger cmd/devicectld uses; no
// component constructor takes a logger, and internal/ipc gets its own
// module logger from go-logging's registry, which writes through the same
// backend.
package logging

import (
	"os"

	"github.com/op/go-logging"
)

var consoleFormat = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{level:.4s} %{module} ▶%{color:reset} %{message}`,
)

var syslogFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)

// New builds a leveled logger for the given module name. trySyslog attempts
// a syslog backend first (useful for the installed-service case) and falls
// back to stderr when syslog isn't reachable or unsupported on the current
// platform, matching the fallback the teacher daemon used for its own
// service logging.
func New(module string, level logging.Level, trySyslog bool) *logging.Logger {
	var backend logging.Backend
	if trySyslog {
		backend = newSyslogBackend(module)
		if backend != nil {
			logging.SetFormatter(syslogFormat)
		}
	}
	if backend == nil {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
		logging.SetFormatter(consoleFormat)
	}

	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(level, module)
	logging.SetBackend(leveled)

	return logging.MustGetLogger(module)
}

// Banner prints a one-line, colorized startup/shutdown message to stderr,
// independent of the structured logger (so it reads cleanly even when the
// leveled logger is set to WARNING or above).
func Banner(msg string) {
	os.Stderr.WriteString(Cyan("devicectld ▶ ") + msg + "\n")
}
