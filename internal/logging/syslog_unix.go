//go:build !windows

package logging

import (
	stdlog "log"
	"log/syslog"

	"github.com/op/go-logging"
)

func newSyslogBackend(module string) logging.Backend {
	backend, err := logging.NewSyslogBackendPriority(module, syslog.LOG_NOTICE)
	if err != nil {
		return nil
	}
	if syslogBackend, ok := backend.(*logging.SyslogBackend); ok {
		stdlog.SetOutput(syslogBackend.Writer)
	}
	return backend
}
