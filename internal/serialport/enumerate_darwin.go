//go:build darwin

package serialport

import "path/filepath"

func candidatePorts() []string {
	var ports []string
	for _, pattern := range []string{"/dev/tty.usbserial*", "/dev/tty.usbmodem*", "/dev/cu.usbserial*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		ports = append(ports, matches...)
	}
	return ports
}
