//go:build linux

package serialport

import "path/filepath"

// candidatePorts lists the device nodes worth probing, in the order the
// factory should try them: USB-serial adapters first (what SMARTRO/LV77
// boxes actually show up as), then the fixed COM-style nodes some kiosks
// still expose.
func candidatePorts() []string {
	var ports []string
	for _, pattern := range []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/ttyS*"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		ports = append(ports, matches...)
	}
	return ports
}
