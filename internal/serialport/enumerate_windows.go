//go:build windows

package serialport

import "fmt"

// candidatePorts has no filesystem to glob on Windows, so it just returns
// COM1 through COM32 and lets each vendor probe's TryPort find out which
// one, if any, answers.
func candidatePorts() []string {
	ports := make([]string, 0, 32)
	for i := 1; i <= 32; i++ {
		ports = append(ports, fmt.Sprintf("COM%d", i))
	}
	return ports
}
