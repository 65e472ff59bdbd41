package serialport

// Enumerate returns the OS-appropriate list of serial device candidates to
// probe, in a stable, deterministic order.
func Enumerate() []string {
	return candidatePorts()
}
