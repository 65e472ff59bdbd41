package version

import "testing"

func TestProtocolMatchesCurrentWireVersion(t *testing.T) {
	if Protocol != "1.0" {
		t.Fatalf("Protocol = %q, want 1.0", Protocol)
	}
}

func TestCurrentParsesAsValidSemver(t *testing.T) {
	if Current.Major != 1 {
		t.Fatalf("Current.Major = %d, want 1", Current.Major)
	}
}
