package ipc

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := newFrameWriter(&buf)
	cmd := Command{
		ProtocolVersion: ProtocolVersion,
		Kind:            "command",
		CommandID:       "abc-123",
		Type:            CmdGetDeviceList,
		TimestampMs:     1700000000000,
		Payload:         map[string]string{"x": "y"},
	}
	if err := fw.writeJSON(cmd); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	fr := newFrameReader(&buf)
	var got Command
	if err := fr.readJSON(&got); err != nil {
		t.Fatalf("readJSON: %v", err)
	}
	if got.CommandID != cmd.CommandID || got.Type != cmd.Type || got.Payload["x"] != "y" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestFrameRejectsOversizedBody(t *testing.T) {
	var buf bytes.Buffer
	fw := newFrameWriter(&buf)
	big := make(map[string]string)
	big["data"] = string(make([]byte, maxFrameBytes))
	err := fw.writeJSON(Command{Payload: big})
	if err == nil {
		t.Fatal("expected error writing an oversized frame")
	}
}
