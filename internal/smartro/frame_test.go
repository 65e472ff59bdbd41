package smartro

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestBCCLaw(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		s := make([]byte, r.Intn(40)+1)
		r.Read(s)
		b := BCC(s)
		withBCC := append(append([]byte(nil), s...), b)
		if BCC(withBCC) != 0 {
			t.Fatalf("BCC(s||bcc(s)) != 0 for %x", s)
		}
	}
}

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		job  JobCode
		data []byte
	}{
		{JobDeviceCheck, nil},
		{JobCardUIDRead, []byte{0x01, 0x02, 0x03}},
		{JobPaymentApproval, BuildPaymentApprovalData(ApprovalRequest{TransactionType: '1', AmountMinorUnits: 1000})},
	}
	for _, c := range cases {
		frame, err := BuildRequest("TERM0001", "20260730120000", c.job, c.data)
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		parsed, err := ParseFrame(frame)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if parsed.TerminalID != "TERM0001" {
			t.Errorf("terminal id = %q", parsed.TerminalID)
		}
		if parsed.Job != c.job {
			t.Errorf("job = %v, want %v", parsed.Job, c.job)
		}
		if !bytes.Equal(parsed.Data, c.data) && !(len(parsed.Data) == 0 && len(c.data) == 0) {
			t.Errorf("data = %x, want %x", parsed.Data, c.data)
		}
	}
}

func TestFrameLengthLaw(t *testing.T) {
	frame, err := BuildRequest("T", "20260730120000", JobCardUIDRead, []byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	total, err := FrameLength(frame[:headerLen])
	if err != nil {
		t.Fatal(err)
	}
	if total != len(frame) {
		t.Fatalf("FrameLength = %d, want %d", total, len(frame))
	}
	if len(frame) != headerLen+5+2 {
		t.Fatalf("frame length %d != header(%d)+data(5)+2", len(frame), headerLen)
	}
}

func TestParseFrameRejectsBadBCC(t *testing.T) {
	frame, err := BuildRequest("T", "20260730120000", JobReset, nil)
	if err != nil {
		t.Fatal(err)
	}
	frame[len(frame)-1] ^= 0xff
	if _, err := ParseFrame(frame); err == nil {
		t.Fatal("expected BCC mismatch error")
	}
}

func TestTerminalIDRejectsNonASCII(t *testing.T) {
	if _, err := BuildRequest("T\xc3\xa9RM", "20260730120000", JobReset, nil); err == nil {
		t.Fatal("expected non-ASCII terminal id to be rejected")
	}
}
