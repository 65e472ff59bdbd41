package smartro

import (
	"strings"
	"testing"
)

func TestDigitsPadsAndTruncates(t *testing.T) {
	cases := []struct {
		n     int64
		width int
		want  string
	}{
		{0, 4, "0000"},
		{7, 4, "0007"},
		{12345, 4, "2345"},
		{100, 10, "0000000100"},
	}
	for _, c := range cases {
		got := digits(c.n, c.width)
		if got != c.want {
			t.Errorf("digits(%d, %d) = %q, want %q", c.n, c.width, got, c.want)
		}
		if len(got) != c.width {
			t.Errorf("digits(%d, %d) length = %d, want %d", c.n, c.width, len(got), c.width)
		}
	}
}

func TestBuildPaymentApprovalDataLength(t *testing.T) {
	req := ApprovalRequest{
		TransactionType:   'A',
		AmountMinorUnits:  123456,
		TaxMinorUnits:     1000,
		ServiceMinorUnits: 0,
		Installments:      3,
		SignatureRequired: true,
	}
	data := BuildPaymentApprovalData(req)
	if len(data) != 30 {
		t.Fatalf("BuildPaymentApprovalData len = %d, want 30", len(data))
	}
	if data[0] != 'A' {
		t.Fatalf("leading byte = %q, want 'A'", data[0])
	}
	if data[len(data)-1] != '1' {
		t.Fatalf("signature byte = %q, want '1'", data[len(data)-1])
	}
	if !strings.Contains(string(data), "0000123456") {
		t.Fatalf("amount field missing from %q", data)
	}
}

func TestBuildPaymentApprovalDataWithoutSignature(t *testing.T) {
	data := BuildPaymentApprovalData(ApprovalRequest{TransactionType: 'A', Installments: 1})
	if data[len(data)-1] != '0' {
		t.Fatalf("signature byte = %q, want '0' when not required", data[len(data)-1])
	}
}

func TestParseApprovalResultRoundTrip(t *testing.T) {
	raw := make([]byte, approvalResultLen)
	for i := range raw {
		raw[i] = ' '
	}
	raw[0] = 'A'
	raw[1] = 'I'
	copy(raw[2:], "1234567890123456")   // card number field (20 wide)
	copy(raw[2+20:], "0000123456")      // amount (10 wide)

	result, err := ParseApprovalResult(raw)
	if err != nil {
		t.Fatalf("ParseApprovalResult: %v", err)
	}
	if result.TransactionType != 'A' || result.Medium != 'I' {
		t.Fatalf("unexpected header fields: %+v", result)
	}
	if result.CardNumber != "1234567890123456" {
		t.Fatalf("CardNumber = %q", result.CardNumber)
	}
	if result.AmountMinorUnits != "0000123456" {
		t.Fatalf("AmountMinorUnits = %q", result.AmountMinorUnits)
	}
	if result.Rejected() {
		t.Fatal("transaction type 'A' should not be Rejected")
	}
}

func TestParseApprovalResultRejectsWrongLength(t *testing.T) {
	if _, err := ParseApprovalResult(make([]byte, approvalResultLen-1)); err == nil {
		t.Fatal("expected error for short payload")
	}
}

func TestApprovalResultRejectedTransactionTypes(t *testing.T) {
	for _, typ := range []byte{'X', 'x'} {
		r := ApprovalResult{TransactionType: typ}
		if !r.Rejected() {
			t.Errorf("transaction type %q should be Rejected", typ)
		}
	}
}

func TestParseDeviceCheckResult(t *testing.T) {
	result, err := ParseDeviceCheckResult([]byte{'N', 'O', 'X', 'F'})
	if err != nil {
		t.Fatalf("ParseDeviceCheckResult: %v", err)
	}
	want := DeviceCheckResult{CardModule: ModuleNormal, RFModule: ModuleOK, VANServer: ModuleUnavailable, IntegrationServer: ModuleFailed}
	if result != want {
		t.Fatalf("ParseDeviceCheckResult = %+v, want %+v", result, want)
	}
	if _, err := ParseDeviceCheckResult([]byte{'N'}); err == nil {
		t.Fatal("expected error for wrong-length payload")
	}
}

func TestBuildScreenSoundDataRangeChecks(t *testing.T) {
	data, err := BuildScreenSoundData(5, 0, 9)
	if err != nil {
		t.Fatalf("BuildScreenSoundData: %v", err)
	}
	if string(data) != "509" {
		t.Fatalf("BuildScreenSoundData = %q, want %q", data, "509")
	}
	if _, err := BuildScreenSoundData(10, 0, 0); err == nil {
		t.Fatal("expected error for out-of-range value")
	}
	if _, err := BuildScreenSoundData(0, -1, 0); err == nil {
		t.Fatal("expected error for negative value")
	}
}

func TestICCardPresence(t *testing.T) {
	inserted, err := ICCardPresence([]byte{'O'})
	if err != nil || !inserted {
		t.Fatalf("ICCardPresence('O') = %v, %v, want true, nil", inserted, err)
	}
	notInserted, err := ICCardPresence([]byte{'X'})
	if err != nil || notInserted {
		t.Fatalf("ICCardPresence('X') = %v, %v, want false, nil", notInserted, err)
	}
	if _, err := ICCardPresence([]byte{'Q'}); err == nil {
		t.Fatal("expected error for unrecognized byte")
	}
	if _, err := ICCardPresence([]byte{}); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
