package device

import "testing"

func TestErrorKindRejectedVsFailed(t *testing.T) {
	rejectedKinds := []ErrorKind{ErrUnknownCommand, ErrInvalidPayload, ErrDeviceNotFound, ErrInvalidDeviceType, ErrDeviceNotReady}
	for _, k := range rejectedKinds {
		if !k.Rejected() {
			t.Errorf("%s.Rejected() = false, want true", k)
		}
	}

	failedKinds := []ErrorKind{ErrPaymentStartFailed, ErrDeviceCheckFailed, ErrHandlerError, ErrNACKReceived}
	for _, k := range failedKinds {
		if k.Rejected() {
			t.Errorf("%s.Rejected() = true, want false", k)
		}
	}
}

func TestAsErrorExtractsDeviceError(t *testing.T) {
	err := NewError(ErrPaymentStartFailed, "terminal offline")
	de, ok := AsError(err)
	if !ok || de.Kind != ErrPaymentStartFailed {
		t.Fatalf("AsError(%v) = %+v, %v", err, de, ok)
	}
	if err.Error() != "PAYMENT_START_FAILED: terminal offline" {
		t.Fatalf("Error() = %q", err.Error())
	}

	if _, ok := AsError(errPlain{}); ok {
		t.Fatal("AsError should report false for a non-*Error")
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "plain" }

func TestErrorWithoutMessageFallsBackToKind(t *testing.T) {
	err := NewError(ErrDeviceNotFound, "")
	if err.Error() != string(ErrDeviceNotFound) {
		t.Fatalf("Error() = %q, want %q", err.Error(), ErrDeviceNotFound)
	}
}
