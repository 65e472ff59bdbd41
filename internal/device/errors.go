package device

import "fmt"

// ErrorKind is the small closed set of error kinds the IPC surface maps to
// rejected/failed responses (spec.md §7). Adapters and the router construct
// and compare a single Error type by Kind rather than via errors.Is chains,
// since the surface is a fixed vocabulary mapped straight to wire
// errorCode strings.
type ErrorKind string

const (
	ErrUnknownCommand         ErrorKind = "UNKNOWN_COMMAND"
	ErrInvalidPayload         ErrorKind = "INVALID_PAYLOAD"
	ErrDeviceNotFound         ErrorKind = "DEVICE_NOT_FOUND"
	ErrInvalidDeviceType      ErrorKind = "INVALID_DEVICE_TYPE"
	ErrDeviceNotReady         ErrorKind = "DEVICE_NOT_READY"
	ErrPaymentStartFailed     ErrorKind = "PAYMENT_START_FAILED"
	ErrPaymentCancelFailed    ErrorKind = "PAYMENT_CANCEL_FAILED"
	ErrPaymentResetFailed     ErrorKind = "PAYMENT_RESET_FAILED"
	ErrDeviceCheckFailed      ErrorKind = "DEVICE_CHECK_FAILED"
	ErrCardUIDReadFailed      ErrorKind = "CARD_UID_READ_FAILED"
	ErrLastApprovalFailed     ErrorKind = "LAST_APPROVAL_FAILED"
	ErrICCardCheckFailed      ErrorKind = "IC_CARD_CHECK_FAILED"
	ErrScreenSoundFailed      ErrorKind = "SCREEN_SOUND_SETTING_FAILED"
	ErrTransactionCancelFail  ErrorKind = "TRANSACTION_CANCEL_FAILED"
	ErrHandlerError           ErrorKind = "HANDLER_ERROR"
	ErrParseError             ErrorKind = "PARSE_ERROR"
	ErrUserInactivityTimeout  ErrorKind = "USER_INACTIVITY_TIMEOUT"
	ErrCashBillReturned       ErrorKind = "CASH_BILL_RETURNED"
	ErrNotSupported           ErrorKind = "INVALID_DEVICE_TYPE"
	ErrRejectedWaitingRemoval ErrorKind = "REJECTED_WAITING_CARD_REMOVAL"
	ErrNACKReceived           ErrorKind = "NACK_RECEIVED"
	ErrPortBusy               ErrorKind = "PORT_BUSY"
	ErrPortNotFound           ErrorKind = "PORT_NOT_FOUND"
	ErrPortTimeout            ErrorKind = "PORT_TIMEOUT"
	ErrWriteError             ErrorKind = "WRITE_ERROR"
)

// Rejected reports whether this kind surfaces as a `rejected` response
// (refused before any device action) as opposed to `failed` (action was
// attempted and the device reported failure).
func (k ErrorKind) Rejected() bool {
	switch k {
	case ErrUnknownCommand, ErrInvalidPayload, ErrDeviceNotFound, ErrInvalidDeviceType, ErrDeviceNotReady:
		return true
	default:
		return false
	}
}

// Error is the single error type every adapter and the router construct.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// AsError extracts a *Error from err, if any.
func AsError(err error) (*Error, bool) {
	de, ok := err.(*Error)
	return de, ok
}
