package device

import "context"

// PaymentTerminal is the mandatory contract every card/cash vendor adapter
// implements (spec.md §4.4.1). Extended, vendor-specific operations are not
// part of this interface — an adapter that supports one advertises it via
// Extensions instead, so the router never downcasts to a concrete vendor
// type (spec.md §9 DESIGN NOTES).
type PaymentTerminal interface {
	GetDeviceInfo() Info
	StartPayment(ctx context.Context, amountMinorUnits int64) error
	CancelPayment() error
	GetState() State
	Reset(ctx context.Context) error
	CheckDevice(ctx context.Context) error

	VendorName() string
	ComPort() string
	Reconnect(ctx context.Context, newPort string) error

	SetPaymentCompleteCallback(func(PaymentCompleteEvent))
	SetPaymentFailedCallback(func(code ErrorKind, message string))
	SetPaymentCancelledCallback(func())
	SetStateChangedCallback(func(old, new State))

	// Extensions returns the vendor's optional extended operations, or nil
	// if it implements none of them.
	Extensions() Extensions
}

// Extensions groups the optional, vendor-specific operations §4.2.6
// describes. A vendor adapter that implements none of them simply never
// returns a non-nil Extensions; the router returns INVALID_DEVICE_TYPE for
// any extended command sent to such a device.
type Extensions interface {
	ReadCardUID(ctx context.Context) (string, error)
	CheckICCard(ctx context.Context) (inserted bool, err error)
	SetScreenSound(ctx context.Context, brightness, volume, touchVolume int) error
	CancelTransaction(ctx context.Context, transactionID string) (ApprovalDetail, error)
	GetLastApproval(ctx context.Context) (ApprovalDetail, error)
}

// PaymentCompleteEvent is spec.md §3's transaction outcome payload.
type PaymentCompleteEvent struct {
	TransactionID     string
	AmountMinorUnits  int64
	MaskedCardNumber  string
	ApprovalNumber    string
	SalesDate         string // YYYYMMDD
	SalesTime         string // hhmmss
	Medium            TransactionMedium
	DeviceState       State
	Detail            ApprovalDetail
}

// ApprovalDetail is the extended approval information carried alongside a
// PaymentCompleteEvent and returned verbatim by cancelTransaction/
// getLastApproval.
type ApprovalDetail struct {
	Status          string
	Type            string
	AmountString    string
	Tax             string
	ServiceCharge   string
	Installments    string
	MerchantNumber  string
	TerminalNumber  string
	Issuer          string
	Acquirer        string
	RejectionInfo   string
}

// TransactionMedium is the channel a card was read through (spec.md
// GLOSSARY).
type TransactionMedium string

const (
	MediumIC    TransactionMedium = "IC"
	MediumMS    TransactionMedium = "MS"
	MediumRF    TransactionMedium = "RF"
	MediumQR    TransactionMedium = "QR"
	MediumKeyIn TransactionMedium = "KEYIN"
	MediumCash  TransactionMedium = "CASH"
)

// Camera is the contract surface for the Canon EDSDK adapter (spec.md
// §4.6). Internals of the SDK integration are out of scope; only this
// surface is specified.
type Camera interface {
	GetDeviceInfo() Info
	GetState() State
	Capture(ctx context.Context, captureID string) error
	StartPreview(ctx context.Context) (previewURL string, err error)
	StopPreview(ctx context.Context) error
	SetSettings(ctx context.Context, settings map[string]string) error

	SetCaptureCompleteCallback(func(captureID, filePath string))
	SetStateChangedCallback(func(old, new State))
}

// Printer is the contract surface for the Windows GDI/IrfanView adapter
// (spec.md §4.6).
type Printer interface {
	GetDeviceInfo() Info
	GetState() State
	Print(ctx context.Context, jobID string, data []byte, printerName string) error
	PrintFromFile(ctx context.Context, jobID, path, orientation string) error
	AvailablePrinters() ([]string, error)

	SetJobCompleteCallback(func(jobID string, err error))
}
