package smartro

import (
	"fmt"
	"strings"
)

// ModuleStatus is one of the four device-check status characters
// (spec.md §4.2.4, job A).
type ModuleStatus byte

const (
	ModuleNormal      ModuleStatus = 'N'
	ModuleOK          ModuleStatus = 'O'
	ModuleUnavailable ModuleStatus = 'X'
	ModuleFailed      ModuleStatus = 'F'
)

// DeviceCheckResult is job A's response payload.
type DeviceCheckResult struct {
	CardModule        ModuleStatus
	RFModule          ModuleStatus
	VANServer         ModuleStatus
	IntegrationServer ModuleStatus
}

func ParseDeviceCheckResult(data []byte) (DeviceCheckResult, error) {
	if len(data) != 4 {
		return DeviceCheckResult{}, fmt.Errorf("smartro: device check payload must be 4 bytes, got %d", len(data))
	}
	return DeviceCheckResult{
		CardModule:        ModuleStatus(data[0]),
		RFModule:          ModuleStatus(data[1]),
		VANServer:         ModuleStatus(data[2]),
		IntegrationServer: ModuleStatus(data[3]),
	}, nil
}

// ApprovalRequest is job B/C's request payload (30 bytes for B; C reuses the
// same leading layout plus optional trailing info per spec.md §4.2.4).
type ApprovalRequest struct {
	TransactionType   byte
	AmountMinorUnits  int64
	TaxMinorUnits     int64
	ServiceMinorUnits int64
	Installments      int
	SignatureRequired bool
}

func digits(n int64, width int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) > width {
		s = s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// BuildPaymentApprovalData encodes job B's 30-byte request payload.
func BuildPaymentApprovalData(req ApprovalRequest) []byte {
	sig := byte('0')
	if req.SignatureRequired {
		sig = '1'
	}
	var b strings.Builder
	b.WriteByte(req.TransactionType)
	b.WriteString(digits(req.AmountMinorUnits, 10))
	b.WriteString(digits(req.TaxMinorUnits, 8))
	b.WriteString(digits(req.ServiceMinorUnits, 8))
	b.WriteString(digits(int64(req.Installments), 2))
	b.WriteByte(sig)
	return []byte(b.String())
}

// ApprovalResult is the 177-byte response payload shared by jobs B, C, and L
// (spec.md §4.2.4).
type ApprovalResult struct {
	TransactionType byte
	Medium          byte
	CardNumber      string
	AmountMinorUnits string
	Tax             string
	Service         string
	Installments    string
	ApprovalNumber  string
	SalesDate       string
	SalesTime       string
	TransactionID   string
	Merchant        string
	Terminal        string
	Issuer          string
	RejectionInfo   string
	Acquirer        string
}

// Rejected reports whether the terminal refused the transaction (transaction
// type 'X' or 'x', per spec.md §4.2.5).
func (r ApprovalResult) Rejected() bool {
	return r.TransactionType == 'X' || r.TransactionType == 'x'
}

const approvalResultLen = 1 + 1 + 20 + 10 + 8 + 8 + 2 + 12 + 8 + 6 + 12 + 15 + 14 + 20 + 20 + 20

func ParseApprovalResult(data []byte) (ApprovalResult, error) {
	if len(data) != approvalResultLen {
		return ApprovalResult{}, fmt.Errorf("smartro: approval result payload must be %d bytes, got %d", approvalResultLen, len(data))
	}
	off := 0
	next := func(n int) string {
		s := strings.TrimRight(string(data[off:off+n]), " \x00")
		off += n
		return s
	}
	typ := data[off]
	off++
	medium := data[off]
	off++
	return ApprovalResult{
		TransactionType:  typ,
		Medium:           medium,
		CardNumber:       next(20),
		AmountMinorUnits: next(10),
		Tax:              next(8),
		Service:          next(8),
		Installments:     next(2),
		ApprovalNumber:   next(12),
		SalesDate:        next(8),
		SalesTime:        next(6),
		TransactionID:    next(12),
		Merchant:         next(15),
		Terminal:         next(14),
		Issuer:           next(20),
		RejectionInfo:    next(20),
		Acquirer:         next(20),
	}, nil
}

// BuildScreenSoundData encodes job S's 3-byte request (each value 0-9).
func BuildScreenSoundData(brightness, volume, touchVolume int) ([]byte, error) {
	vals := []int{brightness, volume, touchVolume}
	out := make([]byte, 3)
	for i, v := range vals {
		if v < 0 || v > 9 {
			return nil, fmt.Errorf("smartro: screen/sound value %d out of range 0-9", v)
		}
		out[i] = byte('0' + v)
	}
	return out, nil
}

// ICCardPresence decodes job M's single-byte response.
func ICCardPresence(data []byte) (inserted bool, err error) {
	if len(data) != 1 {
		return false, fmt.Errorf("smartro: IC card check payload must be 1 byte, got %d", len(data))
	}
	switch data[0] {
	case 'O':
		return true, nil
	case 'X':
		return false, nil
	default:
		return false, fmt.Errorf("smartro: unexpected IC card check byte %#02x", data[0])
	}
}
