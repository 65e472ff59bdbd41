// Package lv77 implements the LV77/ICT-104U bill-validator protocol: a
// single-byte command set, power-up sync, a continuous polling loop, and
// an escrow accept/reject state machine (spec.md §4.3).
package lv77

// Host-to-device command bytes.
const (
	CmdSyncAck     byte = 0x02
	CmdPollStatus  byte = 0x0C
	CmdRejectBill  byte = 0x0F
	CmdAcceptStack byte = 0x10
	CmdRejectStack byte = 0x11
	CmdHoldEscrow  byte = 0x18
	CmdReset       byte = 0x30
	CmdEnable      byte = 0x3E
	CmdDisable     byte = 0x5E
	CmdEscrowHold  byte = 0x5A
)

// Device-to-host response bytes.
const (
	RespPowerUp       byte = 0x80
	RespSyncOK        byte = 0x8F
	RespBillValidated byte = 0x81
	RespStacking      byte = 0x10
	RespReject        byte = 0x11
	RespEnabled       byte = 0x3E
	RespInhibited     byte = 0x5E
)

// StatusCode reports whether b is a jam/error status byte (spec.md §4.3.2:
// 0x20..0x2B).
func StatusCode(b byte) bool {
	return b >= 0x20 && b <= 0x2B
}

// BillAmount maps a bill-type byte (following RespBillValidated) to its
// value in the smallest currency unit. Codes 0x43/0x44 decode to a value
// but are not accepted in this deployment (spec.md §4.3.2); callers that
// care about acceptance must check Accepted separately.
func BillAmount(code byte) (amountMinorUnits int64, ok bool) {
	switch code {
	case 0x40:
		return 1000, true
	case 0x41:
		return 5000, true
	case 0x42:
		return 10000, true
	case 0x43:
		return 50000, true
	case 0x44:
		return 100000, true
	default:
		return 0, false
	}
}

// Accepted reports whether this deployment accepts the given bill-type
// code at all (0x43/0x44 decode to an amount but are never accepted).
func Accepted(code byte) bool {
	return code == 0x40 || code == 0x41 || code == 0x42
}
