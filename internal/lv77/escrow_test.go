package lv77

import "testing"

func TestEscrowLaw(t *testing.T) {
	a := &Adapter{}
	cases := []struct {
		target, running, bill int64
		wantAccept            bool
	}{
		{target: 10000, running: 0, bill: 10000, wantAccept: true},
		{target: 10000, running: 5000, bill: 5000, wantAccept: true},
		{target: 10000, running: 5000, bill: 5001, wantAccept: false},
		{target: 0, running: 0, bill: 100000, wantAccept: true},
	}
	for _, c := range cases {
		a.target = c.target
		a.runningTotal = c.running
		got := a.decideEscrow(c.bill)
		if got != c.wantAccept {
			t.Errorf("target=%d running=%d bill=%d: got accept=%v, want %v", c.target, c.running, c.bill, got, c.wantAccept)
		}
	}
}

func TestBillAmountMapping(t *testing.T) {
	cases := []struct {
		code           byte
		wantAmount     int64
		wantAccepted   bool
	}{
		{0x40, 1000, true},
		{0x41, 5000, true},
		{0x42, 10000, true},
		{0x43, 50000, false},
		{0x44, 100000, false},
	}
	for _, c := range cases {
		amount, ok := BillAmount(c.code)
		if !ok || amount != c.wantAmount {
			t.Errorf("BillAmount(%#x) = (%d,%v), want (%d,true)", c.code, amount, ok, c.wantAmount)
		}
		if Accepted(c.code) != c.wantAccepted {
			t.Errorf("Accepted(%#x) = %v, want %v", c.code, Accepted(c.code), c.wantAccepted)
		}
	}
}
