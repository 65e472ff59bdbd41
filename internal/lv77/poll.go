package lv77

import (
	"sync/atomic"
	"time"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	activePollInterval  = 100 * time.Millisecond
	silenceWidenAfter   = 10
	silencePollInterval = 2 * time.Second
)

// PollLoop is the LV77 dedicated polling thread (spec.md §4.3.4): it sends
// poll-status at its current interval and reacts to the single-byte reply.
// It observes its own stop flag on every iteration and never calls Stop
// from within itself — target-reached handling is deferred to a detached
// housekeeper precisely so the poll goroutine is not asked to join itself
// (spec.md §9).
type PollLoop struct {
	comm *Comm

	interval    atomic.Int64 // time.Duration, nanoseconds
	lastEscrow  int64
	silentTicks int

	stopCh chan struct{}
	doneCh chan struct{}

	OnEscrow   func(amountMinorUnits int64) (accept bool)
	OnStacked  func(amountMinorUnits int64)
	OnStatus   func(code byte)
}

func NewPollLoop(comm *Comm) *PollLoop {
	p := &PollLoop{comm: comm, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
	p.interval.Store(int64(defaultPollInterval))
	return p
}

// SetActive switches the tick rate: 100ms while a cash campaign is live,
// 500ms otherwise (spec.md §4.3.4).
func (p *PollLoop) SetActive(active bool) {
	if active {
		p.interval.Store(int64(activePollInterval))
	} else {
		p.interval.Store(int64(defaultPollInterval))
	}
}

func (p *PollLoop) currentInterval() time.Duration {
	return time.Duration(p.interval.Load())
}

// Run blocks until Stop is called. Callers run it in its own goroutine.
func (p *PollLoop) Run() {
	defer close(p.doneCh)
	next := time.Now()
	for {
		select {
		case <-p.stopCh:
			return
		case <-time.After(time.Until(next)):
		}
		next = time.Now().Add(p.currentInterval())

		if err := p.comm.send(CmdPollStatus); err != nil {
			continue
		}
		b, ok, err := p.comm.readByte(p.currentInterval())
		if err != nil {
			continue
		}
		if !ok {
			p.silentTicks++
			if p.silentTicks == silenceWidenAfter {
				p.interval.Store(int64(silencePollInterval))
			}
			continue
		}
		p.silentTicks = 0

		p.dispatch(b)
	}
}

func (p *PollLoop) dispatch(b byte) {
	switch {
	case b == RespBillValidated:
		billType, ok, err := p.comm.readByte(500 * time.Millisecond)
		if err != nil || !ok {
			return
		}
		amount, known := BillAmount(billType)
		if !known || !Accepted(billType) {
			// 0x43/0x44 decode to a real amount but are unaccepted in
			// this deployment (spec.md §4.3.2); reject before the
			// escrow decision ever sees them.
			p.comm.send(CmdRejectBill)
			return
		}
		p.lastEscrow = amount
		accept := p.OnEscrow != nil && p.OnEscrow(amount)
		if accept {
			p.comm.send(CmdSyncAck) // 0x02 is the accept-stack byte in this exchange (spec §4.3.4)
		} else {
			p.comm.send(CmdRejectBill)
		}
	case b == RespStacking:
		if p.OnStacked != nil {
			p.OnStacked(p.lastEscrow)
		}
	case b == RespEnabled || b == RespInhibited || StatusCode(b):
		if p.OnStatus != nil {
			p.OnStatus(b)
		}
	}
}

// Stop signals Run to return and waits for it.
func (p *PollLoop) Stop() {
	select {
	case <-p.stopCh:
		return // already stopped
	default:
		close(p.stopCh)
	}
	<-p.doneCh
}
