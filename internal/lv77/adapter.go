package lv77

import (
	"context"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/serialport"
)

// Adapter implements device.PaymentTerminal for the LV77 bill validator.
// "StartPayment" begins a cash campaign toward a target amount; its escrow
// policy accepts a bill iff the running total plus the bill does not
// exceed the target, or unconditionally when the target is zero (test
// mode, spec.md §4.3.5).
type Adapter struct {
	id   string
	name string
	port serialport.Port
	comm *Comm
	poll *PollLoop

	mu           sync.Mutex
	state        device.State
	lastErr      string
	target       int64
	runningTotal int64
	campaignDone bool

	onComplete  func(device.PaymentCompleteEvent)
	onFailed    func(code device.ErrorKind, message string)
	onCancelled func()
	onState     func(old, new device.State)
	onStacked   func(amountMinorUnits int64)
	onTarget    func(totalMinorUnits int64)
}

func NewAdapter(id, comPort string, port serialport.Port) *Adapter {
	a := &Adapter{
		id:    id,
		name:  "LV77 Bill Validator",
		port:  port,
		comm:  NewComm(port),
		state: device.StateConnecting,
	}
	a.comm.PowerUpSync()
	a.poll = NewPollLoop(a.comm)
	a.poll.OnEscrow = a.decideEscrow
	a.poll.OnStacked = a.handleStacked
	a.poll.OnStatus = a.handleStatus
	go a.poll.Run()
	a.comm.send(CmdEnable)
	a.setState(device.StateReady)
	return a
}

func (a *Adapter) setState(new device.State) {
	a.mu.Lock()
	old := a.state
	a.state = new
	cb := a.onState
	a.mu.Unlock()
	if cb != nil && old != new {
		cb(old, new)
	}
}

func (a *Adapter) GetDeviceInfo() device.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return device.Info{
		ID:            a.id,
		Kind:          device.KindPayment,
		Name:          a.name,
		State:         a.state,
		LastError:     a.lastErr,
		LastUpdatedMs: time.Now().UnixMilli(),
	}
}

func (a *Adapter) GetState() device.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Adapter) VendorName() string { return "lv77" }
func (a *Adapter) ComPort() string    { return a.port.Name() }

func (a *Adapter) Reconnect(ctx context.Context, newPort string) error {
	return a.CheckDevice(ctx)
}

// StartPayment begins a cash campaign with amountMinorUnits as the target
// total; amountMinorUnits == 0 means test mode (accept every bill).
func (a *Adapter) StartPayment(ctx context.Context, amountMinorUnits int64) error {
	a.mu.Lock()
	if a.state != device.StateReady {
		a.mu.Unlock()
		return device.NewError(device.ErrDeviceNotReady, "validator not ready")
	}
	a.target = amountMinorUnits
	a.runningTotal = 0
	a.campaignDone = false
	a.state = device.StateProcessing
	a.mu.Unlock()

	a.poll.SetActive(true)
	a.fireState(device.StateReady, device.StateProcessing)
	return nil
}

func (a *Adapter) fireState(old, new device.State) {
	a.mu.Lock()
	cb := a.onState
	a.mu.Unlock()
	if cb != nil {
		cb(old, new)
	}
}

// decideEscrow is PollLoop.OnEscrow: accept iff running+bill <= target, or
// target == 0 (spec.md's "LV77 escrow law"). A rejection because the bill
// would exceed the target fires payment_failed/CASH_BILL_RETURNED so the
// UI can show "no change: bill returned" (spec.md §4.3.5).
func (a *Adapter) decideEscrow(bill int64) bool {
	a.mu.Lock()
	target := a.target
	running := a.runningTotal
	onFailed := a.onFailed
	a.mu.Unlock()

	if target == 0 {
		return true
	}
	if running+bill <= target {
		return true
	}
	if onFailed != nil {
		onFailed(device.ErrCashBillReturned, "bill would exceed remaining target")
	}
	return false
}

func (a *Adapter) handleStacked(amount int64) {
	a.mu.Lock()
	a.runningTotal += amount
	total := a.runningTotal
	target := a.target
	reached := target != 0 && total >= target && !a.campaignDone
	if reached {
		a.campaignDone = true
	}
	onStacked := a.onStacked
	a.mu.Unlock()

	if onStacked != nil {
		onStacked(total)
	}
	if reached {
		a.onTargetReached(total)
	}
}

// onTargetReached detaches a housekeeper to stop polling and disable the
// validator, so the poll goroutine (the caller of handleStacked, via
// dispatch) never has to join itself (spec.md §9, §4.3.4).
func (a *Adapter) onTargetReached(total int64) {
	a.setState(device.StateReady)
	a.mu.Lock()
	onTarget := a.onTarget
	a.mu.Unlock()
	if onTarget != nil {
		onTarget(total)
	}
	go func() {
		a.poll.SetActive(false)
		a.comm.send(CmdDisable)
	}()
}

func (a *Adapter) handleStatus(code byte) {
	if StatusCode(code) {
		a.mu.Lock()
		a.lastErr = "validator fault status"
		a.mu.Unlock()
	}
}

// CancelPayment stops the current cash campaign. If a bill was rejected
// for exceeding the target, a payment_failed/CASH_BILL_RETURNED event was
// already fired from within the poll dispatch path; Cancel here just
// returns the validator to READY.
func (a *Adapter) CancelPayment() error {
	a.mu.Lock()
	if a.state != device.StateProcessing {
		a.mu.Unlock()
		return nil
	}
	a.state = device.StateReady
	onCancelled := a.onCancelled
	a.mu.Unlock()

	a.poll.SetActive(false)
	a.fireState(device.StateProcessing, device.StateReady)
	if onCancelled != nil {
		onCancelled()
	}
	return nil
}

func (a *Adapter) Reset(ctx context.Context) error {
	return a.comm.send(CmdReset)
}

func (a *Adapter) CheckDevice(ctx context.Context) error {
	if err := a.comm.send(CmdPollStatus); err != nil {
		a.setState(device.StateError)
		return device.NewError(device.ErrDeviceCheckFailed, err.Error())
	}
	a.setState(device.StateReady)
	return nil
}

func (a *Adapter) SetPaymentCompleteCallback(fn func(device.PaymentCompleteEvent)) {
	a.mu.Lock()
	a.onComplete = fn
	a.mu.Unlock()
}
func (a *Adapter) SetPaymentFailedCallback(fn func(code device.ErrorKind, message string)) {
	a.mu.Lock()
	a.onFailed = fn
	a.mu.Unlock()
}
func (a *Adapter) SetPaymentCancelledCallback(fn func()) {
	a.mu.Lock()
	a.onCancelled = fn
	a.mu.Unlock()
}
func (a *Adapter) SetStateChangedCallback(fn func(old, new device.State)) {
	a.mu.Lock()
	a.onState = fn
	a.mu.Unlock()
}

// SetBillStackedCallback wires the cash_bill_stacked event; it is not part
// of device.PaymentTerminal since no other vendor has an analog, so the
// router type-asserts *Adapter for cash devices specifically.
func (a *Adapter) SetBillStackedCallback(fn func(amountMinorUnits int64)) {
	a.mu.Lock()
	a.onStacked = fn
	a.mu.Unlock()
}

// SetTargetReachedCallback wires the cash_payment_target_reached event.
func (a *Adapter) SetTargetReachedCallback(fn func(totalMinorUnits int64)) {
	a.mu.Lock()
	a.onTarget = fn
	a.mu.Unlock()
}

// Extensions: the bill validator implements none of SMARTRO's extended
// operations.
func (a *Adapter) Extensions() device.Extensions { return nil }

func (a *Adapter) Shutdown() {
	a.poll.Stop()
	a.port.Close()
}
