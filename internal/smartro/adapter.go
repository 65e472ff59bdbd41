package smartro

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/serialport"
)

const defaultTerminalID = "SMARTRO0000001"

// Adapter implements device.PaymentTerminal and device.Extensions for a
// SMARTRO card terminal (spec.md §4.2, §4.4.1). State and callbacks are
// guarded by mu, which is always released before any callback fires
// (spec.md §5 callback invocation outside the lock).
type Adapter struct {
	id   string
	name string

	mu       sync.Mutex
	comm     *Comm
	port     serialport.Port
	comPort  string
	state    device.State
	lastErr  string
	campaign *Campaign

	onComplete  func(device.PaymentCompleteEvent)
	onFailed    func(code device.ErrorKind, message string)
	onCancelled func()
	onState     func(old, new device.State)
}

// NewAdapter wires a freshly opened port into a running Comm and returns
// the adapter in CONNECTING state; callers transition it to READY once
// CheckDevice succeeds.
func NewAdapter(id, comPort string, port serialport.Port) *Adapter {
	comm := NewComm(port, defaultTerminalID)
	a := &Adapter{
		id:      id,
		name:    "SMARTRO Card Terminal",
		comm:    comm,
		port:    port,
		comPort: comPort,
		state:   device.StateConnecting,
	}
	comm.SetEventCallback(a.handleUnsolicitedFrame)
	comm.Start()
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

func (a *Adapter) VendorName() string { return "smartro" }
func (a *Adapter) ComPort() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.comPort
}

func (a *Adapter) recordError(err error) {
	a.mu.Lock()
	a.lastErr = err.Error()
	a.mu.Unlock()
}

// StartPayment launches a payment-approval campaign in the background and
// returns immediately (spec.md §4.5.3: fire-and-forget launch). Outcomes
// surface through the registered callbacks.
func (a *Adapter) StartPayment(ctx context.Context, amountMinorUnits int64) error {
	a.mu.Lock()
	if a.state != device.StateReady {
		a.mu.Unlock()
		return device.NewError(device.ErrDeviceNotReady, "terminal not ready")
	}
	campaign := NewCampaign(a.comm, ApprovalRequest{TransactionType: '1', AmountMinorUnits: amountMinorUnits})
	a.campaign = campaign
	a.state = device.StateProcessing
	a.mu.Unlock()
	a.fireState(device.StateReady, device.StateProcessing)

	go a.runCampaign(ctx, campaign, amountMinorUnits)
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

func (a *Adapter) runCampaign(ctx context.Context, campaign *Campaign, amountMinorUnits int64) {
	outcome := campaign.Run(ctx)

	a.mu.Lock()
	if a.campaign == campaign {
		a.campaign = nil
	}
	a.state = device.StateReady
	onComplete, onFailed := a.onComplete, a.onFailed
	a.mu.Unlock()
	a.fireState(device.StateProcessing, device.StateReady)

	switch {
	case outcome.Cancelled:
		// CancelPayment has already fired the single payment_cancelled.
	case outcome.Err != nil:
		a.recordError(outcome.Err)
		if onFailed != nil {
			onFailed(outcome.Err.Kind, outcome.Err.Message)
		}
	default:
		if onComplete != nil {
			onComplete(approvalToEvent(a.id, outcome.Approval, amountMinorUnits))
		}
	}
}

func approvalToEvent(deviceID string, r ApprovalResult, amountMinorUnits int64) device.PaymentCompleteEvent {
	medium := mediumTag(r.Medium)
	return device.PaymentCompleteEvent{
		TransactionID:    r.TransactionID,
		AmountMinorUnits: amountMinorUnits,
		MaskedCardNumber: maskCardNumber(r.CardNumber),
		ApprovalNumber:   r.ApprovalNumber,
		SalesDate:        r.SalesDate,
		SalesTime:        r.SalesTime,
		Medium:           medium,
		DeviceState:      device.StateReady,
		Detail: device.ApprovalDetail{
			Status:         string(r.TransactionType),
			Type:           string(r.TransactionType),
			AmountString:   r.AmountMinorUnits,
			Tax:            r.Tax,
			ServiceCharge:  r.Service,
			Installments:   r.Installments,
			MerchantNumber: r.Merchant,
			TerminalNumber: r.Terminal,
			Issuer:         r.Issuer,
			Acquirer:       r.Acquirer,
			RejectionInfo:  r.RejectionInfo,
		},
	}
}

func mediumTag(b byte) device.TransactionMedium {
	switch b {
	case '1':
		return device.MediumIC
	case '2':
		return device.MediumMS
	case '3':
		return device.MediumRF
	case '4':
		return device.MediumQR
	case '5':
		return device.MediumKeyIn
	default:
		return device.MediumMS
	}
}

func maskCardNumber(pan string) string {
	if len(pan) <= 10 {
		return pan
	}
	return pan[:6] + "******" + pan[len(pan)-4:]
}

// CancelPayment writes a payment-wait (E) frame to interrupt an in-flight
// campaign and marks it cancelled so its eventual response is discarded
// without firing payment_complete/payment_failed (spec.md §4.2.5,
// testable property "Cancellation safety"). Calling it twice, or with no
// campaign live, is a safe no-op beyond the single payment_cancelled.
func (a *Adapter) CancelPayment() error {
	a.mu.Lock()
	campaign := a.campaign
	onCancelled := a.onCancelled
	a.mu.Unlock()
	if campaign == nil || campaign.cancelled.Swap(true) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), ackTimeout)
	defer cancel()
	a.comm.Exchange(ctx, JobPaymentWait, nil)
	if onCancelled != nil {
		onCancelled()
	}
	return nil
}

func (a *Adapter) Reset(ctx context.Context) error {
	_, err := a.comm.Exchange(ctx, JobReset, nil)
	if err != nil {
		return device.NewError(device.ErrPaymentResetFailed, err.Error())
	}
	return nil
}

func (a *Adapter) CheckDevice(ctx context.Context) error {
	frame, err := a.comm.Exchange(ctx, JobDeviceCheck, nil)
	if err != nil {
		a.setState(device.StateError)
		a.recordError(err)
		return device.NewError(device.ErrDeviceCheckFailed, err.Error())
	}
	result, err := ParseDeviceCheckResult(frame.Data)
	if err != nil {
		a.setState(device.StateError)
		return device.NewError(device.ErrDeviceCheckFailed, err.Error())
	}
	if result.CardModule != ModuleNormal && result.CardModule != ModuleOK {
		a.setState(device.StateError)
		return device.NewError(device.ErrDeviceCheckFailed, fmt.Sprintf("card module status %q", result.CardModule))
	}
	a.setState(device.StateReady)
	return nil
}

func (a *Adapter) Reconnect(ctx context.Context, newPort string) error {
	a.mu.Lock()
	a.comPort = newPort
	a.mu.Unlock()
	return a.CheckDevice(ctx)
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

func (a *Adapter) Extensions() device.Extensions { return a }

func (a *Adapter) ReadCardUID(ctx context.Context) (string, error) {
	frame, err := a.comm.Exchange(ctx, JobCardUIDRead, nil)
	if err != nil {
		return "", device.NewError(device.ErrCardUIDReadFailed, err.Error())
	}
	return fmt.Sprintf("%x", frame.Data), nil
}

func (a *Adapter) CheckICCard(ctx context.Context) (bool, error) {
	frame, err := a.comm.Exchange(ctx, JobICCardCheck, nil)
	if err != nil {
		return false, device.NewError(device.ErrICCardCheckFailed, err.Error())
	}
	inserted, err := ICCardPresence(frame.Data)
	if err != nil {
		return false, device.NewError(device.ErrICCardCheckFailed, err.Error())
	}
	return inserted, nil
}

func (a *Adapter) SetScreenSound(ctx context.Context, brightness, volume, touchVolume int) error {
	data, err := BuildScreenSoundData(brightness, volume, touchVolume)
	if err != nil {
		return device.NewError(device.ErrScreenSoundFailed, err.Error())
	}
	_, err = a.comm.Exchange(ctx, JobScreenSound, data)
	if err != nil {
		return device.NewError(device.ErrScreenSoundFailed, err.Error())
	}
	return nil
}

func (a *Adapter) CancelTransaction(ctx context.Context, transactionID string) (device.ApprovalDetail, error) {
	frame, err := a.comm.Exchange(ctx, JobTransactionCancel, []byte(transactionID))
	if err != nil {
		return device.ApprovalDetail{}, device.NewError(device.ErrTransactionCancelFail, err.Error())
	}
	result, err := ParseApprovalResult(frame.Data)
	if err != nil {
		return device.ApprovalDetail{}, device.NewError(device.ErrTransactionCancelFail, err.Error())
	}
	return approvalToEvent(a.id, result, 0).Detail, nil
}

func (a *Adapter) GetLastApproval(ctx context.Context) (device.ApprovalDetail, error) {
	frame, err := a.comm.Exchange(ctx, JobLastApproval, nil)
	if err != nil {
		return device.ApprovalDetail{}, device.NewError(device.ErrLastApprovalFailed, err.Error())
	}
	result, err := ParseApprovalResult(frame.Data)
	if err != nil {
		return device.ApprovalDetail{}, device.NewError(device.ErrLastApprovalFailed, err.Error())
	}
	return approvalToEvent(a.id, result, 0).Detail, nil
}

// handleUnsolicitedFrame is Comm's onEvent callback for '@' frames: card
// inserted/removed and similar terminal-initiated notices that arrive with
// no request in flight. None of the IPC-level events the router exposes
// are sourced from these today, so they are observed but not forwarded.
func (a *Adapter) handleUnsolicitedFrame(frame *Frame) {}

func (a *Adapter) Shutdown() {
	a.comm.Stop()
	a.port.Close()
}
