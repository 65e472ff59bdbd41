// Package camera is the contract-only surface for the Canon EDSDK
// integration (spec.md §4.6); SDK internals are out of scope, but the
// state machine and refcounted handle shape described in spec.md §9 are
// implemented here so the router has something real to dispatch to.
package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

// sdkHandle encapsulates the EDSDK global refcount behind ownership
// (spec.md §9: "Global state for SDK refcount ... encapsulate behind a
// handle type whose construction increments and drop decrements the
// refcount"), rather than free Initialize/Terminate functions.
type sdkHandle struct {
	closed bool
}

var (
	sdkMu    sync.Mutex
	sdkCount int
)

func acquireSDK() *sdkHandle {
	sdkMu.Lock()
	defer sdkMu.Unlock()
	sdkCount++
	return &sdkHandle{}
}

func (h *sdkHandle) release() {
	sdkMu.Lock()
	defer sdkMu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	sdkCount--
}

const stallRecovery = 30 * time.Second

// Adapter implements device.Camera. Capture/preview calls are stubs over
// the SDK boundary the specification excludes; what is specified here is
// the state machine, the stall-recovery timer, and callback delivery.
type Adapter struct {
	id   string
	name string
	sdk  *sdkHandle

	mu          sync.Mutex
	state       device.State
	lastErr     string
	stallCancel chan struct{}

	onCapture func(captureID, filePath string)
	onState   func(old, new device.State)
}

func NewAdapter(id, name string) *Adapter {
	return &Adapter{id: id, name: name, sdk: acquireSDK(), state: device.StateConnecting}
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
		Kind:          device.KindCamera,
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

// Capture transitions ready -> processing -> ready, firing
// capture_complete with the deterministic file name capture_<captureID>.jpg
// (a bare name; no directory is prepended). If the transition back to ready never happens (an SDK stall),
// a self-recovery timer forces it after 30s (spec.md §4.6).
func (a *Adapter) Capture(ctx context.Context, captureID string) error {
	a.mu.Lock()
	if a.state != device.StateReady {
		a.mu.Unlock()
		return device.NewError(device.ErrDeviceNotReady, "camera not ready")
	}
	a.state = device.StateProcessing
	cancel := make(chan struct{})
	a.stallCancel = cancel
	a.mu.Unlock()
	a.fireState(device.StateReady, device.StateProcessing)

	go a.armStallRecovery(cancel)

	go func() {
		time.Sleep(200 * time.Millisecond) // simulated shutter + write latency
		path := fmt.Sprintf("capture_%s.jpg", captureID)

		a.mu.Lock()
		if a.stallCancel == cancel {
			a.state = device.StateReady
			close(cancel)
			a.stallCancel = nil
		}
		onCapture, onState := a.onCapture, a.onState
		a.mu.Unlock()
		if onState != nil {
			onState(device.StateProcessing, device.StateReady)
		}
		if onCapture != nil {
			onCapture(captureID, path)
		}
	}()
	return nil
}

func (a *Adapter) armStallRecovery(cancel chan struct{}) {
	select {
	case <-cancel:
	case <-time.After(stallRecovery):
		a.mu.Lock()
		if a.stallCancel == cancel {
			a.state = device.StateReady
			a.stallCancel = nil
		}
		a.mu.Unlock()
		a.fireState(device.StateProcessing, device.StateReady)
	}
}

func (a *Adapter) fireState(old, new device.State) {
	a.mu.Lock()
	cb := a.onState
	a.mu.Unlock()
	if cb != nil {
		cb(old, new)
	}
}

func (a *Adapter) StartPreview(ctx context.Context) (string, error) {
	return "", device.NewError(device.ErrNotSupported, "preview not implemented outside the SDK boundary")
}

func (a *Adapter) StopPreview(ctx context.Context) error {
	return device.NewError(device.ErrNotSupported, "preview not implemented outside the SDK boundary")
}

func (a *Adapter) SetSettings(ctx context.Context, settings map[string]string) error {
	return nil
}

func (a *Adapter) SetCaptureCompleteCallback(fn func(captureID, filePath string)) {
	a.mu.Lock()
	a.onCapture = fn
	a.mu.Unlock()
}

func (a *Adapter) SetStateChangedCallback(fn func(old, new device.State)) {
	a.mu.Lock()
	a.onState = fn
	a.mu.Unlock()
}

func (a *Adapter) Shutdown() {
	a.sdk.release()
}
