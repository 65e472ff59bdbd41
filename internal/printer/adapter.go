// Package printer is the contract-only surface for the Windows GDI/
// IrfanView printer integration (spec.md §4.6); rendering internals are
// out of scope.
package printer

import (
	"context"
	"sync"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

const printLaunchTimeout = 60 * time.Second

// Adapter implements device.Printer.
type Adapter struct {
	id   string
	name string

	mu      sync.Mutex
	state   device.State
	lastErr string

	onJobComplete func(jobID string, err error)
	printerNames  []string
}

func NewAdapter(id, name string, printerNames []string) *Adapter {
	return &Adapter{id: id, name: name, state: device.StateReady, printerNames: printerNames}
}

func (a *Adapter) GetDeviceInfo() device.Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return device.Info{
		ID:            a.id,
		Kind:          device.KindPrinter,
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

// Print launches a print job and returns immediately (fire-and-forget);
// the job completion event fires once the launch either completes or
// exceeds the 60s launch timeout (spec.md §5).
func (a *Adapter) Print(ctx context.Context, jobID string, data []byte, printerName string) error {
	return a.launch(jobID, func() error {
		if len(data) == 0 {
			return device.NewError(device.ErrInvalidPayload, "empty print payload")
		}
		return nil
	})
}

func (a *Adapter) PrintFromFile(ctx context.Context, jobID, path, orientation string) error {
	return a.launch(jobID, func() error {
		if path == "" {
			return device.NewError(device.ErrInvalidPayload, "empty file path")
		}
		return nil
	})
}

func (a *Adapter) launch(jobID string, work func() error) error {
	a.mu.Lock()
	if a.state != device.StateReady {
		a.mu.Unlock()
		return device.NewError(device.ErrDeviceNotReady, "printer not ready")
	}
	a.state = device.StateProcessing
	a.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- work() }()

	go func() {
		var err error
		select {
		case err = <-done:
		case <-time.After(printLaunchTimeout):
			err = device.NewError(device.ErrHandlerError, "print launch timed out")
		}
		a.mu.Lock()
		a.state = device.StateReady
		if err != nil {
			a.lastErr = err.Error()
		}
		cb := a.onJobComplete
		a.mu.Unlock()
		if cb != nil {
			cb(jobID, err)
		}
	}()
	return nil
}

func (a *Adapter) AvailablePrinters() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.printerNames))
	copy(out, a.printerNames)
	return out, nil
}

func (a *Adapter) SetJobCompleteCallback(fn func(jobID string, err error)) {
	a.mu.Lock()
	a.onJobComplete = fn
	a.mu.Unlock()
}
