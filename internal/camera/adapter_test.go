package camera

import (
	"context"
	"testing"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

func TestCaptureRejectedWhenNotReady(t *testing.T) {
	a := NewAdapter("camera", "test-cam")
	defer a.Shutdown()

	if err := a.Capture(context.Background(), "shot-1"); err == nil {
		t.Fatal("Capture should fail while the camera is still CONNECTING")
	}
}

func TestCaptureTransitionsAndFiresCallbacks(t *testing.T) {
	a := NewAdapter("camera", "test-cam")
	defer a.Shutdown()
	a.setState(device.StateReady)

	stateTransitions := make(chan device.State, 4)
	a.SetStateChangedCallback(func(old, new device.State) { stateTransitions <- new })

	captured := make(chan string, 1)
	a.SetCaptureCompleteCallback(func(captureID, filePath string) { captured <- filePath })

	if err := a.Capture(context.Background(), "shot-1"); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	select {
	case s := <-stateTransitions:
		if s != device.StateProcessing {
			t.Fatalf("first transition = %s, want PROCESSING", s)
		}
	case <-time.After(time.Second):
		t.Fatal("never transitioned to PROCESSING")
	}

	select {
	case path := <-captured:
		if path != "capture_shot-1.jpg" {
			t.Fatalf("captured path = %q", path)
		}
	case <-time.After(time.Second):
		t.Fatal("capture_complete callback never fired")
	}

	if a.GetState() != device.StateReady {
		t.Fatalf("final state = %s, want READY", a.GetState())
	}
}

func TestCaptureRejectsConcurrentCallWhileProcessing(t *testing.T) {
	a := NewAdapter("camera", "test-cam")
	defer a.Shutdown()
	a.setState(device.StateReady)

	if err := a.Capture(context.Background(), "shot-1"); err != nil {
		t.Fatalf("first Capture: %v", err)
	}
	if err := a.Capture(context.Background(), "shot-2"); err == nil {
		t.Fatal("second Capture while PROCESSING should be rejected")
	}
}

func TestSDKHandleRefcounting(t *testing.T) {
	before := sdkCount
	a := NewAdapter("camera", "test-cam")
	if sdkCount != before+1 {
		t.Fatalf("sdkCount after acquire = %d, want %d", sdkCount, before+1)
	}
	a.Shutdown()
	if sdkCount != before {
		t.Fatalf("sdkCount after release = %d, want %d", sdkCount, before)
	}
	// Shutdown must be idempotent.
	a.Shutdown()
	if sdkCount != before {
		t.Fatalf("sdkCount after double release = %d, want %d", sdkCount, before)
	}
}
