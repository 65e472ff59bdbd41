package printer

import (
	"context"
	"testing"
	"time"

	"github.com/kiosko/devicectld/internal/device"
)

func TestPrintSucceedsAndReturnsToReady(t *testing.T) {
	a := NewAdapter("printer", "receipt", []string{"Receipt Printer"})

	jobs := make(chan error, 1)
	a.SetJobCompleteCallback(func(jobID string, err error) { jobs <- err })

	if err := a.Print(context.Background(), "job-1", []byte("receipt body"), "Receipt Printer"); err != nil {
		t.Fatalf("Print: %v", err)
	}

	select {
	case err := <-jobs:
		if err != nil {
			t.Fatalf("job completion err = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("printer_job_complete never fired")
	}
	if a.GetState() != device.StateReady {
		t.Fatalf("final state = %s, want READY", a.GetState())
	}
}

func TestPrintRejectsEmptyPayloadViaJobCallback(t *testing.T) {
	a := NewAdapter("printer", "receipt", nil)
	jobs := make(chan error, 1)
	a.SetJobCompleteCallback(func(jobID string, err error) { jobs <- err })

	if err := a.Print(context.Background(), "job-1", nil, "Receipt Printer"); err != nil {
		t.Fatalf("Print launch itself should not fail: %v", err)
	}

	select {
	case err := <-jobs:
		if err == nil {
			t.Fatal("expected the job to complete with an error for an empty payload")
		}
	case <-time.After(time.Second):
		t.Fatal("printer_job_complete never fired")
	}
}

func TestAvailablePrintersReturnsACopy(t *testing.T) {
	a := NewAdapter("printer", "receipt", []string{"A", "B"})
	names, err := a.AvailablePrinters()
	if err != nil {
		t.Fatalf("AvailablePrinters: %v", err)
	}
	names[0] = "mutated"
	fresh, _ := a.AvailablePrinters()
	if fresh[0] != "A" {
		t.Fatal("AvailablePrinters should return a defensive copy")
	}
}
