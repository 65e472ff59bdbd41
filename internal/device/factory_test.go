package device

import (
	"context"
	"testing"
)

func TestFactoryOrderingSkipsExcludedPort(t *testing.T) {
	f := NewFactory()
	var triedA, triedB []string
	f.Register(VendorProbe{
		VendorName: "A",
		Category:   CategoryCard,
		TryPort: func(ctx context.Context, port string) bool {
			triedA = append(triedA, port)
			return port == "COM2"
		},
		Create: func(deviceID, port string) PaymentTerminal { return nil },
	})
	f.Register(VendorProbe{
		VendorName: "B",
		Category:   CategoryCard,
		TryPort: func(ctx context.Context, port string) bool {
			triedB = append(triedB, port)
			return true
		},
		Create: func(deviceID, port string) PaymentTerminal { return nil },
	})

	result, ok := f.DetectOnPorts(context.Background(), "dev1", []string{"COM1", "COM2", "COM3"}, "COM1", CategoryCard)
	if !ok {
		t.Fatal("expected a match")
	}
	if result.VendorName != "A" {
		t.Fatalf("vendor = %q, want A (first registered wins when both try_port succeed)", result.VendorName)
	}
	if result.Port != "COM2" {
		t.Fatalf("port = %q, want COM2", result.Port)
	}
	for _, p := range append(triedA, triedB...) {
		if p == "COM1" {
			t.Fatal("excluded port COM1 must never be probed")
		}
	}
}

func TestFactoryNoMatch(t *testing.T) {
	f := NewFactory()
	f.Register(VendorProbe{
		VendorName: "A",
		Category:   CategoryCash,
		TryPort:    func(ctx context.Context, port string) bool { return false },
		Create:     func(deviceID, port string) PaymentTerminal { return nil },
	})
	_, ok := f.DetectOnPorts(context.Background(), "dev1", []string{"COM1"}, "", CategoryCard)
	if ok {
		t.Fatal("expected no match for a category with no registered probes")
	}
}
