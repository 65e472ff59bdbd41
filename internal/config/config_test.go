package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.conf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PrinterPaperSize != PaperSizeA4 {
		t.Fatalf("expected default paper size A4, got %q", cfg.PrinterPaperSize)
	}
	if cfg.PaymentEnabled {
		t.Fatalf("expected payment.enabled to default false")
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.conf")
	cfg := Default()
	cfg.path = path
	cfg.PaymentComPort = "COM3"
	cfg.PaymentEnabled = true
	cfg.CashComPort = "COM4"
	cfg.PrinterPaperSize = PaperSize4x6
	cfg.extra["future.flag"] = "on"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.PaymentComPort != "COM3" || !reloaded.PaymentEnabled {
		t.Fatalf("payment fields did not round-trip: %+v", reloaded)
	}
	if reloaded.PrinterPaperSize != PaperSize4x6 {
		t.Fatalf("paper size did not round-trip: %q", reloaded.PrinterPaperSize)
	}
	if reloaded.extra["future.flag"] != "on" {
		t.Fatalf("unknown key was not preserved: %+v", reloaded.extra)
	}
}

func TestParseBoolAcceptsAllSpecVariants(t *testing.T) {
	for _, truthy := range []string{"1", "true", "True", "yes", "YES"} {
		if !parseBool(truthy) {
			t.Errorf("expected %q to parse true", truthy)
		}
	}
	for _, falsy := range []string{"0", "false", "no", "", "garbage"} {
		if parseBool(falsy) {
			t.Errorf("expected %q to parse false", falsy)
		}
	}
}

func TestApplyMapOnlyTouchesGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kiosk.conf")
	cfg := Default()
	cfg.path = path
	cfg.PrinterName = "Canon SELPHY"

	if err := cfg.ApplyMap(map[string]string{KeyPaymentComPort: "COM5"}); err != nil {
		t.Fatalf("ApplyMap: %v", err)
	}
	if cfg.PrinterName != "Canon SELPHY" {
		t.Fatalf("unrelated field was clobbered: %q", cfg.PrinterName)
	}
	if cfg.PaymentComPort != "COM5" {
		t.Fatalf("expected payment.com_port to be set")
	}
}
