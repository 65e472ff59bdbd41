// Package config loads and saves the daemon's small INI-style key/value
// file (spec.md §6). It intentionally does not grow into a general config
// framework: one flat struct, one set of known keys, get/set by string key
// for the get_config/set_config IPC commands.
package config

import (
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Keys, exactly as they appear on the wire and in the file.
const (
	KeyCameraSavePath   = "camera.save_path"
	KeyPrinterName      = "printer.name"
	KeyPrinterPaperSize = "printer.paper_size"
	KeyPrinterMarginH   = "printer.margin_h"
	KeyPrinterMarginV   = "printer.margin_v"
	KeyPaymentComPort   = "payment.com_port"
	KeyPaymentEnabled   = "payment.enabled"
	KeyCashComPort      = "cash.com_port"
	KeyCashEnabled      = "cash.enabled"
)

// PaperSize values accepted for printer.paper_size.
const (
	PaperSizeA4  = "A4"
	PaperSize4x6 = "4x6"
)

var knownKeys = []string{
	KeyCameraSavePath, KeyPrinterName, KeyPrinterPaperSize, KeyPrinterMarginH,
	KeyPrinterMarginV, KeyPaymentComPort, KeyPaymentEnabled, KeyCashComPort,
	KeyCashEnabled,
}

// Config is the parsed key/value set. Unknown keys read from disk are kept
// in extra and written back by Save, so forward-compatible keys a future
// daemon build might add survive a round trip. Comments in the file are not
// kept: Save rewrites the file from the known keys plus extra.
type Config struct {
	CameraSavePath   string
	PrinterName      string
	PrinterPaperSize string
	PrinterMarginH   string
	PrinterMarginV   string
	PaymentComPort   string
	PaymentEnabled   bool
	CashComPort      string
	CashEnabled      bool

	path  string
	extra map[string]string
}

// Default returns the zero-value config with sane defaults, used when no
// file exists yet.
func Default() *Config {
	return &Config{
		PrinterPaperSize: PaperSizeA4,
		extra:            map[string]string{},
	}
}

// Load reads path. A missing file is not an error: it returns Default()
// with path set, so a subsequent Save creates it.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	file, err := ini.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	sec := file.Section("")
	cfg.CameraSavePath = sec.Key(KeyCameraSavePath).String()
	cfg.PrinterName = sec.Key(KeyPrinterName).String()
	cfg.PrinterPaperSize = sec.Key(KeyPrinterPaperSize).MustString(PaperSizeA4)
	cfg.PrinterMarginH = sec.Key(KeyPrinterMarginH).String()
	cfg.PrinterMarginV = sec.Key(KeyPrinterMarginV).String()
	cfg.PaymentComPort = sec.Key(KeyPaymentComPort).String()
	cfg.PaymentEnabled = parseBool(sec.Key(KeyPaymentEnabled).String())
	cfg.CashComPort = sec.Key(KeyCashComPort).String()
	cfg.CashEnabled = parseBool(sec.Key(KeyCashEnabled).String())

	cfg.extra = map[string]string{}
	for _, key := range sec.Keys() {
		if !isKnown(key.Name()) {
			cfg.extra[key.Name()] = key.String()
		}
	}
	return cfg, nil
}

// Save writes the config back to its origin path, preserving any unknown
// keys that were present when it was loaded.
func (c *Config) Save() error {
	file := ini.Empty()
	sec := file.Section("")
	sec.Key(KeyCameraSavePath).SetValue(c.CameraSavePath)
	sec.Key(KeyPrinterName).SetValue(c.PrinterName)
	sec.Key(KeyPrinterPaperSize).SetValue(c.PrinterPaperSize)
	sec.Key(KeyPrinterMarginH).SetValue(c.PrinterMarginH)
	sec.Key(KeyPrinterMarginV).SetValue(c.PrinterMarginV)
	sec.Key(KeyPaymentComPort).SetValue(c.PaymentComPort)
	sec.Key(KeyPaymentEnabled).SetValue(boolString(c.PaymentEnabled))
	sec.Key(KeyCashComPort).SetValue(c.CashComPort)
	sec.Key(KeyCashEnabled).SetValue(boolString(c.CashEnabled))
	for k, v := range c.extra {
		sec.Key(k).SetValue(v)
	}
	return file.SaveTo(c.path)
}

// AsMap flattens the config to the string/string payload shape the IPC
// layer uses for get_config responses.
func (c *Config) AsMap() map[string]string {
	m := map[string]string{
		KeyCameraSavePath:   c.CameraSavePath,
		KeyPrinterName:      c.PrinterName,
		KeyPrinterPaperSize: c.PrinterPaperSize,
		KeyPrinterMarginH:   c.PrinterMarginH,
		KeyPrinterMarginV:   c.PrinterMarginV,
		KeyPaymentComPort:   c.PaymentComPort,
		KeyPaymentEnabled:   boolString(c.PaymentEnabled),
		KeyCashComPort:      c.CashComPort,
		KeyCashEnabled:      boolString(c.CashEnabled),
	}
	for k, v := range c.extra {
		m[k] = v
	}
	return m
}

// ApplyMap merges a set_config payload into the config and saves it.
func (c *Config) ApplyMap(values map[string]string) error {
	for k, v := range values {
		switch k {
		case KeyCameraSavePath:
			c.CameraSavePath = v
		case KeyPrinterName:
			c.PrinterName = v
		case KeyPrinterPaperSize:
			c.PrinterPaperSize = v
		case KeyPrinterMarginH:
			c.PrinterMarginH = v
		case KeyPrinterMarginV:
			c.PrinterMarginV = v
		case KeyPaymentComPort:
			c.PaymentComPort = v
		case KeyPaymentEnabled:
			c.PaymentEnabled = parseBool(v)
		case KeyCashComPort:
			c.CashComPort = v
		case KeyCashEnabled:
			c.CashEnabled = parseBool(v)
		default:
			if c.extra == nil {
				c.extra = map[string]string{}
			}
			c.extra[k] = v
		}
	}
	return c.Save()
}

func isKnown(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

