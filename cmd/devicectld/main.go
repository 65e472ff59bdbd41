// Command devicectld is the kiosk peripheral daemon: it owns every serial
// payment device, the contract-only camera/printer surfaces, and the local
// IPC channel a kiosk UI process talks to (spec.md §1, §2).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	gologging "github.com/op/go-logging"

	"github.com/kiosko/devicectld/internal/config"
	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/ipc"
	applog "github.com/kiosko/devicectld/internal/logging"
	"github.com/kiosko/devicectld/internal/serialport"
	"github.com/kiosko/devicectld/internal/version"

	"github.com/kiosko/devicectld/internal/camera"
	"github.com/kiosko/devicectld/internal/lv77"
	"github.com/kiosko/devicectld/internal/printer"
	"github.com/kiosko/devicectld/internal/smartro"
)

// exit codes (spec.md §6).
const (
	exitClean = 0
	exitInit  = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath(), "path to devicectld.ini")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for the control socket (port hints are kept under $HOME/.devicectld)")
	logLevel := flag.String("log-level", "INFO", "DEBUG, INFO, WARNING, ERROR")
	syslog := flag.Bool("syslog", true, "attempt a syslog backend before falling back to stderr")
	flag.Parse()

	level, err := gologging.LogLevel(*logLevel)
	if err != nil {
		level = gologging.INFO
	}
	log := applog.New("devicectld", level, *syslog)
	applog.Banner(fmt.Sprintf("starting, version %s, protocol %s", version.Current, version.Protocol))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorf("config load failed: %v", err)
		return exitInit
	}

	if err := os.MkdirAll(*stateDir, 0700); err != nil {
		log.Errorf("state dir %s: %v", *stateDir, err)
		return exitInit
	}

	manager := device.NewManager()
	factory := buildFactory()

	registerConfiguredDevices(log, manager, factory, cfg)
	registerAncillaryDevices(manager, cfg)

	listener, err := bindTransport(*stateDir)
	if err != nil {
		log.Errorf("ipc transport bind failed: %v", err)
		return exitInit
	}

	router := ipc.NewRouter(manager)
	deps := &ipc.Deps{Manager: manager, Config: cfg, Factory: factory}
	ipc.RegisterAll(router, deps)

	server := ipc.NewServer(listener, router, manager)
	wireEventBroadcast(server, manager)

	go server.Serve()
	log.Info("ipc server listening")

	waitForShutdown(log)

	server.Stop()
	applog.Banner("shut down cleanly")
	return exitClean
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "devicectld", "devicectld.ini")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".devicectld")
}

// buildFactory registers the one card vendor (SMARTRO) and one cash vendor
// (LV77) this build ships with probes for (spec.md §4.4.2). A future
// vendor registers here too; nothing else in the daemon changes.
func buildFactory() *device.Factory {
	f := device.NewFactory()
	f.Register(device.VendorProbe{
		VendorName: "smartro",
		Category:   device.CategoryCard,
		TryPort: func(ctx context.Context, port string) bool {
			return smartro.TryPort(ctx, serialport.Open, port)
		},
		Create: func(deviceID, port string) device.PaymentTerminal {
			return smartro.Create(serialport.Open, deviceID, port)
		},
	})
	f.Register(device.VendorProbe{
		VendorName: "lv77",
		Category:   device.CategoryCash,
		TryPort: func(ctx context.Context, port string) bool {
			return lv77.TryPort(ctx, serialport.Open, port)
		},
		Create: func(deviceID, port string) device.PaymentTerminal {
			return lv77.Create(serialport.Open, deviceID, port)
		},
	})
	return f
}

// registerConfiguredDevices opens whatever com ports the config file
// names directly (payment.com_port, cash.com_port), falling back to a
// recorded hint and then full detection via the factory. A device
// section with enabled=false is skipped entirely.
func registerConfiguredDevices(log *gologging.Logger, manager *device.Manager, factory *device.Factory, cfg *config.Config) {
	hints, err := serialport.NewHintStore()
	if err != nil {
		log.Warningf("port hint store unavailable: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ports := serialport.Enumerate()
	cashPort := ""

	if cfg.CashEnabled {
		port := cfg.CashComPort
		if port == "" && hints != nil {
			if hinted, ok := hints.Get(device.IDCashValidator); ok {
				port = hinted
			}
		}
		if port != "" && lv77.TryPort(ctx, serialport.Open, port) {
			manager.Register(device.IDCashValidator, device.KindPayment, lv77.Create(serialport.Open, device.IDCashValidator, port))
			cashPort = port
		} else if res, found := factory.DetectOnPorts(ctx, device.IDCashValidator, ports, "", device.CategoryCash); found {
			manager.Register(device.IDCashValidator, device.KindPayment, res.Adapter)
			cashPort = res.Port
			if hints != nil {
				hints.Set(device.IDCashValidator, res.Port)
			}
		} else {
			log.Warning("no cash validator detected")
		}
	}

	if cfg.PaymentEnabled {
		port := cfg.PaymentComPort
		if port == "" && hints != nil {
			if hinted, ok := hints.Get(device.IDCardTerminal); ok {
				port = hinted
			}
		}
		if port != "" && smartro.TryPort(ctx, serialport.Open, port) {
			manager.Register(device.IDCardTerminal, device.KindPayment, smartro.Create(serialport.Open, device.IDCardTerminal, port))
		} else if res, found := factory.DetectOnPorts(ctx, device.IDCardTerminal, ports, cashPort, device.CategoryCard); found {
			manager.Register(device.IDCardTerminal, device.KindPayment, res.Adapter)
			if hints != nil {
				hints.Set(device.IDCardTerminal, res.Port)
			}
		} else {
			log.Warning("no card terminal detected")
		}
	}
}

// registerAncillaryDevices wires the contract-only camera and printer
// surfaces (spec.md §4.6); neither depends on serial detection.
func registerAncillaryDevices(manager *device.Manager, cfg *config.Config) {
	cam := camera.NewAdapter(device.IDCamera, "Canon EDSDK camera")
	manager.Register(device.IDCamera, device.KindCamera, cam)

	names := []string{cfg.PrinterName}
	if cfg.PrinterName == "" {
		names = nil
	}
	pr := printer.NewAdapter(device.IDPrinter, "system default printer", names)
	manager.Register(device.IDPrinter, device.KindPrinter, pr)
}

// wireEventBroadcast attaches every adapter's callbacks to the IPC event
// broadcast path (spec.md §4.5.4). Camera/printer callbacks are wired
// through their own interfaces; lv77's cash-specific callbacks are wired
// via a type assertion since they aren't part of device.PaymentTerminal.
func wireEventBroadcast(server *ipc.Server, manager *device.Manager) {
	for _, id := range manager.AllIDs() {
		a, ok := manager.Lookup(id)
		if !ok {
			continue
		}
		deviceID := id
		switch d := a.(type) {
		case device.PaymentTerminal:
			d.SetStateChangedCallback(func(old, new device.State) {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtDeviceStateChanged,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        map[string]string{"old": old.String(), "new": new.String()},
				})
			})
			d.SetPaymentCompleteCallback(func(ev device.PaymentCompleteEvent) {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtPaymentComplete,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        paymentCompleteToMap(ev),
				})
			})
			d.SetPaymentFailedCallback(func(code device.ErrorKind, message string) {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtPaymentFailed,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        map[string]string{"errorCode": string(code), "errorMessage": message},
				})
			})
			d.SetPaymentCancelledCallback(func() {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtPaymentCancelled,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        map[string]string{},
				})
			})
			if cash, ok := d.(*lv77.Adapter); ok {
				cash.SetBillStackedCallback(func(amount int64) {
					server.EmitEvent(ipc.Event{
						EventType:   ipc.EvtCashBillStacked,
						TimestampMs: time.Now().UnixMilli(),
						DeviceType:  deviceID,
						Data:        map[string]string{"amountMinorUnits": fmt.Sprintf("%d", amount)},
					})
				})
				cash.SetTargetReachedCallback(func(total int64) {
					server.EmitEvent(ipc.Event{
						EventType:   ipc.EvtCashPaymentTargetReached,
						TimestampMs: time.Now().UnixMilli(),
						DeviceType:  deviceID,
						Data:        map[string]string{"totalMinorUnits": fmt.Sprintf("%d", total)},
					})
				})
			}
		case device.Camera:
			d.SetCaptureCompleteCallback(func(captureID, filePath string) {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtCameraCaptureComplete,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        map[string]string{"captureId": captureID, "filePath": filePath},
				})
			})
			d.SetStateChangedCallback(func(old, new device.State) {
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtCameraStateChanged,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        map[string]string{"old": old.String(), "new": new.String()},
				})
			})
		case device.Printer:
			d.SetJobCompleteCallback(func(jobID string, err error) {
				data := map[string]string{"jobId": jobID}
				if err != nil {
					data["error"] = err.Error()
				}
				server.EmitEvent(ipc.Event{
					EventType:   ipc.EvtPrinterJobComplete,
					TimestampMs: time.Now().UnixMilli(),
					DeviceType:  deviceID,
					Data:        data,
				})
			})
		}
	}
}

func paymentCompleteToMap(ev device.PaymentCompleteEvent) map[string]string {
	return map[string]string{
		"transactionId":    ev.TransactionID,
		"amountMinorUnits": fmt.Sprintf("%d", ev.AmountMinorUnits),
		"maskedCardNumber": ev.MaskedCardNumber,
		"approvalNumber":   ev.ApprovalNumber,
		"salesDate":        ev.SalesDate,
		"salesTime":        ev.SalesTime,
		"transactionMedium": string(ev.Medium),
		"deviceState":      ev.DeviceState.String(),
	}
}

func waitForShutdown(log *gologging.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infof("received signal %v, shutting down", sig)
}
