package ipc

import (
	"context"
	"strconv"

	"github.com/kiosko/devicectld/internal/config"
	"github.com/kiosko/devicectld/internal/device"
	"github.com/kiosko/devicectld/internal/serialport"
)

// Deps is the set of daemon-wide objects command handlers close over.
// Built once in cmd/devicectld/main.go and threaded into RegisterAll.
type Deps struct {
	Manager *device.Manager
	Config  *config.Config
	Factory *device.Factory
}

// RegisterAll wires every command type §6 names to its handler and
// dispatch flavor (§4.5.3).
func RegisterAll(r *Router, d *Deps) {
	r.RegisterInline(CmdGetDeviceList, d.handleGetDeviceList)
	r.RegisterInline(CmdGetStateSnapshot, d.handleGetDeviceList)
	r.RegisterInline(CmdGetConfig, d.handleGetConfig)
	r.RegisterInline(CmdSetConfig, d.handleSetConfig)
	r.RegisterInline(CmdDetectHardware, d.handleDetectHardware)

	r.RegisterInline(CmdPaymentStatus, d.handlePaymentStatus(device.IDCardTerminal))
	r.RegisterWorker(CmdPaymentReset, d.handlePaymentReset(device.IDCardTerminal))
	r.RegisterWorker(CmdPaymentDeviceCheck, d.handlePaymentDeviceCheck(device.IDCardTerminal))
	r.RegisterLaunch(CmdPaymentStart, d.handlePaymentStart(device.IDCardTerminal))
	r.RegisterLaunch(CmdPaymentCancel, d.handlePaymentCancel(device.IDCardTerminal))
	r.RegisterInline(CmdPaymentTransactionCancel, d.handleTransactionCancel)
	r.RegisterInline(CmdPaymentCardUIDRead, d.handleCardUIDRead)
	r.RegisterInline(CmdPaymentLastApproval, d.handleLastApproval)
	r.RegisterInline(CmdPaymentICCardCheck, d.handleICCardCheck)
	r.RegisterInline(CmdPaymentScreenSound, d.handleScreenSound)

	r.RegisterLaunch(CmdCashTestStart, d.handleCashStart(0))
	r.RegisterLaunch(CmdCashPaymentStart, d.handleCashStart(-1))

	r.RegisterLaunch(CmdCameraCapture, d.handleCameraCapture)
	r.RegisterInline(CmdCameraStatus, d.handleCameraStatus)
	r.RegisterInline(CmdCameraStartPreview, d.handleCameraStartPreview)
	r.RegisterInline(CmdCameraStopPreview, d.handleCameraStopPreview)
	r.RegisterInline(CmdCameraSetSettings, d.handleCameraSetSettings)
	r.RegisterInline(CmdCameraSetSession, d.handleNoopOK)
	r.RegisterInline(CmdCameraReconnect, d.handleNoopOK)

	r.RegisterLaunch(CmdPrinterPrint, d.handlePrinterPrint)
	r.RegisterInline(CmdGetAvailablePrinters, d.handleGetAvailablePrinters)
}

func (d *Deps) handleNoopOK(ctx context.Context, cmd Command) Response {
	return ok(cmd, nil)
}

func (d *Deps) handleGetDeviceList(ctx context.Context, cmd Command) Response {
	result := map[string]string{}
	for _, info := range d.Manager.SnapshotAll() {
		result[info.ID+".kind"] = string(info.Kind)
		result[info.ID+".name"] = info.Name
		result[info.ID+".state"] = info.State.String()
		result[info.ID+".lastError"] = info.LastError
	}
	return ok(cmd, result)
}

func (d *Deps) handleGetConfig(ctx context.Context, cmd Command) Response {
	return ok(cmd, d.Config.AsMap())
}

func (d *Deps) handleSetConfig(ctx context.Context, cmd Command) Response {
	if err := d.Config.ApplyMap(cmd.Payload); err != nil {
		return failed(cmd, device.ErrHandlerError, err.Error())
	}
	return ok(cmd, d.Config.AsMap())
}

// handleDetectHardware re-probes every serial port for a card and a cash
// device and registers whatever it finds, honoring the factory's
// exclude-port rule so one port is never claimed twice (spec.md §4.4.2).
func (d *Deps) handleDetectHardware(ctx context.Context, cmd Command) Response {
	ports := serialport.Enumerate()
	result := map[string]string{}

	cashPort := ""
	if res, found := d.Factory.DetectOnPorts(ctx, device.IDCashValidator, ports, "", device.CategoryCash); found {
		d.Manager.Register(device.IDCashValidator, device.KindPayment, res.Adapter)
		cashPort = res.Port
		result["cash.vendor"] = res.VendorName
		result["cash.port"] = res.Port
	}
	if res, found := d.Factory.DetectOnPorts(ctx, device.IDCardTerminal, ports, cashPort, device.CategoryCard); found {
		d.Manager.Register(device.IDCardTerminal, device.KindPayment, res.Adapter)
		result["card.vendor"] = res.VendorName
		result["card.port"] = res.Port
	}
	return ok(cmd, result)
}

func lookupPaymentTerminal(d *Deps, deviceID string) (device.PaymentTerminal, *device.Error) {
	a, ok := d.Manager.Lookup(deviceID)
	if !ok {
		return nil, device.NewError(device.ErrDeviceNotFound, "no device registered: "+deviceID)
	}
	pt, ok := a.(device.PaymentTerminal)
	if !ok {
		return nil, device.NewError(device.ErrInvalidDeviceType, deviceID+" is not a payment terminal")
	}
	return pt, nil
}

func (d *Deps) handlePaymentStatus(deviceID string) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, deviceID)
		if derr != nil {
			return FromError(cmd, derr)
		}
		info := pt.GetDeviceInfo()
		return ok(cmd, map[string]string{
			"state":     info.State.String(),
			"lastError": info.LastError,
		})
	}
}

func (d *Deps) handlePaymentReset(deviceID string) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, deviceID)
		if derr != nil {
			return FromError(cmd, derr)
		}
		if err := pt.Reset(ctx); err != nil {
			return FromError(cmd, err)
		}
		return ok(cmd, nil)
	}
}

func (d *Deps) handlePaymentDeviceCheck(deviceID string) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, deviceID)
		if derr != nil {
			return FromError(cmd, derr)
		}
		if err := pt.CheckDevice(ctx); err != nil {
			return FromError(cmd, err)
		}
		return ok(cmd, map[string]string{"state": pt.GetState().String()})
	}
}

func (d *Deps) handlePaymentStart(deviceID string) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, deviceID)
		if derr != nil {
			return FromError(cmd, derr)
		}
		amount, perr := strconv.ParseInt(cmd.Payload["amountMinorUnits"], 10, 64)
		if perr != nil {
			return rejected(cmd, device.ErrInvalidPayload, "amountMinorUnits: "+perr.Error())
		}
		if err := pt.StartPayment(ctx, amount); err != nil {
			return FromError(cmd, err)
		}
		return ok(cmd, nil)
	}
}

func (d *Deps) handlePaymentCancel(deviceID string) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, deviceID)
		if derr != nil {
			return FromError(cmd, derr)
		}
		if err := pt.CancelPayment(); err != nil {
			return FromError(cmd, err)
		}
		return ok(cmd, nil)
	}
}

// handleCashStart builds a handler for cash_test_start (fixedTarget==0
// forces test mode regardless of payload) and cash_payment_start
// (fixedTarget==-1 means read amountMinorUnits from the payload).
func (d *Deps) handleCashStart(fixedTarget int64) Handler {
	return func(ctx context.Context, cmd Command) Response {
		pt, derr := lookupPaymentTerminal(d, device.IDCashValidator)
		if derr != nil {
			return FromError(cmd, derr)
		}
		target := fixedTarget
		if fixedTarget < 0 {
			amount, perr := strconv.ParseInt(cmd.Payload["amountMinorUnits"], 10, 64)
			if perr != nil {
				return rejected(cmd, device.ErrInvalidPayload, "amountMinorUnits: "+perr.Error())
			}
			target = amount
		}
		if err := pt.StartPayment(ctx, target); err != nil {
			return FromError(cmd, err)
		}
		return ok(cmd, nil)
	}
}

func extensionsFor(d *Deps, cmd Command) (device.Extensions, *device.Error) {
	deviceID := cmd.Payload["deviceId"]
	if deviceID == "" {
		deviceID = device.IDCardTerminal
	}
	pt, derr := lookupPaymentTerminal(d, deviceID)
	if derr != nil {
		return nil, derr
	}
	ext := pt.Extensions()
	if ext == nil {
		return nil, device.NewError(device.ErrInvalidDeviceType, deviceID+" supports no extended operations")
	}
	return ext, nil
}

func (d *Deps) handleTransactionCancel(ctx context.Context, cmd Command) Response {
	ext, derr := extensionsFor(d, cmd)
	if derr != nil {
		return FromError(cmd, derr)
	}
	detail, err := ext.CancelTransaction(ctx, cmd.Payload["transactionId"])
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, approvalDetailToMap(detail))
}

func (d *Deps) handleCardUIDRead(ctx context.Context, cmd Command) Response {
	ext, derr := extensionsFor(d, cmd)
	if derr != nil {
		return FromError(cmd, derr)
	}
	uid, err := ext.ReadCardUID(ctx)
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, map[string]string{"uid": uid})
}

func (d *Deps) handleLastApproval(ctx context.Context, cmd Command) Response {
	ext, derr := extensionsFor(d, cmd)
	if derr != nil {
		return FromError(cmd, derr)
	}
	detail, err := ext.GetLastApproval(ctx)
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, approvalDetailToMap(detail))
}

func (d *Deps) handleICCardCheck(ctx context.Context, cmd Command) Response {
	ext, derr := extensionsFor(d, cmd)
	if derr != nil {
		return FromError(cmd, derr)
	}
	inserted, err := ext.CheckICCard(ctx)
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, map[string]string{"inserted": boolString(inserted)})
}

func (d *Deps) handleScreenSound(ctx context.Context, cmd Command) Response {
	ext, derr := extensionsFor(d, cmd)
	if derr != nil {
		return FromError(cmd, derr)
	}
	brightness, e1 := strconv.Atoi(cmd.Payload["brightness"])
	volume, e2 := strconv.Atoi(cmd.Payload["volume"])
	touchVolume, e3 := strconv.Atoi(cmd.Payload["touchVolume"])
	if e1 != nil || e2 != nil || e3 != nil {
		return rejected(cmd, device.ErrInvalidPayload, "brightness/volume/touchVolume must be 0-9")
	}
	if err := ext.SetScreenSound(ctx, brightness, volume, touchVolume); err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, nil)
}

func approvalDetailToMap(a device.ApprovalDetail) map[string]string {
	return map[string]string{
		"status":         a.Status,
		"type":           a.Type,
		"amount":         a.AmountString,
		"tax":            a.Tax,
		"serviceCharge":  a.ServiceCharge,
		"installments":   a.Installments,
		"merchantNumber": a.MerchantNumber,
		"terminalNumber": a.TerminalNumber,
		"issuer":         a.Issuer,
		"acquirer":       a.Acquirer,
		"rejectionInfo":  a.RejectionInfo,
	}
}

func lookupCamera(d *Deps) (device.Camera, *device.Error) {
	a, found := d.Manager.Lookup(device.IDCamera)
	if !found {
		return nil, device.NewError(device.ErrDeviceNotFound, "no camera registered")
	}
	cam, ok := a.(device.Camera)
	if !ok {
		return nil, device.NewError(device.ErrInvalidDeviceType, "camera device has wrong type")
	}
	return cam, nil
}

func (d *Deps) handleCameraCapture(ctx context.Context, cmd Command) Response {
	cam, derr := lookupCamera(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	captureID := cmd.Payload["captureId"]
	if captureID == "" {
		return rejected(cmd, device.ErrInvalidPayload, "captureId required")
	}
	if err := cam.Capture(ctx, captureID); err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, nil)
}

func (d *Deps) handleCameraStatus(ctx context.Context, cmd Command) Response {
	cam, derr := lookupCamera(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	return ok(cmd, map[string]string{"state": cam.GetState().String()})
}

func (d *Deps) handleCameraStartPreview(ctx context.Context, cmd Command) Response {
	cam, derr := lookupCamera(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	url, err := cam.StartPreview(ctx)
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, map[string]string{"previewUrl": url})
}

func (d *Deps) handleCameraStopPreview(ctx context.Context, cmd Command) Response {
	cam, derr := lookupCamera(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	if err := cam.StopPreview(ctx); err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, nil)
}

func (d *Deps) handleCameraSetSettings(ctx context.Context, cmd Command) Response {
	cam, derr := lookupCamera(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	if err := cam.SetSettings(ctx, cmd.Payload); err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, nil)
}

func lookupPrinter(d *Deps) (device.Printer, *device.Error) {
	a, found := d.Manager.Lookup(device.IDPrinter)
	if !found {
		return nil, device.NewError(device.ErrDeviceNotFound, "no printer registered")
	}
	p, ok := a.(device.Printer)
	if !ok {
		return nil, device.NewError(device.ErrInvalidDeviceType, "printer device has wrong type")
	}
	return p, nil
}

func (d *Deps) handlePrinterPrint(ctx context.Context, cmd Command) Response {
	p, derr := lookupPrinter(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	jobID := cmd.Payload["jobId"]
	if jobID == "" {
		return rejected(cmd, device.ErrInvalidPayload, "jobId required")
	}
	var err error
	if path := cmd.Payload["filePath"]; path != "" {
		err = p.PrintFromFile(ctx, jobID, path, cmd.Payload["orientation"])
	} else {
		err = p.Print(ctx, jobID, []byte(cmd.Payload["data"]), cmd.Payload["printerName"])
	}
	if err != nil {
		return FromError(cmd, err)
	}
	return ok(cmd, nil)
}

func (d *Deps) handleGetAvailablePrinters(ctx context.Context, cmd Command) Response {
	p, derr := lookupPrinter(d)
	if derr != nil {
		return FromError(cmd, derr)
	}
	names, err := p.AvailablePrinters()
	if err != nil {
		return FromError(cmd, err)
	}
	result := map[string]string{}
	for i, n := range names {
		result["printer."+strconv.Itoa(i)] = n
	}
	return ok(cmd, result)
}
