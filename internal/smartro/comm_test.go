package smartro

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"
)

// skipACKPort answers every request with the STX response frame directly,
// with no leading ACK byte, the way a terminal exercising spec.md §4.2.2's
// "STX is treated as an inline response start" shortcut would.
type skipACKPort struct {
	mu       sync.Mutex
	outbound bytes.Buffer
	respond  func(job JobCode, data []byte) (JobCode, []byte)
}

func newSkipACKPort(respond func(job JobCode, data []byte) (JobCode, []byte)) *skipACKPort {
	return &skipACKPort{respond: respond}
}

func (p *skipACKPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	jobOffset := 1 + terminalIDLen + datetimeLen
	job := JobCode(data[jobOffset])
	reqData := data[headerLen : len(data)-2]

	respJob, respData := p.respond(job, reqData)
	respFrame, err := BuildResponse("TERM0000000001", time.Now().Format("20060102150405"), respJob, 0, respData)
	if err != nil {
		return 0, err
	}
	p.outbound.Write(respFrame)
	return len(data), nil
}

func (p *skipACKPort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outbound.Len() == 0 {
		return 0, nil
	}
	return p.outbound.Read(buf)
}

func (p *skipACKPort) SetReadTimeout(time.Duration) {}
func (p *skipACKPort) Flush() error                 { return nil }
func (p *skipACKPort) Close() error                 { return nil }
func (p *skipACKPort) Name() string                 { return "fake" }

func TestExchangeAcceptsResponseThatSkipsTheACKByte(t *testing.T) {
	port := newSkipACKPort(func(job JobCode, _ []byte) (JobCode, []byte) {
		return job.responseCode(), []byte{'N', 'O', 'X', 'F'}
	})
	comm := NewComm(port, defaultTerminalID)
	comm.Start()
	defer comm.Stop()

	frame, err := comm.Exchange(context.Background(), JobDeviceCheck, nil)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	result, err := ParseDeviceCheckResult(frame.Data)
	if err != nil {
		t.Fatalf("ParseDeviceCheckResult: %v", err)
	}
	if result.CardModule != ModuleNormal {
		t.Fatalf("CardModule = %v, want ModuleNormal", result.CardModule)
	}
}

func TestExchangeSkipACKResponseDoesNotLeakIntoNextExchange(t *testing.T) {
	port := newSkipACKPort(func(job JobCode, _ []byte) (JobCode, []byte) {
		return job.responseCode(), []byte{'N', 'O', 'X', 'F'}
	})
	comm := NewComm(port, defaultTerminalID)
	comm.Start()
	defer comm.Stop()

	first, err := comm.Exchange(context.Background(), JobDeviceCheck, nil)
	if err != nil {
		t.Fatalf("first Exchange: %v", err)
	}
	second, err := comm.Exchange(context.Background(), JobDeviceCheck, nil)
	if err != nil {
		t.Fatalf("second Exchange: %v", err)
	}
	if first == second {
		t.Fatal("the second Exchange should get its own response frame, not the first's")
	}
}
