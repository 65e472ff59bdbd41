package smartro

import (
	"bytes"
	"sync"
	"time"
)

// fakePort is an in-memory stand-in for serialport.Port used by the
// campaign tests: every write is inspected for its job code and a scripted
// response is queued for the next reads, mimicking a terminal that always
// ACKs and always answers immediately.
type fakePort struct {
	mu       sync.Mutex
	outbound bytes.Buffer
	respond  func(job JobCode, data []byte) (JobCode, []byte)
	closed   bool
}

func newFakePort(respond func(job JobCode, data []byte) (JobCode, []byte)) *fakePort {
	return &fakePort{respond: respond}
}

func (p *fakePort) Write(data []byte) (int, error) {
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
	p.outbound.WriteByte(ack)
	p.outbound.Write(respFrame)
	return len(data), nil
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outbound.Len() == 0 {
		return 0, nil
	}
	return p.outbound.Read(buf)
}

func (p *fakePort) SetReadTimeout(time.Duration) {}
func (p *fakePort) Flush() error                 { return nil }
func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
func (p *fakePort) Name() string { return "fake" }
