package ipc

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"

	"github.com/kiosko/devicectld/internal/device"
)

var log = logging.MustGetLogger("ipc")

// Handler produces a Response for a Command. Inline and fire-and-forget
// handlers run on the client's own goroutine and must return within the
// router's budget; a fire-and-forget handler only starts the device
// operation, whose outcome arrives later as an Event. Worker-queued
// handlers run on the worker goroutine, and Dispatch waits for the
// Response they return (spec.md §4.5.3).
type Handler func(ctx context.Context, cmd Command) Response

// dispatch is how a registered handler should run.
type dispatch int

const (
	dispatchInline dispatch = iota
	dispatchLaunch
	dispatchWorker
)

type entry struct {
	handler Handler
	mode    dispatch
}

// idempotencyCacheSize bounds the per-connection command-id->Response
// cache (spec.md §3: "entries live for the lifetime of the connection").
const idempotencyCacheSize = 256

// Router owns the command-type -> handler table and the worker queue that
// backs dispatchWorker entries (spec.md §4.5.3, §4.5.6).
type Router struct {
	handlers map[string]entry
	worker   *workerQueue
	manager  *device.Manager
}

func NewRouter(manager *device.Manager) *Router {
	r := &Router{
		handlers: make(map[string]entry),
		worker:   newWorkerQueue(),
		manager:  manager,
	}
	r.worker.start()
	return r
}

func (r *Router) Register(cmdType string, mode dispatch, h Handler) {
	r.handlers[cmdType] = entry{handler: h, mode: mode}
}

func (r *Router) RegisterInline(cmdType string, h Handler) { r.Register(cmdType, dispatchInline, h) }
func (r *Router) RegisterLaunch(cmdType string, h Handler) { r.Register(cmdType, dispatchLaunch, h) }
func (r *Router) RegisterWorker(cmdType string, h Handler) { r.Register(cmdType, dispatchWorker, h) }

// Dispatch resolves and runs the handler for cmd, respecting per-connection
// idempotency caching when cache is non-nil.
func (r *Router) Dispatch(ctx context.Context, cmd Command, cache *idempotencyCache) Response {
	if cache != nil {
		if resp, ok := cache.get(cmd.CommandID); ok {
			return resp
		}
	}

	e, ok := r.handlers[cmd.Type]
	if !ok {
		resp := rejected(cmd, device.ErrUnknownCommand, "unknown command type: "+cmd.Type)
		if cache != nil {
			cache.put(cmd.CommandID, resp)
		}
		return resp
	}

	var resp Response
	switch e.mode {
	case dispatchWorker:
		resp = r.worker.submit(ctx, cmd, e.handler)
	default:
		// dispatchInline and dispatchLaunch both run synchronously on the
		// client goroutine: inline handlers because their whole job is
		// synchronous, launch handlers because their job is merely to
		// kick off a goroutine and return, which is itself fast.
		resp = e.handler(ctx, cmd)
	}

	if cache != nil {
		cache.put(cmd.CommandID, resp)
	}
	return resp
}

func rejected(cmd Command, kind device.ErrorKind, msg string) Response {
	return Response{
		ProtocolVersion: ProtocolVersion,
		Kind:            "response",
		CommandID:       cmd.CommandID,
		Status:          StatusRejected,
		TimestampMs:     time.Now().UnixMilli(),
		ErrorCode:       string(kind),
		ErrorMessage:    msg,
	}
}

func failed(cmd Command, kind device.ErrorKind, msg string) Response {
	return Response{
		ProtocolVersion: ProtocolVersion,
		Kind:            "response",
		CommandID:       cmd.CommandID,
		Status:          StatusFailed,
		TimestampMs:     time.Now().UnixMilli(),
		ErrorCode:       string(kind),
		ErrorMessage:    msg,
	}
}

func ok(cmd Command, result map[string]string) Response {
	return Response{
		ProtocolVersion: ProtocolVersion,
		Kind:            "response",
		CommandID:       cmd.CommandID,
		Status:          StatusOK,
		TimestampMs:     time.Now().UnixMilli(),
		Result:          result,
	}
}

// FromError maps a device.Error to the appropriate rejected/failed
// Response, falling back to HANDLER_ERROR for an unrecognized error type.
func FromError(cmd Command, err error) Response {
	if de, ok := device.AsError(err); ok {
		if de.Kind.Rejected() {
			return rejected(cmd, de.Kind, de.Message)
		}
		return failed(cmd, de.Kind, de.Message)
	}
	return failed(cmd, device.ErrHandlerError, err.Error())
}

// idempotencyCache wraps an LRU of command id -> Response, scoped to one
// client connection (spec.md §3).
type idempotencyCache struct {
	c *lru.Cache
}

func newIdempotencyCache() *idempotencyCache {
	c, err := lru.New(idempotencyCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size, which is a
		// constant here.
		panic(err)
	}
	return &idempotencyCache{c: c}
}

func (ic *idempotencyCache) get(commandID string) (Response, bool) {
	v, ok := ic.c.Get(commandID)
	if !ok {
		return Response{}, false
	}
	return v.(Response), true
}

func (ic *idempotencyCache) put(commandID string, resp Response) {
	ic.c.Add(commandID, resp)
}

// workerQueue is the single background worker draining dispatchWorker
// commands (spec.md §4.5.6): payment_reset and payment_device_check, both
// of which involve serial round-trips that would otherwise block the
// client's dispatch goroutine for more than a second.
type workerQueue struct {
	tasks chan workerTask
	stop  chan struct{}
	done  chan struct{}
}

type workerTask struct {
	ctx     context.Context
	cmd     Command
	handler Handler
	result  chan Response
}

func newWorkerQueue() *workerQueue {
	return &workerQueue{
		tasks: make(chan workerTask, 32),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (q *workerQueue) start() {
	go q.run()
}

func (q *workerQueue) run() {
	defer close(q.done)
	for {
		select {
		case t := <-q.tasks:
			t.result <- t.handler(t.ctx, t.cmd)
		case <-q.stop:
			// Drain to completion rather than abandonment (spec.md
			// §4.5.6) before exiting.
			for {
				select {
				case t := <-q.tasks:
					t.result <- t.handler(t.ctx, t.cmd)
				default:
					return
				}
			}
		}
	}
}

func (q *workerQueue) submit(ctx context.Context, cmd Command, h Handler) Response {
	t := workerTask{ctx: ctx, cmd: cmd, handler: h, result: make(chan Response, 1)}
	select {
	case q.tasks <- t:
	default:
		return failed(cmd, device.ErrHandlerError, "worker queue full")
	}
	select {
	case r := <-t.result:
		return r
	case <-ctx.Done():
		return failed(cmd, device.ErrHandlerError, "worker task cancelled")
	}
}

// Stop signals the worker to drain remaining tasks and exit, blocking
// until it has.
func (q *workerQueue) Stop() {
	close(q.stop)
	<-q.done
}

func (r *Router) Stop() {
	r.worker.Stop()
}
