package call

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

const (
	statePending int32 = iota
	stateResolved
	stateCancelled
)

// future is the single-resolution completion record for one Call. The first
// of OnResponse, OnFailure or cancel to win the CAS on state decides the
// outcome; every later delivery is discarded.
type future struct {
	state  atomic.Int32
	done   chan struct{}
	resp   *http.Response
	err    error
	onLate func()
}

func newFuture(onLate func()) *future {
	return &future{done: make(chan struct{}), onLate: onLate}
}

func (f *future) OnResponse(resp *http.Response) {
	if !f.state.CompareAndSwap(statePending, stateResolved) {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		f.onLate()
		return
	}

	f.resp = resp
	close(f.done)
}

func (f *future) OnFailure(err error) {
	if !f.state.CompareAndSwap(statePending, stateResolved) {
		f.onLate()
		return
	}

	f.err = err
	close(f.done)
}

func (f *future) cancel() bool {
	return f.state.CompareAndSwap(statePending, stateCancelled)
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithStackRecorder enables or disables call-site capture for this bridge,
// overriding the process switch.
func WithStackRecorder(on bool) Option {
	return func(b *Bridge) {
		b.recordStack = on
	}
}

// WithLogger sets the bridge logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithMetrics records call outcomes into m.
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// Bridge waits on calls submitted to an Engine.
type Bridge struct {
	engine      Engine
	recordStack bool
	logger      *slog.Logger
	metrics     *Metrics
}

// NewBridge returns a Bridge over engine. Stack recording defaults to the
// process switch; an unreadable switch leaves it off, callers that must
// fail on it check ProcessSettings themselves.
func NewBridge(engine Engine, opts ...Option) *Bridge {
	b := &Bridge{
		engine: engine,
		logger: slog.Default(),
	}
	if s, err := ProcessSettings(); err == nil {
		b.recordStack = bool(s.StackRecorder)
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Await submits req and blocks until the engine reports back or ctx ends.
//
// On success the caller owns resp.Body. A transport failure is returned as
// a *TransportError, wrapped in a *StackError when stack recording is on.
// If ctx ends first the call is cancelled and the returned error wraps
// ErrCancelled and the context cause.
func (b *Bridge) Await(ctx context.Context, req *http.Request) (*http.Response, error) {
	var pcs []uintptr
	if b.recordStack {
		pcs = make([]uintptr, 32)
		pcs = pcs[:runtime.Callers(2, pcs)]
	}

	if err := ctx.Err(); err != nil {
		b.metrics.observe(req.Method, OutcomeCancelled, time.Now())
		return nil, cancelled(context.Cause(ctx))
	}

	start := time.Now()
	f := newFuture(b.metrics.late)
	c := b.engine.Enqueue(req.WithContext(ctx), f)

	select {
	case <-f.done:
	case <-ctx.Done():
		if f.cancel() {
			b.cancelCall(c)
			b.metrics.observe(req.Method, OutcomeCancelled, start)
			return nil, cancelled(context.Cause(ctx))
		}
		// The engine won the race; its outcome is already on its way.
		<-f.done
	}

	if f.err != nil {
		// A failure caused by our own context ending is a cancellation.
		if ctx.Err() != nil {
			b.metrics.observe(req.Method, OutcomeCancelled, start)
			return nil, cancelled(context.Cause(ctx))
		}

		b.metrics.observe(req.Method, OutcomeFailure, start)

		var err error = &TransportError{
			CallID: c.ID(),
			Method: req.Method,
			URL:    req.URL.String(),
			Err:    f.err,
		}
		if pcs != nil {
			err = newStackError(err, pcs)
		}

		return nil, err
	}

	b.metrics.observe(req.Method, OutcomeResponse, start)

	return f.resp, nil
}

// cancelCall is best effort: errors and panics from the engine are dropped.
func (b *Bridge) cancelCall(c Call) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Debug("cancel panicked", "call", c.ID(), "panic", r)
		}
	}()

	if err := c.Cancel(); err != nil {
		b.logger.Debug("cancel failed", "call", c.ID(), "error", err)
	}
}
