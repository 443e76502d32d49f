package call

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Engine submits requests and reports each outcome through exactly one
// Callback method, possibly from another goroutine.
type Engine interface {
	Enqueue(req *http.Request, cb Callback) Call
}

// Call is a handle on one in-flight request.
type Call interface {
	ID() string
	Cancel() error
}

// Callback receives the outcome of a Call.
type Callback interface {
	OnResponse(resp *http.Response)
	OnFailure(err error)
}

// EngineOption configures the engine returned by NewEngine.
type EngineOption func(*engineOpts)

type engineOpts struct {
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// WithEngineLogger sets the logger used for per-call debug records.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOpts) {
		o.logger = logger
	}
}

// WithEngineTracer starts a client span for every call.
func WithEngineTracer(tracer trace.Tracer) EngineOption {
	return func(o *engineOpts) {
		o.tracer = tracer
	}
}

// WithPropagator overrides the global otel propagator used to inject
// trace context into outgoing headers.
func WithPropagator(p propagation.TextMapPropagator) EngineOption {
	return func(o *engineOpts) {
		o.propagator = p
	}
}

// httpEngine runs every call on its own goroutine through an *http.Client.
type httpEngine struct {
	hc         *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewEngine returns an Engine backed by hc.
func NewEngine(hc *http.Client, optFns ...EngineOption) Engine {
	var opts engineOpts
	for _, opt := range optFns {
		opt(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.tracer == nil {
		opts.tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.propagator == nil {
		opts.propagator = otel.GetTextMapPropagator()
	}

	return &httpEngine{
		hc:         hc,
		logger:     opts.logger,
		tracer:     opts.tracer,
		propagator: opts.propagator,
	}
}

func (e *httpEngine) Enqueue(req *http.Request, cb Callback) Call {
	ctx, cancel := context.WithCancel(req.Context())
	c := &httpCall{id: uuid.NewString(), cancel: cancel}

	ctx, span := e.tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("httpstack.call_id", c.id),
		),
	)

	out := req.WithContext(ctx)
	out.Header = req.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	e.propagator.Inject(ctx, propagation.HeaderCarrier(out.Header))

	e.logger.Debug("call enqueued", "call", c.id, "method", req.Method, "url", req.URL.String())

	go func() {
		defer span.End()

		resp, err := e.hc.Do(out)
		if err != nil {
			cancel()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.logger.Debug("call failed", "call", c.id, "error", err)
			cb.OnFailure(err)
			return
		}

		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
		if resp.StatusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, resp.Status)
		}
		e.logger.Debug("call completed", "call", c.id, "status", resp.StatusCode)

		// The call context has to outlive Do so the body can still be read.
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
		cb.OnResponse(resp)
	}()

	return c
}

type httpCall struct {
	id     string
	cancel context.CancelFunc
}

func (c *httpCall) ID() string { return c.id }

func (c *httpCall) Cancel() error {
	c.cancel()
	return nil
}

// cancelOnClose releases the call context once the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.cancel)
	return err
}
