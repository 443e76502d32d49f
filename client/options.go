package client

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/wumo-util/http-stack/client/call"
	"github.com/wumo-util/http-stack/client/cookie"
	"github.com/wumo-util/http-stack/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         *string
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	cookies           *cookie.Store
	proxy             *url.URL
	tracer            trace.Tracer
	propagator        propagation.TextMapPropagator
	registerer        prometheus.Registerer
	stackRecorder     *bool
	engine            call.Engine
}

// WithClient replaces the [http.Client] used by the [Client].
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent replaces [DefaultUserAgent]. An empty value sends no
// User-Agent override at all.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = &header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		cfg := throttle.Config{RPS: rps, Burst: burst}
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.throttle = &cfg
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithCookieStore installs store as the client's cookie jar. Cookies
// set by responses land in the store; persisting it is up to the caller.
func WithCookieStore(store *cookie.Store) Option {
	return func(c *options) error {
		if store == nil {
			return errors.New("cookie store must not be nil")
		}
		c.cookies = store
		return nil
	}
}

// WithProxy routes all requests through proxy. The base transport
// must be an [*http.Transport].
func WithProxy(proxy *url.URL) Option {
	return func(c *options) error {
		if proxy == nil {
			return errors.New("proxy must not be nil")
		}
		c.proxy = proxy
		return nil
	}
}

// WithTracer starts a client span for every call.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *options) error {
		if tracer == nil {
			return errors.New("tracer must not be nil")
		}
		c.tracer = tracer
		return nil
	}
}

// WithPropagator injects trace context into outgoing headers.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *options) error {
		if p == nil {
			return errors.New("propagator must not be nil")
		}
		c.propagator = p
		return nil
	}
}

// WithMetrics registers call metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *options) error {
		if reg == nil {
			return errors.New("registerer must not be nil")
		}
		c.registerer = reg
		return nil
	}
}

// WithStackRecorder overrides the HTTPSTACK_STACK_RECORDER switch for this client.
func WithStackRecorder(on bool) Option {
	return func(c *options) error {
		c.stackRecorder = &on
		return nil
	}
}

// WithEngine replaces the engine calls are submitted to.
func WithEngine(engine call.Engine) Option {
	return func(c *options) error {
		if engine == nil {
			return errors.New("engine must not be nil")
		}
		c.engine = engine
		return nil
	}
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// DoOption is a functional option for [Client.Do].
type DoOption func(options *doOpts) error

type doOpts struct {
	responseBody any
	useJSONNum   bool
}

// WithDestination decodes the HTTP response body into bodyTemplate.
// bodyTemplate must be a pointer.
func WithDestination[T any](bodyTemplate *T) DoOption {
	return func(opts *doOpts) error {
		opts.responseBody = bodyTemplate

		return nil
	}
}

// WithJSONNumb tells the JSON decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumb() DoOption {
	return func(opts *doOpts) error {
		opts.useJSONNum = true

		return nil
	}
}

// RequestOption is a functional option for [Request].
type RequestOption func(options *requestOpts) error

type requestOpts struct {
	body        any
	contentType *string
	cookies     []*http.Cookie
	headers     http.Header
}

// WithPayload sets the JSON-encoded request body.
func WithPayload(body any) RequestOption {
	return func(opts *requestOpts) error {
		opts.body = body

		return nil
	}
}

// WithContentType overrides the default "application/json" Content-Type header.
func WithContentType(contentType string) RequestOption {
	return func(opts *requestOpts) error {
		if contentType == "" {
			return errors.New("cannot use empty content type")
		}

		opts.contentType = &contentType

		return nil
	}
}

// WithHeaders adds custom headers to the outgoing request.
func WithHeaders(headers http.Header) RequestOption {
	return func(opts *requestOpts) error {
		opts.headers = headers

		return nil
	}
}

// WithCookies attaches the given cookies to the outgoing request.
func WithCookies(cookies ...*http.Cookie) RequestOption {
	return func(opts *requestOpts) error {
		opts.cookies = cookies

		return nil
	}
}

// URLOption is a functional option for [URL].
type URLOption func(options *urlOpts)

type urlOpts struct {
	queryStrings map[string]string
	queryPairs   []string
	port         *int
}

// WithQueryStrings appends query parameters to the URL.
func WithQueryStrings(queryKV map[string]string) URLOption {
	return func(opts *urlOpts) {
		opts.queryStrings = queryKV
	}
}

// WithQueryPairs appends alternating key/value query parameters. Values
// for a repeated key keep their order.
func WithQueryPairs(kv ...string) URLOption {
	return func(opts *urlOpts) {
		opts.queryPairs = append(opts.queryPairs, kv...)
	}
}

// WithPort sets the port number on the URL's host.
func WithPort(port int) URLOption {
	return func(opts *urlOpts) {
		opts.port = &port
	}
}
