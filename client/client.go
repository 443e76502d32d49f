package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/wumo-util/http-stack/client/call"
	"github.com/wumo-util/http-stack/client/cookie"
	"github.com/wumo-util/http-stack/client/throttle"
)

// Client executes requests through a [call.Bridge], so every call can be
// abandoned by cancelling its context. It is safe for concurrent use.
type Client struct {
	hc      *http.Client
	bridge  *call.Bridge
	cookies *cookie.Store
	logger  *slog.Logger
}

// Build creates a Client. It fails with [call.ErrConfiguration] when the
// HTTPSTACK_STACK_RECORDER switch holds an unrecognized value.
func Build(optFns ...Option) (*Client, error) {
	settings, err := call.ProcessSettings()
	if err != nil {
		return nil, err
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	client := &Client{
		hc:      &http.Client{},
		logger:  slog.Default(),
		cookies: opts.cookies,
	}

	if opts.client != nil {
		client.hc = opts.client
	}

	if opts.logger != nil {
		client.logger = opts.logger
	}

	if opts.timeout != nil {
		client.hc.Timeout = *opts.timeout
	}

	if opts.noFollowRedirects {
		client.hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if opts.cookies != nil {
		client.hc.Jar = opts.cookies.Jar()
	}

	var transport http.RoundTripper
	switch {
	case opts.rt != nil:
		transport = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		transport = opts.client.Transport
	default:
		transport = http.DefaultTransport
	}
	if opts.proxy != nil {
		base, ok := transport.(*http.Transport)
		if !ok {
			return nil, fmt.Errorf("configuring proxy: transport %T is not *http.Transport", transport)
		}
		base = base.Clone()
		base.Proxy = http.ProxyURL(opts.proxy)
		transport = base
	}

	ua := DefaultUserAgent
	if opts.userAgent != nil {
		ua = *opts.userAgent
	}
	if ua != "" {
		transport = userAgent{value: ua, base: transport}
	}
	if opts.throttle != nil {
		rt, err := throttle.NewRoundTripper(*opts.throttle, func() *slog.Logger { return client.logger }, transport)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
		transport = rt
	}
	client.hc.Transport = transport

	engine := opts.engine
	if engine == nil {
		engineOpts := []call.EngineOption{call.WithEngineLogger(client.logger)}
		if opts.tracer != nil {
			engineOpts = append(engineOpts, call.WithEngineTracer(opts.tracer))
		}
		if opts.propagator != nil {
			engineOpts = append(engineOpts, call.WithPropagator(opts.propagator))
		}
		engine = call.NewEngine(client.hc, engineOpts...)
	}

	recordStack := bool(settings.StackRecorder)
	if opts.stackRecorder != nil {
		recordStack = *opts.stackRecorder
	}
	bridgeOpts := []call.Option{
		call.WithLogger(client.logger),
		call.WithStackRecorder(recordStack),
	}
	if opts.registerer != nil {
		metrics, err := call.NewMetrics(opts.registerer)
		if err != nil {
			return nil, err
		}
		bridgeOpts = append(bridgeOpts, call.WithMetrics(metrics))
	}
	client.bridge = call.NewBridge(engine, bridgeOpts...)

	return client, nil
}

// Cookies returns the store installed with [WithCookieStore], or nil.
func (c *Client) Cookies() *cookie.Store {
	return c.cookies
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	c.hc.CloseIdleConnections()
}

// Do will fire the request, and write response to the given dest object if any.
func (c *Client) Do(req *http.Request, expCode int, opts ...DoOption) error {
	var settings doOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return err
		}
	}

	doFunc := func(resp *http.Response) error {
		if settings.responseBody != nil {
			d := json.NewDecoder(resp.Body)

			if settings.useJSONNum {
				d.UseNumber()
			}

			if err := d.Decode(settings.responseBody); err != nil {
				return fmt.Errorf("decoding body: %w", err)
			}
		}

		return nil
	}

	return c.exec(req, expCode, doFunc)
}

// Request instantiates an *http.Request with the provided information.
// It's just a convenience method that wraps the public Request func.
func (c *Client) Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	return Request(ctx, reqURL, method, opts...)
}

// URL creates a url.URL for use in Request.
// It's just a convenience method that wraps the public URL func.
func (c *Client) URL(scheme, host, path string, opts ...URLOption) *url.URL {
	return URL(scheme, host, path, opts...)
}

// send awaits req through the bridge.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	return c.bridge.Await(req.Context(), req)
}

// checked sends req and returns the open response if its status is
// accepted. expCode 0 accepts any 2xx. On rejection the body is read up
// to maxErrBodySize and closed before the error is returned.
func (c *Client) checked(req *http.Request, expCode int) (*http.Response, error) {
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}

	if accepted(resp.StatusCode, expCode) {
		return resp, nil
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
	if err != nil {
		b = []byte("unable to read body")
	}
	c.closeBody(resp)

	return nil, &UnexpectedStatusError{
		StatusCode: resp.StatusCode,
		Body:       string(b),
	}
}

// exec runs the request and injected function on success after validating the status code.
func (c *Client) exec(req *http.Request, expCode int, fn execFn) error {
	resp, err := c.checked(req, expCode)
	if err != nil {
		return err
	}

	discardBody := true
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, resp.Body); err != nil {
				c.logger.Error("failed to discard unused body", "error", err)
			}
		}
		c.closeBody(resp)
	}()

	if err := fn(resp); err != nil {
		discardBody = false
		return fmt.Errorf("exec fn: %w", err)
	}

	return nil
}

func (c *Client) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("failed to close response body", "error", err)
	}
}

func accepted(code, expCode int) bool {
	if expCode == 0 {
		return isSuccess(code)
	}
	return code == expCode
}

// Request instantiates an *http.Request with the provided information.
// Content-Type defaults to `application/json` if unspecified via WithContentType.
func Request(ctx context.Context, reqURL *url.URL, method string, opts ...RequestOption) (*http.Request, error) {
	var settings requestOpts
	for _, opt := range opts {
		err := opt(&settings)
		if err != nil {
			return nil, err
		}
	}

	var payload bytes.Buffer
	if settings.body != nil {
		if err := json.NewEncoder(&payload).Encode(settings.body); err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), &payload)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for _, cookie := range settings.cookies {
		req.AddCookie(cookie)
	}

	var contentType string
	if settings.contentType == nil {
		contentType = "application/json"
	} else {
		contentType = *settings.contentType
	}

	req.Header.Set("Content-Type", contentType)
	for k, v := range settings.headers {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	return req, nil
}

// URL creates a url.URL for use in Request.
func URL(scheme, host, path string, opts ...URLOption) *url.URL {
	var settings urlOpts
	for _, opt := range opts {
		opt(&settings)
	}

	if settings.port != nil {
		host = fmt.Sprintf("%s:%d", host, *settings.port)
	}

	endpoint := url.URL{
		Scheme: scheme,
		Host:   host,
		Path:   path,
	}

	if settings.queryStrings != nil || settings.queryPairs != nil {
		queryParams := url.Values{}
		for k, v := range settings.queryStrings {
			queryParams.Add(k, v)
		}
		for i := 0; i+1 < len(settings.queryPairs); i += 2 {
			queryParams.Add(settings.queryPairs[i], settings.queryPairs[i+1])
		}

		endpoint.RawQuery = queryParams.Encode()
	}

	return &endpoint
}
