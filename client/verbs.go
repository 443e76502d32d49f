package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const formMediaType = "application/x-www-form-urlencoded"

// newRequest builds a request carrying header. A nil body sends none;
// size is the declared length of body or -1 if unknown.
func newRequest(ctx context.Context, method, rawURL string, header http.Header, body io.Reader, size int64, mediaType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	for k, v := range header {
		for _, element := range v {
			req.Header.Add(k, element)
		}
	}

	if body != nil {
		switch {
		case size > 0:
			req.ContentLength = size
		case size == 0:
			req.ContentLength = 0
			req.Body = http.NoBody
			req.GetBody = nil
		}
	}

	if mediaType != "" {
		req.Header.Set("Content-Type", mediaType)
	}

	return req, nil
}

// code sends req and returns its status and full body text, whatever the status.
func (c *Client) code(req *http.Request) (int, string, error) {
	resp, err := c.send(req)
	if err != nil {
		return 0, "", err
	}
	defer c.closeBody(resp)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading body: %w", err)
	}

	return resp.StatusCode, string(b), nil
}

// body sends req and returns its full body once the status is 2xx.
func (c *Client) body(req *http.Request) ([]byte, error) {
	var b []byte
	err := c.exec(req, 0, func(resp *http.Response) error {
		var err error
		b, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		return nil
	})

	return b, err
}

// GetCode issues a GET and returns the status and body text, whatever the status.
func (c *Client) GetCode(ctx context.Context, rawURL string, header http.Header) (int, string, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, header, nil, 0, "")
	if err != nil {
		return 0, "", err
	}
	return c.code(req)
}

// PostFormCode issues a form-encoded POST and returns the status and body text.
func (c *Client) PostFormCode(ctx context.Context, rawURL string, header http.Header, form url.Values) (int, string, error) {
	encoded := form.Encode()
	req, err := newRequest(ctx, http.MethodPost, rawURL, header, strings.NewReader(encoded), int64(len(encoded)), formMediaType)
	if err != nil {
		return 0, "", err
	}
	return c.code(req)
}

// PostCode issues a POST with a raw body of the given media type, which
// may be empty, and returns the status and body text.
func (c *Client) PostCode(ctx context.Context, rawURL string, header http.Header, body, mediaType string) (int, string, error) {
	req, err := newRequest(ctx, http.MethodPost, rawURL, header, strings.NewReader(body), int64(len(body)), mediaType)
	if err != nil {
		return 0, "", err
	}
	return c.code(req)
}

// PostStreamCode issues a POST streaming body. size is its declared length,
// or -1 when unknown.
func (c *Client) PostStreamCode(ctx context.Context, rawURL string, header http.Header, body io.Reader, size int64, mediaType string) (int, string, error) {
	req, err := newRequest(ctx, http.MethodPost, rawURL, header, body, size, mediaType)
	if err != nil {
		return 0, "", err
	}
	return c.code(req)
}

// DeleteCode issues a DELETE and returns the status and body text.
func (c *Client) DeleteCode(ctx context.Context, rawURL string, header http.Header) (int, string, error) {
	req, err := newRequest(ctx, http.MethodDelete, rawURL, header, nil, 0, "")
	if err != nil {
		return 0, "", err
	}
	return c.code(req)
}

// Get issues a GET and returns the body text. A non-2xx status yields an
// [*UnexpectedStatusError].
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) (string, error) {
	b, err := c.GetBytes(ctx, rawURL, header)
	return string(b), err
}

// GetBytes is Get returning raw bytes.
func (c *Client) GetBytes(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, header, nil, 0, "")
	if err != nil {
		return nil, err
	}
	return c.body(req)
}

// Post issues a form-encoded POST and returns the body text.
// A non-2xx status yields an [*UnexpectedStatusError].
func (c *Client) Post(ctx context.Context, rawURL string, header http.Header, form url.Values) (string, error) {
	encoded := form.Encode()
	req, err := newRequest(ctx, http.MethodPost, rawURL, header, strings.NewReader(encoded), int64(len(encoded)), formMediaType)
	if err != nil {
		return "", err
	}
	b, err := c.body(req)
	return string(b), err
}

// PostRaw issues a POST with a raw body of the given media type and
// returns the body text. A non-2xx status yields an [*UnexpectedStatusError].
func (c *Client) PostRaw(ctx context.Context, rawURL string, header http.Header, body, mediaType string) (string, error) {
	req, err := newRequest(ctx, http.MethodPost, rawURL, header, strings.NewReader(body), int64(len(body)), mediaType)
	if err != nil {
		return "", err
	}
	b, err := c.body(req)
	return string(b), err
}

// Head issues a HEAD and returns the response headers.
// A non-2xx status yields an [*UnexpectedStatusError].
func (c *Client) Head(ctx context.Context, rawURL string, header http.Header) (http.Header, error) {
	req, err := newRequest(ctx, http.MethodHead, rawURL, header, nil, 0, "")
	if err != nil {
		return nil, err
	}

	var h http.Header
	err = c.exec(req, 0, func(resp *http.Response) error {
		h = resp.Header
		return nil
	})

	return h, err
}

// GetResponse issues a GET and returns the open response once its status
// is 2xx. The caller must close the body.
func (c *Client) GetResponse(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := newRequest(ctx, http.MethodGet, rawURL, header, nil, 0, "")
	if err != nil {
		return nil, err
	}
	return c.checked(req, 0)
}
