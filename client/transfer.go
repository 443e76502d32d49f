package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wumo-util/http-stack/client/contentrange"
	"github.com/wumo-util/http-stack/client/download"
)

// Download issues a GET and streams the body into dst in fixed-size
// chunks, reporting each to progress. dst is closed when it is an
// io.Closer, on success and failure alike.
func (c *Client) Download(ctx context.Context, dst io.Writer, rawURL string, header http.Header, progress download.ProgressFunc, opts ...DownloadOption) (int64, error) {
	resp, err := c.GetResponse(ctx, rawURL, header)
	if err != nil {
		closeWriter(dst)
		return 0, err
	}

	n, err := download.Stream(ctx, dst, resp.Body, resp.ContentLength, progress, opts...)
	if err != nil {
		return n, fmt.Errorf("download: %w", err)
	}

	return n, nil
}

// DownloadFrom resumes a download at offset. The server must answer
// 206 Partial Content with a Content-Range starting at offset.
func (c *Client) DownloadFrom(ctx context.Context, dst io.Writer, rawURL string, header http.Header, offset int64, progress download.ProgressFunc, opts ...DownloadOption) (int64, error) {
	if offset < 0 {
		closeWriter(dst)
		return 0, fmt.Errorf("offset must not be negative, got %d", offset)
	}

	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Range", contentrange.RangeHeader(offset, -1))

	req, err := newRequest(ctx, http.MethodGet, rawURL, h, nil, 0, "")
	if err != nil {
		closeWriter(dst)
		return 0, err
	}

	resp, err := c.checked(req, http.StatusPartialContent)
	if err != nil {
		closeWriter(dst)
		return 0, err
	}

	cr, ok, err := contentrange.FromHeader(resp.Header)
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %w", ErrRangeMismatch, err)
	case !ok:
		err = fmt.Errorf("%w: missing Content-Range header", ErrRangeMismatch)
	case cr.Start != offset:
		err = fmt.Errorf("%w: requested offset %d, got %s", ErrRangeMismatch, offset, cr)
	}
	if err != nil {
		c.closeBody(resp)
		closeWriter(dst)
		return 0, err
	}

	n, err := download.Stream(ctx, dst, resp.Body, resp.ContentLength, progress, opts...)
	if err != nil {
		return n, fmt.Errorf("download: %w", err)
	}

	return n, nil
}

// DownloadFile executes a request that's intended to stream the response body to destPath.
// Data streams to a temp file in the same directory, then the temp file is renamed to
// destPath on success or cleared on failure.
func (c *Client) DownloadFile(ctx context.Context, rawURL string, header http.Header, destPath string, opts ...DownloadOption) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	resp, err := c.GetResponse(ctx, rawURL, header)
	if err != nil {
		return err
	}

	if err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, c.logger, opts...); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	return nil
}

// DownloadAsync starts DownloadFile on a queue and returns immediately.
// Without [WithQueue] a fresh unlimited queue is used; more files can
// join it through [download.Result.Add].
func (c *Client) DownloadAsync(ctx context.Context, rawURL string, header http.Header, destPath string, opts ...DownloadOption) (*DownloadResult, error) {
	if destPath == "" {
		return nil, errors.New("destPath must not be empty")
	}

	q, err := download.QueueFrom(opts...)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = download.NewQueue(0)
	}

	work := func(ctx context.Context) error {
		return c.DownloadFile(ctx, rawURL, header, destPath, opts...)
	}

	return q.Start(ctx, work, c.DownloadAsync), nil
}

func closeWriter(w io.Writer) {
	if c, ok := w.(io.Closer); ok {
		c.Close()
	}
}
