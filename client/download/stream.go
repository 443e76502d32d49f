package download

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Stream copies src to dst one chunk at a time, in order, calling progress
// after each chunk and once more with (0, total) when src is exhausted.
// src is always closed, and so is dst when it is an io.Closer, whether the
// copy succeeds or not. ctx is checked before every read.
//
// Of the options only [WithChunkSize] applies here.
func Stream(ctx context.Context, dst io.Writer, src io.ReadCloser, total int64, progress ProgressFunc, optFns ...Option) (written int64, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing source: %w", cerr)
		}
		if c, ok := dst.(io.Closer); ok {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing destination: %w", cerr)
			}
		}
	}()

	opts, err := applyOptions(optFns)
	if err != nil {
		return 0, err
	}
	if progress == nil {
		progress = func(int64, int64) {}
	}

	buf := make([]byte, opts.chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				return written, fmt.Errorf("writing chunk: %w", werr)
			}
			if w != n {
				return written, fmt.Errorf("writing chunk: %w", io.ErrShortWrite)
			}
			progress(int64(n), total)
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			if err := ctx.Err(); err != nil {
				return written, fmt.Errorf("%w: %w", ErrDownloadCancelled, err)
			}
			if errors.Is(rerr, context.Canceled) {
				return written, fmt.Errorf("%w: %w", ErrDownloadCancelled, rerr)
			}
			return written, fmt.Errorf("reading chunk: %w", rerr)
		}
	}

	progress(0, total)

	return written, nil
}
