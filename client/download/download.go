package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Handle streams body to a temp file in the same directory as destPath,
// which is renamed to destPath on success. On any error the temp file
// is removed. body is always closed.
func Handle(ctx context.Context, body io.ReadCloser, contentLength int64, destPath string, logger *slog.Logger, optFns ...Option) error {
	opts, err := applyOptions(optFns)
	if err != nil {
		body.Close()
		return err
	}

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			logger.Info("skipping existing file", "path", destPath)
			body.Close()
			return nil
		}
	}

	file, err := os.CreateTemp(filepath.Dir(destPath), ".httpstack-dl-*")
	if err != nil {
		body.Close()
		return fmt.Errorf("creating temp file: %w", err)
	}

	var successful bool
	defer func() {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			logger.Error("defer closing temp file", "error", err)
		}
		if !successful {
			if err := os.Remove(file.Name()); err != nil {
				logger.Error("failed to remove temp file", "error", err)
			}
		}
	}()

	sink := &fileSink{file: file, w: file}
	opts.checksum.reset()
	if opts.checksum != nil {
		sink.w = io.MultiWriter(file, opts.checksum)
	}

	n, err := Stream(ctx, sink, body, contentLength, opts.progress, WithChunkSize(opts.chunkSize))
	if err != nil {
		return err
	}

	if contentLength >= 0 && n != contentLength {
		return &Error{
			Err:    ErrContentLengthMismatch,
			Detail: fmt.Sprintf("expected %d bytes, got %d", contentLength, n),
		}
	}

	if err := opts.checksum.verify(); err != nil {
		return err
	}

	if err := os.Rename(file.Name(), destPath); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	successful = true

	return nil
}

// fileSink syncs the temp file before Stream closes it.
type fileSink struct {
	file *os.File
	w    io.Writer
}

func (s *fileSink) Write(p []byte) (int, error) {
	return s.w.Write(p)
}

func (s *fileSink) Close() error {
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return nil
}
