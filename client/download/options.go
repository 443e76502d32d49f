package download

import (
	"errors"
	"fmt"
	"hash"
)

// Option defines optional settings for streaming and downloading files.
//
// WithChecksum enables checksum validation of the downloaded file.
// h is a hash.Hash instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
//
// WithProgress reports every written chunk to fn; see [LogProgress]
// for a ready-made reporter.
//
// WithSkipExisting causes Handle to return nil immediately when
// the destination file already exists, avoiding a redundant download.
//
// WithQueue runs an async download on q instead of a fresh queue.
type Option func(*options) error

type options struct {
	checksum     *checksum
	progress     ProgressFunc
	skipExisting bool
	chunkSize    int
	queue        *Queue
}

func applyOptions(optFns []Option) (options, error) {
	opts := options{chunkSize: DefaultChunkSize}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return options{}, fmt.Errorf("applying option: %w", err)
		}
	}
	return opts, nil
}

func WithChecksum(h hash.Hash, expected string) Option {
	return func(opts *options) error {
		c, err := newChecksum(h, expected)
		if err != nil {
			return err
		}

		opts.checksum = c
		return nil
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(opts *options) error {
		if fn == nil {
			return errors.New("progress func must not be nil")
		}
		opts.progress = fn
		return nil
	}
}

func WithSkipExisting() Option {
	return func(opts *options) error {
		opts.skipExisting = true
		return nil
	}
}

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(opts *options) error {
		if n <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d", n)
		}
		opts.chunkSize = n
		return nil
	}
}

func WithQueue(q *Queue) Option {
	return func(opts *options) error {
		if q == nil {
			return errors.New("queue must not be nil")
		}
		opts.queue = q
		return nil
	}
}

// QueueFrom returns the queue set by [WithQueue], or nil.
func QueueFrom(optFns ...Option) (*Queue, error) {
	opts, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}
	return opts.queue, nil
}
