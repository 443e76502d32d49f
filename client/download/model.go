package download

import (
	"errors"
	"fmt"
)

// DefaultChunkSize is the read size used by Stream unless overridden.
const DefaultChunkSize = 8 << 10 // 8KB

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
	ErrGroupShutdown         = errors.New("download queue shut down")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc is told about every chunk written: n bytes this chunk, and
// the declared total length or -1 when unknown. After the last chunk it is
// called once more with n == 0.
type ProgressFunc func(n, total int64)
