package client

import (
	"hash"

	"github.com/wumo-util/http-stack/client/call"
	"github.com/wumo-util/http-stack/client/download"
)

// ————————————————————————————————————————————————————————————————————
// Type aliases – re-export user-facing types from [download] and [call].
// ————————————————————————————————————————————————————————————————————

type (
	// DownloadOption configures a download.
	DownloadOption = download.Option

	// DownloadError wraps a sentinel error with additional detail.
	DownloadError = download.Error

	// DownloadResult represents an in-flight or completed async download.
	DownloadResult = download.Result

	// DownloadQueue bounds concurrent async downloads.
	DownloadQueue = download.Queue

	// TransportError reports a call the engine could not complete.
	TransportError = call.TransportError
)

// ————————————————————————————————————————————————————————————————————
// Sentinel errors
// ————————————————————————————————————————————————————————————————————

var (
	// ErrTransport marks network, TLS, DNS and timeout failures.
	ErrTransport = call.ErrTransport

	// ErrCancelled marks calls abandoned because their context ended.
	ErrCancelled = call.ErrCancelled

	// ErrConfiguration marks an unusable HTTPSTACK_STACK_RECORDER value.
	ErrConfiguration = call.ErrConfiguration

	// ErrContentLengthMismatch indicates the byte count did not match Content-Length.
	ErrContentLengthMismatch = download.ErrContentLengthMismatch

	// ErrChecksumMismatch indicates the file checksum did not match the expected value.
	ErrChecksumMismatch = download.ErrChecksumMismatch

	// ErrDownloadCancelled indicates the download was cancelled via context.
	ErrDownloadCancelled = download.ErrDownloadCancelled

	// ErrGroupShutdown indicates the download queue was shut down.
	ErrGroupShutdown = download.ErrGroupShutdown
)

// ————————————————————————————————————————————————————————————————————
// Download option forwarding functions
// ————————————————————————————————————————————————————————————————————

// WithChecksum enables checksum validation of the downloaded file.
// h is a [hash.Hash] instance (e.g. sha256.New()), and expected is the
// hex-encoded expected checksum string.
func WithChecksum(h hash.Hash, expected string) DownloadOption {
	return download.WithChecksum(h, expected)
}

// WithProgress reports every written chunk to fn.
func WithProgress(fn download.ProgressFunc) DownloadOption { return download.WithProgress(fn) }

// WithSkipExisting causes a download to return nil immediately when
// the destination file already exists.
func WithSkipExisting() DownloadOption { return download.WithSkipExisting() }

// WithChunkSize overrides the 8KB read size.
func WithChunkSize(n int) DownloadOption { return download.WithChunkSize(n) }

// WithQueue runs async downloads on q.
func WithQueue(q *DownloadQueue) DownloadOption { return download.WithQueue(q) }

// NewDownloadQueue creates a queue running at most maxConcurrent
// downloads at once. If maxConcurrent <= 0, concurrency is unlimited.
func NewDownloadQueue(maxConcurrent int) *DownloadQueue { return download.NewQueue(maxConcurrent) }
