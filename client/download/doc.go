// Package download streams HTTP response bodies to writers and files
// with optional checksum validation and progress reporting.
//
// # Streaming
//
// [Stream] copies a body in fixed-size chunks, reporting each chunk
// and a final (0, total) call to the progress callback:
//
//	n, err := download.Stream(ctx, w, resp.Body, resp.ContentLength,
//		download.LogProgress(logger),
//	)
//
// # Single Download
//
// [Handle] writes the response body to a temporary file alongside the
// destination path, then atomically renames it on success:
//
//	err := download.Handle(ctx, resp.Body, resp.ContentLength, destPath, logger,
//		download.WithChecksum(sha256.New(), expectedHex),
//	)
//
// # Queues
//
// [Queue] bounds the number of downloads running at once. Most callers
// should use [github.com/wumo-util/http-stack/client.Client.DownloadAsync],
// which starts work on a Queue and re-exports these options.
package download
