package client_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/download"
)

type progressCall struct {
	N, Total int64
}

type progressRecorder struct {
	calls []progressCall
}

func (r *progressRecorder) progress(n, total int64) {
	r.calls = append(r.calls, progressCall{N: n, Total: total})
}

// closingBuffer records whether Close was called.
type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closingBuffer) Close() error {
	b.closed = true
	return nil
}

func contentServer(t *testing.T, content []byte) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.Error(w, "not here", http.StatusNotFound)
		case "/norange":
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			_, _ = w.Write(content)
		case "/badrange":
			w.Header().Set("Content-Range", "bytes 0-9/"+strconv.Itoa(len(content)))
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write(content[:10])
		default:
			http.ServeContent(w, r, "file.bin", time.Time{}, bytes.NewReader(content))
		}
	}))
	t.Cleanup(ts.Close)

	return ts
}

func TestClient_Download(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 2000) // 20000 bytes
	ts := contentServer(t, content)
	c := newTestClient(t)

	dst := &closingBuffer{}
	var rec progressRecorder

	n, err := c.Download(t.Context(), dst, ts.URL+"/file", nil, rec.progress)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if n != int64(len(content)) {
		t.Errorf("expected %d bytes, got %d", len(content), n)
	}
	if !bytes.Equal(dst.Bytes(), content) {
		t.Error("downloaded content does not match source")
	}
	if !dst.closed {
		t.Error("expected destination closed")
	}

	if len(rec.calls) < 2 {
		t.Fatalf("expected chunk calls plus completion, got %v", rec.calls)
	}
	var sum int64
	for _, pc := range rec.calls[:len(rec.calls)-1] {
		if pc.N <= 0 || pc.N > download.DefaultChunkSize {
			t.Errorf("chunk size %d outside (0, %d]", pc.N, download.DefaultChunkSize)
		}
		if pc.Total != int64(len(content)) {
			t.Errorf("expected declared total %d, got %d", len(content), pc.Total)
		}
		sum += pc.N
	}
	if sum != int64(len(content)) {
		t.Errorf("expected chunk sizes to sum to %d, got %d", len(content), sum)
	}
	if last := rec.calls[len(rec.calls)-1]; last != (progressCall{N: 0, Total: int64(len(content))}) {
		t.Errorf("expected trailing (0, %d) call, got %v", len(content), last)
	}
}

func TestClient_Download_NotFoundClosesDestination(t *testing.T) {
	ts := contentServer(t, []byte("irrelevant"))
	c := newTestClient(t)

	dst := &closingBuffer{}
	_, err := c.Download(t.Context(), dst, ts.URL+"/missing", nil, nil)

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 UnexpectedStatusError, got: %v", err)
	}
	if !dst.closed {
		t.Error("expected destination closed on failure")
	}
	if dst.Len() != 0 {
		t.Errorf("expected nothing written, got %q", dst.String())
	}
}

func TestClient_DownloadFrom(t *testing.T) {
	content := []byte(strings.Repeat("abcdefghij", 10))
	ts := contentServer(t, content)
	c := newTestClient(t)

	tests := map[string]struct {
		path   string
		offset int64
		exp    []byte
		expErr error
	}{
		"resumesAtOffset": {
			path:   "/file",
			offset: 10,
			exp:    content[10:],
		},
		"fromStart": {
			path:   "/file",
			offset: 0,
			exp:    content,
		},
		"rangeIgnored": {
			path:   "/norange",
			offset: 10,
			expErr: client.ErrUnexpectedStatusCode,
		},
		"wrongStart": {
			path:   "/badrange",
			offset: 10,
			expErr: client.ErrRangeMismatch,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dst := &closingBuffer{}
			var rec progressRecorder

			n, err := c.DownloadFrom(t.Context(), dst, ts.URL+tc.path, nil, tc.offset, rec.progress)
			if !dst.closed {
				t.Error("expected destination closed")
			}

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("expected %v, got: %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			if n != int64(len(tc.exp)) {
				t.Errorf("expected %d bytes, got %d", len(tc.exp), n)
			}
			if diff := cmp.Diff(tc.exp, dst.Bytes()); diff != "" {
				t.Errorf("content mismatch (-want +got):\n%s", diff)
			}
			if last := rec.calls[len(rec.calls)-1]; last != (progressCall{N: 0, Total: int64(len(tc.exp))}) {
				t.Errorf("expected trailing completion call, got %v", last)
			}
		})
	}
}

func TestClient_DownloadFrom_NegativeOffset(t *testing.T) {
	c := newTestClient(t)
	dst := &closingBuffer{}

	if _, err := c.DownloadFrom(t.Context(), dst, "http://example.test/", nil, -1, nil); err == nil {
		t.Fatal("expected error for negative offset")
	}
	if !dst.closed {
		t.Error("expected destination closed")
	}
}

func TestClient_DownloadFile(t *testing.T) {
	content := []byte("download file body")
	sum := sha256.Sum256(content)
	ts := contentServer(t, content)
	c := newTestClient(t)

	tests := map[string]struct {
		path   string
		opts   []client.DownloadOption
		expErr error
	}{
		"basic": {
			path: "/file",
		},
		"checksumPass": {
			path: "/file",
			opts: []client.DownloadOption{client.WithChecksum(sha256.New(), hex.EncodeToString(sum[:]))},
		},
		"checksumFail": {
			path:   "/file",
			opts:   []client.DownloadOption{client.WithChecksum(sha256.New(), strings.Repeat("0", 64))},
			expErr: client.ErrChecksumMismatch,
		},
		"statusMismatch": {
			path:   "/missing",
			expErr: client.ErrUnexpectedStatusCode,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "out.bin")

			err := c.DownloadFile(t.Context(), ts.URL+tc.path, nil, dest, tc.opts...)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Fatalf("expected %v, got: %v", tc.expErr, err)
				}
				if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
					t.Errorf("expected no destination file, stat err: %v", statErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}

			got, err := os.ReadFile(dest)
			if err != nil {
				t.Fatalf("reading destination: %v", err)
			}
			if !bytes.Equal(got, content) {
				t.Errorf("file contents mismatch; got %q, want %q", got, content)
			}
		})
	}
}

func TestClient_DownloadFile_EmptyDestPath(t *testing.T) {
	c := newTestClient(t)

	if err := c.DownloadFile(t.Context(), "http://example.test/", nil, ""); err == nil {
		t.Fatal("expected error for empty destPath")
	}
}

func TestClient_DownloadFile_CancelMidDownload(t *testing.T) {
	const chunkSize = 1024
	const totalChunks = 20
	chunk := bytes.Repeat([]byte("a"), chunkSize)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(chunkSize*totalChunks))
		w.WriteHeader(http.StatusOK)

		for range totalChunks {
			if _, err := w.Write(chunk); err != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			select {
			case <-r.Context().Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}))
	defer ts.Close()

	c := newTestClient(t)
	dir := t.TempDir()
	dest := filepath.Join(dir, "cancelled.bin")

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.DownloadFile(ctx, ts.URL, nil, dest)
	}()

	time.Sleep(250 * time.Millisecond)
	cancel()

	err := <-errCh
	if !errors.Is(err, client.ErrDownloadCancelled) {
		t.Fatalf("expected ErrDownloadCancelled, got: %v", err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, ".httpstack-dl-*"))
	if len(matches) > 0 {
		t.Errorf("expected no temp files, found: %v", matches)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("expected dest file to not exist at %s after cancellation", dest)
	}
}

func TestClient_DownloadFile_SkipExisting(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, "new")
	}))
	defer ts.Close()

	c := newTestClient(t)
	dest := filepath.Join(t.TempDir(), "existing.txt")
	if err := os.WriteFile(dest, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.DownloadFile(t.Context(), ts.URL, nil, dest, client.WithSkipExisting()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "old" {
		t.Errorf("expected existing file untouched, got %q", got)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single request, got %d", hits.Load())
	}
}

func TestClient_DownloadAsync_Single(t *testing.T) {
	content := []byte("async download body")
	ts := contentServer(t, content)
	c := newTestClient(t)

	dest := filepath.Join(t.TempDir(), "async.bin")
	r, err := c.DownloadAsync(t.Context(), ts.URL+"/file", nil, dest)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if err := r.Err(); err != nil {
		t.Fatalf("download failed: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("file contents mismatch; got %q, want %q", got, content)
	}
}

func TestClient_DownloadAsync_Batch(t *testing.T) {
	content := []byte("batch body")
	ts := contentServer(t, content)
	c := newTestClient(t)
	dir := t.TempDir()

	q := client.NewDownloadQueue(2)
	r, err := c.DownloadAsync(t.Context(), ts.URL+"/a", nil, filepath.Join(dir, "a.bin"), client.WithQueue(q))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	r.Add(t.Context(), ts.URL+"/b", nil, filepath.Join(dir, "b.bin"))
	r.Add(t.Context(), ts.URL+"/c", nil, filepath.Join(dir, "c.bin"))
	r.Add(t.Context(), ts.URL+"/missing", nil, filepath.Join(dir, "missing.bin"))
	r.Add(t.Context(), ts.URL+"/d", nil, "")

	err = r.Wait()
	if !errors.Is(err, client.ErrUnexpectedStatusCode) {
		t.Errorf("expected the 404 in the joined errors, got: %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "destPath must not be empty") {
		t.Errorf("expected the validation failure in the joined errors, got: %v", err)
	}

	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("reading %s: %v", name, err)
			continue
		}
		if !bytes.Equal(got, content) {
			t.Errorf("%s contents mismatch; got %q", name, got)
		}
	}
}

func TestClient_DownloadAsync_EmptyDestPath(t *testing.T) {
	c := newTestClient(t)

	if _, err := c.DownloadAsync(t.Context(), "http://example.test/", nil, ""); err == nil {
		t.Fatal("expected error for empty destPath")
	}
}
