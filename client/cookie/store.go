package cookie

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// DefaultPath is the backing document used when none is configured.
const DefaultPath = "cookie.json"

// ErrMalformedDocument is wrapped by every DocumentError.
var ErrMalformedDocument = errors.New("malformed cookie document")

// DocumentError reports a backing document that exists but cannot be used.
type DocumentError struct {
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrMalformedDocument, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() []error {
	return []error{ErrMalformedDocument, e.Err}
}

// entry is one element of the backing document.
type entry struct {
	URI     string   `json:"uri"`
	Cookies []Record `json:"cookies"`
}

// Option configures a Store.
type Option func(*Store)

// WithLogger injects a custom logger into the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock replaces time.Now, which anchors cookie lifetimes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store is an in-memory index of cookies by URI, loaded from and saved to
// a JSON document. It is safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	uris  []string
	index map[string][]Record

	saveMu sync.Mutex
}

// Open loads the document at path, creating an empty one if it does not
// exist. A document that exists but cannot be decoded or holds an invalid
// record yields a *DocumentError and no Store.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	s := &Store{
		path:   path,
		logger: slog.Default(),
		now:    time.Now,
		index:  make(map[string][]Record),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("creating cookie directory: %w", err)
		}
		if err := writeFile(s.path, []byte("[]\n")); err != nil {
			return fmt.Errorf("creating cookie document: %w", err)
		}

		s.logger.Info("created cookie document", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cookie document: %w", err)
	}

	entries, err := decode(data)
	if err != nil {
		return &DocumentError{Path: s.path, Err: err}
	}

	now := s.now()
	for _, e := range entries {
		s.touch(e.URI)
		for _, rec := range e.Cookies {
			rec.created = now
			s.put(e.URI, rec)
		}
	}

	s.logger.Debug("loaded cookie document", "path", s.path, "uris", len(s.uris))

	return nil
}

func decode(data []byte) ([]entry, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	var entries []entry
	if err := d.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after document")
	}
	if entries == nil {
		return nil, errors.New("document is not an array")
	}

	for i, e := range entries {
		if e.URI == "" {
			return nil, fmt.Errorf("entry %d: missing uri", i)
		}
		if _, err := url.Parse(e.URI); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		for j, rec := range e.Cookies {
			if err := rec.Validate(); err != nil {
				return nil, fmt.Errorf("entry %d cookie %d: %w", i, j, err)
			}
		}
	}

	return entries, nil
}

// Path returns the location of the backing document.
func (s *Store) Path() string {
	return s.path
}

// Add records rec under uri. A record naming the same cookie (name,
// domain and path) is replaced in place; a record with MaxAge 0 deletes it
// instead.
func (s *Store) Add(uri string, rec Record) error {
	if uri == "" {
		return errors.New("uri must not be empty")
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid cookie %q: %w", rec.Name, err)
	}
	if rec.created.IsZero() {
		rec.created = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch(uri)
	s.put(uri, rec.clone())

	return nil
}

// touch registers uri. Callers hold s.mu or own s exclusively.
func (s *Store) touch(uri string) {
	if _, ok := s.index[uri]; ok {
		return
	}
	s.uris = append(s.uris, uri)
	s.index[uri] = []Record{}
}

// put inserts, replaces or deletes rec. Callers hold s.mu or own s
// exclusively, and have called touch.
func (s *Store) put(uri string, rec Record) {
	list := s.index[uri]
	for i := range list {
		if !sameCookie(list[i], rec) {
			continue
		}
		if rec.MaxAge == 0 {
			s.index[uri] = slices.Delete(list, i, i+1)
		} else {
			list[i] = rec
		}
		return
	}

	if rec.MaxAge != 0 {
		s.index[uri] = append(list, rec)
	}
}

// Get returns copies of the unexpired records stored under uri.
func (s *Store) Get(uri string) []Record {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.index[uri] {
		if !rec.Expired(now) {
			out = append(out, rec.clone())
		}
	}

	return out
}

// URIs returns every URI known to the store in first-seen order.
func (s *Store) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.uris)
}

// Remove deletes the record naming the same cookie as rec under uri.
func (s *Store) Remove(uri string, rec Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.index[uri]
	for i := range list {
		if sameCookie(list[i], rec) {
			s.index[uri] = slices.Delete(list, i, i+1)
			return true
		}
	}

	return false
}

// RemoveAll empties the store. The backing document is untouched until Save.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.uris = nil
	s.index = make(map[string][]Record)
}

// each calls fn for every unexpired record under a read lock.
func (s *Store) each(now time.Time, fn func(uri string, rec Record)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, uri := range s.uris {
		for _, rec := range s.index[uri] {
			if !rec.Expired(now) {
				fn(uri, rec.clone())
			}
		}
	}
}

// Save writes the whole store to the backing document. The document is
// replaced by rename, so readers see either the old or the new version.
// Concurrent calls are serialized.
func (s *Store) Save() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	entries := s.snapshot()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cookies: %w", err)
	}

	if err := writeFile(s.path, append(data, '\n')); err != nil {
		return fmt.Errorf("saving cookies: %w", err)
	}

	s.logger.Info("flushed cookies to disk", "path", s.path, "uris", len(entries))

	return nil
}

func (s *Store) snapshot() []entry {
	now := s.now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]entry, 0, len(s.uris))
	for _, uri := range s.uris {
		cookies := make([]Record, 0, len(s.index[uri]))
		for _, rec := range s.index[uri] {
			if !rec.Expired(now) {
				cookies = append(cookies, rec)
			}
		}
		entries = append(entries, entry{URI: uri, Cookies: cookies})
	}

	return entries
}

// writeFile writes data to a temp file next to path and renames it over
// path. On any error the temp file is removed.
func writeFile(path string, data []byte) (err error) {
	file, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	defer func() {
		if err != nil {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()

	if _, err = file.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err = file.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = file.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(file.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
