package download

import (
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"
)

// checksum hashes everything written to it and compares the digest with a
// hex encoded expectation, ignoring case.
type checksum struct {
	h        hash.Hash
	expected string
}

func newChecksum(h hash.Hash, expected string) (*checksum, error) {
	if h == nil {
		return nil, errors.New("hash must not be nil")
	}

	want := strings.ToLower(strings.TrimSpace(expected))
	if want == "" {
		return nil, errors.New("expected checksum must not be empty")
	}
	if _, err := hex.DecodeString(want); err != nil {
		return nil, fmt.Errorf("expected checksum is not hex: %w", err)
	}
	if len(want) != 2*h.Size() {
		return nil, fmt.Errorf("expected checksum has %d hex digits, %T produces %d", len(want), h, 2*h.Size())
	}

	return &checksum{h: h, expected: want}, nil
}

func (c *checksum) Write(p []byte) (int, error) {
	return c.h.Write(p)
}

// reset discards input left in the hash by an earlier download.
func (c *checksum) reset() {
	if c != nil {
		c.h.Reset()
	}
}

func (c *checksum) verify() error {
	if c == nil {
		return nil
	}

	actual := hex.EncodeToString(c.h.Sum(nil))
	if actual != c.expected {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", c.expected, actual),
		}
	}

	return nil
}
