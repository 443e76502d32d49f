// Package contentrange parses and formats byte-range descriptors as carried
// by the Content-Range and Range headers.
package contentrange

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
)

// Unit is the only range unit understood by this package.
const Unit = "bytes"

// UnknownSize marks a range whose complete length was not sent.
const UnknownSize int64 = -1

var (
	ErrMalformed       = errors.New("malformed content range")
	ErrUnsupportedUnit = errors.New("unsupported range unit")
)

var rangePattern = regexp.MustCompile(`^(?:([A-Za-z]+)\s+)?(\d+)-(\d*)(?:/(\d+|\*))?$`)

// ContentRange describes the inclusive byte span [Start, End] of a
// representation that is Size bytes long.
type ContentRange struct {
	Start int64
	End   int64
	Size  int64
}

// New returns the range covering size bytes from start.
func New(start, size int64) ContentRange {
	return ContentRange{
		Start: start,
		End:   start + size - 1,
		Size:  size,
	}
}

// Parse reads "[unit ]start-[end][/size]". A missing end is math.MaxInt64
// and a missing or "*" size is UnknownSize.
func Parse(s string) (ContentRange, error) {
	m := rangePattern.FindStringSubmatch(s)
	if m == nil {
		return ContentRange{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	if m[1] != "" && m[1] != Unit {
		return ContentRange{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, m[1])
	}

	start, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return ContentRange{}, fmt.Errorf("%w: start: %w", ErrMalformed, err)
	}

	cr := ContentRange{Start: start, End: math.MaxInt64, Size: UnknownSize}

	if m[3] != "" {
		if cr.End, err = strconv.ParseInt(m[3], 10, 64); err != nil {
			return ContentRange{}, fmt.Errorf("%w: end: %w", ErrMalformed, err)
		}
	}

	if m[4] != "" && m[4] != "*" {
		if cr.Size, err = strconv.ParseInt(m[4], 10, 64); err != nil {
			return ContentRange{}, fmt.Errorf("%w: size: %w", ErrMalformed, err)
		}
	}

	return cr, nil
}

// FromHeader parses the Content-Range header of h. The boolean is false
// when the header is absent.
func FromHeader(h http.Header) (ContentRange, bool, error) {
	v := h.Get("Content-Range")
	if v == "" {
		return ContentRange{}, false, nil
	}

	cr, err := Parse(v)
	if err != nil {
		return ContentRange{}, true, err
	}

	return cr, true, nil
}

// Length is the number of bytes covered, or -1 for an open-ended range.
func (cr ContentRange) Length() int64 {
	if cr.End == math.MaxInt64 {
		return -1
	}

	return cr.End - cr.Start + 1
}

// String formats cr as a Content-Range header value.
func (cr ContentRange) String() string {
	size := "*"
	if cr.Size >= 0 {
		size = strconv.FormatInt(cr.Size, 10)
	}

	if cr.End == math.MaxInt64 {
		return fmt.Sprintf("%s %d-/%s", Unit, cr.Start, size)
	}

	return fmt.Sprintf("%s %d-%d/%s", Unit, cr.Start, cr.End, size)
}

// RangeHeader formats a Range request header value. A negative end asks
// for everything from start onwards.
func RangeHeader(start, end int64) string {
	if end < 0 {
		return fmt.Sprintf("%s=%d-", Unit, start)
	}

	return fmt.Sprintf("%s=%d-%d", Unit, start, end)
}
