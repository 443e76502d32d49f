package call

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
)

var (
	// ErrTransport marks failures reported by the engine: network, timeout,
	// TLS, DNS.
	ErrTransport = errors.New("transport failure")
	// ErrCancelled marks waits abandoned because the caller's context ended.
	ErrCancelled = errors.New("call cancelled")
	// ErrConfiguration marks an unusable process configuration.
	ErrConfiguration = errors.New("invalid configuration")
)

// TransportError is returned by [Bridge.Await] when the engine reports a
// failure for the call.
type TransportError struct {
	CallID string
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s [%s]: %v", ErrTransport, e.Method, e.URL, e.CallID, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// StackError carries the stack of the goroutine that started a call.
// Formatting it with %+v prints the recorded frames.
type StackError struct {
	Err    error
	frames []runtime.Frame
}

func newStackError(err error, pcs []uintptr) *StackError {
	var frames []runtime.Frame
	it := runtime.CallersFrames(pcs)
	for {
		f, more := it.Next()
		frames = append(frames, f)
		if !more {
			break
		}
	}

	return &StackError{Err: err, frames: frames}
}

func (e *StackError) Error() string {
	return e.Err.Error()
}

func (e *StackError) Unwrap() error {
	return e.Err
}

// Frames returns the recorded call site, innermost first.
func (e *StackError) Frames() []runtime.Frame {
	return e.frames
}

func (e *StackError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			var b strings.Builder
			b.WriteString(e.Err.Error())
			b.WriteString("\nawaited at:")
			for _, f := range e.frames {
				fmt.Fprintf(&b, "\n\t%s\n\t\t%s:%d", f.Function, f.File, f.Line)
			}
			_, _ = io.WriteString(s, b.String())
			return
		}
		fallthrough
	case 's':
		_, _ = io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}

// cancelled builds the error returned when the awaiting context ends first.
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
