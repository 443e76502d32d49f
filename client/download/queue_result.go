package download

import (
	"context"
	"net/http"
	"slices"
)

// Result tracks one download started on a Queue.
type Result struct {
	adder  Adder
	queue  *Queue
	cancel context.CancelFunc

	done chan struct{}
	err  error
}

func newResult(q *Queue, adder Adder, cancel context.CancelFunc) *Result {
	return &Result{
		adder:  adder,
		queue:  q,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// finish publishes err to Err callers and to the queue. It must be called once.
func (r *Result) finish(err error) {
	r.err = err
	if err != nil {
		r.queue.recordErr(err)
	}
	close(r.done)
}

// Add starts another download on the queue r runs on. A download that
// cannot start, e.g. for an empty destPath, yields an already finished
// Result whose error is also reported by [Result.Wait].
func (r *Result) Add(ctx context.Context, rawURL string, header http.Header, destPath string, optFns ...Option) *Result {
	next, err := r.adder(ctx, rawURL, header, destPath, slices.Concat(optFns, []Option{WithQueue(r.queue)})...)
	if err == nil {
		return next
	}

	failed := newResult(r.queue, r.adder, func() {})
	failed.finish(err)

	return failed
}

// Done is closed once this download has finished.
func (r *Result) Done() <-chan struct{} { return r.done }

// Err waits for this download and returns its error.
func (r *Result) Err() error {
	<-r.done
	return r.err
}

// Wait waits for every download on the queue and returns their errors joined.
func (r *Result) Wait() error {
	return r.queue.Wait()
}

// Cancel abandons this download. Other downloads on the queue go on.
func (r *Result) Cancel() {
	r.cancel()
}
