package download

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// WorkFunc is the signature for async work.
type WorkFunc func(ctx context.Context) error

// Adder matches the client.DownloadAsync func signature.
// Allows us to inject into the result.
type Adder func(ctx context.Context, rawURL string, header http.Header, destPath string, optFns ...Option) (*Result, error)

// Queue manages a batch of concurrent async downloads.
type Queue struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      *semaphore.Weighted
	shutdown atomic.Bool
	errs     []error
}

// NewQueue creates a Queue with the given concurrency limit.
// If maxConcurrent <= 0, concurrency is unlimited.
func NewQueue(maxConcurrent int) *Queue {
	q := &Queue{}
	if maxConcurrent > 0 {
		q.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return q
}

// Wait blocks until all downloads in the queue complete.
// Returns all errors joined via errors.Join.
func (q *Queue) Wait() error {
	q.wg.Wait()

	q.mu.Lock()
	defer q.mu.Unlock()

	return errors.Join(q.errs...)
}

// Shutdown prevents new work from executing in this queue.
func (q *Queue) Shutdown() {
	q.shutdown.Store(true)
}

// Start runs fn on its own goroutine once a slot is free. The returned
// Result follows that single run; adder lets it queue more work.
func (q *Queue) Start(ctx context.Context, fn WorkFunc, adder Adder) *Result {
	ctx, cancel := context.WithCancel(ctx)
	r := newResult(q, adder, cancel)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer cancel()

		r.finish(q.run(ctx, fn))
	}()

	return r
}

func (q *Queue) run(ctx context.Context, fn WorkFunc) error {
	if q.sem != nil {
		if err := q.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer q.sem.Release(1)
	}

	if q.shutdown.Load() {
		return ErrGroupShutdown
	}

	return fn(ctx)
}

// recordErr appends err to the queue's error slice under the mutex.
func (q *Queue) recordErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = append(q.errs, err)
}
