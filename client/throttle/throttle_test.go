package throttle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRoundTripper_Validation(t *testing.T) {
	tests := map[string]struct {
		cfg    Config
		expErr error
	}{
		"zeroRPS":       {cfg: Config{RPS: 0, Burst: 10}, expErr: ErrMustNotBeZero},
		"negativeRPS":   {cfg: Config{RPS: -5, Burst: 10}, expErr: ErrMustNotBeZero},
		"zeroBurst":     {cfg: Config{RPS: 10, Burst: 0}, expErr: ErrMustNotBeZero},
		"negativeBurst": {cfg: Config{RPS: 10, Burst: -5}, expErr: ErrMustNotBeZero},
		"valid":         {cfg: Config{RPS: 10, Burst: 20}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rt, err := NewRoundTripper(tc.cfg, nil, http.DefaultTransport)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}
			if err != nil {
				t.Errorf("exp nil err, got: %v", err)
			}
			if rt == nil {
				t.Error("exp non-nil RoundTripper")
			}
		})
	}
}

func TestRoundTripper_Behavior(t *testing.T) {
	tests := map[string]struct {
		cfg         Config
		requests    int
		reqTimeout  time.Duration
		preCancel   bool
		expFailures int
		expErr      error
		maxDuration time.Duration
		minDuration time.Duration
	}{
		"highLimits": {
			cfg:         Config{RPS: 10000, Burst: 100},
			requests:    50,
			maxDuration: 500 * time.Millisecond,
		},
		"withinBurst": {
			cfg:         Config{RPS: 5, Burst: 5},
			requests:    5,
			maxDuration: 200 * time.Millisecond,
		},
		"exceedBurstWaits": {
			cfg:      Config{RPS: 10, Burst: 5},
			requests: 8,
			// (8-5) calls at 10 RPS.
			minDuration: 250 * time.Millisecond,
		},
		"exceedBurstTimesOut": {
			cfg:         Config{RPS: 5, Burst: 2},
			requests:    5,
			reqTimeout:  50 * time.Millisecond,
			expFailures: 3,
			expErr:      ErrWaitingFailed,
		},
		"preCancelled": {
			cfg:         Config{RPS: 20, Burst: 10},
			requests:    1,
			preCancel:   true,
			expFailures: 1,
			expErr:      ErrContextEnded,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			rt, err := NewRoundTripper(tc.cfg, nil, http.DefaultTransport)
			if err != nil {
				t.Fatal(err)
			}
			hc := &http.Client{Transport: rt}

			errs := make([]error, tc.requests)
			start := time.Now()

			var wg sync.WaitGroup
			for i := range tc.requests {
				wg.Go(func() {
					var (
						ctx    context.Context
						cancel context.CancelFunc
					)
					if tc.reqTimeout > 0 {
						ctx, cancel = context.WithTimeout(t.Context(), tc.reqTimeout)
					} else {
						ctx, cancel = context.WithCancel(t.Context())
					}
					if tc.preCancel {
						cancel()
					}
					defer cancel()

					req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
					if err != nil {
						errs[i] = err
						return
					}
					resp, err := hc.Do(req)
					if err != nil {
						errs[i] = err
						return
					}
					resp.Body.Close()
				})
			}
			wg.Wait()
			elapsed := time.Since(start)

			var failures int
			for _, err := range errs {
				if err == nil {
					continue
				}
				failures++
				if tc.expErr != nil && !errors.Is(err, tc.expErr) {
					t.Errorf("expected %v, got %v", tc.expErr, err)
				}
			}

			if failures != tc.expFailures {
				t.Errorf("expected %d failed requests, got %d", tc.expFailures, failures)
			}
			if got, exp := hits.Load(), int32(tc.requests-failures); got != exp {
				t.Errorf("expected %d calls to reach the server, got %d", exp, got)
			}
			if tc.maxDuration > 0 && elapsed > tc.maxDuration {
				t.Errorf("expected completion within %v, took %v", tc.maxDuration, elapsed)
			}
			if elapsed < tc.minDuration {
				t.Errorf("expected throttling to take at least %v, took %v", tc.minDuration, elapsed)
			}
		})
	}
}

func TestRoundTripper_LogsExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rt, err := NewRoundTripper(Config{RPS: 50, Burst: 1}, func() *slog.Logger { return logger }, http.DefaultTransport)
	if err != nil {
		t.Fatal(err)
	}
	hc := &http.Client{Transport: rt}

	for range 2 {
		resp, err := hc.Get(server.URL)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	if !strings.Contains(buf.String(), "throttle tokens exhausted") {
		t.Errorf("expected exhaustion log line, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "throttle wait complete") {
		t.Errorf("expected wait-complete log line, got:\n%s", buf.String())
	}
}
