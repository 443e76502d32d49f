// Package throttle provides an [http.RoundTripper] that rate-limits
// outbound HTTP calls using a token-bucket algorithm from
// [golang.org/x/time/rate].
//
// Wrap an existing transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5},
//		func() *slog.Logger { return slog.Default() },
//		http.DefaultTransport,
//	)
//
// Calls beyond the burst block until a token becomes available or the
// request context ends.
package throttle
