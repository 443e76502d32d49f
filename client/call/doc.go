// Package call bridges callback-driven HTTP engines into cancellable,
// single-resolution waits.
//
// An [Engine] accepts a request and reports its outcome later, from its own
// goroutine, through a [Callback]. A [Bridge] turns that into a plain
// blocking call that honours context cancellation:
//
//	b := call.NewBridge(call.NewEngine(http.DefaultClient))
//	resp, err := b.Await(ctx, req)
//
// If ctx ends before the engine reports back, Await cancels the underlying
// [Call] once, returns an error wrapping [ErrCancelled], and any result that
// arrives afterwards is discarded (response bodies are closed).
//
// # Stack recording
//
// Transport failures surface from the engine's goroutine, so their trace says
// nothing about who made the request. Setting HTTPSTACK_STACK_RECORDER=on
// makes Await capture the caller's stack before suspending and attach it to
// the returned error as a [StackError]. The switch is read once per process;
// see [ProcessSettings].
package call
