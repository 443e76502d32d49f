// Package httpstack exposes the client builder and the persistent cookie store.
package httpstack

import (
	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/cookie"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewPersistentClient opens the cookie document at cookiePath and builds a
// client whose jar is backed by it. The caller persists cookies by calling
// Save on the returned client's Cookies store.
func NewPersistentClient(cookiePath string, opts ...client.Option) (*client.Client, error) {
	store, err := cookie.Open(cookiePath)
	if err != nil {
		return nil, err
	}

	return client.Build(append([]client.Option{client.WithCookieStore(store)}, opts...)...)
}
