// Package client provides a configurable HTTP client whose calls are
// submitted to an asynchronous engine and awaited through a
// cancellation-aware bridge.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	store, err := cookie.Open("cookie.json")
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithCookieStore(store),
//	)
//	defer c.Close()
//
// Every request carries [DefaultUserAgent] unless [WithUserAgent] replaces it.
//
// # Making Requests
//
// The "Code" methods return the status and body whatever the status:
//
//	status, body, err := c.GetCode(ctx, "https://example.com/items", nil)
//
// The plain methods accept only 2xx responses and report anything else
// as an [*UnexpectedStatusError]:
//
//	body, err := c.Get(ctx, "https://example.com/items", client.Headers("Accept", "text/plain"))
//	headers, err := c.Head(ctx, "https://example.com/items", nil)
//
// Cancelling ctx abandons the call; the error then wraps [ErrCancelled].
// Network failures wrap [ErrTransport].
//
// For JSON APIs construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// # Downloading
//
// [Client.Download] streams a body into any writer, reporting chunks to
// a progress callback. [Client.DownloadFrom] resumes at a byte offset.
// [Client.DownloadFile] writes to disk through a temp file with optional
// checksum verification:
//
//	err = c.DownloadFile(ctx, rawURL, nil, "/tmp/file.bin",
//		client.WithChecksum(sha256.New(), expectedHex),
//		client.WithProgress(download.LogProgress(logger)),
//	)
//
// # Async Downloads
//
// [Client.DownloadAsync] starts a file download on a queue:
//
//	q := client.NewDownloadQueue(4)
//	r, err := c.DownloadAsync(ctx, urlA, nil, "/tmp/a.bin", client.WithQueue(q))
//	r.Add(ctx, urlB, nil, "/tmp/b.bin")
//	err = r.Wait() // blocks until all downloads finish
//
// Persisting cookies is the caller's job: call Save on the store when done.
package client
