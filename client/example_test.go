package client_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wumo-util/http-stack/client"
	"github.com/wumo-util/http-stack/client/cookie"
)

func ExampleBuild() {
	c, err := client.Build(
		client.WithTimeout(10*time.Second),
		client.WithUserAgent("example/1.0"),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	fmt.Println("client built")
	// Output: client built
}

func ExampleURL() {
	u := client.URL("https", "example.com", "/api/v1",
		client.WithPort(8443),
		client.WithQueryStrings(map[string]string{"key": "value"}),
	)

	fmt.Println(u.String())
	// Output: https://example.com:8443/api/v1?key=value
}

func ExampleRequest() {
	type payload struct {
		Name string `json:"name"`
	}

	u := client.URL("https", "example.com", "/users")

	req, err := client.Request(context.Background(), u, http.MethodPost,
		client.WithPayload(payload{Name: "alice"}),
		client.WithHeaders(client.Headers("X-Request-ID", "abc123")),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(req.Method, req.URL.Path, req.Header.Get("X-Request-ID"))
	// Output: POST /users abc123
}

func ExampleClient_Do() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer ts.Close()

	c, _ := client.Build()
	u, _ := url.Parse(ts.URL)
	req, _ := client.Request(context.Background(), u, http.MethodGet)

	var resp struct{ Status string }
	if err := c.Do(req, http.StatusOK, client.WithDestination(&resp)); err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(resp.Status)
	// Output: ok
}

func ExampleClient_GetCode() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c, _ := client.Build()

	status, body, err := c.GetCode(context.Background(), ts.URL, nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(status, strings.TrimSpace(body))
	// Output: 503 gone fishing
}

func ExampleClient_Get() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hello" {
			http.Error(w, "no such page", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "hello, "+r.Header.Get("X-Name"))
	}))
	defer ts.Close()

	c, _ := client.Build()

	body, err := c.Get(context.Background(), ts.URL+"/hello", client.Headers("X-Name", "gopher"))
	fmt.Println(body, err)

	_, err = c.Get(context.Background(), ts.URL+"/elsewhere", nil)
	var statusErr *client.UnexpectedStatusError
	if errors.As(err, &statusErr) {
		fmt.Println(statusErr.StatusCode, strings.TrimSpace(statusErr.Body))
	}
	// Output:
	// hello, gopher <nil>
	// 404 no such page
}

func ExampleClient_Post() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fmt.Fprint(w, "welcome "+r.PostForm.Get("user"))
	}))
	defer ts.Close()

	c, _ := client.Build()

	body, err := c.Post(context.Background(), ts.URL, nil, url.Values{"user": {"alice"}})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(body)
	// Output: welcome alice
}

func ExampleClient_Download() {
	body := []byte("file contents")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	defer ts.Close()

	c, _ := client.Build()

	var sb strings.Builder
	n, err := c.Download(context.Background(), &sb, ts.URL, nil, func(n, total int64) {
		fmt.Printf("chunk %d/%d\n", n, total)
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fmt.Println(n, sb.String())
	// Output:
	// chunk 13/13
	// chunk 0/13
	// 13 file contents
}

func ExampleClient_DownloadFile() {
	body := []byte("verified contents")
	sum := sha256.Sum256(body)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer ts.Close()

	c, _ := client.Build()

	dir, _ := os.MkdirTemp("", "httpstack-example-")
	defer os.RemoveAll(dir)
	dest := filepath.Join(dir, "file.txt")

	err := c.DownloadFile(context.Background(), ts.URL, nil, dest,
		client.WithChecksum(sha256.New(), hex.EncodeToString(sum[:])),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	data, _ := os.ReadFile(dest)
	fmt.Println(string(data))
	// Output: verified contents
}

func ExampleClient_DownloadAsync() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "content of "+r.URL.Path)
	}))
	defer ts.Close()

	c, _ := client.Build()

	dir, _ := os.MkdirTemp("", "httpstack-example-")
	defer os.RemoveAll(dir)

	q := client.NewDownloadQueue(2)
	r, err := c.DownloadAsync(context.Background(), ts.URL+"/a", nil, filepath.Join(dir, "a.txt"), client.WithQueue(q))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	r.Add(context.Background(), ts.URL+"/b", nil, filepath.Join(dir, "b.txt"))

	if err := r.Wait(); err != nil {
		fmt.Println("error:", err)
		return
	}

	a, _ := os.ReadFile(filepath.Join(dir, "a.txt"))
	b, _ := os.ReadFile(filepath.Join(dir, "b.txt"))
	fmt.Println(string(a))
	fmt.Println(string(b))
	// Output:
	// content of /a
	// content of /b
}

func ExampleWithCookieStore() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "s3cr3t", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil {
			http.Error(w, "who are you?", http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, "session "+c.Value)
	}))
	defer ts.Close()

	dir, _ := os.MkdirTemp("", "httpstack-example-")
	defer os.RemoveAll(dir)

	store, err := cookie.Open(filepath.Join(dir, "cookie.json"))
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	c, _ := client.Build(client.WithCookieStore(store))

	if _, err := c.Get(context.Background(), ts.URL+"/login", nil); err != nil {
		fmt.Println("error:", err)
		return
	}
	body, _ := c.Get(context.Background(), ts.URL+"/me", nil)
	fmt.Println(body)

	// Persisting is explicit.
	if err := store.Save(); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(len(store.URIs()))
	// Output:
	// session s3cr3t
	// 1
}

func ExampleWithThrottle() {
	c, err := client.Build(client.WithThrottle(10, 5))
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer c.Close()

	fmt.Println("throttled client built")
	// Output: throttled client built
}
