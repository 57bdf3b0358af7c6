package collyfetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

func TestFetchGetWithHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "secret" {
			t.Errorf("expected Authorization header, got %q", got)
		}
		if got := r.UserAgent(); got != "birdwall-test" {
			t.Errorf("expected user agent, got %q", got)
		}
		w.Header().Set("X-Resp", "ok")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "birdwall-test", Timeout: time.Second})
	resp, err := f.Fetch(context.Background(), wallpaper.FetchRequest{
		URL:     srv.URL + "/search?q=bird",
		Headers: http.Header{"Authorization": {"secret"}},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Headers.Get("X-Resp") != "ok" {
		t.Fatalf("expected headers copied, got %+v", resp.Headers)
	}
}

func TestFetchSameURLTwice(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("img"))
	}))
	defer srv.Close()

	f := New(Config{})
	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), wallpaper.FetchRequest{URL: srv.URL + "/a.jpg"}); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
	}
	if hits.Load() != 2 {
		t.Fatalf("expected revisits to reach the server, got %d hits", hits.Load())
	}
}

func TestFetchPostForm(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("key") != "k" || r.PostForm.Get("image") != "aGVsbG8=" || r.PostForm.Get("name") != "n.jpg" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"data":{"url":"https://i.host/n.jpg"}}`))
	}))
	defer srv.Close()

	f := New(Config{})
	resp, err := f.Fetch(context.Background(), wallpaper.FetchRequest{
		URL:  srv.URL + "/upload",
		Form: map[string]string{"key": "k", "image": "aGVsbG8=", "name": "n.jpg"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestFetchReturnsErrorStatuses(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer srv.Close()

	f := New(Config{})
	resp, err := f.Fetch(context.Background(), wallpaper.FetchRequest{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if err := wallpaper.ExpectStatus(resp, http.StatusOK); !errors.Is(err, wallpaper.ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}
}

func TestFetchRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	image := bytes.Repeat([]byte{0xff}, 256*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/exact" {
			_, _ = w.Write(image[:1024])
			return
		}
		_, _ = w.Write(image)
	}))
	defer srv.Close()

	f := New(Config{MaxBodyBytes: 1024})
	if _, err := f.Fetch(context.Background(), wallpaper.FetchRequest{URL: srv.URL + "/big.jpg"}); !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}

	resp, err := f.Fetch(context.Background(), wallpaper.FetchRequest{URL: srv.URL + "/exact"})
	if err != nil {
		t.Fatalf("Fetch() at the cap error = %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Fatalf("expected full 1024-byte body, got %d", len(resp.Body))
	}
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, wallpaper.FetchRequest{URL: "http://127.0.0.1:1/"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFetchConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := New(Config{Timeout: time.Second})
	if _, err := f.Fetch(context.Background(), wallpaper.FetchRequest{URL: addr}); err == nil {
		t.Fatal("expected error for closed server")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	req := wallpaper.FetchRequest{
		URL:     "https://example.com",
		Headers: http.Header{"X-Trace": {"yes"}},
	}
	start := time.Unix(0, 0)
	var result wallpaper.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, start, &result, &fetchErr)
	if hooks.onRequest == nil || hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	if collyReq.Headers.Get("X-Trace") != "yes" {
		t.Fatalf("expected header propagation, got %+v", collyReq.Headers)
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com"),
		},
	})
	if result.StatusCode != http.StatusCreated || string(result.Body) != "body" {
		t.Fatalf("unexpected result: %+v", result)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestBuildCollectorTimeoutPrecedence(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "agent", MaxBodyBytes: 1024})
	collector := f.buildCollector(
		wallpaper.FetchRequest{URL: "https://example.com", Timeout: time.Second},
		time.Now(),
		&wallpaper.FetchResponse{},
		new(error),
	)
	if collector.UserAgent != "agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if collector.MaxBodySize != 1025 {
		t.Fatalf("expected max body size one past the cap, got %d", collector.MaxBodySize)
	}
	if !collector.ParseHTTPErrorResponse || !collector.AllowURLRevisit {
		t.Fatal("expected error responses to be parsed and revisits allowed")
	}
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
