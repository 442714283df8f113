package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/vnsdesk/internal/cache"
)

func TestGet_Success(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 2, PerRequestTimeout: 2 * time.Second}
	page, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(page.Body) != "<html><body>ok</body></html>" || page.ContentType == "" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if ua != DefaultUserAgent {
		t.Fatalf("user agent %q", ua)
	}
}

func TestGet_FinalURLAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/story.vnp", http.StatusFound)
	})
	mux.HandleFunc("/new/story.vnp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := (&Client{}).Get(context.Background(), srv.URL+"/old")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if page.URL != srv.URL+"/new/story.vnp" {
		t.Fatalf("final url %q", page.URL)
	}
}

func TestGet_RetryOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 2, Backoff: time.Millisecond}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestGet_NoRetryOn404(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, Backoff: time.Millisecond}
	_, err := c.Get(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("404 must not be retried, calls=%d", calls)
	}
}

func TestGet_RejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer srv.Close()
	if _, err := (&Client{}).Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected content type error")
	}
}

func TestGet_RejectsNonHTTPScheme(t *testing.T) {
	if _, err := (&Client{}).Get(context.Background(), "file:///etc/passwd"); err == nil {
		t.Fatal("expected scheme error")
	}
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := &Client{PerRequestTimeout: 50 * time.Millisecond}
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestGet_Conditional304_UsesCache(t *testing.T) {
	var calls int32
	etag := `"abc123"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("<html>cached</html>"))
	}))
	defer srv.Close()

	c := &Client{Cache: cache.NewHTTPCache(t.TempDir())}
	first, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.FromCache || string(second.Body) != string(first.Body) {
		t.Fatalf("expected cached body, got %+v", second)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls=%d", calls)
	}
}
