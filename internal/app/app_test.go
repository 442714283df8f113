package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/image"
)

// newLLMStub answers chat completions. Captions get diacritics added; body
// text is echoed back unchanged, which always clears the body threshold.
func newLLMStub(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-4o","object":"model"}]}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		var system, user string
		for _, m := range req.Messages {
			switch m.Role {
			case "system":
				system = m.Content
			case "user":
				user = m.Content
			}
		}
		out := user
		if system == image.CaptionPrompt {
			out = strings.ReplaceAll(user, "Ha Noi", "Hà Nội")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": out},
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newPageStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><img class="cms-photo" src="/files/pm.jpg" alt="The PM in Ha Noi (Photo: VNA)"></body></html>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, llmURL, pageURL string) Config {
	t.Helper()
	dir := t.TempDir()
	results := fmt.Sprintf(`[{"title":"PM meets investors","url":%q}]`, pageURL+"/story.vnp")
	searchFile := filepath.Join(dir, "search.json")
	require.NoError(t, os.WriteFile(searchFile, []byte(results), 0o644))

	cfg := Defaults()
	cfg.LLMBaseURL = llmURL + "/v1"
	cfg.LLMAPIKey = "test"
	cfg.SearchFile = searchFile
	cfg.ImageDomain = "127.0.0.1"
	cfg.UploadDir = filepath.Join(dir, "uploads")
	cfg.CacheDir = filepath.Join(dir, "cache")
	return cfg
}

const storyText = "PM meets investors\nThủ tướng Phạm Minh Chính tiếp nhà đầu tư\nHa Noi, May 5 (VNA) – The PM met investors.\nClosing./.\nreporter\n"

func TestProcessFiles_EndToEnd(t *testing.T) {
	var calls int32
	llmSrv := newLLMStub(t, &calls)
	pageSrv := newPageStub(t)
	cfg := testConfig(t, llmSrv.URL, pageSrv.URL)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	in := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(in, []byte(storyText), 0o644))
	skipped := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(skipped, []byte("x"), 0o644))
	outDir := filepath.Join(t.TempDir(), "out")

	results, err := a.ProcessFiles(context.Background(), []string{in, skipped}, outDir, 2)
	require.Error(t, err, "the non-.txt file is reported as failed")
	require.Len(t, results, 2)
	require.NoError(t, results[0].Err)
	assert.Equal(t, article.StatusComplete, results[0].Status)
	assert.Error(t, results[1].Err)

	rec, err := a.Store().Get(results[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "PM meets investors", rec.Headline)
	assert.Contains(t, rec.Body, "HA NOI — The PM met investors.")
	assert.Equal(t, pageSrv.URL+"/files/pm.jpg", rec.ImageURL)
	assert.Equal(t, "The PM in Hà Nội VNA/VNS Photo", rec.ImageCaption)

	md, err := os.ReadFile(results[0].Output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# PM meets investors\n"))

	// Body and caption each took one completion on the primary model.
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProcessFiles_LLMCacheServesRepeats(t *testing.T) {
	var calls int32
	llmSrv := newLLMStub(t, &calls)
	pageSrv := newPageStub(t)
	cfg := testConfig(t, llmSrv.URL, pageSrv.URL)

	in := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(in, []byte(storyText), 0o644))

	for i := 0; i < 2; i++ {
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		_, err = a.ProcessFiles(context.Background(), []string{in}, t.TempDir(), 1)
		a.Close()
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProcessFiles_RobotsDisallowSkipsImage(t *testing.T) {
	var calls int32
	llmSrv := newLLMStub(t, &calls)
	pageSrv := newPageStub(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /\n"))
	})
	mux.Handle("/", pageSrv.Config.Handler)
	guarded := httptest.NewServer(mux)
	defer guarded.Close()

	in := filepath.Join(t.TempDir(), "story.txt")
	require.NoError(t, os.WriteFile(in, []byte(storyText), 0o644))

	for _, ignore := range []bool{false, true} {
		cfg := testConfig(t, llmSrv.URL, guarded.URL)
		cfg.IgnoreRobots = ignore
		a, err := New(context.Background(), cfg)
		require.NoError(t, err)
		results, err := a.ProcessFiles(context.Background(), []string{in}, t.TempDir(), 1)
		require.NoError(t, err)
		rec, err := a.Store().Get(results[0].ID)
		require.NoError(t, err)
		a.Close()

		if ignore {
			assert.Equal(t, guarded.URL+"/files/pm.jpg", rec.ImageURL)
		} else {
			assert.Empty(t, rec.ImageURL)
			assert.Equal(t, image.NoImageCaption, rec.ImageCaption)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := Defaults()
	cfg.BodyThreshold = 2
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewSearchProvider_Precedence(t *testing.T) {
	cfg := Defaults()
	assert.Nil(t, newSearchProvider(cfg, nil))
	cfg.SearxURL = "http://searx.local"
	assert.Equal(t, "searxng", newSearchProvider(cfg, nil).Name())
	cfg.SerperKey = "k"
	assert.Equal(t, "serper", newSearchProvider(cfg, nil).Name())
	cfg.SearchFile = "results.json"
	assert.Equal(t, "file", newSearchProvider(cfg, nil).Name())
}
