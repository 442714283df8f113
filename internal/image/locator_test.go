package image

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/vnsdesk/internal/extract"
	"github.com/hyperifyio/vnsdesk/internal/fetch"
	"github.com/hyperifyio/vnsdesk/internal/search"
)

type stubSearch struct {
	results []search.Result
	err     error
	queries []string
}

func (s *stubSearch) Name() string { return "stub" }

func (s *stubSearch) Search(_ context.Context, q string, _ int) ([]search.Result, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

type countingFetcher struct {
	inner PageFetcher
	calls int
}

func (f *countingFetcher) Get(ctx context.Context, url string) (*fetch.Page, error) {
	f.calls++
	return f.inner.Get(ctx, url)
}

type captionClient struct {
	replies map[string]string
	errs    map[string]error
	models  []string
}

func (c *captionClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.models = append(c.models, req.Model)
	if err := c.errs[req.Model]; err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: c.replies[req.Model]}},
	}}, nil
}

func pageServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLocate_EmptyResultsSkipsFetch(t *testing.T) {
	s := &stubSearch{}
	f := &countingFetcher{inner: &fetch.Client{}}
	res := NewLocator(Options{Search: s, Fetcher: f}).Locate(context.Background(), "PM meets investors", "body")

	assert.False(t, res.Found())
	assert.Equal(t, NoImageCaption, res.Caption)
	assert.Equal(t, ReasonNoResults, res.Reason)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, []string{"site:en.vietnamplus.vn PM meets investors"}, s.queries)
}

func TestLocate_SearchErrorDegrades(t *testing.T) {
	s := &stubSearch{err: errors.New("serper status: 500")}
	res := NewLocator(Options{Search: s, Fetcher: &fetch.Client{}}).Locate(context.Background(), "h", "")
	assert.Equal(t, Result{Caption: NoImageCaption, Degraded: true, Reason: ReasonSearchFailed}, res)
}

func TestLocate_FetchErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	s := &stubSearch{results: []search.Result{{URL: srv.URL + "/missing"}}}
	res := NewLocator(Options{Search: s, Fetcher: &fetch.Client{}}).Locate(context.Background(), "h", "")
	assert.Equal(t, NoImageCaption, res.Caption)
	assert.Equal(t, ReasonFetchFailed, res.Reason)
}

func TestLocate_NoImageElement(t *testing.T) {
	srv := pageServer(t, `<html><body><img class="logo" src="/l.png"></body></html>`)
	s := &stubSearch{results: []search.Result{{URL: srv.URL + "/story.vnp"}}}
	res := NewLocator(Options{Search: s, Fetcher: &fetch.Client{}}).Locate(context.Background(), "h", "")
	assert.False(t, res.Found())
	assert.Equal(t, ReasonNoImageElement, res.Reason)
}

func TestLocate_ImageWithRewrittenCaption(t *testing.T) {
	srv := pageServer(t, `<html><body><img class="cms-photo" src="/files/pm.jpg" alt="PM Pham Minh Chinh in Ha Noi (Photo: VNA)"></body></html>`)
	s := &stubSearch{results: []search.Result{{URL: srv.URL + "/story.vnp"}}}
	client := &captionClient{replies: map[string]string{"gpt-4o": "PM Phạm Minh Chính in Hà Nội VNA/VNS Photo"}}
	rw := NewCaptionRewriter(client, CaptionOptions{Models: []string{"gpt-4o"}})

	res := NewLocator(Options{Search: s, Fetcher: &fetch.Client{}, Rewriter: rw}).Locate(context.Background(), "h", "")
	require.True(t, res.Found())
	assert.Equal(t, srv.URL+"/files/pm.jpg", res.URL)
	assert.Equal(t, "PM Phạm Minh Chính in Hà Nội VNA/VNS Photo", res.Caption)
	assert.False(t, res.Degraded)
}

func TestLocate_RejectedCaptionKeepsOriginal(t *testing.T) {
	srv := pageServer(t, `<img class="cms-photo" src="https://cdn.example/a.jpg" alt="abcd">`)
	s := &stubSearch{results: []search.Result{{URL: srv.URL}}}
	// "bcde" scores 0.75 against "abcd", below the caption threshold.
	client := &captionClient{replies: map[string]string{"primary": "bcde", "fallback": "bcde"}}
	rw := NewCaptionRewriter(client, CaptionOptions{Models: []string{"primary", "fallback"}})

	res := NewLocator(Options{Search: s, Fetcher: &fetch.Client{}, Rewriter: rw}).Locate(context.Background(), "h", "")
	assert.Equal(t, "https://cdn.example/a.jpg", res.URL)
	assert.Equal(t, "abcd", res.Caption)
	assert.True(t, res.Degraded)
	assert.Equal(t, ReasonCaptionRejected, res.Reason)
	assert.Equal(t, []string{"primary", "fallback"}, client.models)
}

func TestLocate_CustomCaptionRuleAndSelector(t *testing.T) {
	srv := pageServer(t, `<figure class="lead"><img src="/p.jpg" alt="Crowd (Photo: AFP)"></figure>`)
	s := &stubSearch{results: []search.Result{{URL: srv.URL + "/a/b.html"}}}
	rule := extract.CaptionRule{From: " (Photo: AFP)", To: " AFP Photo"}
	l := NewLocator(Options{
		Domain:      "example.org",
		Search:      s,
		Fetcher:     &fetch.Client{},
		Extractor:   extract.New("figure.lead img"),
		CaptionRule: &rule,
	})
	res := l.Locate(context.Background(), "Crowd gathers", "")
	assert.Equal(t, srv.URL+"/p.jpg", res.URL)
	assert.Equal(t, "Crowd AFP Photo", res.Caption)
	assert.Equal(t, []string{"site:example.org Crowd gathers"}, s.queries)
}

func TestCaptionRewriter_ModelErrorsKeepCaption(t *testing.T) {
	client := &captionClient{errs: map[string]error{"m": errors.New("boom")}}
	out, ok := NewCaptionRewriter(client, CaptionOptions{Models: []string{"m"}}).Rewrite(context.Background(), "Ha Long Bay")
	assert.False(t, ok)
	assert.Equal(t, "Ha Long Bay", out)
}

func TestCaptionRewriter_RequestShape(t *testing.T) {
	var got openai.ChatCompletionRequest
	client := &recordingClient{fn: func(req openai.ChatCompletionRequest) { got = req }, reply: "Vịnh Hạ Long"}
	_, _ = NewCaptionRewriter(client, CaptionOptions{Models: []string{"m"}}).Rewrite(context.Background(), "Vinh Ha Long")
	assert.Equal(t, DefaultCaptionMaxTokens, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, CaptionPrompt, got.Messages[0].Content)
	assert.Equal(t, "Vinh Ha Long", got.Messages[1].Content)
}

type recordingClient struct {
	fn    func(openai.ChatCompletionRequest)
	reply string
}

func (c *recordingClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.fn(req)
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: c.reply}},
	}}, nil
}

type denyAll struct{ asked []string }

func (d *denyAll) Allowed(_ context.Context, pageURL string) bool {
	d.asked = append(d.asked, pageURL)
	return false
}

func TestLocate_RobotsDisallowSkipsFetch(t *testing.T) {
	s := &stubSearch{results: []search.Result{{URL: "https://en.vietnamplus.vn/story.vnp"}}}
	f := &countingFetcher{inner: &fetch.Client{}}
	robots := &denyAll{}
	res := NewLocator(Options{Search: s, Fetcher: f, Robots: robots}).Locate(context.Background(), "h", "")

	assert.Equal(t, Result{Caption: NoImageCaption, Degraded: true, Reason: ReasonRobotsDisallow}, res)
	assert.Equal(t, []string{"https://en.vietnamplus.vn/story.vnp"}, robots.asked)
	assert.Equal(t, 0, f.calls)
}

func TestLocate_SearchTimeoutDegrades(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond
	f := &countingFetcher{inner: &fetch.Client{}}
	l := NewLocator(Options{
		Search:  &search.Serper{APIKey: "k", Endpoint: srv.URL, HTTPClient: client},
		Fetcher: f,
	})
	res := l.Locate(context.Background(), "PM meets investors", "")

	assert.Equal(t, Result{Caption: NoImageCaption, Degraded: true, Reason: ReasonSearchFailed}, res)
	assert.Empty(t, res.URL)
	assert.Equal(t, 0, f.calls)
}
