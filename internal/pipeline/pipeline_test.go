package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/restore"
	"github.com/hyperifyio/vnsdesk/internal/textenc"
	"github.com/hyperifyio/vnsdesk/internal/upload"
)

type stubRestorer struct {
	out string
	err error

	mu    sync.Mutex
	calls []string
}

func (r *stubRestorer) Restore(_ context.Context, text string) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, text)
	r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	if r.out != "" {
		return r.out, nil
	}
	return text, nil
}

type stubLocator struct {
	res       image.Result
	headlines []string
}

func (l *stubLocator) Locate(_ context.Context, headline, _ string) image.Result {
	l.headlines = append(l.headlines, headline)
	return l.res
}

const wire = "PM meets investors\nThủ tướng Phạm Minh Chính tiếp nhà đầu tư\nHa Noi, May 5 (VNA) – The Prime Minister met investors.\nClosing line./.\nreporter"

func newPipeline(t *testing.T, r Restorer, l Locator) *Pipeline {
	t.Helper()
	return &Pipeline{
		Store:    article.NewStore(),
		Uploads:  upload.NewLocalStorage(t.TempDir()),
		Restorer: r,
		Locator:  l,
	}
}

func TestSubmit_CompletesArticle(t *testing.T) {
	loc := &stubLocator{res: image.Result{URL: "https://en.vietnamplus.vn/p.jpg", Caption: "PM VNA/VNS Photo"}}
	p := newPipeline(t, &stubRestorer{}, loc)

	sub := p.Submit(context.Background(), "story.txt", []byte(wire))
	require.NoError(t, sub.Err)
	assert.Equal(t, article.StatusComplete, sub.Status)

	rec, err := p.Store.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "story.txt", rec.Filename)
	assert.Equal(t, "PM meets investors", rec.Headline)
	assert.Equal(t, "Thủ tướng Phạm Minh Chính tiếp nhà đầu tư\nHA NOI — The Prime Minister met investors.\nClosing line. — VNS", rec.Body)
	assert.Equal(t, "https://en.vietnamplus.vn/p.jpg", rec.ImageURL)
	assert.Equal(t, "PM VNA/VNS Photo", rec.ImageCaption)
	assert.Equal(t, []string{"PM meets investors"}, loc.headlines)
}

func TestSubmit_SkipsNonText(t *testing.T) {
	p := newPipeline(t, &stubRestorer{}, nil)
	sub := p.Submit(context.Background(), "photo.jpg", []byte("x"))
	assert.ErrorIs(t, sub.Err, ErrNotText)
	assert.Empty(t, sub.ID)
	assert.Empty(t, p.Store.List())
}

func TestSubmit_RestorerExhaustedRecordsError(t *testing.T) {
	tErr := &restore.TransformationError{Err: errors.New("all strategies exhausted")}
	r := &stubRestorer{err: tErr}
	loc := &stubLocator{}
	p := newPipeline(t, r, loc)

	sub := p.Submit(context.Background(), "story.txt", []byte(wire))
	var te *restore.TransformationError
	require.ErrorAs(t, sub.Err, &te)
	assert.True(t, sub.Status.IsError())

	rec, _ := p.Store.Get(sub.ID)
	assert.True(t, strings.HasPrefix(string(rec.Status), "Error: "))
	assert.Contains(t, rec.ErrorMessage, "diacritic restoration exhausted all models")
	assert.Empty(t, loc.headlines, "image lookup must not run after a failed restore")
}

func TestSubmit_EncodingErrorRecorded(t *testing.T) {
	r := &stubRestorer{}
	p := newPipeline(t, r, nil)
	p.Decoder = textenc.Normalizer{MinConfidence: 101}

	sub := p.Submit(context.Background(), "story.txt", []byte("plain ascii text"))
	var ee *textenc.EncodingError
	require.ErrorAs(t, sub.Err, &ee)
	assert.Equal(t, "story.txt", ee.Filename)
	assert.True(t, sub.Status.IsError())
	assert.Empty(t, r.calls)
}

// cancelingRestorer simulates the uploader disconnecting while the model runs.
type cancelingRestorer struct {
	cancel context.CancelFunc
}

func (r *cancelingRestorer) Restore(ctx context.Context, text string) (string, error) {
	r.cancel()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

func TestSubmit_CallerCancelDoesNotAbortJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(t, &cancelingRestorer{cancel: cancel}, nil)

	sub := p.Submit(ctx, "story.txt", []byte(wire))
	require.NoError(t, sub.Err)
	assert.Equal(t, article.StatusComplete, sub.Status)
	assert.Error(t, ctx.Err())
}

func TestSubmit_NilLocatorUsesNoImage(t *testing.T) {
	p := newPipeline(t, &stubRestorer{}, nil)
	sub := p.Submit(context.Background(), "story.txt", []byte(wire))
	require.NoError(t, sub.Err)
	rec, _ := p.Store.Get(sub.ID)
	assert.Equal(t, "", rec.ImageURL)
	assert.Equal(t, image.NoImageCaption, rec.ImageCaption)
}

func TestSubmit_AsyncDrainsOnClose(t *testing.T) {
	p := newPipeline(t, &stubRestorer{}, &stubLocator{res: image.Result{Caption: image.NoImageCaption}})
	p.Async = true

	var ids []string
	for i := 0; i < 4; i++ {
		sub := p.Submit(context.Background(), "story.txt", []byte(wire))
		require.NoError(t, sub.Err)
		ids = append(ids, sub.ID)
	}
	p.Close()
	for _, id := range ids {
		rec, err := p.Store.Get(id)
		require.NoError(t, err)
		assert.Equal(t, article.StatusComplete, rec.Status)
	}

	sub := p.Submit(context.Background(), "late.txt", []byte(wire))
	assert.ErrorIs(t, sub.Err, ErrClosed)
}

func TestRun_TwiceIsRejected(t *testing.T) {
	p := newPipeline(t, &stubRestorer{}, nil)
	sub := p.Submit(context.Background(), "story.txt", []byte(wire))
	require.NoError(t, sub.Err)
	path, err := p.Uploads.(*upload.LocalStorage).PathFor(sub.ID, "story.txt")
	require.NoError(t, err)

	err = p.Run(context.Background(), sub.ID, path)
	assert.ErrorIs(t, err, article.ErrInvalidTransition)
	rec, _ := p.Store.Get(sub.ID)
	assert.Equal(t, article.StatusComplete, rec.Status)
}

func TestSubmit_UploadFailureRecorded(t *testing.T) {
	p := newPipeline(t, &stubRestorer{}, nil)
	p.Uploads = failingStorage{}
	sub := p.Submit(context.Background(), "story.txt", []byte(wire))
	require.Error(t, sub.Err)
	assert.True(t, sub.Status.IsError())
}

type failingStorage struct{}

func (failingStorage) Save(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func (failingStorage) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk full")
}
