// Package pipeline runs uploaded articles through decoding, diacritic
// restoration, house-style formatting and image lookup.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/image"
	"github.com/hyperifyio/vnsdesk/internal/style"
	"github.com/hyperifyio/vnsdesk/internal/textenc"
	"github.com/hyperifyio/vnsdesk/internal/upload"
)

var (
	// ErrNotText marks uploads skipped because they are not .txt files.
	ErrNotText = errors.New("only .txt files are processed")
	ErrClosed  = errors.New("pipeline closed")
)

// StageError attributes a job failure to the stage that raised it.
type StageError struct {
	Stage article.Status
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

type Decoder interface {
	Decode(filename string, raw []byte) (textenc.Decoded, error)
}

type Restorer interface {
	Restore(ctx context.Context, text string) (string, error)
}

type Locator interface {
	Locate(ctx context.Context, headline, articleText string) image.Result
}

type Storage interface {
	Save(ctx context.Context, id, filename string, data []byte) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
}

// Pipeline owns job execution. Store, Uploads, Restorer are required;
// Decoder defaults to textenc.Normalizer and a nil Locator skips images.
type Pipeline struct {
	Store    *article.Store
	Uploads  Storage
	Decoder  Decoder
	Restorer Restorer
	Locator  Locator
	// Async makes Submit return once the upload is stored; the job then runs
	// in a goroutine bound to Background.
	Async      bool
	Background context.Context

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Submission is the per-file outcome of Submit.
type Submission struct {
	ID       string
	Filename string
	Status   article.Status
	Err      error
}

// Submit stores raw under a new article id and processes it, synchronously
// unless Async is set. Failures are reported in the Submission and, once a
// record exists, in its status.
func (p *Pipeline) Submit(ctx context.Context, filename string, raw []byte) Submission {
	sub := Submission{Filename: filename}
	if !upload.IsText(filename) {
		sub.Err = ErrNotText
		return sub
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sub.Err = ErrClosed
		return sub
	}
	p.wg.Add(1)
	p.mu.Unlock()
	defer p.wg.Done()

	rec, err := p.Store.Create(article.Record{Filename: upload.Basename(filename)})
	if err != nil {
		sub.Err = err
		return sub
	}
	sub.ID = rec.ID
	logger := log.With().Str("article", rec.ID).Str("file", rec.Filename).Logger()

	path, err := p.Uploads.Save(ctx, rec.ID, filename, raw)
	if err != nil {
		logger.Error().Err(err).Msg("upload not stored")
		sub.Err = p.fail(rec.ID, &StageError{Stage: article.StatusStarting, Err: err})
		sub.Status = p.status(rec.ID)
		return sub
	}

	if p.Async {
		bg := p.Background
		if bg == nil {
			bg = context.Background()
		}
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			if err := p.Run(bg, rec.ID, path); err != nil {
				logger.Warn().Err(err).Msg("article failed")
			}
		}()
		sub.Status = p.status(rec.ID)
		return sub
	}

	// a client that goes away does not abort a started job
	sub.Err = p.Run(context.WithoutCancel(ctx), rec.ID, path)
	sub.Status = p.status(rec.ID)
	return sub
}

// Run processes the stored upload at path for article id. The returned
// error is also recorded as the article's error status.
func (p *Pipeline) Run(ctx context.Context, id, path string) error {
	unlock := p.Store.Lock(id)
	defer unlock()
	logger := log.With().Str("article", id).Logger()
	name := path
	if rec, err := p.Store.Get(id); err == nil && rec.Filename != "" {
		name = rec.Filename
	}

	if err := p.advance(id, article.StatusReadingFile); err != nil {
		return err
	}
	raw, err := p.Uploads.Load(ctx, path)
	if err != nil {
		return p.fail(id, &StageError{Stage: article.StatusReadingFile, Err: err})
	}
	decoded, err := p.decoder().Decode(name, raw)
	if err != nil {
		return p.fail(id, &StageError{Stage: article.StatusReadingFile, Err: err})
	}
	logger.Debug().Str("encoding", decoded.Encoding).Int("confidence", decoded.Confidence).Msg("decoded upload")

	if err := p.advance(id, article.StatusCallingModel); err != nil {
		return err
	}
	restored, err := p.Restorer.Restore(ctx, decoded.Text)
	if err != nil {
		return p.fail(id, &StageError{Stage: article.StatusCallingModel, Err: err})
	}

	if err := p.advance(id, article.StatusFormatting); err != nil {
		return err
	}
	formatted := style.Format(restored)
	headline, body := style.SplitHeadline(formatted)
	if err := p.Store.Merge(id, article.Fields{Headline: &headline, Body: &body}); err != nil {
		return p.fail(id, &StageError{Stage: article.StatusFormatting, Err: err})
	}

	if err := p.advance(id, article.StatusSearchingImage); err != nil {
		return err
	}
	img := image.Result{Caption: image.NoImageCaption, Degraded: true, Reason: "image lookup disabled"}
	if p.Locator != nil {
		img = p.Locator.Locate(ctx, headline, formatted)
	}
	if img.Degraded {
		logger.Info().Str("reason", img.Reason).Msg("image lookup degraded")
	}
	if err := p.Store.Merge(id, article.Fields{ImageURL: &img.URL, ImageCaption: &img.Caption}); err != nil {
		return p.fail(id, &StageError{Stage: article.StatusSearchingImage, Err: err})
	}

	if err := p.advance(id, article.StatusComplete); err != nil {
		return err
	}
	logger.Info().Str("headline", headline).Bool("image", img.Found()).Msg("article complete")
	return nil
}

// Close stops accepting submissions and waits for running jobs.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pipeline) decoder() Decoder {
	if p.Decoder == nil {
		return textenc.Normalizer{}
	}
	return p.Decoder
}

func (p *Pipeline) advance(id string, st article.Status) error {
	if err := p.Store.SetStatus(id, st); err != nil {
		return fmt.Errorf("article %s: %w", id, err)
	}
	log.Debug().Str("article", id).Str("status", string(st)).Msg("status")
	return nil
}

// fail records err as the terminal status of id and returns err.
func (p *Pipeline) fail(id string, err error) error {
	if serr := p.Store.Fail(id, err.Error()); serr != nil {
		log.Error().Err(serr).Str("article", id).Msg("could not record failure")
	}
	return err
}

func (p *Pipeline) status(id string) article.Status {
	rec, err := p.Store.Get(id)
	if err != nil {
		return ""
	}
	return rec.Status
}
