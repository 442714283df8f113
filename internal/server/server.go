// Package server exposes article upload, status polling and review
// endpoints over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/pipeline"
	"github.com/hyperifyio/vnsdesk/internal/render"
)

// Submitter is satisfied by *pipeline.Pipeline.
type Submitter interface {
	Submit(ctx context.Context, filename string, raw []byte) pipeline.Submission
}

// Config holds server configuration.
type Config struct {
	Addr string
	// MaxUploadBytes bounds a whole multipart request. Zero means 32 MiB.
	MaxUploadBytes int64
	PDF            render.PDFOptions
	// WriteTimeout must cover a synchronous pipeline run. Zero means 5m.
	WriteTimeout time.Duration
}

// Server is the HTTP front of the article pipeline.
type Server struct {
	cfg        Config
	store      *article.Store
	pipeline   Submitter
	httpServer *http.Server
}

func New(cfg Config, store *article.Store, p Submitter) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Minute
	}
	s := &Server{cfg: cfg, store: store, pipeline: p}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /articles", s.handleUpload)
	mux.HandleFunc("GET /articles", s.handleList)
	mux.HandleFunc("GET /articles/{id}", s.handleArticle)
	mux.HandleFunc("GET /articles/{id}/status", s.handleStatus)
	mux.HandleFunc("GET /articles/{id}/markdown", s.handleMarkdown)
	mux.HandleFunc("GET /articles/{id}/pdf", s.handlePDF)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.withLogging(mux)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode JSON response")
	}
}

func errorResponse(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	msg := err.Error()
	if errors.Is(err, article.ErrNotFound) {
		msg = article.ErrNotFound.Error()
	}
	jsonResponse(w, status, map[string]string{"error": msg})
}
