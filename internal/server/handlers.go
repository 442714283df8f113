package server

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/render"
)

// uploadResult is one entry of the POST /articles response.
type uploadResult struct {
	ID       string `json:"id,omitempty"`
	Filename string `json:"filename"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

// articleView is the article retrieval shape.
type articleView struct {
	Headline     string  `json:"headline"`
	Body         string  `json:"body"`
	ImageURL     *string `json:"imageUrl"`
	ImageCaption *string `json:"imageCaption"`
}

func viewOf(rec article.Record) articleView {
	v := articleView{Headline: rec.Headline, Body: rec.Body}
	if rec.ImageURL != "" {
		v.ImageURL = &rec.ImageURL
	}
	if rec.ImageCaption != "" {
		v.ImageCaption = &rec.ImageCaption
	}
	return v
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		errorResponse(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		errorResponse(w, fmt.Errorf("%w: no files uploaded", errBadRequest))
		return
	}
	results := make([]uploadResult, 0, len(files))
	for _, fh := range files {
		res := uploadResult{Filename: fh.Filename}
		raw, err := readPart(fh)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		sub := s.pipeline.Submit(r.Context(), fh.Filename, raw)
		res.ID = sub.ID
		res.Status = string(sub.Status)
		if sub.Err != nil {
			res.Error = fmt.Sprintf("Error with %s: %v", fh.Filename, sub.Err)
			log.Warn().Err(sub.Err).Str("file", fh.Filename).Msg("upload not processed")
		}
		results = append(results, res)
	}
	jsonResponse(w, http.StatusOK, map[string]any{"articles": results})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]any{"articles": s.store.List()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (article.Record, bool) {
	rec, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		errorResponse(w, err)
		return article.Record{}, false
	}
	return rec, true
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.lookup(w, r); ok {
		jsonResponse(w, http.StatusOK, viewOf(rec))
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if rec, ok := s.lookup(w, r); ok {
		jsonResponse(w, http.StatusOK, map[string]string{"status": string(rec.Status)})
	}
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, render.Markdown(rec))
}

func (s *Server) handlePDF(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.PDF(&buf, rec, s.cfg.PDF); err != nil {
		errorResponse(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.ID+".pdf"))
	_, _ = w.Write(buf.Bytes())
}
