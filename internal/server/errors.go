package server

import (
	"errors"
	"net/http"

	"github.com/hyperifyio/vnsdesk/internal/article"
	"github.com/hyperifyio/vnsdesk/internal/pipeline"
	"github.com/hyperifyio/vnsdesk/internal/textenc"
)

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

// httpStatus maps domain errors to status codes.
func httpStatus(err error) int {
	var encErr *textenc.EncodingError
	switch {
	case errors.Is(err, article.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, pipeline.ErrNotText):
		return http.StatusBadRequest
	case errors.As(err, &encErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, article.ErrClosed), errors.Is(err, pipeline.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, article.ErrExists), errors.Is(err, article.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
