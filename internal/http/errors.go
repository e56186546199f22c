package httpx

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"blog/internal/blog"
)

type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }

func (e *badRequest) Unwrap() error { return e.err }

// fail answers a request that cannot continue.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var br *badRequest
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, blog.ErrUnauthenticated):
		http.Redirect(w, r, loginPath, http.StatusFound)
	case errors.Is(err, blog.ErrNotFound):
		http.Error(w, "Not Found", http.StatusNotFound)
	case errors.Is(err, blog.ErrForbidden):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.As(err, &tooLarge):
		http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
	case errors.As(err, &br):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	default:
		s.Log.Errorw("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if err := s.views.Render(w, status, name, data); err != nil {
		s.fail(w, r, err)
	}
}
