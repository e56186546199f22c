package httpx

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"blog/internal/auth"
)

const CookieName = "session_id"

const loginPath = "/auth/login"

func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			id, err := auth.UserFromSession(r.Context(), s.Store, c.Value, time.Now())
			switch {
			case err == nil:
				r = r.WithContext(auth.WithIdentity(r.Context(), id))
			case errors.Is(err, auth.ErrNoSession):
				s.Log.Debugw("Session rejected", "request_id", middleware.GetReqID(r.Context()))
			default:
				s.Log.Errorw("Session lookup failed", "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth sends anonymous requests to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.IdentityFrom(r.Context()) == nil {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			duration := time.Since(start)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", ww.Status(),
				"size", ww.BytesWritten(),
				"duration", duration,
				"request_id", middleware.GetReqID(r.Context()),
			}
			if id := auth.IdentityFrom(r.Context()); id != nil {
				fields = append(fields, "user_id", id.UserID)
			}
			s.Log.Infow("HTTP request", fields...)

			if s.Metrics != nil {
				s.Metrics.RecordHTTPRequest(r.Context(), r.Method, route, ww.Status(), duration)
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

// rateLimit throttles state-changing requests. rpm <= 0 disables it.
func (s *Server) rateLimit(rpm int) func(http.Handler) http.Handler {
	if rpm <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := rpm / 6
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead && !limiter.Allow() {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
