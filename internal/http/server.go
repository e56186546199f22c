package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"blog/internal/app"
	"blog/internal/blog"
	"blog/internal/images"
	"blog/internal/metrics"
	"blog/internal/util"
	"blog/web"
)

type Server struct {
	Store   blog.Store
	Images  *images.Store
	Cfg     app.Config
	Log     *zap.SugaredLogger
	Metrics *metrics.Metrics

	views  *util.Renderer
	router chi.Router
}

// NewServer wires the routes. metricsHandler may be nil to leave /metrics
// unmounted.
func NewServer(store blog.Store, imgs *images.Store, cfg app.Config, logger *zap.SugaredLogger, m *metrics.Metrics, metricsHandler http.Handler) (*Server, error) {
	views, err := util.NewRenderer(web.Templates, "templates")
	if err != nil {
		return nil, err
	}
	s := &Server{
		Store:   store,
		Images:  imgs,
		Cfg:     cfg,
		Log:     logger,
		Metrics: m,
		views:   views,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(middleware.Recoverer)
	r.Use(s.withSession)
	r.Use(s.requestLogger)
	r.Use(s.rateLimit(cfg.Security.RateLimitRPM))

	r.Get("/healthz", s.handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/register", s.handleRegisterForm)
		r.Post("/register", s.handleRegister)
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
	})

	r.Get("/", s.handleIndex)
	r.Get("/tag/{tag}", s.handleIndex)
	r.Get("/{id:[0-9]+}", s.handleRead)
	r.Get("/{id:[0-9]+}/{file}", s.handleImage)
	r.Post("/{id:[0-9]+}/comment", s.handleComment)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/create", s.handleCreateForm)
		r.Post("/create", s.handleCreate)
		r.Get("/{id:[0-9]+}/update", s.handleUpdateForm)
		r.Post("/{id:[0-9]+}/update", s.handleUpdate)
		r.Post("/{id:[0-9]+}/delete", s.handleDelete)
		r.Post("/{id:[0-9]+}/like", s.handleLike)
		r.Post("/delete_comment/{id:[0-9]+}", s.handleDeleteComment)
	})

	s.router = r
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		s.Log.Errorw("Health check failed", "error", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// pathID reads the numeric {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, blog.ErrNotFound
	}
	return id, nil
}
