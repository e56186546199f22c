package httpx

import (
	"errors"
	"net/http"
	"time"

	"blog/internal/auth"
	"blog/internal/blog"
)

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", pageData{Viewer: auth.IdentityFrom(r.Context())})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.FormValue("username")

	uid, err := auth.Register(ctx, s.Store.Users(), username, r.FormValue("password"))
	if msg := blog.Message(err); msg != "" {
		s.render(w, r, http.StatusUnprocessableEntity, "register.html",
			pageData{Flash: msg, Form: formVM{Username: username}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Log.Infow("User registered", "user_id", uid)
	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login.html", pageData{Viewer: auth.IdentityFrom(r.Context())})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := r.FormValue("username")
	lifetime := s.Cfg.Security.SessionLifetime

	sid, id, err := auth.Login(ctx, s.Store, username, r.FormValue("password"), lifetime)
	if errors.Is(err, blog.ErrInvalidLogin) {
		s.Log.Infow("Login rejected", "username", username)
		s.render(w, r, http.StatusUnprocessableEntity, "login.html",
			pageData{Flash: "Incorrect username or password.", Form: formVM{Username: username}})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  time.Now().Add(lifetime),
		HttpOnly: true,
		Secure:   s.Cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})
	s.Log.Infow("User logged in", "user_id", id.UserID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := auth.Logout(r.Context(), s.Store.Sessions(), c.Value); err != nil {
			s.Log.Errorw("Logout failed", "error", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}
