package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blog/internal/blog"
	"blog/internal/models"
)

var ErrNoSession = errors.New("session not found")

// ----------------------------
// Context helpers
// ----------------------------

type ctxKeyIdentity struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, id)
}

// IdentityFrom returns the authenticated requester, or nil for anonymous
// requests.
func IdentityFrom(ctx context.Context) *models.Identity {
	id, ok := ctx.Value(ctxKeyIdentity{}).(models.Identity)
	if !ok || id.UserID == 0 {
		return nil
	}
	return &id
}

// ----------------------------
// Register
// ----------------------------

func Register(ctx context.Context, users blog.UserRepository, username, password string) (int64, error) {
	username = strings.TrimSpace(username)

	if username == "" {
		return 0, &blog.ValidationError{Message: "Username is required."}
	}
	if password == "" {
		return 0, &blog.ValidationError{Message: "Password is required."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	id, err := users.Create(ctx, username, string(hash))
	if errors.Is(err, blog.ErrUsernameTaken) {
		return 0, &blog.ValidationError{
			Message: "User " + username + " is already registered.",
			Err:     blog.ErrUsernameTaken,
		}
	}
	return id, err
}

// ----------------------------
// Login (uuid session with expiry)
// ----------------------------

// Login checks the credentials and replaces the user's sessions with a new
// one in a single transaction.
func Login(ctx context.Context, store blog.Store, username, password string, lifetime time.Duration) (string, models.Identity, error) {
	username = strings.TrimSpace(username)

	u, err := store.Users().GetByUsername(ctx, username)
	if errors.Is(err, blog.ErrNotFound) {
		return "", models.Identity{}, blog.ErrInvalidLogin
	}
	if err != nil {
		return "", models.Identity{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", models.Identity{}, blog.ErrInvalidLogin
	}

	sid := uuid.New().String()
	err = store.WithTx(ctx, func(q blog.Queries) error {
		if err := q.Sessions().DeleteForUser(ctx, u.ID); err != nil {
			return err
		}
		return q.Sessions().Create(ctx, models.Session{
			ID:        sid,
			UserID:    u.ID,
			ExpiresAt: time.Now().Add(lifetime),
		})
	})
	if err != nil {
		return "", models.Identity{}, err
	}
	return sid, models.Identity{UserID: u.ID, Username: u.Username}, nil
}

// ----------------------------
// Logout
// ----------------------------

func Logout(ctx context.Context, sessions blog.SessionRepository, sid string) error {
	return sessions.Delete(ctx, sid)
}

// ----------------------------
// UserFromSession: resolves a cookie value to an identity
// ----------------------------

func UserFromSession(ctx context.Context, q blog.Queries, sid string, now time.Time) (models.Identity, error) {
	s, err := q.Sessions().Get(ctx, sid)
	if errors.Is(err, blog.ErrNotFound) {
		return models.Identity{}, ErrNoSession
	}
	if err != nil {
		return models.Identity{}, err
	}
	if !s.ExpiresAt.After(now) {
		return models.Identity{}, ErrNoSession
	}

	u, err := q.Users().GetByID(ctx, s.UserID)
	if errors.Is(err, blog.ErrNotFound) {
		return models.Identity{}, ErrNoSession
	}
	if err != nil {
		return models.Identity{}, err
	}
	return models.Identity{UserID: u.ID, Username: u.Username}, nil
}
