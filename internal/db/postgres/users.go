package postgres

import (
	"context"
	"fmt"

	"blog/internal/blog"
	"blog/internal/models"
)

type userRepo struct{ q querier }

func (r userRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, blog.ErrUsernameTaken
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.get(ctx, `WHERE username = $1`, username)
}

func (r userRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r userRepo) get(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := r.q.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

type sessionRepo struct{ q querier }

func (r sessionRepo) Create(ctx context.Context, s models.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, expires_at) VALUES ($1, $2, $3)`,
		s.ID, s.UserID, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r sessionRepo) Get(ctx context.Context, id string) (models.Session, error) {
	var s models.Session
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return models.Session{}, notFound(err)
	}
	return s, nil
}

func (r sessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r sessionRepo) DeleteForUser(ctx context.Context, userID int64) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
