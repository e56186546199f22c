// Package postgres implements blog.Store on database/sql with the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"blog/internal/blog"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct{ q querier }

func (q queries) Posts() blog.PostRepository         { return postRepo{q.q} }
func (q queries) Comments() blog.CommentRepository   { return commentRepo{q.q} }
func (q queries) Reactions() blog.ReactionRepository { return reactionRepo{q.q} }
func (q queries) Users() blog.UserRepository         { return userRepo{q.q} }
func (q queries) Sessions() blog.SessionRepository   { return sessionRepo{q.q} }

type Store struct {
	queries
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{queries: queries{db}, db: db}
}

// WithTx runs fn in a transaction and commits it when fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(q blog.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(queries{tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return blog.ErrNotFound
	}
	return err
}

// createdArg binds a zero time as NULL so the column default applies.
func createdArg(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
