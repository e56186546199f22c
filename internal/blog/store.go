package blog

import (
	"context"

	"blog/internal/models"
)

type PostRepository interface {
	// List returns the requested page and the last index (matching count - 1).
	List(ctx context.Context, f Filter) ([]models.Post, int, error)
	Get(ctx context.Context, id int64) (models.Post, error)
	Create(ctx context.Context, p models.Post) (int64, error)
	Update(ctx context.Context, id int64, title, body, tags string) error
	Delete(ctx context.Context, id int64) error
}

type CommentRepository interface {
	List(ctx context.Context, postID int64) ([]models.Comment, error)
	Count(ctx context.Context, postID int64) (int, error)
	Get(ctx context.Context, id int64) (models.Comment, error)
	Create(ctx context.Context, c models.Comment) (int64, error)
	Delete(ctx context.Context, id int64) error
	DeleteForPost(ctx context.Context, postID int64) error
}

type ReactionRepository interface {
	ReactorIDs(ctx context.Context, postID int64) (map[int64]struct{}, error)
	// Toggle flips membership of userID in the post's reactor set and
	// reports whether the user is a reactor afterwards.
	Toggle(ctx context.Context, postID, userID int64) (bool, error)
	DeleteForPost(ctx context.Context, postID int64) error
}

type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (int64, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, id int64) (models.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, s models.Session) error
	Get(ctx context.Context, id string) (models.Session, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID int64) error
}

// Queries groups the repositories bound to one connection or transaction.
type Queries interface {
	Posts() PostRepository
	Comments() CommentRepository
	Reactions() ReactionRepository
	Users() UserRepository
	Sessions() SessionRepository
}

// Store is the relational store. Queries on the Store itself run outside any
// transaction; WithTx commits every write made through q before returning nil.
type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close() error
}
