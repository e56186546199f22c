// Package memory is an in-process blog.Store for development and tests.
// Transactions hold the store lock for their whole duration and restore a
// snapshot when fn fails.
package memory

import (
	"context"
	"sync"
	"time"

	"blog/internal/blog"
	"blog/internal/models"
)

type state struct {
	users     map[int64]models.User
	sessions  map[string]models.Session
	posts     map[int64]models.Post
	comments  map[int64]models.Comment
	reactions map[int64]map[int64]struct{} // post id -> user ids

	nextUser    int64
	nextPost    int64
	nextComment int64
}

func newState() *state {
	return &state{
		users:     make(map[int64]models.User),
		sessions:  make(map[string]models.Session),
		posts:     make(map[int64]models.Post),
		comments:  make(map[int64]models.Comment),
		reactions: make(map[int64]map[int64]struct{}),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.posts {
		c.posts[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	for pid, set := range s.reactions {
		cp := make(map[int64]struct{}, len(set))
		for uid := range set {
			cp[uid] = struct{}{}
		}
		c.reactions[pid] = cp
	}
	c.nextUser, c.nextPost, c.nextComment = s.nextUser, s.nextPost, s.nextComment
	return c
}

type Store struct {
	mu     sync.Mutex
	st     *state
	now    func() time.Time
	closed bool
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

// withClock replaces the timestamp used when a record arrives without one.
func (s *Store) withClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Posts() blog.PostRepository         { return postRepo{s.auto()} }
func (s *Store) Comments() blog.CommentRepository   { return commentRepo{s.auto()} }
func (s *Store) Reactions() blog.ReactionRepository { return reactionRepo{s.auto()} }
func (s *Store) Users() blog.UserRepository         { return userRepo{s.auto()} }
func (s *Store) Sessions() blog.SessionRepository   { return sessionRepo{s.auto()} }

func (s *Store) WithTx(ctx context.Context, fn func(q blog.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(txQueries{conn{s: s, locked: true}}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) auto() conn { return conn{s: s} }

// conn runs a repository call against the current state, taking the lock
// unless it is already held by an enclosing transaction.
type conn struct {
	s      *Store
	locked bool
}

func (c conn) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.locked {
		c.s.mu.Lock()
		defer c.s.mu.Unlock()
	}
	return fn(c.s.st)
}

type txQueries struct{ c conn }

func (q txQueries) Posts() blog.PostRepository         { return postRepo{q.c} }
func (q txQueries) Comments() blog.CommentRepository   { return commentRepo{q.c} }
func (q txQueries) Reactions() blog.ReactionRepository { return reactionRepo{q.c} }
func (q txQueries) Users() blog.UserRepository         { return userRepo{q.c} }
func (q txQueries) Sessions() blog.SessionRepository   { return sessionRepo{q.c} }
