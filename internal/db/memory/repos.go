package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"blog/internal/blog"
	"blog/internal/models"
)

var errClosed = errors.New("memory store closed")

// ---- posts ----

type postRepo struct{ c conn }

func (r postRepo) List(ctx context.Context, f blog.Filter) ([]models.Post, int, error) {
	var out []models.Post
	var last int
	err := r.c.do(ctx, func(st *state) error {
		matched := make([]models.Post, 0, len(st.posts))
		for _, p := range st.posts {
			if !matches(p, f) {
				continue
			}
			p.Author = st.users[p.AuthorID].Username
			matched = append(matched, p)
		}
		sort.Slice(matched, func(i, j int) bool {
			if !matched[i].Created.Equal(matched[j].Created) {
				return matched[i].Created.After(matched[j].Created)
			}
			return matched[i].ID > matched[j].ID
		})
		last = len(matched) - 1

		start := f.Offset
		if start < 0 {
			start = 0
		}
		if start > len(matched) {
			start = len(matched)
		}
		end := start + blog.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		out = append([]models.Post(nil), matched[start:end]...)
		return nil
	})
	return out, last, err
}

// matches mirrors the SQL filter: tag is a whole-token match via space
// sentinels, search a case-insensitive title substring.
func matches(p models.Post, f blog.Filter) bool {
	if f.TagUnmatchable() {
		return false
	}
	if f.Tag != "" && !strings.Contains(" "+p.Tags+" ", " "+f.Tag+" ") {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (r postRepo) Get(ctx context.Context, id int64) (models.Post, error) {
	var p models.Post
	err := r.c.do(ctx, func(st *state) error {
		found, ok := st.posts[id]
		if !ok {
			return blog.ErrNotFound
		}
		found.Author = st.users[found.AuthorID].Username
		p = found
		return nil
	})
	return p, err
}

func (r postRepo) Create(ctx context.Context, p models.Post) (int64, error) {
	var id int64
	err := r.c.do(ctx, func(st *state) error {
		if _, ok := st.users[p.AuthorID]; !ok {
			return errors.New("memory: post author does not exist")
		}
		st.nextPost++
		p.ID = st.nextPost
		if p.Created.IsZero() {
			p.Created = r.c.s.now()
		}
		p.Author = ""
		st.posts[p.ID] = p
		id = p.ID
		return nil
	})
	return id, err
}

func (r postRepo) Update(ctx context.Context, id int64, title, body, tags string) error {
	return r.c.do(ctx, func(st *state) error {
		p, ok := st.posts[id]
		if !ok {
			return blog.ErrNotFound
		}
		p.Title, p.Body, p.Tags = title, body, tags
		st.posts[id] = p
		return nil
	})
}

func (r postRepo) Delete(ctx context.Context, id int64) error {
	return r.c.do(ctx, func(st *state) error {
		delete(st.posts, id)
		return nil
	})
}

// ---- comments ----

type commentRepo struct{ c conn }

func (r commentRepo) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	var out []models.Comment
	err := r.c.do(ctx, func(st *state) error {
		for _, c := range st.comments {
			if c.PostID != postID {
				continue
			}
			c.Author = st.users[c.AuthorID].Username
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool {
			if !out[i].Created.Equal(out[j].Created) {
				return out[i].Created.After(out[j].Created)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (r commentRepo) Count(ctx context.Context, postID int64) (int, error) {
	n := 0
	err := r.c.do(ctx, func(st *state) error {
		for _, c := range st.comments {
			if c.PostID == postID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r commentRepo) Get(ctx context.Context, id int64) (models.Comment, error) {
	var c models.Comment
	err := r.c.do(ctx, func(st *state) error {
		found, ok := st.comments[id]
		if !ok {
			return blog.ErrNotFound
		}
		found.Author = st.users[found.AuthorID].Username
		c = found
		return nil
	})
	return c, err
}

func (r commentRepo) Create(ctx context.Context, c models.Comment) (int64, error) {
	var id int64
	err := r.c.do(ctx, func(st *state) error {
		if _, ok := st.posts[c.PostID]; !ok {
			return blog.ErrNotFound
		}
		st.nextComment++
		c.ID = st.nextComment
		if c.Created.IsZero() {
			c.Created = r.c.s.now()
		}
		c.Author = ""
		st.comments[c.ID] = c
		id = c.ID
		return nil
	})
	return id, err
}

func (r commentRepo) Delete(ctx context.Context, id int64) error {
	return r.c.do(ctx, func(st *state) error {
		delete(st.comments, id)
		return nil
	})
}

func (r commentRepo) DeleteForPost(ctx context.Context, postID int64) error {
	return r.c.do(ctx, func(st *state) error {
		for id, c := range st.comments {
			if c.PostID == postID {
				delete(st.comments, id)
			}
		}
		return nil
	})
}

// ---- reactions ----

type reactionRepo struct{ c conn }

func (r reactionRepo) ReactorIDs(ctx context.Context, postID int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	err := r.c.do(ctx, func(st *state) error {
		for uid := range st.reactions[postID] {
			out[uid] = struct{}{}
		}
		return nil
	})
	return out, err
}

func (r reactionRepo) Toggle(ctx context.Context, postID, userID int64) (bool, error) {
	var on bool
	err := r.c.do(ctx, func(st *state) error {
		set := st.reactions[postID]
		if _, ok := set[userID]; ok {
			delete(set, userID)
			if len(set) == 0 {
				delete(st.reactions, postID)
			}
			return nil
		}
		if set == nil {
			set = make(map[int64]struct{})
			st.reactions[postID] = set
		}
		set[userID] = struct{}{}
		on = true
		return nil
	})
	return on, err
}

func (r reactionRepo) DeleteForPost(ctx context.Context, postID int64) error {
	return r.c.do(ctx, func(st *state) error {
		delete(st.reactions, postID)
		return nil
	})
}

// ---- users ----

type userRepo struct{ c conn }

func (r userRepo) Create(ctx context.Context, username, passwordHash string) (int64, error) {
	var id int64
	err := r.c.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				return blog.ErrUsernameTaken
			}
		}
		st.nextUser++
		id = st.nextUser
		st.users[id] = models.User{
			ID:           id,
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    r.c.s.now(),
		}
		return nil
	})
	return id, err
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var out models.User
	err := r.c.do(ctx, func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				out = u
				return nil
			}
		}
		return blog.ErrNotFound
	})
	return out, err
}

func (r userRepo) GetByID(ctx context.Context, id int64) (models.User, error) {
	var out models.User
	err := r.c.do(ctx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return blog.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

// ---- sessions ----

type sessionRepo struct{ c conn }

func (r sessionRepo) Create(ctx context.Context, s models.Session) error {
	return r.c.do(ctx, func(st *state) error {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = r.c.s.now()
		}
		st.sessions[s.ID] = s
		return nil
	})
}

func (r sessionRepo) Get(ctx context.Context, id string) (models.Session, error) {
	var out models.Session
	err := r.c.do(ctx, func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return blog.ErrNotFound
		}
		out = s
		return nil
	})
	return out, err
}

func (r sessionRepo) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, func(st *state) error {
		delete(st.sessions, id)
		return nil
	})
}

func (r sessionRepo) DeleteForUser(ctx context.Context, userID int64) error {
	return r.c.do(ctx, func(st *state) error {
		for id, s := range st.sessions {
			if s.UserID == userID {
				delete(st.sessions, id)
			}
		}
		return nil
	})
}
