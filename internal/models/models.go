package models

import "time"

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Identity is the authenticated requester. Handlers pass it explicitly to
// anything that needs to know who is acting.
type Identity struct {
	UserID   int64
	Username string
}

// Post.Tags holds the stored space-separated form; use tags.Parse to split it.
type Post struct {
	ID       int64
	Title    string
	Body     string
	AuthorID int64
	Author   string
	Created  time.Time
	Tags     string
}

type Comment struct {
	ID       int64
	Body     string
	AuthorID int64
	Author   string
	PostID   int64
	Created  time.Time
}
