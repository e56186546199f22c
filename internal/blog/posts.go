package blog

import (
	"context"

	"blog/internal/models"
	"blog/internal/tags"
)

const (
	msgTitleRequired   = "Title is required."
	msgMessageRequired = "Message is required."
)

// ValidatePost rejects an empty title; body and tags are free-form.
func ValidatePost(title string) error {
	if title == "" {
		return invalid(msgTitleRequired)
	}
	return nil
}

// ValidateComment rejects an empty comment body.
func ValidateComment(body string) error {
	if body == "" {
		return invalid(msgMessageRequired)
	}
	return nil
}

// GetPost loads a post with its author's username. With requireOwnership the
// viewer must be the author: a nil viewer gets ErrUnauthenticated and any
// other user ErrForbidden.
func GetPost(ctx context.Context, posts PostRepository, id int64, viewer *models.Identity, requireOwnership bool) (models.Post, error) {
	p, err := posts.Get(ctx, id)
	if err != nil {
		return models.Post{}, err
	}
	if requireOwnership {
		if err := checkOwner(viewer, p.AuthorID); err != nil {
			return models.Post{}, err
		}
	}
	return p, nil
}

// GetComment is GetPost for comments.
func GetComment(ctx context.Context, comments CommentRepository, id int64, viewer *models.Identity, requireOwnership bool) (models.Comment, error) {
	c, err := comments.Get(ctx, id)
	if err != nil {
		return models.Comment{}, err
	}
	if requireOwnership {
		if err := checkOwner(viewer, c.AuthorID); err != nil {
			return models.Comment{}, err
		}
	}
	return c, nil
}

func checkOwner(viewer *models.Identity, authorID int64) error {
	if viewer == nil {
		return ErrUnauthenticated
	}
	if viewer.UserID != authorID {
		return ErrForbidden
	}
	return nil
}

// CreatePost validates before touching the store. Tags are stored normalized.
func CreatePost(ctx context.Context, posts PostRepository, author models.Identity, title, body, tagText string) (int64, error) {
	if err := ValidatePost(title); err != nil {
		return 0, err
	}
	return posts.Create(ctx, models.Post{
		Title:    title,
		Body:     body,
		AuthorID: author.UserID,
		Tags:     tags.Normalize(tagText),
	})
}

// UpdatePost assumes the caller already authorized via GetPost(id, true).
func UpdatePost(ctx context.Context, posts PostRepository, id int64, title, body, tagText string) error {
	if err := ValidatePost(title); err != nil {
		return err
	}
	return posts.Update(ctx, id, title, body, tags.Normalize(tagText))
}

// DeletePost removes a post together with its comments and reactions. The
// image file is the caller's to remove once q has committed.
func DeletePost(ctx context.Context, q Queries, id int64) error {
	if err := q.Comments().DeleteForPost(ctx, id); err != nil {
		return err
	}
	if err := q.Reactions().DeleteForPost(ctx, id); err != nil {
		return err
	}
	return q.Posts().Delete(ctx, id)
}

// CreateComment validates body and attaches the comment to postID. A missing
// post surfaces as ErrNotFound from the repository.
func CreateComment(ctx context.Context, comments CommentRepository, postID int64, author models.Identity, body string) (int64, error) {
	if err := ValidateComment(body); err != nil {
		return 0, err
	}
	return comments.Create(ctx, models.Comment{
		Body:     body,
		AuthorID: author.UserID,
		PostID:   postID,
	})
}

// ListPosts runs the filtered query and packs the result into a Page.
func ListPosts(ctx context.Context, posts PostRepository, f Filter) (Page, error) {
	f.Offset = max(0, min(f.Offset, MaxOffset))
	items, last, err := posts.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Posts: items, Offset: f.Offset, LastIndex: last}, nil
}
