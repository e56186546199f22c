package postgres

import (
	"context"
	"fmt"

	"blog/internal/models"
)

type commentRepo struct{ q querier }

const commentSelect = `SELECT c.id, c.body, c.created, c.author_id, u.username, c.post_id FROM comment c JOIN users u ON u.id = c.author_id`

func (r commentRepo) List(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := r.q.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = $1 ORDER BY c.created DESC, c.id DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var out []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Body, &c.Created, &c.AuthorID, &c.Author, &c.PostID); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r commentRepo) Count(ctx context.Context, postID int64) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM comment WHERE post_id = $1`, postID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}

func (r commentRepo) Get(ctx context.Context, id int64) (models.Comment, error) {
	var c models.Comment
	err := r.q.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Body, &c.Created, &c.AuthorID, &c.Author, &c.PostID)
	if err != nil {
		return models.Comment{}, notFound(err)
	}
	return c, nil
}

func (r commentRepo) Create(ctx context.Context, c models.Comment) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO comment (body, author_id, post_id, created) VALUES ($1, $2, $3, COALESCE($4, now())) RETURNING id`,
		c.Body, c.AuthorID, c.PostID, createdArg(c.Created),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}

func (r commentRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM comment WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}

func (r commentRepo) DeleteForPost(ctx context.Context, postID int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM comment WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}
