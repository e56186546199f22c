package postgres

import (
	"context"
	"fmt"

	"blog/internal/blog"
	"blog/internal/models"
)

type postRepo struct{ q querier }

func (r postRepo) List(ctx context.Context, f blog.Filter) ([]models.Post, int, error) {
	pageSQL, pageArgs, countSQL, countArgs := listQueries(f)

	var total int
	if err := r.q.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Created, &p.AuthorID, &p.Author, &p.Tags); err != nil {
			return nil, 0, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return out, total - 1, nil
}

func (r postRepo) Get(ctx context.Context, id int64) (models.Post, error) {
	var p models.Post
	err := r.q.QueryRowContext(ctx,
		`SELECT `+postColumns+postFrom+` WHERE p.id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.Body, &p.Created, &p.AuthorID, &p.Author, &p.Tags)
	if err != nil {
		return models.Post{}, notFound(err)
	}
	return p, nil
}

func (r postRepo) Create(ctx context.Context, p models.Post) (int64, error) {
	var id int64
	err := r.q.QueryRowContext(ctx,
		`INSERT INTO post (title, body, author_id, tags, created) VALUES ($1, $2, $3, $4, COALESCE($5, now())) RETURNING id`,
		p.Title, p.Body, p.AuthorID, p.Tags, createdArg(p.Created),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	return id, nil
}

func (r postRepo) Update(ctx context.Context, id int64, title, body, tags string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE post SET title = $1, body = $2, tags = $3 WHERE id = $4`,
		title, body, tags, id,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return blog.ErrNotFound
	}
	return nil
}

func (r postRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM post WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
