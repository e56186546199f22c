package postgres

import (
	"context"
	"fmt"
)

type reactionRepo struct{ q querier }

func (r reactionRepo) ReactorIDs(ctx context.Context, postID int64) (map[int64]struct{}, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT user_id FROM reaction WHERE post_id = $1`, postID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		out[uid] = struct{}{}
	}
	return out, rows.Err()
}

// Toggle deletes the reaction and inserts it only when nothing was deleted.
// The primary key keeps at most one row per (post, user) even when two
// toggles from the same user interleave.
func (r reactionRepo) Toggle(ctx context.Context, postID, userID int64) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM reaction WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO reaction (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, postID, userID); err != nil {
		return false, fmt.Errorf("insert reaction: %w", err)
	}
	return true, nil
}

func (r reactionRepo) DeleteForPost(ctx context.Context, postID int64) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM reaction WHERE post_id = $1`, postID); err != nil {
		return fmt.Errorf("delete reactions: %w", err)
	}
	return nil
}
