package postgres

import (
	"fmt"
	"strings"

	"blog/internal/blog"
)

const postColumns = `p.id, p.title, p.body, p.created, p.author_id, u.username, p.tags`

const postFrom = ` FROM post p JOIN users u ON u.id = p.author_id`

// filterClause renders the WHERE clause for f. Every user value is bound as
// a parameter; the returned SQL only contains placeholders.
func filterClause(f blog.Filter) (string, []any) {
	var (
		args  []any
		conds []string
	)
	// numbers the next placeholder $1, $2, ...
	nextArg := func() string { return fmt.Sprintf("$%d", len(args)+1) }

	if f.TagUnmatchable() {
		conds = append(conds, "FALSE")
	} else if f.Tag != "" {
		// space sentinels turn substring containment into whole-token match
		conds = append(conds, "POSITION(' ' || "+nextArg()+" || ' ' IN ' ' || p.tags || ' ') > 0")
		args = append(args, f.Tag)
	}
	if f.Search != "" {
		conds = append(conds, "POSITION(LOWER("+nextArg()+") IN LOWER(p.title)) > 0")
		args = append(args, f.Search)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// listQueries returns the page query and the count query for f.
func listQueries(f blog.Filter) (pageSQL string, pageArgs []any, countSQL string, countArgs []any) {
	where, args := filterClause(f)

	countSQL = "SELECT COUNT(*)" + postFrom + where
	countArgs = args

	pageArgs = append(append([]any(nil), args...), blog.PageSize, f.Offset)
	pageSQL = "SELECT " + postColumns + postFrom + where +
		fmt.Sprintf(" ORDER BY p.created DESC, p.id DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	return pageSQL, pageArgs, countSQL, countArgs
}
