package blog

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"blog/internal/models"
)

// PageSize is the number of posts shown per list page.
const PageSize = 5

// Filter selects posts for the list page. Empty Tag and Search match
// everything.
type Filter struct {
	Tag    string
	Search string
	Offset int
}

// MaxOffset keeps NextOffset representable.
const MaxOffset = math.MaxInt - PageSize

// ParseOffset reads the start query parameter. Malformed or negative input
// yields 0; larger values are clamped to MaxOffset.
func ParseOffset(raw string) int {
	n, err := strconv.Atoi(raw)
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return MaxOffset
	}
	if err != nil || n < 0 {
		return 0
	}
	return min(n, MaxOffset)
}

// TagUnmatchable reports a tag that can never equal a stored token because it
// contains the separator.
func (f Filter) TagUnmatchable() bool {
	return strings.Contains(f.Tag, " ")
}

// Page is one window of the filtered post list.
//
// LastIndex is the zero-based index of the last matching post (count - 1),
// so it is -1 when nothing matches.
type Page struct {
	Posts     []models.Post
	Offset    int
	LastIndex int
}

func (p Page) HasPrev() bool { return p.Offset > 0 }

func (p Page) PrevOffset() int {
	if p.Offset-PageSize < 0 {
		return 0
	}
	return p.Offset - PageSize
}

func (p Page) HasNext() bool { return p.Offset <= p.LastIndex-PageSize }

func (p Page) NextOffset() int { return p.Offset + PageSize }

// Total is the number of posts matching the filter across all pages.
func (p Page) Total() int { return p.LastIndex + 1 }
