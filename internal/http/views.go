package httpx

import (
	"context"
	"net/url"
	"path/filepath"
	"strconv"

	"blog/internal/blog"
	"blog/internal/models"
	"blog/internal/tags"
)

type pageData struct {
	Flash  string
	Viewer *models.Identity

	// list page
	Filter   blog.Filter
	BasePath string
	Posts    []postVM
	Total    int
	PrevURL  string
	NextURL  string

	// detail and edit pages
	Post     *postVM
	Comments []commentVM

	Form formVM
}

type postVM struct {
	models.Post
	TagList      []string
	Likes        int
	Liked        bool
	CommentCount int
	Image        string // extension of the stored image, "" if none
	Mine         bool
}

type commentVM struct {
	models.Comment
	Mine bool
}

type formVM struct {
	Title    string
	Body     string
	Tags     string
	Username string
}

func isMine(viewer *models.Identity, authorID int64) bool {
	return viewer != nil && viewer.UserID == authorID
}

// postView decorates p with its reactions and image. Comment counts are only
// loaded when withCount is set.
func (s *Server) postView(ctx context.Context, q blog.Queries, p models.Post, viewer *models.Identity, withCount bool) (postVM, error) {
	vm := postVM{Post: p, TagList: tags.Parse(p.Tags), Mine: isMine(viewer, p.AuthorID)}

	reactors, err := q.Reactions().ReactorIDs(ctx, p.ID)
	if err != nil {
		return postVM{}, err
	}
	vm.Likes = len(reactors)
	if viewer != nil {
		_, vm.Liked = reactors[viewer.UserID]
	}

	if withCount {
		if vm.CommentCount, err = q.Comments().Count(ctx, p.ID); err != nil {
			return postVM{}, err
		}
	}

	img, err := s.Images.Find(p.ID)
	if err != nil {
		return postVM{}, err
	}
	if img != "" {
		vm.Image = filepath.Ext(img)
	}
	return vm, nil
}

func basePath(tag string) string {
	if tag == "" {
		return "/"
	}
	return "/tag/" + url.PathEscape(tag)
}

// pageURL links to another window of the same listing.
func pageURL(f blog.Filter, offset int) string {
	v := url.Values{}
	v.Set("start", strconv.Itoa(offset))
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	return basePath(f.Tag) + "?" + v.Encode()
}
