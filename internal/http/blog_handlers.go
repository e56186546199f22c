package httpx

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/images"
	"blog/internal/models"
)

// ------------------------------------------------------------------------------
// list
// ------------------------------------------------------------------------------

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)

	start := r.URL.Query().Get("start")
	if start == "" {
		start = r.URL.Query().Get("offset")
	}
	// chi matches on RawPath when set, leaving the param still escaped
	tag := chi.URLParam(r, "tag")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(tag); err == nil {
			tag = unescaped
		}
	}
	f := blog.Filter{
		Tag:    tag,
		Search: r.URL.Query().Get("search"),
		Offset: blog.ParseOffset(start),
	}

	page, err := blog.ListPosts(ctx, s.Store.Posts(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := pageData{Viewer: viewer, Filter: f, BasePath: basePath(f.Tag), Total: page.Total()}
	for _, p := range page.Posts {
		vm, err := s.postView(ctx, s.Store, p, viewer, true)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		data.Posts = append(data.Posts, vm)
	}
	if page.HasPrev() {
		data.PrevURL = pageURL(f, page.PrevOffset())
	}
	if page.HasNext() {
		data.NextURL = pageURL(f, page.NextOffset())
	}
	s.render(w, r, http.StatusOK, "index.html", data)
}

// ------------------------------------------------------------------------------
// read + comment
// ------------------------------------------------------------------------------

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.readPage(r, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "read.html", data)
}

func (s *Server) readPage(r *http.Request, id int64) (pageData, error) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)

	p, err := blog.GetPost(ctx, s.Store.Posts(), id, viewer, false)
	if err != nil {
		return pageData{}, err
	}
	vm, err := s.postView(ctx, s.Store, p, viewer, false)
	if err != nil {
		return pageData{}, err
	}
	comments, err := s.Store.Comments().List(ctx, id)
	if err != nil {
		return pageData{}, err
	}

	data := pageData{Viewer: viewer, Post: &vm}
	for _, c := range comments {
		data.Comments = append(data.Comments, commentVM{Comment: c, Mine: isMine(viewer, c.AuthorID)})
	}
	return data, nil
}

// handleComment needs an identity to attribute the comment to, so anonymous
// requests are sent to log in without writing anything.
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	viewer := auth.IdentityFrom(ctx)
	if viewer == nil {
		s.fail(w, r, blog.ErrUnauthenticated)
		return
	}
	if _, err := blog.GetPost(ctx, s.Store.Posts(), id, viewer, false); err != nil {
		s.fail(w, r, err)
		return
	}

	body := r.FormValue("body")
	if err := blog.ValidateComment(body); err != nil {
		data, derr := s.readPage(r, id)
		if derr != nil {
			s.fail(w, r, derr)
			return
		}
		data.Flash = blog.Message(err)
		s.render(w, r, http.StatusUnprocessableEntity, "read.html", data)
		return
	}

	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		_, err := blog.CreateComment(ctx, q.Comments(), id, *viewer, body)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.RecordCommentCreated(ctx)
	}
	http.Redirect(w, r, postPath(id), http.StatusFound)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := blog.GetComment(ctx, s.Store.Comments(), id, auth.IdentityFrom(ctx), true)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		return q.Comments().Delete(ctx, id)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, postPath(c.PostID), http.StatusFound)
}

// ------------------------------------------------------------------------------
// create / update / delete
// ------------------------------------------------------------------------------

func (s *Server) handleCreateForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "create.html", pageData{Viewer: auth.IdentityFrom(r.Context())})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)

	form, up, err := s.readPostForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if up != nil {
		defer up.file.Close()
	}
	if err := validatePostForm(form, up); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "create.html",
			pageData{Viewer: viewer, Flash: blog.Message(err), Form: form})
		return
	}

	var id int64
	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		var err error
		id, err = blog.CreatePost(ctx, q.Posts(), *viewer, form.Title, form.Body, form.Tags)
		if err != nil {
			return err
		}
		if up != nil {
			return s.Images.Save(id, up.name, up.file)
		}
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.RecordPostCreated(ctx)
	}
	s.Log.Infow("Post created", "post_id", id, "user_id", viewer.UserID)
	http.Redirect(w, r, postPath(id), http.StatusFound)
}

func (s *Server) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)
	vm, err := s.ownedPost(r, viewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "update.html", pageData{
		Viewer: viewer,
		Post:   &vm,
		Form:   formVM{Title: vm.Title, Body: vm.Body, Tags: vm.Tags},
	})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)
	vm, err := s.ownedPost(r, viewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	form, up, err := s.readPostForm(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if up != nil {
		defer up.file.Close()
	}
	if err := validatePostForm(form, up); err != nil {
		s.render(w, r, http.StatusUnprocessableEntity, "update.html",
			pageData{Viewer: viewer, Flash: blog.Message(err), Post: &vm, Form: form})
		return
	}

	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		return blog.UpdatePost(ctx, q.Posts(), vm.ID, form.Title, form.Body, form.Tags)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if up != nil {
		if err := s.replaceImage(vm.ID, up); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	http.Redirect(w, r, postPath(vm.ID), http.StatusFound)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := blog.GetPost(ctx, s.Store.Posts(), id, viewer, true); err != nil {
		s.fail(w, r, err)
		return
	}

	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		return blog.DeletePost(ctx, q, id)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Images.Remove(id); err != nil {
		s.Log.Errorw("Failed to remove post images", "post_id", id, "error", err)
	}
	s.Log.Infow("Post deleted", "post_id", id, "user_id", viewer.UserID)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) replaceImage(id int64, up *upload) error {
	if err := s.Images.Remove(id); err != nil {
		return err
	}
	return s.Images.Save(id, up.name, up.file)
}

func (s *Server) ownedPost(r *http.Request, viewer *models.Identity) (postVM, error) {
	id, err := pathID(r)
	if err != nil {
		return postVM{}, err
	}
	p, err := blog.GetPost(r.Context(), s.Store.Posts(), id, viewer, true)
	if err != nil {
		return postVM{}, err
	}
	return s.postView(r.Context(), s.Store, p, viewer, false)
}

// ------------------------------------------------------------------------------
// reactions
// ------------------------------------------------------------------------------

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := auth.IdentityFrom(ctx)
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var on bool
	err = s.Store.WithTx(ctx, func(q blog.Queries) error {
		if _, err := blog.GetPost(ctx, q.Posts(), id, viewer, false); err != nil {
			return err
		}
		var err error
		on, err = q.Reactions().Toggle(ctx, id, viewer.UserID)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.Metrics != nil {
		s.Metrics.RecordReactionToggled(ctx, on)
	}
	http.Redirect(w, r, postPath(id), http.StatusFound)
}

// ------------------------------------------------------------------------------
// images
// ------------------------------------------------------------------------------

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ext, ok := strings.CutPrefix(chi.URLParam(r, "file"), "image")
	if !ok || !images.IsAllowedExtension(ext) {
		http.NotFound(w, r)
		return
	}

	f, err := s.Images.Open(id, ext)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", images.ContentType(ext))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// ------------------------------------------------------------------------------
// helpers
// ------------------------------------------------------------------------------

type upload struct {
	name string
	file io.ReadCloser
}

// readPostForm parses a url-encoded or multipart post form. up is nil when no
// file with a name was submitted.
func (s *Server) readPostForm(w http.ResponseWriter, r *http.Request) (formVM, *upload, error) {
	if max := s.Cfg.Images.MaxUploadBytes; max > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, max)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return formVM{}, nil, &badRequest{err}
	}
	form := formVM{
		Title: r.FormValue("title"),
		Body:  r.FormValue("body"),
		Tags:  r.FormValue("tags"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return form, nil, nil
	case err != nil:
		return formVM{}, nil, &badRequest{err}
	}
	if header.Filename == "" {
		_ = file.Close()
		return form, nil, nil
	}
	return form, &upload{name: header.Filename, file: file}, nil
}

func validatePostForm(form formVM, up *upload) error {
	if err := blog.ValidatePost(form.Title); err != nil {
		return err
	}
	if up != nil && !images.IsAllowedExtension(up.name) {
		return blog.InvalidUpload(images.Allowed)
	}
	return nil
}

func postPath(id int64) string { return "/" + strconv.FormatInt(id, 10) }
