package util

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"

	"blog/internal/tags"
)

const layout = "layout.html"

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"tags": tags.Parse,
}

// Renderer holds every page parsed together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses dir/layout.html with each other *.html file in dir.
func NewRenderer(fsys fs.FS, dir string) (*Renderer, error) {
	names, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := path.Base(name)
		if page == layout {
			continue
		}
		t, err := template.New(page).Funcs(funcs).ParseFS(fsys, path.Join(dir, layout), name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
