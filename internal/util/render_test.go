package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/web"
)

func TestRenderUsesLayout(t *testing.T) {
	fsys := fstest.MapFS{
		"t/layout.html": {Data: []byte(`{{define "base"}}<main>{{block "content" .}}{{end}}</main>{{end}}`)},
		"t/hello.html":  {Data: []byte(`{{define "content"}}hi {{.Name}} {{date .When}} {{range tags .Tags}}[{{.}}]{{end}}{{end}}`)},
	}
	r, err := NewRenderer(fsys, "t")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusTeapot, "hello.html", map[string]any{
		"Name": "<b>",
		"When": time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		"Tags": " a  b",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<main>hi &lt;b&gt; 2018-01-01 [a][b]</main>", rec.Body.String())
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := NewRenderer(fstest.MapFS{"t/layout.html": {Data: []byte(`{{define "base"}}{{end}}`)}}, "t")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "missing.html", nil))
	assert.Empty(t, rec.Body.String())
}

func TestEmbeddedTemplatesParse(t *testing.T) {
	r, err := NewRenderer(web.Templates, "templates")
	require.NoError(t, err)
	for _, page := range []string{"index.html", "read.html", "create.html", "update.html", "login.html", "register.html"} {
		assert.Contains(t, r.pages, page)
	}
}
