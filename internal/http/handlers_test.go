package httpx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blog/internal/app"
	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/db/memory"
	"blog/internal/images"
	"blog/internal/metrics"
	"blog/internal/models"
)

type testEnv struct {
	t      *testing.T
	srv    *Server
	store  *memory.Store
	fs     afero.Fs
	images *images.Store
}

// newTestEnv seeds users test/test and other/other, post 1 by test with one
// comment, one reaction from test and the image 1.gif.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	created := time.Date(2018, 1, 1, 12, 0, 0, 0, time.UTC)
	store := memory.New()

	testID, err := auth.Register(ctx, store.Users(), "test", "test")
	require.NoError(t, err)
	_, err = auth.Register(ctx, store.Users(), "other", "other")
	require.NoError(t, err)

	pid, err := store.Posts().Create(ctx, models.Post{Title: "test title", Body: "test\nbody", AuthorID: testID, Tags: "test_tag", Created: created})
	require.NoError(t, err)
	_, err = store.Comments().Create(ctx, models.Comment{Body: "test comment", AuthorID: testID, PostID: pid, Created: created})
	require.NoError(t, err)
	_, err = store.Reactions().Toggle(ctx, pid, testID)
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	imgs, err := images.New(fs, "/images")
	require.NoError(t, err)
	require.NoError(t, imgs.Save(pid, "1.gif", strings.NewReader("GIF89a")))

	m, metricsHandler, err := metrics.Setup("blog-test")
	require.NoError(t, err)

	cfg := app.Config{
		Env:      "dev",
		Images:   app.ImagesConfig{Dir: "/images", MaxUploadBytes: 1 << 20},
		Security: app.SecurityConfig{SessionLifetime: time.Hour},
	}
	srv, err := NewServer(store, imgs, cfg, zap.NewNop().Sugar(), m, metricsHandler)
	require.NoError(t, err)

	return &testEnv{t: t, srv: srv, store: store, fs: fs, images: imgs}
}

func (e *testEnv) request(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return e.request(httptest.NewRequest(http.MethodGet, target, nil), cookie)
}

func (e *testEnv) post(target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.request(req, cookie)
}

func (e *testEnv) postMultipart(target string, fields map[string]string, filename string, content []byte, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(e.t, err)
	_, err = fw.Write(content)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.request(req, cookie)
}

func (e *testEnv) login(username, password string) *http.Cookie {
	e.t.Helper()
	rec := e.post("/auth/login", url.Values{"username": {username}, "password": {password}}, nil)
	require.Equal(e.t, http.StatusFound, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	e.t.Fatal("no session cookie set")
	return nil
}

func (e *testEnv) postCount() int {
	page, err := blog.ListPosts(context.Background(), e.store.Posts(), blog.Filter{})
	require.NoError(e.t, err)
	return page.Total()
}

func TestIndex(t *testing.T) {
	e := newTestEnv(t)

	body := e.get("/", nil).Body.String()
	assert.Contains(t, body, "Log In")
	assert.Contains(t, body, "Register")
	assert.Contains(t, body, "🤍&nbsp;1")
	assert.Contains(t, body, "💬&nbsp;1")

	cookie := e.login("test", "test")
	body = e.get("/", cookie).Body.String()
	assert.Contains(t, body, "Log Out")
	assert.Contains(t, body, "test title")
	assert.Contains(t, body, "by test on 2018-01-01")
	assert.Contains(t, body, "test\nbody")
	assert.Contains(t, body, `href="/1/update"`)
	assert.Contains(t, body, "💙&nbsp;1")
}

func TestShowTagged(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	rec := e.post("/create", url.Values{"title": {"untagged post"}, "tags": {"other_tag"}}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)

	body := e.get("/tag/test_tag", nil).Body.String()
	assert.Contains(t, body, "with tag “test_tag”")
	assert.Contains(t, body, "test title")
	assert.NotContains(t, body, "untagged post")

	body = e.get("/tag/test", nil).Body.String()
	assert.NotContains(t, body, "test title")
}

func TestTagMatchesSingleTokenOnly(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	for title, tagText := range map[string]string{"spaced post": "a bb", "upper post": "A"} {
		rec := e.post("/create", url.Values{"title": {title}, "tags": {tagText}}, cookie)
		require.Equal(t, http.StatusFound, rec.Code)
	}

	body := e.get("/tag/bb", nil).Body.String()
	assert.Contains(t, body, "spaced post")

	body = e.get("/tag/a%20bb", nil).Body.String()
	assert.Contains(t, body, "with tag “a bb”")
	assert.NotContains(t, body, "spaced post")
	assert.Contains(t, body, "No posts found.")

	// the literal tag "%41" is decoded once, never down to "A"
	body = e.get("/tag/%2541", nil).Body.String()
	assert.Contains(t, body, "with tag “%41”")
	assert.NotContains(t, body, "upper post")
}

func TestSearch(t *testing.T) {
	e := newTestEnv(t)

	body := e.get("/?search=TITLE", nil).Body.String()
	assert.Contains(t, body, `href="/1"`)

	body = e.get("/?search=zzz", nil).Body.String()
	assert.NotContains(t, body, `href="/1"`)
	assert.Contains(t, body, "No posts found.")
}

func TestPaginationLinks(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	for i := 0; i < 5; i++ {
		rec := e.post("/create", url.Values{"title": {fmt.Sprintf("p%d", i)}}, cookie)
		require.Equal(t, http.StatusFound, rec.Code)
	}

	first := e.get("/", nil).Body.String()
	assert.Contains(t, first, `href="/?start=5"`)
	assert.NotContains(t, first, "Previous")
	assert.NotContains(t, first, `href="/1"`)

	assert.Contains(t, first, "6 matching")

	second := e.get("/?start=5", nil).Body.String()
	assert.Contains(t, second, `href="/1"`)
	assert.Contains(t, second, `href="/?start=0"`)
	assert.NotContains(t, second, "Next")

	// malformed offsets fall back to the first page
	assert.Equal(t, first, e.get("/?start=-4", nil).Body.String())
	assert.Equal(t, first, e.get("/?start=abc", nil).Body.String())

	huge := e.get("/?start=9223372036854775807", nil).Body.String()
	assert.NotContains(t, huge, "Next")
	assert.NotContains(t, huge, "start=-")
	assert.Contains(t, huge, "Previous")
}

func TestLoginRequired(t *testing.T) {
	e := newTestEnv(t)
	for _, path := range []string{"/create", "/1/update", "/1/delete", "/1/like", "/delete_comment/1"} {
		rec := e.post(path, url.Values{}, nil)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/auth/login", rec.Header().Get("Location"), path)
	}
	rec := e.get("/create", nil)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestAuthorRequired(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("other", "other")

	assert.Equal(t, http.StatusForbidden, e.post("/1/update", url.Values{}, cookie).Code)
	assert.Equal(t, http.StatusForbidden, e.get("/1/update", cookie).Code)
	assert.Equal(t, http.StatusForbidden, e.post("/1/delete", url.Values{}, cookie).Code)
	assert.NotContains(t, e.get("/", cookie).Body.String(), `href="/1/update"`)
	assert.Equal(t, http.StatusForbidden, e.post("/delete_comment/1", url.Values{}, cookie).Code)

	p, err := e.store.Posts().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "test title", p.Title)
}

func TestExistsRequired(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	for _, path := range []string{"/3/update", "/3/delete", "/3/like", "/delete_comment/2", "/3/comment"} {
		assert.Equal(t, http.StatusNotFound, e.post(path, url.Values{"body": {"x"}}, cookie).Code, path)
	}
	assert.Equal(t, http.StatusNotFound, e.get("/3", nil).Code)
}

func TestCreate(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	assert.Equal(t, http.StatusOK, e.get("/create", cookie).Code)
	rec := e.post("/create", url.Values{"title": {"created"}, "body": {""}, "tags": {"  a  b "}}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/2", rec.Header().Get("Location"))
	assert.Equal(t, 2, e.postCount())

	p, err := e.store.Posts().Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "created", p.Title)
	assert.Equal(t, "a b", p.Tags)
}

func TestUpdate(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	assert.Equal(t, http.StatusOK, e.get("/1/update", cookie).Code)
	rec := e.post("/1/update", url.Values{"title": {"updated"}, "body": {""}, "tags": {""}}, cookie)
	assert.Equal(t, "/1", rec.Header().Get("Location"))

	p, err := e.store.Posts().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "updated", p.Title)

	// no new upload keeps the existing image
	found, err := e.images.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "1.gif", found)
}

func TestCreateUpdateValidate(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	for _, path := range []string{"/create", "/1/update"} {
		rec := e.post(path, url.Values{"title": {""}, "body": {""}, "tags": {""}}, cookie)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Title is required.", path)
	}
	assert.Equal(t, 1, e.postCount())
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	rec := e.post("/1/delete", url.Values{}, cookie)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	ctx := context.Background()
	_, err := e.store.Posts().Get(ctx, 1)
	assert.ErrorIs(t, err, blog.ErrNotFound)
	comments, err := e.store.Comments().List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, comments)
	reactors, err := e.store.Reactions().ReactorIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, reactors)
	ok, err := afero.Exists(e.fs, "/images/1.gif")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLike(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	ctx := context.Background()

	// test already likes post 1, so the first toggle removes it
	for i := 0; i < 2; i++ {
		rec := e.post("/1/like", url.Values{}, cookie)
		assert.Equal(t, "/1", rec.Header().Get("Location"))
		reactors, err := e.store.Reactions().ReactorIDs(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, reactors, i)
	}
}

func TestRead(t *testing.T) {
	e := newTestEnv(t)

	body := e.get("/1", nil).Body.String()
	assert.Contains(t, body, "test title")
	assert.Contains(t, body, "by test on 2018-01-01")
	assert.Contains(t, body, "test\nbody")
	assert.Contains(t, body, "🤍&nbsp;1")
	assert.Contains(t, body, "1 comments")
	assert.Contains(t, body, "test_tag")
	assert.Contains(t, body, `src="/1/image.gif"`)
	assert.NotContains(t, body, `action="/1/like"`)

	cookie := e.login("test", "test")
	body = e.get("/1", cookie).Body.String()
	assert.Contains(t, body, `href="/1/update"`)
	assert.Contains(t, body, `action="/1/like"`)
	assert.Contains(t, body, "💙&nbsp;1")
	assert.Contains(t, body, `action="/delete_comment/1"`)
}

func TestComment(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.post("/1/comment", url.Values{"body": {"anonymous"}}, nil)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	cookie := e.login("other", "other")
	rec = e.post("/1/comment", url.Values{"body": {"hello"}}, cookie)
	assert.Equal(t, "/1", rec.Header().Get("Location"))

	comments, err := e.store.Comments().List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "other", comments[0].Author)
}

func TestCommentValidate(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	rec := e.post("/1/comment", url.Values{"body": {""}}, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Message is required.")

	n, err := e.store.Comments().Count(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteComment(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	rec := e.post("/delete_comment/1", url.Values{}, cookie)
	assert.Equal(t, "/1", rec.Header().Get("Location"))

	_, err := e.store.Comments().Get(context.Background(), 1)
	assert.ErrorIs(t, err, blog.ErrNotFound)
}

func TestImageUpload(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	rec := e.postMultipart("/create", map[string]string{"title": "bad"}, "x.txt", []byte("text"), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Image must be one of")
	assert.Equal(t, 1, e.postCount())

	rec = e.postMultipart("/create", map[string]string{"title": "good"}, "x.png", []byte("pngdata"), cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/2", rec.Header().Get("Location"))

	img := e.get("/2/image.png", nil)
	require.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get("Content-Type"))
	data, err := io.ReadAll(img.Body)
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))

	assert.Equal(t, http.StatusNotFound, e.get("/2/image.gif", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.get("/2/photo.png", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.get("/9/image.png", nil).Code)
}

func TestUpdateReplacesImage(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")

	rec := e.postMultipart("/1/update", map[string]string{"title": "t"}, "x.exe", []byte("nope"), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	found, err := e.images.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "1.gif", found)

	rec = e.postMultipart("/1/update", map[string]string{"title": "t"}, "new.png", []byte("new"), cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	found, err = e.images.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "1.png", found)
	ok, err := afero.Exists(e.fs, "/images/1.gif")
	require.NoError(t, err)
	assert.False(t, ok)
}

// commitFails runs the callback then reports a failed commit.
type commitFails struct{ blog.Store }

func (c commitFails) WithTx(ctx context.Context, fn func(q blog.Queries) error) error {
	if err := c.Store.WithTx(ctx, fn); err != nil {
		return err
	}
	return errors.New("commit failed")
}

func TestUpdateKeepsImageWhenCommitFails(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login("test", "test")
	e.srv.Store = commitFails{e.store}

	rec := e.postMultipart("/1/update", map[string]string{"title": "t"}, "new.png", []byte("new"), cookie)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	found, err := e.images.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "1.gif", found)
}

func TestRegisterLoginLogout(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusOK, e.get("/auth/register", nil).Code)
	rec := e.post("/auth/register", url.Values{"username": {"new"}, "password": {"pw"}}, nil)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	rec = e.post("/auth/register", url.Values{"username": {"new"}, "password": {"pw"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "User new is already registered.")

	rec = e.post("/auth/register", url.Values{"username": {""}, "password": {"pw"}}, nil)
	assert.Contains(t, rec.Body.String(), "Username is required.")

	rec = e.post("/auth/login", url.Values{"username": {"new"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username or password.")

	cookie := e.login("new", "pw")
	assert.Contains(t, e.get("/", cookie).Body.String(), "Log Out")

	rec = e.get("/auth/logout", cookie)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Contains(t, e.get("/", cookie).Body.String(), "Log In")
}

func TestOperationalEndpoints(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusOK, e.get("/ping", nil).Code)
	rec := e.get("/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	e.get("/", nil)
	rec = e.get("/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "blog_http_requests_total")
}

func TestRateLimitOnlyThrottlesWrites(t *testing.T) {
	s := &Server{Log: zap.NewNop().Sugar()}
	h := s.rateLimit(6)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	call := func(method string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/x", nil))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, call(http.MethodPost))
	assert.Equal(t, http.StatusNoContent, call(http.MethodGet))

	unlimited := s.rateLimit(0)(h)
	rec := httptest.NewRecorder()
	unlimited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
