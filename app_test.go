package postdesk

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "hunter22"
)

func newTestApp(t *testing.T, mutate ...func(*SiteConfig)) *App {
	t.Helper()
	return newTestAppWith(t, nil, mutate...)
}

func newTestAppWith(t *testing.T, opts []Option, mutate ...func(*SiteConfig)) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		Name:           "Test Blog",
		URL:            "https://example.com",
		DatabaseURL:    filepath.Join(dir, "blog.db"),
		SessionSecret:  "test-session-secret-0123456789",
		AdminEmail:     testAdminEmail,
		AdminPassword:  testAdminPassword,
		UploadDir:      filepath.Join(dir, "uploads"),
		MetricsEnabled: true,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	opts = append([]Option{WithLogger(zap.NewNop()), WithStaticDir(filepath.Join(dir, "public"))}, opts...)
	app, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func adminToken(t *testing.T, app *App) string {
	t.Helper()
	token, _, err := app.tokens.Issue(Principal{Email: testAdminEmail, Role: RoleAdmin})
	require.NoError(t, err)
	return token
}

func doJSON(t *testing.T, app *App, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

func createPost(t *testing.T, app *App, token string, req content.CreateRequest) content.Post {
	t.Helper()
	rec := doJSON(t, app, http.MethodPost, contentPath, token, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestNewRejectsMissingSecret(t *testing.T) {
	_, err := New(SiteConfig{}, WithLogger(zap.NewNop()))
	assert.Error(t, err)
}

func TestContentAPICreateGetUpdateDelete(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)

	created := createPost(t, app, token, content.CreateRequest{
		Title:   "My Post",
		Slug:    "my-post",
		Content: "<p>body</p>",
		Status:  content.StatusPublished,
	})
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "My Post", created.MetaTitle)
	assert.False(t, created.CreatedAt.IsZero())

	rec := doJSON(t, app, http.MethodGet, contentPath+"?slug=my-post", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, created.ID, got.ID)

	title := "Renamed"
	rec = doJSON(t, app, http.MethodPut, contentPath, token, content.UpdateRequest{ID: created.ID, Title: &title})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "<p>body</p>", updated.Content, "omitted fields are kept")
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	rec = doJSON(t, app, http.MethodDelete, contentPath+"?id="+created.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = doJSON(t, app, http.MethodGet, contentPath+"?slug=my-post", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContentAPIDuplicateSlugConflicts(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	req := content.CreateRequest{Title: "My Post", Slug: "my-post", Content: "<p>one</p>"}
	createPost(t, app, token, req)

	rec := doJSON(t, app, http.MethodPost, contentPath, token, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeError(t, rec), "my-post")

	rec = doJSON(t, app, http.MethodGet, contentPath+"?status=all", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	assert.Len(t, posts, 1)
}

func TestContentAPIValidation(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)

	rec := doJSON(t, app, http.MethodPost, contentPath, token, content.CreateRequest{Title: "No slug"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "slug")

	rec = doJSON(t, app, http.MethodDelete, contentPath, token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, app, http.MethodDelete, contentPath+"?id=missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	title := "x"
	rec = doJSON(t, app, http.MethodPut, contentPath, token, content.UpdateRequest{ID: "missing", Title: &title})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, app, http.MethodGet, contentPath+"?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, contentPath, strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	raw := httptest.NewRecorder()
	app.Echo.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestContentAPIAnonymousAccess(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	createPost(t, app, token, content.CreateRequest{Title: "Draft", Slug: "draft", Content: "<p>d</p>"})
	createPost(t, app, token, content.CreateRequest{Title: "Live", Slug: "live", Content: "<p>l</p>", Status: content.StatusPublished})

	rec := doJSON(t, app, http.MethodGet, contentPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var posts []content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "live", posts[0].Slug)

	rec = doJSON(t, app, http.MethodGet, contentPath+"?slug=draft", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "drafts are hidden from visitors")

	rec = doJSON(t, app, http.MethodGet, contentPath+"?slug=draft", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodGet, contentPath+"?status=draft", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, app, http.MethodPost, contentPath, "", content.CreateRequest{Title: "x", Slug: "x", Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec))

	rec = doJSON(t, app, http.MethodPost, contentPath, "garbage", content.CreateRequest{Title: "x", Slug: "x", Content: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEmptyListIsArray(t *testing.T) {
	app := newTestApp(t)
	rec := doJSON(t, app, http.MethodGet, contentPath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, uploadPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadImage(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	upload := func() string {
		req := uploadRequest(t, "My Photo.png", "image/png", pngBytes(t, 40, 20))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.Echo.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var out struct {
			URL string `json:"url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out.URL
	}

	first := upload()
	assert.Equal(t, "/uploads/my-photo.jpg", first)
	_, err := os.Stat(filepath.Join(app.Config.UploadDir, "my-photo.jpg"))
	require.NoError(t, err)

	get := httptest.NewRecorder()
	app.Echo.ServeHTTP(get, httptest.NewRequest(http.MethodGet, first, nil))
	assert.Equal(t, http.StatusOK, get.Code)

	assert.Equal(t, "/uploads/my-photo-2.jpg", upload())
	assert.Equal(t, "/uploads/my-photo-3.jpg", upload())

	uploads, err := app.Store.ListUploads(t.Context())
	require.NoError(t, err)
	require.Len(t, uploads, 3)
	for _, u := range uploads {
		assert.Equal(t, "My Photo.png", u.OriginalName)
		assert.Equal(t, 40, u.Width)
		assert.Equal(t, 20, u.Height)
		assert.Positive(t, u.Size)
	}
}

func TestUploadNamesSkipFilesAlreadyOnDisk(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, os.MkdirAll(app.Config.UploadDir, 0o755))
	stray := filepath.Join(app.Config.UploadDir, "cover.jpg")
	require.NoError(t, os.WriteFile(stray, []byte("keep"), 0o644))

	name, f, err := app.createUploadFile(t.Context(), "cover")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "cover-2.jpg", name)

	kept, err := os.ReadFile(stray)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(kept))
}

func TestUploadRejectsBadInput(t *testing.T) {
	app := newTestApp(t, func(c *SiteConfig) { c.MaxUploadBytes = 1024 })
	token := adminToken(t, app)

	send := func(req *http.Request) *httptest.ResponseRecorder {
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		app.Echo.ServeHTTP(rec, req)
		return rec
	}

	rec := send(uploadRequest(t, "notes.txt", "text/plain", []byte("hello")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "image")

	rec = send(uploadRequest(t, "big.png", "image/png", pngBytes(t, 400, 400)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "too large")

	rec = send(uploadRequest(t, "fake.png", "image/png", []byte("not really a png")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(httptest.NewRequest(http.MethodPost, uploadPath, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(httptest.NewRequest(http.MethodGet, uploadPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	anon := httptest.NewRecorder()
	app.Echo.ServeHTTP(anon, uploadRequest(t, "a.png", "image/png", pngBytes(t, 4, 4)))
	assert.Equal(t, http.StatusUnauthorized, anon.Code)
}

func TestProcessImageResizesWideImages(t *testing.T) {
	up, out, err := processImage(bytes.NewReader(pngBytes(t, maxImageWidth+400, 100)), "wide.png")
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, maxImageWidth, img.Bounds().Dx())
	assert.Equal(t, maxImageWidth, up.Width)
	assert.Equal(t, img.Bounds().Dy(), up.Height)
	assert.Equal(t, len(out), up.Size)
	assert.Equal(t, "wide.png", up.OriginalName)
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	createPost(t, app, token, content.CreateRequest{Title: "Hello World", Slug: "hello-world", Content: "<p>Hi there</p>", Status: content.StatusPublished})
	createPost(t, app, token, content.CreateRequest{Title: "Secret", Slug: "secret", Content: "<p>s</p>"})

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	rec := get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello World")

	rec = get("/blog/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello World")
	assert.NotContains(t, rec.Body.String(), "Secret")

	rec = get("/blog/hello-world/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>Hi there</p>")

	assert.Equal(t, http.StatusNotFound, get("/blog/secret/").Code)
	assert.Equal(t, http.StatusNotFound, get("/nowhere/").Code)
	assert.Equal(t, http.StatusMovedPermanently, get("/blog").Code)

	rec = get("/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://example.com/blog/hello-world/")
	assert.NotContains(t, rec.Body.String(), "secret")

	rec = get("/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Hello World</title>")
	assert.Contains(t, rec.Body.String(), "Hi there")

	rec = get("/robots.txt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User-agent")

	rec = get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `postdesk_posts_saved_total{op="create"} 2`)
}

func TestPublishedListRefreshesAfterWrites(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	p := createPost(t, app, token, content.CreateRequest{Title: "Later", Slug: "later", Content: "<p>x</p>"})

	rec := doJSON(t, app, http.MethodGet, contentPath, "", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	status := content.StatusPublished
	rec = doJSON(t, app, http.MethodPut, contentPath, token, content.UpdateRequest{ID: p.ID, Status: &status})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, app, http.MethodGet, contentPath, "", nil)
	var posts []content.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "later", posts[0].Slug)
}

// browser is an HTTP client with a cookie jar that does not follow redirects.
type browser struct {
	t    *testing.T
	base string
	jar  *cookiejar.Jar
	c    *http.Client
}

func newBrowser(t *testing.T, app *App) *browser {
	t.Helper()
	srv := httptest.NewServer(app.Echo)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: srv.URL,
		jar:  jar,
		c: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) csrf() string {
	u, _ := url.Parse(b.base)
	for _, c := range b.jar.Cookies(u) {
		if c.Name == "_csrf" {
			return c.Value
		}
	}
	return ""
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.c.Get(b.base + path)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	form.Set("_csrf", b.csrf())
	resp, err := b.c.PostForm(b.base+path, form)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

// postFile submits form as multipart with data attached as the image field.
func (b *browser) postFile(path string, form url.Values, filename string, data []byte) (*http.Response, string) {
	b.t.Helper()
	form.Set("_csrf", b.csrf())
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range form {
		for _, v := range vs {
			require.NoError(b.t, mw.WriteField(k, v))
		}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(b.t, err)
	_, err = part.Write(data)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	resp, err := b.c.Post(b.base+path, mw.FormDataContentType(), &body)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(out)
}

func (b *browser) login(email, password string) *http.Response {
	b.t.Helper()
	b.get(loginPath)
	resp, _ := b.post(loginPath, url.Values{"email": {email}, "password": {password}})
	return resp
}

func TestAdminRequiresLogin(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	resp, _ := b.get("/admin/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, loginPath, resp.Header.Get("Location"))

	resp, body := b.get(loginPath)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="password"`)
}

func TestAdminLoginFlow(t *testing.T) {
	b := newBrowser(t, newTestApp(t))

	resp := b.login(testAdminEmail, "wrong-password")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = b.login(testAdminEmail, testAdminPassword)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/", resp.Header.Get("Location"))

	resp, body := b.get("/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Sign out "+testAdminEmail)

	resp, body = b.post("/admin/token/", url.Values{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Token valid until")

	resp, _ = b.post("/admin/logout/", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = b.get("/admin/")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestAdminLoginRejectsMissingCSRF(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	resp, err := b.c.PostForm(b.base+loginPath, url.Values{"email": {testAdminEmail}, "password": {testAdminPassword}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminLoginIsRateLimited(t *testing.T) {
	b := newBrowser(t, newTestApp(t))
	for i := 0; i < 5; i++ {
		resp := b.login(testAdminEmail, "wrong-password")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := b.login(testAdminEmail, testAdminPassword)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestEditorPublishesPost(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	require.Equal(t, http.StatusSeeOther, b.login(testAdminEmail, testAdminPassword).StatusCode)

	resp, _ := b.get("/admin/editor/new/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	draftPath := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(draftPath, "/admin/editor/"))

	fields := func(action string) url.Values {
		return url.Values{
			"action":          {action},
			"title":           {"Hello World"},
			"slug":            {""},
			"metaTitle":       {""},
			"metaDescription": {""},
			"metaKeywords":    {""},
			"featuredImage":   {""},
			"status":          {"published"},
			"html":            {""},
			"edited":          {""},
			"text":            {"First paragraph"},
		}
	}

	resp, body := b.post(draftPath, fields("paragraph"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="hello-world"`)
	assert.Contains(t, body, "First paragraph")

	save := fields("save")
	save.Set("slug", "hello-world")
	save.Set("metaTitle", "Hello World")
	save.Set("text", "")
	resp, body = b.post(draftPath, save)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Saved.")

	posts, err := app.Content.List(t.Context(), content.FilterPublished)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello-world", posts[0].Slug)
	assert.Equal(t, "<p>First paragraph</p>", posts[0].Content)

	resp, body = b.get("/blog/hello-world/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "First paragraph")
}

func TestEditorSaveConflictKeepsDraft(t *testing.T) {
	app := newTestApp(t)
	createPost(t, app, adminToken(t, app), content.CreateRequest{Title: "My Post", Slug: "my-post", Content: "<p>first</p>"})

	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	resp, _ := b.get("/admin/editor/new/")
	draftPath := resp.Header.Get("Location")

	resp, body := b.post(draftPath, url.Values{
		"action": {"save"},
		"title":  {"My Post"},
		"slug":   {""},
		"status": {"draft"},
		"html":   {"<p>second</p>"},
		"edited": {"1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "already exists")

	resp, body = b.get(draftPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="My Post"`)
}

func TestEditorViewsAndMedia(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	resp, _ := b.get("/admin/editor/new/")
	draftPath := resp.Header.Get("Location")

	resp, body := b.post(draftPath, url.Values{"action": {"video"}, "videoUrl": {"https://youtu.be/abc123"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "https://www.youtube.com/embed/abc123")

	resp, body = b.post(draftPath, url.Values{"action": {"view:html"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<textarea class="raw" name="html"`)

	resp, body = b.post(draftPath, url.Values{"action": {"view:visual"}, "html": {"<h2>Edited</h2>"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "<h2>Edited</h2>")
	assert.NotContains(t, body, "youtube.com/embed")

	resp, body = b.post(draftPath, url.Values{"action": {"preview"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `class="post preview"`)

	resp, body = b.post(draftPath, url.Values{"action": {"nonsense"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "action is not recognised")
}

func TestEditorDraftsAreScopedToOwner(t *testing.T) {
	app := newTestApp(t)
	id := app.drafts.Add("other@example.com", nil)

	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	resp, _ := b.get("/admin/editor/" + id + "/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = b.get("/admin/editor/edit/missing/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminDelete(t *testing.T) {
	app := newTestApp(t)
	p := createPost(t, app, adminToken(t, app), content.CreateRequest{Title: "Gone", Slug: "gone", Content: "<p>x</p>"})

	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	b.get("/admin/")
	resp, _ := b.post("/admin/post/"+p.ID+"/delete/", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/?msg="+url.QueryEscape(`Deleted "Gone".`), resp.Header.Get("Location"))

	_, err := app.Content.GetByID(t.Context(), p.ID)
	assert.True(t, content.IsNotFound(err))
}

func newDraft(t *testing.T, b *browser) (path, id string) {
	t.Helper()
	resp, _ := b.get("/admin/editor/new/")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	path = resp.Header.Get("Location")
	return path, strings.TrimSuffix(strings.TrimPrefix(path, "/admin/editor/"), "/")
}

// visualEdit posts the block bodies of page back the way editor.js does.
func visualEdit(t *testing.T, b *browser, path, page string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	var edited strings.Builder
	doc.Find(".block-body").Each(func(_ int, s *goquery.Selection) {
		h, err := s.Html()
		require.NoError(t, err)
		edited.WriteString(h)
	})
	resp, body := b.post(path, url.Values{"html": {edited.String()}, "edited": {"1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body
}

func publishForm(title string) url.Values {
	return url.Values{
		"action":          {"save"},
		"title":           {title},
		"slug":            {content.Slugify(title)},
		"metaTitle":       {""},
		"metaDescription": {""},
		"metaKeywords":    {""},
		"featuredImage":   {""},
		"status":          {"published"},
		"edited":          {""},
	}
}

func TestEditorVisualEditKeepsUnknownEmbeds(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	draftPath, id := newDraft(t, b)

	const src = `src="https://videos.example.com/clip.mp4"`
	resp, body := b.post(draftPath, url.Values{"action": {"video"}, "videoUrl": {"https://videos.example.com/clip.mp4"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, src)

	body = visualEdit(t, b, draftPath, body)
	assert.Contains(t, body, src)
	d, ok := app.drafts.Get(id, testAdminEmail)
	require.True(t, ok)
	assert.Contains(t, d.doc.HTML(), src)

	resp, body = b.post(draftPath, publishForm("Clip"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Saved.")
	stored, err := app.Content.GetBySlug(t.Context(), "clip")
	require.NoError(t, err)
	assert.Contains(t, stored.Content, src)

	resp, body = b.get("/blog/clip/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="https://videos.example.com/clip.mp4"`)
	assert.Contains(t, body, `class="embed-link"`)
	assert.NotContains(t, body, "<iframe")
}

func TestCustomVideoProviderEmbeds(t *testing.T) {
	clips := editor.VideoProvider{
		Name:  "clips",
		Hosts: []string{"clips.example.org"},
		Embed: func(u *url.URL) (string, bool) {
			return "https://play.clips.example.org/embed" + u.Path, u.Path != ""
		},
		EmbedHosts: []string{"play.clips.example.org"},
	}
	app := newTestAppWith(t, []Option{WithVideoProviders(clips)})
	createPost(t, app, adminToken(t, app), content.CreateRequest{
		Title:   "Old Embed",
		Slug:    "old-embed",
		Content: `<iframe src="https://www.youtube.com/embed/abc"></iframe>`,
		Status:  content.StatusPublished,
	})

	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	draftPath, _ := newDraft(t, b)
	resp, body := b.post(draftPath, url.Values{"action": {"video"}, "videoUrl": {"https://clips.example.org/v/42"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `src="https://play.clips.example.org/embed/v/42"`)
	resp, body = b.post(draftPath, publishForm("Clip Show"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Saved.")

	resp, body = b.get("/blog/clip-show/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<iframe src="https://play.clips.example.org/embed/v/42"`)
	csp := resp.Header.Get("Content-Security-Policy")
	assert.Contains(t, csp, "frame-src https://play.clips.example.org;")
	assert.NotContains(t, csp, "youtube")

	resp, body = b.get("/blog/old-embed/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "<iframe")
	assert.Contains(t, body, `href="https://www.youtube.com/embed/abc"`)
}

func TestEditorUploadWhilePreviewingWritesNothing(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	draftPath, _ := newDraft(t, b)

	resp, _ := b.post(draftPath, url.Values{"action": {"preview"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := b.postFile(draftPath, url.Values{"action": {"upload"}}, "shot.png", pngBytes(t, 8, 8))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, editor.ErrReadOnly.Error())

	entries, err := os.ReadDir(app.Config.UploadDir)
	if err == nil {
		assert.Empty(t, entries)
	}
	uploads, err := app.Store.ListUploads(t.Context())
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestEditorUploadInsertsImage(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	draftPath, id := newDraft(t, b)

	resp, body := b.postFile(draftPath, url.Values{"action": {"upload"}, "alt": {"A shot"}}, "shot.png", pngBytes(t, 8, 8))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Image uploaded.")

	d, ok := app.drafts.Get(id, testAdminEmail)
	require.True(t, ok)
	assert.Contains(t, d.doc.HTML(), `src="/uploads/shot.jpg"`)
	assert.Contains(t, d.doc.HTML(), `alt="A shot"`)
}

func TestEditorCloseDropsDraft(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	draftPath, _ := newDraft(t, b)

	_, body := b.get("/metrics")
	assert.Contains(t, body, "postdesk_editor_drafts 1")

	resp, _ := b.post(draftPath, url.Values{"action": {"close"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/", resp.Header.Get("Location"))
	assert.Equal(t, 0, app.drafts.Len())

	resp, _ = b.get(draftPath)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, body = b.get("/metrics")
	assert.Contains(t, body, "postdesk_editor_drafts 0")
}

func TestDashboardStatusTabs(t *testing.T) {
	app := newTestApp(t)
	token := adminToken(t, app)
	createPost(t, app, token, content.CreateRequest{Title: "Live One", Slug: "live-one", Content: "<p>x</p>", Status: content.StatusPublished})
	createPost(t, app, token, content.CreateRequest{Title: "Work In Progress", Slug: "wip", Content: "<p>y</p>"})

	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)

	resp, body := b.get("/admin/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `class="active">All (2)</a>`)
	assert.Contains(t, body, "Drafts (1)")
	assert.Contains(t, body, "Published (1)")
	assert.Contains(t, body, "Live One")
	assert.Contains(t, body, "Work In Progress")

	_, body = b.get("/admin/?status=draft")
	assert.Contains(t, body, `class="active">Drafts (1)</a>`)
	assert.Contains(t, body, "Work In Progress")
	assert.NotContains(t, body, "Live One")

	_, body = b.get("/admin/?status=published")
	assert.Contains(t, body, "Live One")
	assert.NotContains(t, body, "Work In Progress")

	_, body = b.get("/admin/?status=bogus")
	assert.Contains(t, body, `class="active">All (2)</a>`)
}

func TestAdminDeleteMissingPost(t *testing.T) {
	app := newTestApp(t)
	b := newBrowser(t, app)
	b.login(testAdminEmail, testAdminPassword)
	b.get("/admin/")
	resp, _ := b.post("/admin/post/no-such-id/delete/", url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/admin/?msg="+url.QueryEscape("Post not found."), resp.Header.Get("Location"))
}
