package postdesk

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
	"github.com/eringen/postdesk/views"
)

func (a *App) handleLoginPage(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return Render(c, a.Views.AdminLogin(a.site(), views.LoginData{CSRFToken: CsrfToken(c)}))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Allow(ip) {
		return c.String(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	email := c.FormValue("email")
	p, err := a.authenticate(c.Request().Context(), email, c.FormValue("password"))
	if err != nil {
		var ve *content.ValidationError
		if !errors.As(err, &ve) && !errors.Is(err, errInvalidCredentials) {
			return err
		}
		a.Log.Info("login failed", zap.String("ip", ip), zap.String("email", email))
		return Render(c, a.Views.AdminLogin(a.site(), views.LoginData{
			Email:     email,
			Error:     err.Error(),
			CSRFToken: CsrfToken(c),
		}))
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, p); err != nil {
		return err
	}
	a.Log.Info("admin signed in", zap.String("email", p.Email))
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (a *App) handleDashboard(c echo.Context) error {
	return a.renderDashboard(c, c.QueryParam("msg"), "")
}

func (a *App) handleAdminDelete(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	post, err := a.Content.GetByID(ctx, id)
	if err == nil {
		err = a.Content.Delete(ctx, id)
	}
	if err != nil {
		if content.IsNotFound(err) {
			return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Post not found."))
		}
		return err
	}
	a.metrics.postSaved("delete")
	a.Log.Info("post deleted", zap.String("id", id), zap.String("slug", post.Slug))
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Deleted \""+post.Title+"\"."))
}

func (a *App) handleToken(c echo.Context) error {
	token, exp, err := a.tokens.Issue(CurrentPrincipal(c))
	if err != nil {
		return err
	}
	return a.renderDashboard(c, "Token valid until "+exp.UTC().Format("2006-01-02 15:04 MST")+".", token)
}

// dashboardFilter reads the status tab. Anything unknown shows every post.
func dashboardFilter(c echo.Context) content.Filter {
	q := c.QueryParam("status")
	if q == "" {
		return content.FilterAll
	}
	f, err := content.ParseFilter(q)
	if err != nil {
		return content.FilterAll
	}
	return f
}

func (a *App) renderDashboard(c echo.Context, msg, token string) error {
	all, err := a.Content.List(c.Request().Context(), content.FilterAll)
	if err != nil {
		return err
	}
	filter := dashboardFilter(c)
	counts := make(map[content.Filter]int, 3)
	var posts []content.Post
	for _, p := range all {
		for _, f := range []content.Filter{content.FilterAll, content.FilterDraft, content.FilterPublished} {
			if f.Match(p.Status) {
				counts[f]++
			}
		}
		if filter.Match(p.Status) {
			posts = append(posts, p)
		}
	}
	return Render(c, a.Views.AdminDashboard(a.site(), views.DashboardData{
		Posts:     posts,
		Filter:    filter,
		Counts:    counts,
		Message:   msg,
		Email:     CurrentPrincipal(c).Email,
		Token:     token,
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) editorOptions() []editor.Option {
	return []editor.Option{editor.WithVideoProviders(a.videoProviders...)}
}

func (a *App) handleEditorNew(c echo.Context) error {
	id := a.drafts.Add(CurrentPrincipal(c).Email, editor.New(a.editorOptions()...))
	return c.Redirect(http.StatusSeeOther, "/admin/editor/"+id+"/")
}

func (a *App) handleEditorOpen(c echo.Context) error {
	post, err := a.Content.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if content.IsNotFound(err) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		}
		return err
	}
	doc, err := editor.Open(post, a.editorOptions()...)
	if err != nil {
		return err
	}
	id := a.drafts.Add(CurrentPrincipal(c).Email, doc)
	return c.Redirect(http.StatusSeeOther, "/admin/editor/"+id+"/")
}

func (a *App) handleEditorPage(c echo.Context) error {
	id := c.Param("draft")
	d, ok := a.drafts.Get(id, CurrentPrincipal(c).Email)
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	page, err := a.editorData(c, id, d.doc)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Editor(a.site(), page))
}

// editorForm is one submission of the editor page. Action names the button
// that was pressed; the other fields carry the page's current inputs.
type editorForm struct {
	Action          string `form:"action"`
	Title           string `form:"title"`
	Slug            string `form:"slug"`
	MetaTitle       string `form:"metaTitle"`
	MetaDescription string `form:"metaDescription"`
	MetaKeywords    string `form:"metaKeywords"`
	FeaturedImage   string `form:"featuredImage"`
	Status          string `form:"status"`
	HTML            string `form:"html"`
	Edited          string `form:"edited"`
	Src             string `form:"src"`
	Alt             string `form:"alt"`
	VideoURL        string `form:"videoUrl"`
	Markdown        string `form:"markdown"`
	Text            string `form:"text"`
}

func (a *App) handleEditorAction(c echo.Context) error {
	id := c.Param("draft")
	d, ok := a.drafts.Get(id, CurrentPrincipal(c).Email)
	if !ok {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
	}
	var f editorForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	values, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	if f.Action == "close" {
		a.drafts.Remove(id)
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	msg, err := a.applyEditorForm(c, d.doc, f, values)
	page, perr := a.editorData(c, id, d.doc)
	if perr != nil {
		return perr
	}
	page.Message = msg
	if err != nil {
		page.Error = err.Error()
	}
	return Render(c, a.Views.Editor(a.site(), page))
}

// applyEditorForm copies the submitted inputs into doc and then runs the
// pressed action. Inputs are applied only when the page showed them.
func (a *App) applyEditorForm(c echo.Context, doc *editor.Document, f editorForm, values url.Values) (string, error) {
	view := doc.View()
	if _, shown := values["title"]; shown && view != editor.Preview {
		if err := applyFields(doc, f); err != nil {
			return "", err
		}
	}
	switch view {
	case editor.RawEdit:
		if _, shown := values["html"]; shown {
			if err := doc.EditRaw(f.HTML); err != nil {
				return "", err
			}
		}
	case editor.StructuredEdit:
		if f.Edited == "1" {
			if err := doc.ApplyEdit(f.HTML); err != nil {
				return "", err
			}
		}
	}

	action, arg, _ := strings.Cut(f.Action, ":")
	switch action {
	case "":
		return "", nil
	case "view":
		if arg == "html" {
			doc.ShowRaw()
			return "", nil
		}
		return "", doc.ShowStructured()
	case "preview":
		doc.TogglePreview()
		return "", nil
	case "fullscreen":
		doc.ToggleFullscreen()
		return "", nil
	case "save":
		existed := doc.Post().ID != ""
		if _, err := doc.Save(c.Request().Context(), a.Content); err != nil {
			return "", err
		}
		if existed {
			a.metrics.postSaved("update")
		} else {
			a.metrics.postSaved("create")
		}
		return "Saved.", nil
	case "upload":
		if doc.View() == editor.Preview {
			return "", editor.ErrReadOnly
		}
		file, err := c.FormFile("image")
		if err != nil {
			return "", &UploadError{Reason: "no image file provided"}
		}
		up, err := a.storeUpload(c.Request().Context(), file)
		a.recordUpload(err)
		if err != nil {
			return "", err
		}
		return "Image uploaded.", doc.InsertImage(up.URL(), f.Alt)
	case "pick":
		ok, err := a.Store.UploadExists(c.Request().Context(), arg)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &UploadError{Reason: "image " + strconv.Quote(arg) + " is not in the media library"}
		}
		return "", doc.InsertImage(uploadsPrefix+arg, f.Alt)
	case "image":
		return "", doc.InsertImage(f.Src, f.Alt)
	case "video":
		return "", doc.InsertVideo(f.VideoURL)
	case "markdown":
		return "", doc.ImportMarkdown(f.Markdown)
	case "paragraph", "heading":
		text := strings.TrimSpace(f.Text)
		if text == "" {
			return "", &content.ValidationError{Field: "text", Reason: "must not be empty"}
		}
		if action == "heading" {
			return "", doc.InsertHeading(2, text)
		}
		return "", doc.InsertParagraph(text)
	case "cursor", "delete":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return "", &content.ValidationError{Field: "action", Reason: "has no block index"}
		}
		if action == "cursor" {
			return "", doc.SetCursor(n)
		}
		return "", doc.DeleteBlock(n)
	}
	return "", &content.ValidationError{Field: "action", Reason: "is not recognised"}
}

// applyFields copies the metadata inputs that changed. Comparing against the
// document first keeps an untouched slug following the title.
func applyFields(doc *editor.Document, f editorForm) error {
	before := doc.Post()
	if f.Title != before.Title {
		if err := doc.SetTitle(f.Title); err != nil {
			return err
		}
	}
	if f.Slug != before.Slug {
		if err := doc.SetSlug(f.Slug); err != nil {
			return err
		}
	}
	if f.MetaTitle != before.MetaTitle {
		if err := doc.SetMetaTitle(f.MetaTitle); err != nil {
			return err
		}
	}
	if f.MetaDescription != before.MetaDescription {
		if err := doc.SetMetaDescription(f.MetaDescription); err != nil {
			return err
		}
	}
	if f.MetaKeywords != before.MetaKeywords {
		if err := doc.SetMetaKeywords(f.MetaKeywords); err != nil {
			return err
		}
	}
	if f.FeaturedImage != before.FeaturedImage {
		if err := doc.SetFeaturedImage(f.FeaturedImage); err != nil {
			return err
		}
	}
	if f.Status != "" && content.Status(f.Status) != before.Status {
		return doc.SetStatus(content.Status(f.Status))
	}
	return nil
}

func (a *App) editorData(c echo.Context, id string, doc *editor.Document) (views.EditorData, error) {
	uploads, err := a.Store.ListUploads(c.Request().Context())
	if err != nil {
		return views.EditorData{}, err
	}
	s := doc.Surface()
	blocks := make([]string, s.Len())
	for i := range blocks {
		blocks[i] = s.Block(i)
	}
	return views.EditorData{
		DraftID:    id,
		Post:       doc.Post(),
		View:       doc.View(),
		HTML:       doc.HTML(),
		Blocks:     blocks,
		Cursor:     s.Cursor(),
		Fullscreen: doc.Fullscreen(),
		SlugPinned: doc.SlugPinned(),
		Saving:     doc.Saving(),
		Preview:    doc.Preview(),
		Media:      mediaItems(uploads),
		CSRFToken:  CsrfToken(c),
	}, nil
}
