package views

import (
	"fmt"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
)

func adminMeta(title string) PageMeta {
	return PageMeta{Title: title, NoIndex: true}
}

func csrfField(b *buffer, token string) {
	b.raw("<input type=\"hidden\" name=\"_csrf\"")
	b.attr("value", token)
	b.raw(">")
}

func notices(b *buffer, message, errMsg string) {
	if message != "" {
		b.raw("\n  <p class=\"notice\">")
		b.text(message)
		b.raw("</p>")
	}
	if errMsg != "" {
		b.raw("\n  <p class=\"error\">")
		b.text(errMsg)
		b.raw("</p>")
	}
}

// postForm is a one-button form posting to action.
func postForm(b *buffer, action, token, label string) {
	b.raw("<form method=\"post\"")
	b.href("action", action)
	b.raw(">")
	csrfField(b, token)
	b.raw("<button type=\"submit\">")
	b.text(label)
	b.raw("</button></form>")
}

// AdminLogin renders the login form.
func AdminLogin(site SiteConfig, d LoginData) templ.Component {
	body := component(func(b *buffer) {
		b.raw("<section class=\"login\">\n  <h1>Admin sign in</h1>")
		notices(b, "", d.Error)
		b.raw("\n  <form method=\"post\" action=\"/admin/login/\">\n    ")
		csrfField(b, d.CSRFToken)
		b.raw("\n    <label>Email <input type=\"email\" name=\"email\"")
		b.attr("value", d.Email)
		b.raw(" required autocomplete=\"username\"></label>")
		b.raw("\n    <label>Password <input type=\"password\" name=\"password\" minlength=\"6\" required autocomplete=\"current-password\"></label>")
		b.raw("\n    <button type=\"submit\">Sign in</button>\n  </form>\n</section>")
	})
	return page(site, adminMeta("Sign in | "+site.Name), body)
}

var dashboardTabs = []struct {
	filter content.Filter
	label  string
}{
	{content.FilterAll, "All"},
	{content.FilterDraft, "Drafts"},
	{content.FilterPublished, "Published"},
}

func adminToolbar(b *buffer, heading, token, email string) {
	b.raw("<div class=\"toolbar\">\n    <h1>")
	b.text(heading)
	b.raw("</h1>\n    <a class=\"button\" href=\"/admin/editor/new/\">New post</a>")
	b.raw("\n    <a class=\"button\" href=\"/admin/\">Posts</a>")
	b.raw("\n    <a class=\"button\" href=\"/admin/media/\">Media</a>\n    ")
	postForm(b, "/admin/token/", token, "API token")
	b.raw("\n    ")
	label := "Sign out"
	if email != "" {
		label += " " + email
	}
	postForm(b, "/admin/logout/", token, label)
	b.raw("\n  </div>")
}

// AdminDashboard renders the admin post list.
func AdminDashboard(site SiteConfig, d DashboardData) templ.Component {
	body := component(func(b *buffer) {
		b.raw("<section class=\"admin\">\n  ")
		adminToolbar(b, "Posts", d.CSRFToken, d.Email)
		b.raw("\n  <nav class=\"tabs\">")
		for _, tab := range dashboardTabs {
			b.raw("<a")
			b.href("href", "/admin/?status="+string(tab.filter))
			if tab.filter == d.Filter {
				b.raw(" class=\"active\"")
			}
			b.raw(">")
			b.text(fmt.Sprintf("%s (%d)", tab.label, d.Counts[tab.filter]))
			b.raw("</a>")
		}
		b.raw("</nav>")
		notices(b, d.Message, "")
		if d.Token != "" {
			b.raw("\n  <p class=\"notice\">API token: <code>")
			b.text(d.Token)
			b.raw("</code></p>")
		}
		b.raw("\n  <table>\n    <thead><tr><th>Title</th><th>Status</th><th>Updated</th><th></th></tr></thead>\n    <tbody>")
		if len(d.Posts) == 0 {
			b.raw("\n      <tr><td colspan=\"4\">No posts yet.</td></tr>")
		}
		for _, p := range d.Posts {
			b.raw("\n      <tr><td><a")
			b.href("href", "/admin/editor/edit/"+p.Slug+"/")
			b.raw(">")
			b.text(p.Title)
			b.raw("</a></td><td>")
			b.text(string(p.Status))
			b.raw("</td><td>")
			b.text(FormatDate(p.UpdatedAt))
			b.raw("</td><td>")
			if p.Published() {
				b.raw("<a")
				b.href("href", p.Path())
				b.raw(">View</a>")
			}
			postForm(b, "/admin/post/"+p.ID+"/delete/", d.CSRFToken, "Delete")
			b.raw("</td></tr>")
		}
		b.raw("\n    </tbody>\n  </table>\n</section>")
	})
	return page(site, adminMeta("Posts | "+site.Name), body)
}

// AdminMedia renders the uploaded image library.
func AdminMedia(site SiteConfig, d MediaData) templ.Component {
	body := component(func(b *buffer) {
		b.raw("<section class=\"admin media\">\n  ")
		adminToolbar(b, "Media", d.CSRFToken, "")
		notices(b, d.Message, d.Error)
		b.raw("\n  <form method=\"post\" action=\"/admin/media/\" enctype=\"multipart/form-data\">")
		csrfField(b, d.CSRFToken)
		b.raw("<input type=\"file\" name=\"image\" accept=\"image/*\" required>")
		b.raw("<button type=\"submit\">Upload</button></form>")
		if len(d.Items) == 0 {
			b.raw("\n  <p class=\"empty\">No images uploaded yet.</p>\n</section>")
			return
		}
		b.raw("\n  <div class=\"grid\">")
		for _, m := range d.Items {
			b.raw("\n    <figure><img")
			b.href("src", m.URL)
			b.attr("alt", m.OriginalName)
			b.raw(" loading=\"lazy\"><figcaption><code>")
			b.text(m.URL)
			b.raw("</code> ")
			b.text(fmt.Sprintf("%dx%d, %d KB", m.Width, m.Height, (m.Size+1023)/1024))
			b.raw("</figcaption>")
			postForm(b, "/admin/media/"+m.Name+"/delete/", d.CSRFToken, "Delete")
			b.raw("</figure>")
		}
		b.raw("\n  </div>\n</section>")
	})
	return page(site, adminMeta("Media | "+site.Name), body)
}

func editorButton(b *buffer, action, label string, disabled bool) {
	b.raw("<button name=\"action\"")
	b.attr("value", action)
	b.flag("disabled", disabled)
	b.raw(">")
	b.text(label)
	b.raw("</button>")
}

func textInput(b *buffer, label, name, value string, extra string) {
	b.raw("\n      <label>")
	b.text(label)
	b.raw(" <input")
	b.attr("name", name)
	b.raw(extra)
	b.attr("value", value)
	b.raw("></label>")
}

// Editor renders the post editor.
func Editor(site SiteConfig, d EditorData) templ.Component {
	title := d.Post.Title
	if title == "" {
		title = "New post"
	}
	body := component(func(b *buffer) {
		b.raw("<section class=\"editor")
		if d.Fullscreen {
			b.raw(" fullscreen")
		}
		b.raw("\">\n  <form id=\"editor\" method=\"post\"")
		b.href("action", "/admin/editor/"+d.DraftID+"/")
		b.raw(" enctype=\"multipart/form-data\">\n    ")
		csrfField(b, d.CSRFToken)
		b.raw("\n    <div class=\"toolbar\">\n      <a href=\"/admin/\">&larr; Posts</a>\n      ")
		editorButton(b, "view:visual", "Visual", d.View == editor.StructuredEdit)
		editorButton(b, "view:html", "HTML", d.View == editor.RawEdit)
		if d.View == editor.Preview {
			editorButton(b, "preview", "Edit", false)
		} else {
			editorButton(b, "preview", "Preview", false)
		}
		editorButton(b, "fullscreen", "Fullscreen", false)
		b.raw("<button name=\"action\" value=\"save\" class=\"primary\"")
		b.flag("disabled", d.Saving)
		b.raw(">Save</button>")
		editorButton(b, "close", "Close", false)
		b.raw("\n    </div>")
		notices(b, d.Message, d.Error)

		if d.View == editor.Preview {
			editorPreview(b, site, d.Preview)
		} else {
			editorFields(b, d)
			editorInsert(b, d)
			if d.View == editor.RawEdit {
				b.raw("\n    <textarea class=\"raw\" name=\"html\" rows=\"24\">")
				b.text(d.HTML)
				b.raw("</textarea>")
			} else {
				editorSurface(b, d)
			}
		}
		b.raw("\n  </form>\n</section>")
	})
	return page(site, adminMeta(title+" | Editor"), body)
}

func editorPreview(b *buffer, site SiteConfig, p editor.PreviewData) {
	b.raw("\n    <article class=\"post preview\">\n      <p class=\"meta\">")
	b.text(p.Path)
	b.raw(" &middot; ")
	b.text(p.MetaTitle)
	b.raw("</p>\n      <h1>")
	b.text(p.Title)
	b.raw("</h1>\n      <div class=\"prose\">")
	b.render(postBody(site, p.HTML))
	b.raw("</div>\n    </article>")
}

func editorFields(b *buffer, d EditorData) {
	p := d.Post
	b.raw("\n    <fieldset class=\"fields\">")
	textInput(b, "Title", "title", p.Title, "")
	b.raw("\n      <label>Slug <input name=\"slug\"")
	b.attr("value", p.Slug)
	b.raw(">")
	if d.SlugPinned {
		b.raw("<small>custom</small>")
	}
	b.raw("</label>")
	textInput(b, "Meta title", "metaTitle", p.MetaTitle, " maxlength=\"60\"")
	b.raw("\n      <label>Meta description <textarea name=\"metaDescription\" maxlength=\"160\">")
	b.text(p.MetaDescription)
	b.raw("</textarea></label>")
	textInput(b, "Keywords", "metaKeywords", p.MetaKeywords, "")
	textInput(b, "Featured image", "featuredImage", p.FeaturedImage, "")
	b.raw("\n      <label>Status <select name=\"status\"><option value=\"draft\"")
	b.flag("selected", !p.Published())
	b.raw(">Draft</option><option value=\"published\"")
	b.flag("selected", p.Published())
	b.raw(">Published</option></select></label>\n    </fieldset>")
}

func editorInsert(b *buffer, d EditorData) {
	b.raw("\n    <fieldset class=\"insert\">")
	b.raw("\n      <label>Image <input type=\"file\" name=\"image\" accept=\"image/*\"></label>")
	editorButton(b, "upload", "Upload & insert", false)
	b.raw("\n      <label>Image URL <input name=\"src\"></label>")
	b.raw("\n      <label>Alt text <input name=\"alt\"></label>")
	editorButton(b, "image", "Insert image", false)
	b.raw("\n      <label>Video URL <input name=\"videoUrl\" placeholder=\"https://www.youtube.com/watch?v=...\"></label>")
	editorButton(b, "video", "Insert video", false)
	b.raw("\n      <label>Markdown <textarea name=\"markdown\" rows=\"3\"></textarea></label>")
	editorButton(b, "markdown", "Import markdown", false)
	if len(d.Media) > 0 {
		b.raw("\n      <div class=\"media-picker\">")
		for _, m := range d.Media {
			b.raw("<button name=\"action\"")
			b.attr("value", "pick:"+m.Name)
			b.attr("title", "Insert "+m.URL)
			b.raw("><img")
			b.href("src", m.URL)
			b.attr("alt", m.OriginalName)
			b.raw(" width=\"96\" loading=\"lazy\"></button>")
		}
		b.raw("</div>")
	}
	b.raw("\n    </fieldset>")
}

// editorSurface renders the blocks of the structured view. Block markup is
// the document's own HTML: editor.js posts it back verbatim, so it must not
// pass through the public sanitizer.
func editorSurface(b *buffer, d EditorData) {
	b.raw("\n    <input type=\"hidden\" name=\"html\"")
	b.attr("value", d.HTML)
	b.raw(">\n    <input type=\"hidden\" name=\"edited\" value=\"\">\n    <div class=\"surface\">")
	for i, block := range d.Blocks {
		b.raw("\n      <div class=\"block")
		if i == d.Cursor {
			b.raw(" cursor")
		}
		b.raw("\"><div class=\"block-body\" contenteditable=\"true\">")
		b.render(templ.Raw(block))
		b.raw("</div>")
		b.raw("<button name=\"action\"")
		b.attr("value", "cursor:"+strconv.Itoa(i+1))
		b.raw(" title=\"Insert below\">+</button>")
		b.raw("<button name=\"action\"")
		b.attr("value", "delete:"+strconv.Itoa(i))
		b.raw(" title=\"Remove block\">&times;</button></div>")
	}
	b.raw("\n      <label>New paragraph <textarea name=\"text\" rows=\"2\"></textarea></label>")
	editorButton(b, "paragraph", "Add paragraph", false)
	editorButton(b, "heading", "Add heading", false)
	b.raw("\n    </div>\n    <script src=\"/public/editor.js\"></script>")
}
