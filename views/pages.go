package views

import (
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/postdesk/content"
)

func isoTime(t time.Time) string { return t.Format(time.RFC3339) }

// postBody renders stored post HTML through the site's sanitizer.
func postBody(site SiteConfig, html string) templ.Component {
	return templ.Raw(site.sanitizer().Sanitize(html))
}

func cardFooter(b *buffer, c PostCard) {
	b.raw("<small>")
	b.text(FormatDate(c.CreatedAt))
	b.raw(" &middot; ")
	b.num(c.ReadingTime)
	b.raw(" min read</small>")
}

func postLink(b *buffer, tag string, c PostCard) {
	b.raw("<" + tag + "><a")
	b.href("href", c.Path())
	b.raw(">")
	b.text(c.Title)
	b.raw("</a></" + tag + ">")
}

func cardImage(b *buffer, c PostCard, lazy bool) {
	if c.FeaturedImage == "" {
		return
	}
	b.raw("<img")
	b.href("src", c.FeaturedImage)
	b.raw(" alt=\"\"")
	if lazy {
		b.raw(" loading=\"lazy\"")
	}
	b.raw(">")
}

func card(c PostCard, withImage bool) templ.Component {
	return component(func(b *buffer) {
		b.raw("\n  <article class=\"card\">")
		if withImage {
			cardImage(b, c, true)
		}
		postLink(b, "h3", c)
		b.raw("<p>")
		b.text(c.Excerpt)
		b.raw("</p>")
		cardFooter(b, c)
		b.raw("</article>")
	})
}

// Home renders the landing page with the latest posts.
func Home(site SiteConfig, posts []content.Post) templ.Component {
	latest := make([]PostCard, 0, 3)
	for i, p := range posts {
		if i == 3 {
			break
		}
		latest = append(latest, Card(p))
	}
	body := component(func(b *buffer) {
		b.raw("<section class=\"hero\">\n  <h1>")
		b.text(site.Name)
		b.raw("</h1>\n")
		if site.Description != "" {
			b.raw("  <p>")
			b.text(site.Description)
			b.raw("</p>\n")
		}
		b.raw("  <a class=\"button\" href=\"/blog/\">Read the blog</a>\n</section>\n")
		if len(latest) == 0 {
			return
		}
		b.raw("<section class=\"latest\">\n  <h2>Latest posts</h2>\n  <div class=\"grid\">")
		for _, c := range latest {
			b.render(card(c, false))
		}
		b.raw("\n  </div>\n</section>")
	})
	return page(site, HomeMeta(site), body)
}

// BlogList renders the blog index with the newest post featured.
func BlogList(site SiteConfig, posts []content.Post) templ.Component {
	featured, rest := SplitFeatured(posts)
	body := component(func(b *buffer) {
		b.raw("<h1>Blog</h1>\n")
		if featured == nil {
			b.raw("<p class=\"empty\">No posts yet. Check back soon.</p>\n")
			return
		}
		b.raw("<article class=\"featured\">")
		cardImage(b, *featured, false)
		b.raw("<div><span class=\"label\">Featured</span>")
		postLink(b, "h2", *featured)
		b.raw("<p>")
		b.text(featured.Excerpt)
		b.raw("</p>")
		cardFooter(b, *featured)
		b.raw("</div></article>\n")
		if len(rest) == 0 {
			return
		}
		b.raw("<div class=\"grid\">")
		for _, c := range rest {
			b.render(card(c, true))
		}
		b.raw("\n</div>")
	})
	return page(site, BlogListMeta(site, posts), body)
}

// Post renders a single post page.
func Post(site SiteConfig, p content.Post) templ.Component {
	c := Card(p)
	body := component(func(b *buffer) {
		b.raw("<article class=\"post\">\n  <a href=\"/blog/\">&larr; All posts</a>\n  <h1>")
		b.text(c.Title)
		b.raw("</h1>\n  <p class=\"meta\"><time")
		b.attr("datetime", isoTime(c.CreatedAt))
		b.raw(">")
		b.text(FormatDate(c.CreatedAt))
		b.raw("</time>")
		if c.UpdatedAt.After(c.CreatedAt) {
			b.raw(" &middot; updated <time")
			b.attr("datetime", isoTime(c.UpdatedAt))
			b.raw(">")
			b.text(FormatDate(c.UpdatedAt))
			b.raw("</time>")
		}
		b.raw(" &middot; ")
		b.num(c.ReadingTime)
		b.raw(" min read</p>\n")
		if c.FeaturedImage != "" {
			b.raw("  <img class=\"cover\"")
			b.href("src", c.FeaturedImage)
			b.attr("alt", c.Title)
			b.raw(">\n")
		}
		b.raw("  <div class=\"prose\">")
		b.render(postBody(site, c.Content))
		b.raw("</div>\n</article>")
	})
	return page(site, PostMeta(site, p), body)
}

func statusPage(site SiteConfig, title, heading, message string, backLink bool) templ.Component {
	body := component(func(b *buffer) {
		b.raw("<section class=\"status\">\n  <h1>")
		b.text(heading)
		b.raw("</h1>\n  <p>")
		b.text(message)
		b.raw("</p>\n")
		if backLink {
			b.raw("  <a href=\"/blog/\">Back to the blog</a>\n")
		}
		b.raw("</section>")
	})
	return page(site, PageMeta{Title: title + " | " + site.Name, NoIndex: true}, body)
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return statusPage(site, "Not found", "Page not found",
		"The page you are looking for does not exist or is not published.", true)
}

// ServerError renders the 500 page.
func ServerError(site SiteConfig) templ.Component {
	return statusPage(site, "Error", "Something went wrong", "Please try again in a moment.", false)
}
