package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// buffer writes markup for a component. Like templ's generated code it stops
// at the first write error and hands that error back from Render.
type buffer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (b *buffer) raw(s string) {
	if b.err == nil {
		_, b.err = io.WriteString(b.w, s)
	}
}

func (b *buffer) text(s string) { b.raw(templ.EscapeString(s)) }

func (b *buffer) num(n int) { b.raw(strconv.Itoa(n)) }

func (b *buffer) attr(name, value string) {
	b.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

// href writes a URL attribute, replacing unsafe schemes the way templ does.
func (b *buffer) href(name, url string) {
	b.attr(name, string(templ.URL(url)))
}

func (b *buffer) flag(name string, on bool) {
	if on {
		b.raw(" " + name)
	}
}

func (b *buffer) render(c templ.Component) {
	if b.err == nil {
		b.err = c.Render(b.ctx, b.w)
	}
}

func component(fn func(b *buffer)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b := &buffer{ctx: ctx, w: w}
		fn(b)
		return b.err
	})
}

// page renders body inside the site layout.
func page(site SiteConfig, meta PageMeta, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout(site, meta).Render(templ.WithChildren(ctx, body), w)
	})
}

func layout(site SiteConfig, meta PageMeta) templ.Component {
	return component(func(b *buffer) {
		children := templ.GetChildren(b.ctx)
		b.ctx = templ.ClearChildren(b.ctx)

		b.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
		b.raw("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
		b.raw("<title>")
		b.text(meta.Title)
		b.raw("</title>\n")
		if meta.Description != "" {
			b.raw("<meta name=\"description\"")
			b.attr("content", meta.Description)
			b.raw(">\n")
		}
		if meta.Keywords != "" {
			b.raw("<meta name=\"keywords\"")
			b.attr("content", meta.Keywords)
			b.raw(">\n")
		}
		if meta.NoIndex {
			b.raw("<meta name=\"robots\" content=\"noindex\">\n")
		}
		if meta.URL != "" {
			b.raw("<link rel=\"canonical\"")
			b.href("href", meta.URL)
			b.raw(">\n<meta property=\"og:url\"")
			b.attr("content", meta.URL)
			b.raw(">\n")
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}
		b.raw("<meta property=\"og:title\"")
		b.attr("content", meta.Title)
		b.raw(">\n")
		if meta.Description != "" {
			b.raw("<meta property=\"og:description\"")
			b.attr("content", meta.Description)
			b.raw(">\n")
		}
		b.raw("<meta property=\"og:type\"")
		b.attr("content", ogType)
		b.raw(">\n<meta property=\"og:site_name\"")
		b.attr("content", site.Name)
		b.raw(">\n")
		if !meta.PublishedTime.IsZero() {
			b.raw("<meta property=\"article:published_time\"")
			b.attr("content", isoTime(meta.PublishedTime))
			b.raw(">\n")
		}
		if !meta.ModifiedTime.IsZero() {
			b.raw("<meta property=\"article:modified_time\"")
			b.attr("content", isoTime(meta.ModifiedTime))
			b.raw(">\n")
		}
		if meta.Image != "" {
			b.raw("<meta property=\"og:image\"")
			b.attr("content", meta.Image)
			b.raw(">\n<meta property=\"og:image:width\" content=\"1200\">\n<meta property=\"og:image:height\" content=\"630\">\n")
			b.raw("<meta name=\"twitter:card\" content=\"summary_large_image\">\n<meta name=\"twitter:image\"")
			b.attr("content", meta.Image)
			b.raw(">\n")
		} else {
			b.raw("<meta name=\"twitter:card\" content=\"summary\">\n")
		}
		b.raw("<meta name=\"twitter:title\"")
		b.attr("content", meta.Title)
		b.raw(">\n")
		if meta.Description != "" {
			b.raw("<meta name=\"twitter:description\"")
			b.attr("content", meta.Description)
			b.raw(">\n")
		}
		b.raw("<link rel=\"alternate\" type=\"application/rss+xml\"")
		b.attr("title", site.Name)
		b.raw(" href=\"/feed.xml\">\n<link rel=\"stylesheet\" href=\"/public/site.css\">\n")
		if meta.JSONLD != "" {
			// JSONLD comes from json.Marshal, which escapes <, > and &.
			b.raw("<script type=\"application/ld+json\">")
			b.render(templ.Raw(meta.JSONLD))
			b.raw("</script>\n")
		}
		b.raw("</head>\n<body>\n<header class=\"site-header\">\n  <a class=\"brand\" href=\"/\">")
		b.text(site.Name)
		b.raw("</a>\n  <nav><a href=\"/blog/\">Blog</a></nav>\n</header>\n<main>\n")
		b.render(children)
		b.raw("\n</main>\n<footer class=\"site-footer\">")
		b.text(site.Name)
		if site.Author != "" {
			b.raw(" &middot; ")
			b.text(site.Author)
		}
		b.raw("</footer>\n</body>\n</html>")
	})
}
