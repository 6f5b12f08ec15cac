package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/postdesk/content"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// absolute resolves a site-relative URL against the site base.
func absolute(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func jsonLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

// HomeMeta is the metadata of the landing page.
func HomeMeta(site SiteConfig) PageMeta {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	return PageMeta{
		Title:       site.Name,
		Description: site.Description,
		URL:         BuildURL(site.URL),
		OGType:      "website",
		JSONLD:      jsonLD(data),
	}
}

// BlogListMeta is the metadata of the blog index.
func BlogListMeta(site SiteConfig, posts []content.Post) PageMeta {
	listURL := BuildURL(site.URL, "blog")
	entries := make([]map[string]any, 0, len(posts))
	for _, p := range posts {
		entries = append(entries, map[string]any{
			"@type":         "BlogPosting",
			"headline":      p.Title,
			"url":           BuildURL(site.URL, "blog", p.Slug),
			"datePublished": p.CreatedAt.Format(time.RFC3339),
			"dateModified":  p.UpdatedAt.Format(time.RFC3339),
		})
	}
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Blog",
		"name":     site.Name + " Blog",
		"url":      listURL,
		"blogPost": entries,
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	return PageMeta{
		Title:       "Blog | " + site.Name,
		Description: site.Description,
		URL:         listURL,
		OGType:      "website",
		JSONLD:      jsonLD(data),
	}
}

// PostMeta derives all SEO metadata of a post page from the post alone.
func PostMeta(site SiteConfig, p content.Post) PageMeta {
	title := p.MetaTitle
	if title == "" {
		title = p.Title
	}
	description := p.MetaDescription
	if description == "" {
		description = Excerpt(PlainText(p.Content), 160)
	}
	postURL := BuildURL(site.URL, "blog", p.Slug)
	image := absolute(site.URL, p.FeaturedImage)

	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      p.Title,
		"description":   description,
		"datePublished": p.CreatedAt.Format(time.RFC3339),
		"dateModified":  p.UpdatedAt.Format(time.RFC3339),
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if site.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": site.Name}
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	if image != "" {
		data["image"] = image
	}
	if p.MetaKeywords != "" {
		data["keywords"] = p.MetaKeywords
	}

	return PageMeta{
		Title:         title,
		Description:   description,
		Keywords:      p.MetaKeywords,
		URL:           postURL,
		OGType:        "article",
		Image:         image,
		PublishedTime: p.CreatedAt,
		ModifiedTime:  p.UpdatedAt,
		JSONLD:        jsonLD(data),
		NoIndex:       !p.Published(),
	}
}
