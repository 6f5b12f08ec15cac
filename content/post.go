// Package content holds the blog post model, its validation rules and the
// service that implements create, read, update and delete over a Repository.
package content

import (
	"regexp"
	"strings"
	"time"
)

// Status is the publication state of a post.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post is a single blog entry as stored and served over the JSON API.
type Post struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Slug            string    `json:"slug"`
	Content         string    `json:"content"`
	MetaTitle       string    `json:"metaTitle"`
	MetaDescription string    `json:"metaDescription"`
	MetaKeywords    string    `json:"metaKeywords"`
	FeaturedImage   string    `json:"featuredImage"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Published reports whether the post is publicly visible.
func (p Post) Published() bool {
	return p.Status == StatusPublished
}

// Path is the public URL path of the post.
func (p Post) Path() string {
	return "/blog/" + p.Slug + "/"
}

// Filter selects posts by status when listing.
type Filter string

const (
	FilterPublished Filter = "published"
	FilterDraft     Filter = "draft"
	FilterAll       Filter = "all"
)

// ParseFilter maps a query value to a Filter. An empty value means published.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterPublished:
		return FilterPublished, nil
	case FilterDraft:
		return FilterDraft, nil
	case FilterAll:
		return FilterAll, nil
	}
	return "", &ValidationError{Field: "status", Reason: "must be one of published, draft, all"}
}

// Match reports whether a post with status s is selected by f.
func (f Filter) Match(s Status) bool {
	switch f {
	case FilterAll:
		return true
	case FilterDraft:
		return s == StatusDraft
	default:
		return s == StatusPublished
	}
}

// Slugify converts a title to a URL-safe slug: lowercase ASCII letters and
// digits, with every other run of characters collapsed to one hyphen.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is already in slug form.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}
