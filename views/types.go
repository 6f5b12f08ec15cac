package views

import (
	"time"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
)

// SiteConfig holds the site-wide settings templates need.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
	// Sanitizer cleans stored post HTML before it is rendered. Nil uses
	// the default policy.
	Sanitizer *content.Sanitizer
}

func (s SiteConfig) sanitizer() *content.Sanitizer {
	if s.Sanitizer == nil {
		return content.DefaultSanitizer()
	}
	return s.Sanitizer
}

// PageMeta carries per-page SEO metadata into the <head> template.
type PageMeta struct {
	Title         string
	Description   string
	Keywords      string
	URL           string // canonical + og:url
	OGType        string // "website" or "article"
	Image         string
	PublishedTime time.Time
	ModifiedTime  time.Time
	JSONLD        string
	NoIndex       bool
}

// PostCard is a post prepared for a listing.
type PostCard struct {
	content.Post
	Excerpt     string
	ReadingTime int
}

// LoginData feeds the admin login page.
type LoginData struct {
	Email     string
	Error     string
	CSRFToken string
}

// DashboardData feeds the admin post list.
type DashboardData struct {
	Posts     []content.Post
	Filter    content.Filter
	Counts    map[content.Filter]int
	Message   string
	Email     string
	Token     string
	CSRFToken string
}

// EditorData feeds the editor page.
type EditorData struct {
	DraftID    string
	Post       content.Post
	View       editor.View
	HTML       string
	Blocks     []string
	Cursor     int
	Fullscreen bool
	SlugPinned bool
	Saving     bool
	Preview    editor.PreviewData
	Media      []MediaItem
	Message    string
	Error      string
	CSRFToken  string
}

// MediaItem is one uploaded image.
type MediaItem struct {
	Name         string
	URL          string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// MediaData feeds the admin media library.
type MediaData struct {
	Items     []MediaItem
	Message   string
	Error     string
	CSRFToken string
}
