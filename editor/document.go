// Package editor is the in-memory model behind the post editor. A Document
// keeps a structured block surface and a raw HTML buffer in step, derives
// the slug and meta title from the title, and hands a snapshot to a Saver.
//
// A Document is not safe for concurrent use except for the save gate, which
// rejects a second Save while one is in flight.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"github.com/eringen/postdesk/content"
)

var (
	ErrSlugRequired   = errors.New("slug is required")
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrReadOnly       = errors.New("document is read-only while previewing")
	ErrNotStructured  = errors.New("operation needs the visual editor")
	ErrNotRaw         = errors.New("operation needs the HTML editor")
)

// View is what the user currently sees.
type View int

const (
	StructuredEdit View = iota
	RawEdit
	Preview
)

func (v View) String() string {
	switch v {
	case RawEdit:
		return "html"
	case Preview:
		return "preview"
	default:
		return "visual"
	}
}

// Saver persists a post snapshot. content.Service and Client implement it.
type Saver interface {
	Create(ctx context.Context, req content.CreateRequest) (content.Post, error)
	Update(ctx context.Context, req content.UpdateRequest) (content.Post, error)
}

// rawBuffer is present only while the HTML view is active.
type rawBuffer struct {
	html string
}

// Document is one post being edited.
type Document struct {
	post      content.Post
	surface   *Surface
	canonical string
	raw       *rawBuffer

	preview    bool
	fullscreen bool

	slugPinned      bool
	metaTitleFilled bool

	saving    atomic.Bool
	now       func() time.Time
	providers []VideoProvider
}

// Option configures a Document.
type Option func(*Document)

// WithClock overrides the time source used for save timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Document) { d.now = now }
}

// WithVideoProviders replaces the video hosts InsertVideo rewrites.
func WithVideoProviders(p ...VideoProvider) Option {
	return func(d *Document) { d.providers = p }
}

// New returns an empty draft document.
func New(opts ...Option) *Document {
	d := &Document{
		post:      content.Post{Status: content.StatusDraft},
		surface:   &Surface{},
		now:       time.Now,
		providers: DefaultProviders,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open returns a document initialised from p. A stored post keeps its slug
// until the user edits the slug field.
func Open(p content.Post, opts ...Option) (*Document, error) {
	d := New(opts...)
	s, err := NewSurface(p.Content)
	if err != nil {
		return nil, err
	}
	if p.Status == "" {
		p.Status = content.StatusDraft
	}
	d.post = p
	d.surface = s
	d.canonical = s.HTML()
	d.slugPinned = p.ID != ""
	d.metaTitleFilled = p.MetaTitle != ""
	return d, nil
}

// View reports the active view.
func (d *Document) View() View {
	switch {
	case d.preview:
		return Preview
	case d.raw != nil:
		return RawEdit
	default:
		return StructuredEdit
	}
}

// ShowRaw switches to the HTML view, snapshotting the structured content.
func (d *Document) ShowRaw() {
	d.preview = false
	if d.raw != nil {
		return
	}
	r := Reconcile(ToRaw, d.canonical, "")
	d.raw = &rawBuffer{html: r.Buffer}
}

// ShowStructured switches to the visual view, re-parsing the HTML buffer if
// it was edited. On a parse failure the document stays in the HTML view.
func (d *Document) ShowStructured() error {
	d.preview = false
	if d.raw == nil {
		return nil
	}
	r := Reconcile(ToStructured, d.canonical, d.raw.html)
	if r.Reload {
		if err := d.surface.Load(r.Buffer); err != nil {
			return err
		}
		d.canonical = d.surface.HTML()
	}
	d.raw = nil
	return nil
}

// TogglePreview enters or leaves the read-only preview.
func (d *Document) TogglePreview() {
	d.preview = !d.preview
}

// ToggleFullscreen flips the fullscreen flag.
func (d *Document) ToggleFullscreen() {
	d.fullscreen = !d.fullscreen
}

// Fullscreen reports the fullscreen flag.
func (d *Document) Fullscreen() bool { return d.fullscreen }

// HTML is the content that would be saved: the raw buffer while the HTML
// view is active, the canonical serialisation otherwise.
func (d *Document) HTML() string {
	if d.raw != nil {
		return d.raw.html
	}
	return d.canonical
}

// Post returns the working copy with Content set to HTML.
func (d *Document) Post() content.Post {
	p := d.post
	p.Content = d.HTML()
	return p
}

// Surface exposes the structured surface for rendering.
func (d *Document) Surface() *Surface { return d.surface }

// SlugPinned reports whether the slug no longer follows the title.
func (d *Document) SlugPinned() bool { return d.slugPinned }

func (d *Document) editable() error {
	if d.preview {
		return ErrReadOnly
	}
	return nil
}

// SetTitle updates the title, re-derives the slug unless it is pinned and
// fills an empty meta title the first time the title becomes non-empty.
func (d *Document) SetTitle(title string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.post.Title = title
	if !d.slugPinned {
		d.post.Slug = content.Slugify(title)
	}
	if title != "" && d.post.MetaTitle == "" && !d.metaTitleFilled {
		d.post.MetaTitle = title
		d.metaTitleFilled = true
	}
	return nil
}

// SetSlug pins a manually entered slug. An empty value unpins it and derives
// the slug from the title again.
func (d *Document) SetSlug(slug string) error {
	if err := d.editable(); err != nil {
		return err
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		d.slugPinned = false
		d.post.Slug = content.Slugify(d.post.Title)
		return nil
	}
	d.slugPinned = true
	d.post.Slug = slug
	return nil
}

// SetMetaTitle sets the SEO title.
func (d *Document) SetMetaTitle(s string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.post.MetaTitle = s
	if s != "" {
		d.metaTitleFilled = true
	}
	return nil
}

// SetMetaDescription sets the SEO description.
func (d *Document) SetMetaDescription(s string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.post.MetaDescription = s
	return nil
}

// SetMetaKeywords sets the comma-separated SEO keywords.
func (d *Document) SetMetaKeywords(s string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.post.MetaKeywords = s
	return nil
}

// SetFeaturedImage sets the cover image URL.
func (d *Document) SetFeaturedImage(s string) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.post.FeaturedImage = strings.TrimSpace(s)
	return nil
}

// SetStatus sets draft or published.
func (d *Document) SetStatus(s content.Status) error {
	if err := d.editable(); err != nil {
		return err
	}
	if !s.Valid() {
		return &content.ValidationError{Field: "status", Reason: "must be draft or published"}
	}
	d.post.Status = s
	return nil
}

// EditRaw replaces the HTML buffer.
func (d *Document) EditRaw(src string) error {
	if err := d.editable(); err != nil {
		return err
	}
	if d.raw == nil {
		return ErrNotRaw
	}
	d.raw.html = src
	return nil
}

// structured runs fn against the surface and refreshes the canonical HTML.
func (d *Document) structured(fn func(s *Surface) error) error {
	if err := d.editable(); err != nil {
		return err
	}
	if d.raw != nil {
		return ErrNotStructured
	}
	if err := fn(d.surface); err != nil {
		return err
	}
	d.canonical = d.surface.HTML()
	return nil
}

// ApplyEdit replaces the structured content with the HTML the visual editor
// produced.
func (d *Document) ApplyEdit(src string) error {
	return d.structured(func(s *Surface) error {
		cursor := s.Cursor()
		if err := s.Load(src); err != nil {
			return err
		}
		s.SetCursor(cursor)
		return nil
	})
}

// SetCursor moves the insertion point to before block i.
func (d *Document) SetCursor(i int) error {
	return d.structured(func(s *Surface) error {
		s.SetCursor(i)
		return nil
	})
}

// InsertParagraph inserts a paragraph of plain text at the cursor.
func (d *Document) InsertParagraph(s string) error {
	return d.structured(func(sf *Surface) error {
		sf.Insert(paragraphNode(s))
		return nil
	})
}

// InsertHeading inserts a heading of the given level at the cursor.
func (d *Document) InsertHeading(level int, s string) error {
	return d.structured(func(sf *Surface) error {
		sf.Insert(headingNode(level, s))
		return nil
	})
}

// DeleteBlock removes block i.
func (d *Document) DeleteBlock(i int) error {
	return d.structured(func(s *Surface) error {
		return s.Delete(i)
	})
}

// insert adds nodes at the cursor in the visual view, or appends their
// markup to the buffer in the HTML view.
func (d *Document) insert(nodes ...*html.Node) error {
	if err := d.editable(); err != nil {
		return err
	}
	if d.raw != nil {
		var b strings.Builder
		for _, n := range nodes {
			_ = html.Render(&b, n)
		}
		d.raw.html += b.String()
		return nil
	}
	d.surface.Insert(nodes...)
	d.canonical = d.surface.HTML()
	return nil
}

// InsertImage inserts an image block.
func (d *Document) InsertImage(src, alt string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return &content.ValidationError{Field: "src", Reason: "must not be empty"}
	}
	return d.insert(imageNode(src, alt))
}

// InsertVideo inserts an embedded video. Links to known hosts are rewritten
// to their player URL; others are embedded unchanged.
func (d *Document) InsertVideo(link string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return &content.ValidationError{Field: "url", Reason: "must not be empty"}
	}
	return d.insert(videoNode(EmbedURL(link, d.providers)))
}

// PreviewData is what the preview pane shows.
type PreviewData struct {
	Title           string
	HTML            string
	MetaTitle       string
	MetaDescription string
	Path            string
}

// Preview renders the current state for the preview pane.
func (d *Document) Preview() PreviewData {
	meta := d.post.MetaTitle
	if meta == "" {
		meta = d.post.Title
	}
	return PreviewData{
		Title:           d.post.Title,
		HTML:            d.HTML(),
		MetaTitle:       meta,
		MetaDescription: d.post.MetaDescription,
		Path:            "/blog/" + d.post.Slug + "/",
	}
}

// Snapshot is the post as it would be sent on save: content from HTML,
// CreatedAt kept or initialised and UpdatedAt set to now.
func (d *Document) Snapshot() content.Post {
	p := d.Post()
	now := d.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return p
}

// Saving reports whether a save is in flight.
func (d *Document) Saving() bool { return d.saving.Load() }

// Save sends the snapshot to s, creating the post when it has no id and
// updating it otherwise. An empty slug fails before s is called. On error
// the document is left as it was so the save can be retried; on success it
// adopts the stored post's id, slug and timestamps, and the slug stops
// following the title.
func (d *Document) Save(ctx context.Context, s Saver) (content.Post, error) {
	if strings.TrimSpace(d.post.Slug) == "" {
		return content.Post{}, ErrSlugRequired
	}
	if !d.saving.CompareAndSwap(false, true) {
		return content.Post{}, ErrSaveInProgress
	}
	defer d.saving.Store(false)

	snap := d.Snapshot()
	var (
		saved content.Post
		err   error
	)
	if snap.ID == "" {
		saved, err = s.Create(ctx, content.CreateFrom(snap))
	} else {
		saved, err = s.Update(ctx, content.UpdateFrom(snap))
	}
	if err != nil {
		return content.Post{}, err
	}

	d.post.ID = saved.ID
	d.post.Slug = saved.Slug
	d.slugPinned = true
	d.post.CreatedAt = saved.CreatedAt
	d.post.UpdatedAt = saved.UpdatedAt
	d.post.MetaTitle = saved.MetaTitle
	d.post.Status = saved.Status
	return saved, nil
}
