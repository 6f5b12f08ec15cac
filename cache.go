package postdesk

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/postdesk/content"
)

// publishedLister is the read side the cache loads from.
type publishedLister interface {
	List(ctx context.Context, f content.Filter) ([]content.Post, error)
}

// PostCache is an in-memory cache of published posts with TTL. Writes through
// content.Service invalidate it.
type PostCache struct {
	mu      sync.RWMutex
	posts   []content.Post
	bySlug  map[string]int
	fetched time.Time
	ttl     time.Duration
	src     publishedLister
}

// NewPostCache creates a PostCache backed by src.
func NewPostCache(src publishedLister, ttl time.Duration) *PostCache {
	return &PostCache{src: src, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.bySlug = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.src.List(ctx, content.FilterPublished)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []content.Post{}
	}
	c.bySlug = make(map[string]int, len(posts))
	for i, p := range posts {
		c.bySlug[p.Slug] = i
	}
	c.posts = posts
	c.fetched = time.Now()
	return nil
}

// ensureLoaded tries a read lock first and only takes the write lock when a
// reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]content.Post, map[string]int, error) {
	c.mu.RLock()
	if c.valid() {
		posts, idx := c.posts, c.bySlug
		c.mu.RUnlock()
		return posts, idx, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.bySlug, nil
}

// ListPublished returns published posts, newest first.
func (c *PostCache) ListPublished(ctx context.Context) ([]content.Post, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// GetPublished returns a single published post by slug.
func (c *PostCache) GetPublished(ctx context.Context, slug string) (content.Post, error) {
	posts, idx, err := c.ensureLoaded(ctx)
	if err != nil {
		return content.Post{}, err
	}
	i, ok := idx[slug]
	if !ok {
		return content.Post{}, &content.NotFoundError{Key: "slug", Value: slug}
	}
	return posts[i], nil
}
