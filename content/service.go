package content

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence the Service needs. Implementations return
// *NotFoundError, *ConflictError or *StoreError.
type Repository interface {
	InsertPost(ctx context.Context, p Post) error
	UpdatePost(ctx context.Context, p Post) error
	DeletePost(ctx context.Context, id string) error
	PostByID(ctx context.Context, id string) (Post, error)
	PostBySlug(ctx context.Context, slug string) (Post, error)
	ListPosts(ctx context.Context, f Filter) ([]Post, error)
	SlugTaken(ctx context.Context, slug, exceptID string) (bool, error)
}

// Service implements the post operations behind the JSON API and the editor.
type Service struct {
	repo     Repository
	now      func() time.Time
	newID    func() string
	onChange []func()
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithChangeHook registers fn to run after every successful write.
func WithChangeHook(fn func()) ServiceOption {
	return func(s *Service) { s.onChange = append(s.onChange, fn) }
}

// NewService returns a Service over repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// timestamp is the current time in UTC at the precision the store keeps.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *Service) changed() {
	for _, fn := range s.onChange {
		fn()
	}
}

// List returns posts matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Post, error) {
	return s.repo.ListPosts(ctx, f)
}

// GetBySlug returns the post with the given slug regardless of status.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Post{}, missingFields("slug")
	}
	return s.repo.PostBySlug(ctx, slug)
}

// GetByID returns the post with the given id.
func (s *Service) GetByID(ctx context.Context, id string) (Post, error) {
	if strings.TrimSpace(id) == "" {
		return Post{}, missingFields("id")
	}
	return s.repo.PostByID(ctx, id)
}

// Create stores a new post. The slug must not be in use.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Post, error) {
	if err := req.Validate(); err != nil {
		return Post{}, err
	}
	taken, err := s.repo.SlugTaken(ctx, req.Slug, "")
	if err != nil {
		return Post{}, err
	}
	if taken {
		return Post{}, &ConflictError{Slug: req.Slug}
	}

	now := s.timestamp()
	p := Post{
		ID:              s.newID(),
		Title:           req.Title,
		Slug:            req.Slug,
		Content:         req.Content,
		MetaTitle:       req.MetaTitle,
		MetaDescription: req.MetaDescription,
		MetaKeywords:    req.MetaKeywords,
		FeaturedImage:   req.FeaturedImage,
		Status:          req.Status,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if p.MetaTitle == "" {
		p.MetaTitle = p.Title
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	// The unique index still rejects a concurrent create that passed the
	// check above.
	if err := s.repo.InsertPost(ctx, p); err != nil {
		return Post{}, err
	}
	s.changed()
	return p, nil
}

// Update applies req to an existing post and stamps UpdatedAt.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (Post, error) {
	if err := req.Validate(); err != nil {
		return Post{}, err
	}
	p, err := s.repo.PostByID(ctx, req.ID)
	if err != nil {
		return Post{}, err
	}
	req.apply(&p)
	if req.Slug != nil {
		taken, err := s.repo.SlugTaken(ctx, p.Slug, p.ID)
		if err != nil {
			return Post{}, err
		}
		if taken {
			return Post{}, &ConflictError{Slug: p.Slug}
		}
	}
	p.UpdatedAt = s.timestamp()
	if err := s.repo.UpdatePost(ctx, p); err != nil {
		return Post{}, err
	}
	s.changed()
	return p, nil
}

// Delete removes the post with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return missingFields("id")
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}
	s.changed()
	return nil
}
