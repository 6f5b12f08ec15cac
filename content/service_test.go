package content

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository for service tests.
type memRepo struct {
	posts map[string]Post
	err   error
}

func newMemRepo() *memRepo {
	return &memRepo{posts: make(map[string]Post)}
}

func (m *memRepo) InsertPost(_ context.Context, p Post) error {
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return &ConflictError{Slug: p.Slug}
		}
	}
	m.posts[p.ID] = p
	return nil
}

func (m *memRepo) UpdatePost(_ context.Context, p Post) error {
	if _, ok := m.posts[p.ID]; !ok {
		return &NotFoundError{Key: "id", Value: p.ID}
	}
	m.posts[p.ID] = p
	return nil
}

func (m *memRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return &NotFoundError{Key: "id", Value: id}
	}
	delete(m.posts, id)
	return nil
}

func (m *memRepo) PostByID(_ context.Context, id string) (Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return Post{}, &NotFoundError{Key: "id", Value: id}
	}
	return p, nil
}

func (m *memRepo) PostBySlug(_ context.Context, slug string) (Post, error) {
	for _, p := range m.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Post{}, &NotFoundError{Key: "slug", Value: slug}
}

func (m *memRepo) ListPosts(_ context.Context, f Filter) ([]Post, error) {
	var out []Post
	for _, p := range m.posts {
		if f.Match(p.Status) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) SlugTaken(_ context.Context, slug, exceptID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	for _, p := range m.posts {
		if p.Slug == slug && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// stepClock advances one second per call.
func stepClock() func() time.Time {
	t := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestService(repo Repository, opts ...ServiceOption) *Service {
	return NewService(repo, append([]ServiceOption{WithClock(stepClock())}, opts...)...)
}

func strPtr(s string) *string { return &s }

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Leading and trailing  ", "leading-and-trailing"},
		{"Go 1.24: What's New?", "go-1-24-what-s-new"},
		{"---", ""},
		{"", ""},
		{"Ünïcode Títle", "n-code-t-tle"},
		{"already-a-slug", "already-a-slug"},
		{"Multiple   spaces\tand\nbreaks", "multiple-spaces-and-breaks"},
	}
	for _, tc := range cases {
		got := Slugify(tc.in)
		assert.Equal(t, tc.want, got, "Slugify(%q)", tc.in)
		assert.Equal(t, got, Slugify(got), "Slugify should be idempotent for %q", tc.in)
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":          FilterPublished,
		"published": FilterPublished,
		"draft":     FilterDraft,
		"ALL":       FilterAll,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFilter("archived")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestCreateAppliesDefaults(t *testing.T) {
	svc := newTestService(newMemRepo())

	p, err := svc.Create(context.Background(), CreateRequest{
		Title:   "Hello World",
		Slug:    "hello-world",
		Content: "<p>hi</p>",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, "Hello World", p.MetaTitle)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemRepo())
	cases := map[string]CreateRequest{
		"missing title":   {Slug: "a", Content: "x"},
		"missing slug":    {Title: "A", Content: "x"},
		"missing content": {Title: "A", Slug: "a"},
		"bad slug":        {Title: "A", Slug: "Not A Slug", Content: "x"},
		"bad status":      {Title: "A", Slug: "a", Content: "x", Status: "archived"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), req)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestCreateDuplicateSlugConflicts(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	req := CreateRequest{Title: "My Post", Slug: "my-post", Content: "<p>1</p>"}

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "my-post", cerr.Slug)

	all, err := svc.List(context.Background(), FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpdateMergesAndStamps(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Title: "Draft", Slug: "draft", Content: "<p>a</p>", MetaDescription: "desc"})
	require.NoError(t, err)

	published := StatusPublished
	updated, err := svc.Update(ctx, UpdateRequest{ID: created.ID, Content: strPtr("<p>b</p>"), Status: &published})
	require.NoError(t, err)

	assert.Equal(t, "<p>b</p>", updated.Content)
	assert.Equal(t, "desc", updated.MetaDescription, "omitted fields keep their value")
	assert.Equal(t, StatusPublished, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
}

func TestUpdateRejectsTakenSlug(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Title: "One", Slug: "one", Content: "x"})
	require.NoError(t, err)
	two, err := svc.Create(ctx, CreateRequest{Title: "Two", Slug: "two", Content: "x"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateRequest{ID: two.ID, Slug: strPtr("one")})
	var cerr *ConflictError
	assert.ErrorAs(t, err, &cerr)

	// Keeping its own slug is not a conflict.
	_, err = svc.Update(ctx, UpdateRequest{ID: two.ID, Slug: strPtr("two")})
	assert.NoError(t, err)
}

func TestUpdateErrors(t *testing.T) {
	svc := newTestService(newMemRepo())

	_, err := svc.Update(context.Background(), UpdateRequest{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Update(context.Background(), UpdateRequest{ID: "missing"})
	assert.True(t, IsNotFound(err))
}

func TestDelete(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()

	var verr *ValidationError
	assert.ErrorAs(t, svc.Delete(ctx, ""), &verr)
	assert.True(t, IsNotFound(svc.Delete(ctx, "nope")))

	p, err := svc.Create(ctx, CreateRequest{Title: "Gone", Slug: "gone", Content: "x"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err = svc.GetBySlug(ctx, "gone")
	assert.True(t, IsNotFound(err))
}

func TestChangeHookRunsOnWritesOnly(t *testing.T) {
	calls := 0
	svc := newTestService(newMemRepo(), WithChangeHook(func() { calls++ }))
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Title: "Hook", Slug: "hook", Content: "x"})
	require.NoError(t, err)
	_, _ = svc.List(ctx, FilterAll)
	_, _ = svc.Create(ctx, CreateRequest{Title: "Hook", Slug: "hook", Content: "x"})
	_, err = svc.Update(ctx, UpdateRequest{ID: p.ID, Title: strPtr("Hooked")})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))

	assert.Equal(t, 3, calls)
}

func TestRepositoryErrorsPassThrough(t *testing.T) {
	repo := newMemRepo()
	repo.err = &StoreError{Op: "slug taken", Err: errors.New("disk full")}
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateRequest{Title: "A", Slug: "a", Content: "x"})
	var serr *StoreError
	assert.ErrorAs(t, err, &serr)
}

func TestListFiltersAndOrders(t *testing.T) {
	svc := newTestService(newMemRepo())
	ctx := context.Background()
	published := StatusPublished

	for _, slug := range []string{"first", "second", "third"} {
		p, err := svc.Create(ctx, CreateRequest{Title: slug, Slug: slug, Content: "x"})
		require.NoError(t, err)
		if slug != "second" {
			_, err = svc.Update(ctx, UpdateRequest{ID: p.ID, Status: &published})
			require.NoError(t, err)
		}
	}

	all, err := svc.List(ctx, FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}

	pub, err := svc.List(ctx, FilterPublished)
	require.NoError(t, err)
	assert.Len(t, pub, 2)
	for _, p := range pub {
		assert.Equal(t, StatusPublished, p.Status)
	}

	drafts, err := svc.List(ctx, FilterDraft)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "second", drafts[0].Slug)
}
