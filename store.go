package postdesk

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/eringen/postdesk/content"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store wraps the relational database holding posts and admin accounts.
// It implements content.Repository.
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore opens the database for driver and runs schema migrations. For
// SQLite the dsn is a file path whose directory is created if needed.
func NewStore(driver, dsn string) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// WAL lets readers proceed during writes; busy_timeout makes writers
		// wait instead of failing with SQLITE_BUSY.
		if _, err := db.Exec(`
			PRAGMA journal_mode=WAL;
			PRAGMA busy_timeout=5000;
			PRAGMA synchronous=NORMAL;
			PRAGMA cache_size=-8000;
			PRAGMA mmap_size=268435456;
		`); err != nil {
			db.Close()
			return nil, err
		}
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	} else {
		db.SetMaxOpenConns(16)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s := &Store{db: db, driver: driver}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newStoreWithDB wraps an already-open handle without running migrations.
func newStoreWithDB(db *sqlx.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	textType := "TEXT"
	intType := "INTEGER"
	if s.driver == DriverPostgres {
		intType = "BIGINT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS posts (
    id %[1]s PRIMARY KEY,
    title %[1]s NOT NULL,
    slug %[1]s NOT NULL UNIQUE,
    content %[1]s NOT NULL DEFAULT '',
    meta_title %[1]s NOT NULL DEFAULT '',
    meta_description %[1]s NOT NULL DEFAULT '',
    meta_keywords %[1]s NOT NULL DEFAULT '',
    featured_image %[1]s NOT NULL DEFAULT '',
    status %[1]s NOT NULL DEFAULT 'draft',
    created_at %[2]s NOT NULL,
    updated_at %[2]s NOT NULL
)`, textType, intType),
		`CREATE INDEX IF NOT EXISTS posts_status_created_idx ON posts (status, created_at DESC)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS admins (
    email %[1]s PRIMARY KEY,
    password_hash %[1]s NOT NULL,
    role %[1]s NOT NULL DEFAULT 'admin',
    created_at %[2]s NOT NULL
)`, textType, intType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS uploads (
    filename %[1]s PRIMARY KEY,
    original_name %[1]s NOT NULL DEFAULT '',
    width %[2]s NOT NULL DEFAULT 0,
    height %[2]s NOT NULL DEFAULT 0,
    size %[2]s NOT NULL DEFAULT 0,
    uploaded_at %[2]s NOT NULL
)`, textType, intType),
		`CREATE INDEX IF NOT EXISTS uploads_uploaded_idx ON uploads (uploaded_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// postRow is the database shape of a post. Timestamps are unix microseconds
// so ordering and round trips behave the same on every driver.
type postRow struct {
	ID              string `db:"id"`
	Title           string `db:"title"`
	Slug            string `db:"slug"`
	Content         string `db:"content"`
	MetaTitle       string `db:"meta_title"`
	MetaDescription string `db:"meta_description"`
	MetaKeywords    string `db:"meta_keywords"`
	FeaturedImage   string `db:"featured_image"`
	Status          string `db:"status"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (r postRow) post() content.Post {
	return content.Post{
		ID:              r.ID,
		Title:           r.Title,
		Slug:            r.Slug,
		Content:         r.Content,
		MetaTitle:       r.MetaTitle,
		MetaDescription: r.MetaDescription,
		MetaKeywords:    r.MetaKeywords,
		FeaturedImage:   r.FeaturedImage,
		Status:          content.Status(r.Status),
		CreatedAt:       time.UnixMicro(r.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMicro(r.UpdatedAt).UTC(),
	}
}

func rowFromPost(p content.Post) postRow {
	return postRow{
		ID:              p.ID,
		Title:           p.Title,
		Slug:            p.Slug,
		Content:         p.Content,
		MetaTitle:       p.MetaTitle,
		MetaDescription: p.MetaDescription,
		MetaKeywords:    p.MetaKeywords,
		FeaturedImage:   p.FeaturedImage,
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt.UnixMicro(),
		UpdatedAt:       p.UpdatedAt.UnixMicro(),
	}
}

const postColumns = `id, title, slug, content, meta_title, meta_description, meta_keywords, featured_image, status, created_at, updated_at`

// InsertPost stores a new post.
func (s *Store) InsertPost(ctx context.Context, p content.Post) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO posts (`+postColumns+`)
VALUES (:id, :title, :slug, :content, :meta_title, :meta_description, :meta_keywords, :featured_image, :status, :created_at, :updated_at)`,
		rowFromPost(p))
	if err != nil {
		return s.writeError("insert post", p.Slug, err)
	}
	return nil
}

// UpdatePost overwrites every mutable column of the post with p.ID.
func (s *Store) UpdatePost(ctx context.Context, p content.Post) error {
	res, err := s.db.NamedExecContext(ctx, `UPDATE posts SET
title = :title, slug = :slug, content = :content, meta_title = :meta_title,
meta_description = :meta_description, meta_keywords = :meta_keywords,
featured_image = :featured_image, status = :status, updated_at = :updated_at
WHERE id = :id`, rowFromPost(p))
	if err != nil {
		return s.writeError("update post", p.Slug, err)
	}
	return expectOne(res, "update post", p.ID)
}

// DeletePost removes the post with the given id.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return &content.StoreError{Op: "delete post", Err: err}
	}
	return expectOne(res, "delete post", id)
}

// PostByID returns the post with the given id.
func (s *Store) PostByID(ctx context.Context, id string) (content.Post, error) {
	return s.getPost(ctx, "id", id)
}

// PostBySlug returns the post with the given slug regardless of status.
func (s *Store) PostBySlug(ctx context.Context, slug string) (content.Post, error) {
	return s.getPost(ctx, "slug", slug)
}

func (s *Store) getPost(ctx context.Context, column, value string) (content.Post, error) {
	var row postRow
	q := s.db.Rebind(`SELECT ` + postColumns + ` FROM posts WHERE ` + column + ` = ?`)
	if err := s.db.GetContext(ctx, &row, q, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Post{}, &content.NotFoundError{Key: column, Value: value}
		}
		return content.Post{}, &content.StoreError{Op: "get post by " + column, Err: err}
	}
	return row.post(), nil
}

// ListPosts returns posts matching f, newest first.
func (s *Store) ListPosts(ctx context.Context, f content.Filter) ([]content.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts`
	var args []any
	switch f {
	case content.FilterAll:
	case content.FilterDraft:
		q += ` WHERE status = ?`
		args = append(args, string(content.StatusDraft))
	default:
		q += ` WHERE status = ?`
		args = append(args, string(content.StatusPublished))
	}
	q += ` ORDER BY created_at DESC, id`

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, &content.StoreError{Op: "list posts", Err: err}
	}
	posts := make([]content.Post, 0, len(rows))
	for _, r := range rows {
		posts = append(posts, r.post())
	}
	return posts, nil
}

// SlugTaken reports whether a post other than exceptID uses slug.
func (s *Store) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(*) FROM posts WHERE slug = ? AND id <> ?`)
	if err := s.db.GetContext(ctx, &n, q, slug, exceptID); err != nil {
		return false, &content.StoreError{Op: "check slug", Err: err}
	}
	return n > 0, nil
}

// Admin is a stored administrator account.
type Admin struct {
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Role         string    `db:"role"`
	CreatedAt    time.Time `db:"-"`
}

// InsertAdmin stores a new admin account, replacing the hash and role if the
// email already exists.
func (s *Store) InsertAdmin(ctx context.Context, a Admin) error {
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	q := s.db.Rebind(`INSERT INTO admins (email, password_hash, role, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET password_hash = excluded.password_hash, role = excluded.role`)
	if _, err := s.db.ExecContext(ctx, q, a.Email, a.PasswordHash, a.Role, a.CreatedAt.UnixMicro()); err != nil {
		return &content.StoreError{Op: "insert admin", Err: err}
	}
	return nil
}

// AdminByEmail returns the admin account for email.
func (s *Store) AdminByEmail(ctx context.Context, email string) (Admin, error) {
	var row struct {
		Admin
		CreatedAt int64 `db:"created_at"`
	}
	q := s.db.Rebind(`SELECT email, password_hash, role, created_at FROM admins WHERE email = ?`)
	if err := s.db.GetContext(ctx, &row, q, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Admin{}, &content.NotFoundError{Key: "email", Value: email}
		}
		return Admin{}, &content.StoreError{Op: "get admin", Err: err}
	}
	a := row.Admin
	a.CreatedAt = time.UnixMicro(row.CreatedAt).UTC()
	return a, nil
}

// Upload is the record of an image stored under the upload directory.
type Upload struct {
	Filename     string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// URL is the public path of the image.
func (u Upload) URL() string { return uploadsPrefix + u.Filename }

type uploadRow struct {
	Filename     string `db:"filename"`
	OriginalName string `db:"original_name"`
	Width        int    `db:"width"`
	Height       int    `db:"height"`
	Size         int    `db:"size"`
	UploadedAt   int64  `db:"uploaded_at"`
}

// InsertUpload records an uploaded image. A filename already on record is
// a ConflictError.
func (s *Store) InsertUpload(ctx context.Context, u Upload) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO uploads (filename, original_name, width, height, size, uploaded_at)
VALUES (:filename, :original_name, :width, :height, :size, :uploaded_at)`, uploadRow{
		Filename:     u.Filename,
		OriginalName: u.OriginalName,
		Width:        u.Width,
		Height:       u.Height,
		Size:         u.Size,
		UploadedAt:   u.UploadedAt.UnixMicro(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return &content.ConflictError{Slug: u.Filename}
		}
		return &content.StoreError{Op: "insert upload", Err: err}
	}
	return nil
}

// ListUploads returns upload records, newest first.
func (s *Store) ListUploads(ctx context.Context) ([]Upload, error) {
	var rows []uploadRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT filename, original_name, width, height, size, uploaded_at
FROM uploads ORDER BY uploaded_at DESC, filename`); err != nil {
		return nil, &content.StoreError{Op: "list uploads", Err: err}
	}
	out := make([]Upload, 0, len(rows))
	for _, r := range rows {
		out = append(out, Upload{
			Filename:     r.Filename,
			OriginalName: r.OriginalName,
			Width:        r.Width,
			Height:       r.Height,
			Size:         r.Size,
			UploadedAt:   time.UnixMicro(r.UploadedAt).UTC(),
		})
	}
	return out, nil
}

// UploadExists reports whether filename is on record.
func (s *Store) UploadExists(ctx context.Context, filename string) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM uploads WHERE filename = ?`), filename); err != nil {
		return false, &content.StoreError{Op: "check upload", Err: err}
	}
	return n > 0, nil
}

// DeleteUpload removes the record of filename.
func (s *Store) DeleteUpload(ctx context.Context, filename string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM uploads WHERE filename = ?`), filename)
	if err != nil {
		return &content.StoreError{Op: "delete upload", Err: err}
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &content.NotFoundError{Key: "filename", Value: filename}
	}
	return nil
}

// writeError maps a failed write to a ConflictError when the slug unique
// index rejected it.
func (s *Store) writeError(op, slug string, err error) error {
	if isUniqueViolation(err) {
		return &content.ConflictError{Slug: slug}
	}
	return &content.StoreError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func expectOne(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &content.StoreError{Op: op, Err: err}
	}
	if n == 0 {
		return &content.NotFoundError{Key: "id", Value: id}
	}
	return nil
}
