package postdesk

import (
	"errors"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/postdesk/editor"
)

// SiteConfig holds all configuration for a postdesk site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Addr           string // Listen address (default ":3000")
	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseURL    string // SQLite path or Postgres URL (default "data/blog.db")

	AdminEmail    string // Seeded admin account, optional
	AdminPassword string // Password for AdminEmail
	SessionSecret string // Required: session and token signing secret
	CookieSecure  bool   // Set true for HTTPS

	PostCacheTTL   time.Duration // Published post cache TTL (default 5min)
	UploadDir      string        // Where uploaded images are written (default "public/uploads")
	MaxUploadBytes int64         // Upload size limit (default 5MB)
	TokenTTL       time.Duration // API token lifetime (default 24h)
	DraftTTL       time.Duration // Idle editor drafts are dropped after this (default 2h)

	LogLevel       string // debug, info, warn, error (default "info")
	MetricsEnabled bool   // Serve /metrics
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = DriverSQLite
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/blog.db"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.UploadDir == "" {
		c.UploadDir = "public/uploads"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 5 << 20
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.DraftTTL == 0 {
		c.DraftTTL = 2 * time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports missing required settings.
func (c *SiteConfig) Validate() error {
	if c.SessionSecret == "" {
		return errors.New("postdesk: SessionSecret is required")
	}
	if len(c.SessionSecret) < 16 {
		return errors.New("postdesk: SessionSecret must be at least 16 bytes")
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return errors.New("postdesk: AdminEmail and AdminPassword must be set together")
	}
	if c.AdminPassword != "" && len(c.AdminPassword) < minPasswordLen {
		return errors.New("postdesk: AdminPassword must be at least 6 characters")
	}
	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.New("postdesk: DatabaseDriver must be sqlite or postgres")
	}
	return nil
}

// ConfigFromEnv reads a SiteConfig from environment variables. Unset values
// are left for setDefaults.
func ConfigFromEnv() SiteConfig {
	return SiteConfig{
		Name:           os.Getenv("SITE_NAME"),
		URL:            os.Getenv("SITE_URL"),
		Description:    os.Getenv("SITE_DESCRIPTION"),
		Author:         os.Getenv("SITE_AUTHOR"),
		Addr:           os.Getenv("ADDR"),
		DatabaseDriver: os.Getenv("DATABASE_DRIVER"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AdminEmail:     os.Getenv("ADMIN_EMAIL"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		CookieSecure:   envBool("COOKIE_SECURE", false),
		PostCacheTTL:   envDuration("POST_CACHE_TTL", 0),
		UploadDir:      os.Getenv("UPLOAD_DIR"),
		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 0),
		TokenTTL:       envDuration("TOKEN_TTL", 0),
		DraftTTL:       envDuration("DRAFT_TTL", 0),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}
}

// LoadConfig reads the environment and fills in defaults. It does not
// validate; New does that.
func LoadConfig() SiteConfig {
	c := ConfigFromEnv()
	c.setDefaults()
	return c
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the logger built from LogLevel.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithViews replaces the default templates.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = v
	}
}

// WithStore uses an already-open store instead of opening one from config.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithVideoProviders replaces the video hosts the editor recognises.
func WithVideoProviders(p ...editor.VideoProvider) Option {
	return func(a *App) {
		a.videoProviders = p
	}
}
