// Package postdesk is a blog CMS built with Go and Echo. It stores posts in
// SQLite or Postgres, serves them as pages, RSS and a sitemap, exposes a JSON
// content API and hosts an in-browser editor for signed-in admins.
//
// Templates are supplied through ViewFuncs; DefaultViews returns the ones
// shipped in the views package.
package postdesk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/editor"
	"github.com/eringen/postdesk/views"
)

// ViewFuncs holds the components the app renders pages with.
type ViewFuncs struct {
	Home           func(site views.SiteConfig, posts []content.Post) templ.Component
	BlogList       func(site views.SiteConfig, posts []content.Post) templ.Component
	Post           func(site views.SiteConfig, post content.Post) templ.Component
	NotFound       func(site views.SiteConfig) templ.Component
	ServerError    func(site views.SiteConfig) templ.Component
	AdminLogin     func(site views.SiteConfig, d views.LoginData) templ.Component
	AdminDashboard func(site views.SiteConfig, d views.DashboardData) templ.Component
	Editor         func(site views.SiteConfig, d views.EditorData) templ.Component
	AdminMedia     func(site views.SiteConfig, d views.MediaData) templ.Component
}

// DefaultViews returns the built-in templates.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:           views.Home,
		BlogList:       views.BlogList,
		Post:           views.Post,
		NotFound:       views.NotFound,
		ServerError:    views.ServerError,
		AdminLogin:     views.AdminLogin,
		AdminDashboard: views.AdminDashboard,
		Editor:         views.Editor,
		AdminMedia:     views.AdminMedia,
	}
}

// withDefaults fills unset components from DefaultViews.
func (v ViewFuncs) withDefaults() ViewFuncs {
	d := DefaultViews()
	if v.Home == nil {
		v.Home = d.Home
	}
	if v.BlogList == nil {
		v.BlogList = d.BlogList
	}
	if v.Post == nil {
		v.Post = d.Post
	}
	if v.NotFound == nil {
		v.NotFound = d.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = d.ServerError
	}
	if v.AdminLogin == nil {
		v.AdminLogin = d.AdminLogin
	}
	if v.AdminDashboard == nil {
		v.AdminDashboard = d.AdminDashboard
	}
	if v.Editor == nil {
		v.Editor = d.Editor
	}
	if v.AdminMedia == nil {
		v.AdminMedia = d.AdminMedia
	}
	return v
}

// App wires together the store, content service, cache, handlers and
// middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Store   *Store
	Cache   *PostCache
	Content *content.Service
	Views   ViewFuncs
	Log     *zap.Logger

	drafts         *DraftStore
	loginLimiter   *LoginLimiter
	tokens         *TokenIssuer
	metrics        *appMetrics
	sanitizer      *content.Sanitizer
	videoProviders []editor.VideoProvider
	customRoutes   []func(*App)
	staticDir      string
}

// New validates cfg, opens the store, seeds the configured admin and
// registers all routes. The returned App is ready to Start or to serve
// requests through App.Echo.
func New(cfg SiteConfig, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config:         cfg,
		Echo:           echo.New(),
		staticDir:      "public",
		videoProviders: editor.DefaultProviders,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	a.Views = a.Views.withDefaults()
	a.sanitizer = content.NewSanitizer(editor.EmbedHosts(a.videoProviders)...)

	if a.Log == nil {
		l, err := NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("postdesk: init logger: %w", err)
		}
		a.Log = l
	}

	if a.Store == nil {
		store, err := NewStore(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postdesk: init store: %w", err)
		}
		a.Store = store
	}

	a.Content = content.NewService(a.Store, content.WithChangeHook(func() {
		a.Cache.Invalidate()
	}))
	a.Cache = NewPostCache(a.Content, cfg.PostCacheTTL)
	a.drafts = NewDraftStore(cfg.DraftTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.tokens = NewTokenIssuer(cfg.SessionSecret, cfg.TokenTTL)
	if cfg.MetricsEnabled {
		a.metrics = newAppMetrics(a.drafts.Len)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.seedAdmin(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("postdesk: seed admin: %w", err)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a, nil
}

// Start listens on Config.Addr until the server is shut down.
func (a *App) Start() error {
	a.Log.Info("server starting",
		zap.String("addr", a.Config.Addr),
		zap.String("url", a.Config.URL),
		zap.String("driver", a.Config.DatabaseDriver),
	)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// the app.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return err
}

func (a *App) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		Sanitizer:   a.sanitizer,
	}
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served under /public/ ahead of the user's static dir.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(embeddedFS))))
	e.GET("/public/site.css", embeddedHandler)
	e.GET("/public/editor.js", embeddedHandler)

	e.Static("/public", a.staticDir)
	e.Static("/uploads", a.Config.UploadDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/", a.handleBlog)
	e.GET("/blog/:slug/", a.handlePost)

	e.GET("/healthz", a.handleHealth)
	if a.metrics != nil {
		e.GET("/metrics", a.metrics.handler())
	}

	e.GET(contentPath, a.handleContentGet)
	e.POST(contentPath, a.handleContentCreate)
	e.PUT(contentPath, a.handleContentUpdate)
	e.DELETE(contentPath, a.handleContentDelete)
	e.POST(uploadPath, a.handleUpload)

	e.GET(loginPath, a.handleLoginPage)
	e.POST(loginPath, a.handleLogin)
	e.POST("/admin/logout/", a.handleLogout)
	e.GET("/admin/", a.handleDashboard)
	e.POST("/admin/token/", a.handleToken)
	e.POST("/admin/post/:id/delete/", a.handleAdminDelete)
	e.GET("/admin/media/", a.handleMediaList)
	e.POST("/admin/media/", a.handleMediaUpload)
	e.POST("/admin/media/:name/delete/", a.handleMediaDelete)
	e.GET("/admin/editor/new/", a.handleEditorNew)
	e.GET("/admin/editor/edit/:slug/", a.handleEditorOpen)
	e.GET("/admin/editor/:draft/", a.handleEditorPage)
	e.POST("/admin/editor/:draft/", a.handleEditorAction)
}
