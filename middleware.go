package postdesk

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/editor"
)

const sessionName = "admin_session"

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Pre(middleware.NonWWWRedirect())

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.Log.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("ip", v.RemoteIP),
			)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	if a.metrics != nil {
		e.Use(a.metrics.middleware)
	}

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return isAssetPath(c.Request().URL.Path)
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy(editor.EmbedHosts(a.videoProviders)),
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(a.authMiddleware)

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		ContextKey:  middleware.DefaultCSRFConfig.ContextKey,
		TokenLookup: "header:X-CSRF-Token,form:_csrf",
		CookieName:  "_csrf",
		CookiePath:  "/",
		CookieSameSite: func() http.SameSite {
			return http.SameSiteLaxMode
		}(),
		CookieSecure: a.Config.CookieSecure,
		Skipper: func(c echo.Context) bool {
			_, bearer := bearerToken(c.Request())
			return bearer
		},
		ErrorHandler: func(err error, c echo.Context) error {
			if isAPIPath(c.Request().URL.Path) {
				return c.JSON(http.StatusForbidden, errorBody{Error: "invalid csrf token"})
			}
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/public" || isAssetPath(path) || isAPIPath(path) ||
				isOpsPath(path) || isFeedPath(path)
		},
	}))

	e.Use(cacheControlMiddleware)
}

// contentSecurityPolicy allows frames only from the video embed hosts.
func contentSecurityPolicy(embedHosts []string) string {
	frames := "'none'"
	if len(embedHosts) > 0 {
		srcs := make([]string, len(embedHosts))
		for i, h := range embedHosts {
			srcs[i] = "https://" + h
		}
		frames = strings.Join(srcs, " ")
	}
	return "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' https: data:; font-src 'self'; frame-src " + frames + "; connect-src 'self'"
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		policy := "public, max-age=3600"
		switch {
		case isAssetPath(path):
			policy = "public, max-age=31536000, immutable"
		case isFeedPath(path):
			policy = "public, max-age=86400"
		case strings.HasPrefix(path, "/admin"), isAPIPath(path), isOpsPath(path):
			policy = "no-store"
		}
		c.Response().Header().Set("Cache-Control", policy)
		return next(c)
	}
}

// isAssetPath matches embedded and uploaded files, which never change once
// served under their name.
func isAssetPath(path string) bool {
	return strings.HasPrefix(path, "/public/") || strings.HasPrefix(path, "/uploads/")
}

func isFeedPath(path string) bool {
	switch path {
	case "/sitemap.xml", "/feed.xml", "/robots.txt":
		return true
	}
	return false
}

func isOpsPath(path string) bool {
	return path == "/metrics" || path == "/healthz"
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

func sessionPrincipal(c echo.Context) Principal {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return Principal{}
	}
	email, _ := sess.Values["email"].(string)
	role, _ := sess.Values["role"].(string)
	return Principal{Email: email, Role: role}
}

func setAdminSession(c echo.Context, p Principal) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["email"] = p.Email
	sess.Values["role"] = p.Role
	return sess.Save(c.Request(), c.Response())
}

func clearAdminSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// CsrfToken extracts the CSRF token from the Echo context.
func CsrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
