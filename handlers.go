package postdesk

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
)

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Home(a.site(), posts))
}

func (a *App) handleBlog(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.BlogList(a.site(), posts))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Cache.GetPublished(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if content.IsNotFound(err) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		}
		return err
	}
	return Render(c, a.Views.Post(a.site(), post))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPublished(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

// handleRobots serves the site's own robots.txt, falling back to the
// embedded default.
func (a *App) handleRobots(c echo.Context) error {
	own := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(own); err == nil {
		return c.File(own)
	}
	data, err := EmbeddedAssets.ReadFile("embedded/robots.txt")
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, data)
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		a.Log.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if isAPIPath(c.Request().URL.Path) {
		_ = a.jsonError(c, err)
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error", zap.Error(err), zap.String("path", c.Request().URL.Path))
		_ = RenderStatus(c, code, a.Views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
