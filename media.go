package postdesk

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
	"github.com/eringen/postdesk/views"
)

func mediaItems(uploads []Upload) []views.MediaItem {
	items := make([]views.MediaItem, 0, len(uploads))
	for _, u := range uploads {
		items = append(items, views.MediaItem{
			Name:         u.Filename,
			URL:          u.URL(),
			OriginalName: u.OriginalName,
			Width:        u.Width,
			Height:       u.Height,
			Size:         u.Size,
			UploadedAt:   u.UploadedAt,
		})
	}
	return items
}

func (a *App) renderMedia(c echo.Context, msg, errMsg string) error {
	uploads, err := a.Store.ListUploads(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.AdminMedia(a.site(), views.MediaData{
		Items:     mediaItems(uploads),
		Message:   msg,
		Error:     errMsg,
		CSRFToken: CsrfToken(c),
	}))
}

func (a *App) handleMediaList(c echo.Context) error {
	return a.renderMedia(c, c.QueryParam("msg"), "")
}

func (a *App) handleMediaUpload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		err = &UploadError{Reason: "no image file provided"}
		a.recordUpload(err)
		return a.renderMedia(c, "", err.Error())
	}
	up, err := a.storeUpload(c.Request().Context(), file)
	a.recordUpload(err)
	if err != nil {
		var ue *UploadError
		if errors.As(err, &ue) && !ue.Internal {
			return a.renderMedia(c, "", err.Error())
		}
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg="+url.QueryEscape("Uploaded "+up.URL()+"."))
}

// validUploadName accepts the bare file names storeUpload produces.
func validUploadName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}

func (a *App) handleMediaDelete(c echo.Context) error {
	name := c.Param("name")
	if !validUploadName(name) {
		return a.renderMedia(c, "", "Invalid file name.")
	}
	if err := a.Store.DeleteUpload(c.Request().Context(), name); err != nil {
		if content.IsNotFound(err) {
			return c.Redirect(http.StatusSeeOther, "/admin/media/?msg="+url.QueryEscape("Image not found."))
		}
		return err
	}
	if err := os.Remove(filepath.Join(a.Config.UploadDir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.Log.Warn("remove image file", zap.String("file", name), zap.Error(err))
	}
	a.Log.Info("image deleted", zap.String("file", name))
	return c.Redirect(http.StatusSeeOther, "/admin/media/?msg="+url.QueryEscape("Deleted "+name+"."))
}
