package postdesk

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/postdesk/content"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps an error to the HTTP status and message returned to clients.
func statusFor(err error) (int, string) {
	var (
		ve *content.ValidationError
		ce *content.ConflictError
		ue *UploadError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.As(err, &ce):
		return http.StatusConflict, ce.Error()
	case content.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &ue):
		return ue.status(), ue.Error()
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, "internal server error"
}

func (a *App) jsonError(c echo.Context, err error) error {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
		)
	}
	return c.JSON(code, errorBody{Error: msg})
}

func (a *App) handleContentGet(c echo.Context) error {
	ctx := c.Request().Context()
	admin := IsAdmin(c)

	if slug := c.QueryParam("slug"); slug != "" {
		var (
			post content.Post
			err  error
		)
		if admin {
			post, err = a.Content.GetBySlug(ctx, slug)
		} else {
			post, err = a.Cache.GetPublished(ctx, slug)
		}
		if err != nil {
			return a.jsonError(c, err)
		}
		return c.JSON(http.StatusOK, post)
	}

	f, err := content.ParseFilter(c.QueryParam("status"))
	if err != nil {
		return a.jsonError(c, err)
	}
	var posts []content.Post
	if f == content.FilterPublished && !admin {
		posts, err = a.Cache.ListPublished(ctx)
	} else {
		posts, err = a.Content.List(ctx, f)
	}
	if err != nil {
		return a.jsonError(c, err)
	}
	if posts == nil {
		posts = []content.Post{}
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleContentCreate(c echo.Context) error {
	var req content.CreateRequest
	if err := c.Bind(&req); err != nil {
		return a.jsonError(c, &content.ValidationError{Reason: "invalid request body"})
	}
	post, err := a.Content.Create(c.Request().Context(), req)
	if err != nil {
		return a.jsonError(c, err)
	}
	a.metrics.postSaved("create")
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleContentUpdate(c echo.Context) error {
	var req content.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return a.jsonError(c, &content.ValidationError{Reason: "invalid request body"})
	}
	post, err := a.Content.Update(c.Request().Context(), req)
	if err != nil {
		return a.jsonError(c, err)
	}
	a.metrics.postSaved("update")
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleContentDelete(c echo.Context) error {
	id := c.QueryParam("id")
	if id == "" {
		return a.jsonError(c, &content.ValidationError{Field: "id", Reason: "is required"})
	}
	if err := a.Content.Delete(c.Request().Context(), id); err != nil {
		return a.jsonError(c, err)
	}
	a.metrics.postSaved("delete")
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
