package postdesk

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/postdesk/content"
)

// RoleAdmin is the only role with write access.
const RoleAdmin = "admin"

const (
	minPasswordLen = 6
	principalKey   = "principal"
	contentPath    = "/posts/content"
	uploadPath     = "/upload-image"
	loginPath      = "/admin/login/"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	errInvalidCredentials = errors.New("invalid email or password")
)

// Principal is the caller a request is made on behalf of. The zero value is
// an anonymous visitor.
type Principal struct {
	Email string
	Role  string
}

// IsAdmin reports whether p may edit content.
func (p Principal) IsAdmin() bool {
	return p.Email != "" && p.Role == RoleAdmin
}

// Route is the part of a request authorization depends on.
type Route struct {
	Method string
	Path   string
	Status string // ?status of a content listing
}

// Authorize reports whether p may call r. Requests it allows but the router
// does not know still end in 404 or 405.
func Authorize(p Principal, r Route) bool {
	if p.IsAdmin() {
		return true
	}
	switch {
	case r.Path == loginPath || r.Path == strings.TrimSuffix(loginPath, "/"):
		return true
	case r.Path == "/admin" || strings.HasPrefix(r.Path, "/admin/"):
		return false
	case r.Path == contentPath:
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			f, err := content.ParseFilter(r.Status)
			return err != nil || f == content.FilterPublished
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			return false
		}
	case r.Path == uploadPath:
		return r.Method != http.MethodPost
	}
	return true
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/posts/") || path == uploadPath
}

// CurrentPrincipal returns the principal resolved for this request.
func CurrentPrincipal(c echo.Context) Principal {
	p, _ := c.Get(principalKey).(Principal)
	return p
}

// IsAdmin checks if the current request is made by an admin.
func IsAdmin(c echo.Context) bool {
	return CurrentPrincipal(c).IsAdmin()
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(h, "Bearer ")
	return strings.TrimSpace(token), ok
}

// authMiddleware resolves the principal from a bearer token, or from the
// session cookie when no Authorization header is present, and rejects
// requests Authorize denies.
func (a *App) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		var p Principal
		if raw, ok := bearerToken(req); ok {
			parsed, err := a.tokens.Parse(raw)
			if err != nil {
				a.Log.Debug("rejected bearer token", zap.Error(err), zap.String("ip", c.RealIP()))
			} else {
				p = parsed
			}
		} else {
			p = sessionPrincipal(c)
		}
		c.Set(principalKey, p)

		route := Route{Method: req.Method, Path: req.URL.Path, Status: c.QueryParam("status")}
		if Authorize(p, route) {
			return next(c)
		}
		if isAPIPath(route.Path) {
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		}
		return c.Redirect(http.StatusSeeOther, loginPath)
	}
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return &content.ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if len(password) < minPasswordLen {
		return &content.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	}
	return nil
}

// AddAdmin creates or replaces an admin account.
func AddAdmin(ctx context.Context, s *Store, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.InsertAdmin(ctx, Admin{Email: email, PasswordHash: string(hash), Role: RoleAdmin})
}

func (a *App) authenticate(ctx context.Context, email, password string) (Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateCredentials(email, password); err != nil {
		return Principal{}, err
	}
	admin, err := a.Store.AdminByEmail(ctx, email)
	if err != nil {
		if content.IsNotFound(err) {
			return Principal{}, errInvalidCredentials
		}
		return Principal{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return Principal{}, errInvalidCredentials
	}
	return Principal{Email: admin.Email, Role: admin.Role}, nil
}

func (a *App) seedAdmin(ctx context.Context) error {
	if a.Config.AdminEmail == "" {
		return nil
	}
	if err := AddAdmin(ctx, a.Store, a.Config.AdminEmail, a.Config.AdminPassword); err != nil {
		return err
	}
	a.Log.Info("admin account ready", zap.String("email", strings.ToLower(a.Config.AdminEmail)))
	return nil
}
