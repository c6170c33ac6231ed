package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/hospital"
)

type contextKey string

const identityKey contextKey = "identity"

// SessionCookie carries the token for browser clients.
const SessionCookie = "hms_session"

// LoginPath is where unauthenticated clients are sent.
const LoginPath = "/login"

// Identity is the signed-in operator.
type Identity struct {
	ID      string        `json:"id,omitempty"`
	Email   string        `json:"email,omitempty"`
	Name    string        `json:"name,omitempty"`
	Role    hospital.Role `json:"role"`
	TokenID string        `json:"-"`
}

// Authenticator resolves a presented token to the live session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// Unauthenticated is the error every gated route returns without a session.
func Unauthenticated() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
		"message":  "authentication required",
		"redirect": LoginPath,
	})
}

// SessionMiddleware accepts a bearer token or the session cookie. Public
// paths pass through untouched.
func SessionMiddleware(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if AuthSkipper(c) {
				return next(c)
			}
			token := tokenFrom(c.Request())
			if token == "" {
				return Unauthenticated()
			}
			id, err := a.Authenticate(c.Request().Context(), token)
			if err != nil {
				return Unauthenticated()
			}

			c.Set("user_id", id.ID)
			c.Set("user_role", string(id.Role))
			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
			return next(c)
		}
	}
}

func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if ck, err := r.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
