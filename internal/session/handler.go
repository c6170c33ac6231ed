package session

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/toast"
)

type Handler struct {
	sessions *Manager
	toasts   toast.Notifier
	secure   bool
}

// NewHandler serves the login endpoints. secure marks the cookie Secure.
func NewHandler(sessions *Manager, toasts toast.Notifier, secure bool) *Handler {
	if toasts == nil {
		toasts = toast.Nop{}
	}
	return &Handler{sessions: sessions, toasts: toasts, secure: secure}
}

// RegisterRoutes mounts the auth endpoints. limit wraps login only.
func (h *Handler) RegisterRoutes(g *echo.Group, limit ...echo.MiddlewareFunc) {
	g.POST("/auth/login", h.HandleLogin, limit...)
	g.POST("/auth/logout", h.HandleLogout)
	g.GET("/auth/me", h.HandleMe)
}

type LoginResponse struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Landing string `json:"landing"`
}

func (h *Handler) HandleLogin(c echo.Context) error {
	var cr Credentials
	if err := c.Bind(&cr); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, token, err := h.sessions.Login(c.Request().Context(), cr)
	if err != nil {
		h.toasts.Add(err.Error(), toast.KindError, 0)
		if errors.Is(err, ErrInvalidRole) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  u.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.toasts.Add(fmt.Sprintf("Welcome, %s", u.Name), toast.KindSuccess, 0)
	return c.JSON(http.StatusOK, LoginResponse{User: u, Token: token, Landing: "/dashboard"})
}

func (h *Handler) HandleLogout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context()); err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{Name: auth.SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secure})
	h.toasts.Add("Signed out", toast.KindInfo, 0)
	return c.JSON(http.StatusOK, map[string]string{"redirect": auth.LoginPath})
}

func (h *Handler) HandleMe(c echo.Context) error {
	u, ok := h.sessions.Current(c.Request().Context())
	if !ok {
		return auth.Unauthenticated()
	}
	return c.JSON(http.StatusOK, u)
}
