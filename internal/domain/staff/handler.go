package staff

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/toast"
)

type Handler struct {
	svc    *Service
	toasts toast.Notifier
}

func NewHandler(svc *Service, toasts toast.Notifier) *Handler {
	if toasts == nil {
		toasts = toast.Nop{}
	}
	return &Handler{svc: svc, toasts: toasts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/staff", auth.RequireScreen(auth.ScreenStaff), auth.RequireRole(hospital.RoleAdmin))
	g.GET("", h.ListStaff)
	g.POST("", h.AddStaff)
	g.PATCH("/:id", h.UpdateStaff)
	g.DELETE("/:id", h.RemoveStaff)
}

func (h *Handler) ListStaff(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.List())
}

func (h *Handler) AddStaff(c echo.Context) error {
	var in hospital.NewStaff
	if err := c.Bind(&in); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	m, err := h.svc.Add(c.Request().Context(), in)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("%s added as %s", m.Name, m.Role), toast.KindSuccess, 0)
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) UpdateStaff(c echo.Context) error {
	var u hospital.StaffUpdate
	if err := c.Bind(&u); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	m, err := h.svc.Update(c.Request().Context(), c.Param("id"), u)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("%s updated", m.Name), toast.KindSuccess, 0)
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) RemoveStaff(c echo.Context) error {
	if err := h.svc.Remove(c.Request().Context(), c.Param("id")); err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add("Staff member removed", toast.KindInfo, 0)
	return c.NoContent(http.StatusNoContent)
}
