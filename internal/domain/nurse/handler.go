package nurse

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/toast"
	"github.com/hms/hms/pkg/pagination"
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
	g := api.Group("/nurse", auth.RequireScreen(auth.ScreenNurse))
	g.GET("/queue", h.Queue)
	g.GET("/vitals", h.ListVitals)
	g.POST("/vitals", h.RecordVitals)
}

func (h *Handler) Queue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Queue())
}

func (h *Handler) ListVitals(c echo.Context) error {
	return c.JSON(http.StatusOK, pagination.Page(h.svc.Log(), pagination.FromContext(c)))
}

func (h *Handler) RecordVitals(c echo.Context) error {
	var f VitalsForm
	if err := c.Bind(&f); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	rec, err := h.svc.RecordVitals(c.Request().Context(), f)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("Vitals recorded for %s", rec.PatientName), toast.KindSuccess, 0)
	return c.JSON(http.StatusCreated, rec)
}
