package doctor

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
	g := api.Group("/doctor", auth.RequireScreen(auth.ScreenDoctor))
	g.GET("/queue", h.Queue)
	g.GET("/prescriptions", h.ListPrescriptions)
	g.POST("/prescriptions", h.Prescribe)
	g.GET("/medicines", h.SuggestMedicines)
}

func (h *Handler) Queue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Queue())
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	return c.JSON(http.StatusOK, pagination.Page(h.svc.Prescriptions(), pagination.FromContext(c)))
}

func (h *Handler) Prescribe(c echo.Context) error {
	var f PrescriptionForm
	if err := c.Bind(&f); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	rx, err := h.svc.Prescribe(c.Request().Context(), f)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("Prescription sent to pharmacy for %s", rx.PatientName), toast.KindSuccess, 0)
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) SuggestMedicines(c echo.Context) error {
	return c.JSON(http.StatusOK, SuggestMedicines(c.QueryParam("q")))
}
