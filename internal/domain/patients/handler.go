package patients

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/domain/checkin"
	"github.com/hms/hms/internal/hospital"
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

// RegisterRoutes mounts the patient endpoints. limit wraps code confirmation.
func (h *Handler) RegisterRoutes(api *echo.Group, limit ...echo.MiddlewareFunc) {
	g := api.Group("/patients", auth.RequireScreen(auth.ScreenPatients))
	g.GET("", h.ListPatients)
	g.POST("", h.RegisterPatient)
	g.GET("/:id", h.GetPatient)
	g.GET("/:id/check-in", h.PendingCheckIn)
	g.POST("/:id/check-in", h.BeginCheckIn)
	g.DELETE("/:id/check-in", h.CancelCheckIn)
	g.POST("/:id/check-in/confirm", h.ConfirmCheckIn, limit...)
}

// ListPatients accepts ?status=Waiting (repeatable or comma separated).
func (h *Handler) ListPatients(c echo.Context) error {
	var statuses []hospital.Status
	for _, raw := range c.QueryParams()["status"] {
		for _, v := range strings.Split(raw, ",") {
			st := hospital.Status(strings.TrimSpace(v))
			if st == "" {
				continue
			}
			if !st.Valid() {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown status %q", st))
			}
			statuses = append(statuses, st)
		}
	}
	return c.JSON(http.StatusOK, pagination.Page(h.svc.List(statuses...), pagination.FromContext(c)))
}

func (h *Handler) GetPatient(c echo.Context) error {
	p, err := h.svc.Get(c.Param("id"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in hospital.NewPatient
	if err := c.Bind(&in); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	p, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("Patient %s registered successfully with ID %s", p.Name, p.ID), toast.KindSuccess, 0)
	return c.JSON(http.StatusCreated, p)
}

type checkInResponse struct {
	PatientID string     `json:"patientId"`
	Code      string     `json:"code"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func stagedResponse(st checkin.Staged) checkInResponse {
	resp := checkInResponse{PatientID: st.PatientID, Code: strconv.Itoa(st.Code)}
	if !st.ExpiresAt.IsZero() {
		exp := st.ExpiresAt.UTC()
		resp.ExpiresAt = &exp
	}
	return resp
}

func (h *Handler) BeginCheckIn(c echo.Context) error {
	st, err := h.svc.BeginCheckIn(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("Check-in code for %s: %d", st.PatientID, st.Code), toast.KindInfo, 0)
	return c.JSON(http.StatusOK, stagedResponse(st))
}

// PendingCheckIn shows the code awaiting confirmation so reception can read
// it out again.
func (h *Handler) PendingCheckIn(c echo.Context) error {
	st, err := h.svc.PendingCheckIn(c.Param("id"))
	if err != nil {
		if errors.Is(err, checkin.ErrNotStaged) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, stagedResponse(st))
}

// CancelCheckIn discards the pending code. The patient stays Registered.
func (h *Handler) CancelCheckIn(c echo.Context) error {
	if err := h.svc.CancelCheckIn(c.Param("id")); err != nil {
		return apierr.Report(h.toasts, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type confirmRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ConfirmCheckIn(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	p, err := h.svc.ConfirmCheckIn(c.Request().Context(), c.Param("id"), req.Code)
	switch {
	case err == nil:
	case errors.Is(err, checkin.ErrCodeMismatch):
		h.toasts.Add("Invalid OTP! Please try again.", toast.KindError, 0)
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, checkin.ErrNotStaged),
		errors.Is(err, checkin.ErrCodeExpired),
		errors.Is(err, checkin.ErrTooManyAttempts):
		h.toasts.Add(err.Error(), toast.KindError, 0)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("%s checked in", p.Name), toast.KindSuccess, 0)
	return c.JSON(http.StatusOK, p)
}
