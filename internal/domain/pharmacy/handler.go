package pharmacy

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
	g := api.Group("/pharmacy", auth.RequireScreen(auth.ScreenPharmacy))
	g.GET("/queue", h.Queue)
	g.GET("/inventory", h.ListInventory)
	g.POST("/inventory", h.AddInventory)
	g.POST("/dispense", h.Dispense)
}

func (h *Handler) Queue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Queue())
}

// ListInventory accepts ?low=true to show only low stock.
func (h *Handler) ListInventory(c echo.Context) error {
	if c.QueryParam("low") == "true" {
		return c.JSON(http.StatusOK, h.svc.LowStock())
	}
	return c.JSON(http.StatusOK, h.svc.Inventory())
}

func (h *Handler) AddInventory(c echo.Context) error {
	var in hospital.NewInventoryItem
	if err := c.Bind(&in); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	it, created, err := h.svc.AddStock(c.Request().Context(), in)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	if created {
		h.toasts.Add(fmt.Sprintf("%s added to inventory", it.Name), toast.KindSuccess, 0)
		return c.JSON(http.StatusCreated, it)
	}
	h.toasts.Add(fmt.Sprintf("%s restocked to %d %s", it.Name, it.Stock, it.Unit), toast.KindSuccess, 0)
	return c.JSON(http.StatusOK, it)
}

type dispenseRequest struct {
	PatientID string `json:"patientId"`
}

type dispenseResponse struct {
	PatientID string                   `json:"patientId"`
	Lines     []hospital.DispensedLine `json:"lines"`
}

func (h *Handler) Dispense(c echo.Context) error {
	var req dispenseRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	if req.PatientID == "" {
		return apierr.Report(h.toasts, hospital.Invalid("patientId", "select a patient"))
	}
	lines, err := h.svc.Dispense(c.Request().Context(), req.PatientID)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add("Medicines dispensed. Patient sent to billing.", toast.KindSuccess, 0)
	for _, l := range lines {
		if l.Remaining <= hospital.LowStockThreshold {
			h.toasts.Add(fmt.Sprintf("Low stock: %s (%d left)", l.Name, l.Remaining), toast.KindWarning, 0)
		}
	}
	return c.JSON(http.StatusOK, dispenseResponse{PatientID: req.PatientID, Lines: lines})
}
