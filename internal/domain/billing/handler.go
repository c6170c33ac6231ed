package billing

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/apierr"
	"github.com/hms/hms/internal/platform/archive"
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
	g := api.Group("/billing", auth.RequireScreen(auth.ScreenBilling))
	g.GET("/queue", h.Queue)
	g.GET("/quote/:patientId", h.Quote)
	g.GET("/invoices", h.ListInvoices)
	g.POST("/invoices", h.GenerateInvoice)
	g.GET("/invoices/:id", h.GetInvoice)
	g.GET("/invoices/:id/print", h.PrintInvoice)
	g.GET("/invoices/:id/archived", h.ArchivedInvoice)
}

func (h *Handler) Queue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Queue())
}

func (h *Handler) Quote(c echo.Context) error {
	q, err := h.svc.Quote(c.Param("patientId"))
	if err != nil {
		return apierr.From(err)
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	return c.JSON(http.StatusOK, pagination.Page(h.svc.Invoices(), pagination.FromContext(c)))
}

type generateRequest struct {
	PatientID string `json:"patientId"`
}

func (h *Handler) GenerateInvoice(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return apierr.BadRequest(h.toasts)
	}
	inv, err := h.svc.Generate(c.Request().Context(), req.PatientID)
	if err != nil {
		return apierr.Report(h.toasts, err)
	}
	h.toasts.Add(fmt.Sprintf("Invoice %s generated for %s: %s %s", inv.InvoiceNum, inv.PatientName, h.svc.Currency(), inv.Total), toast.KindSuccess, 0)
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) invoice(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid invoice id")
	}
	return id, nil
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := h.invoice(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.Invoice(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) PrintInvoice(c echo.Context) error {
	id, err := h.invoice(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.Invoice(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	body, err := h.svc.Receipt(inv)
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, body)
}

func (h *Handler) ArchivedInvoice(c echo.Context) error {
	id, err := h.invoice(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.Invoice(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	body, err := h.svc.ArchivedReceipt(c.Request().Context(), inv.InvoiceNum)
	if errors.Is(err, archive.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "receipt not archived")
	}
	if err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, body)
}
