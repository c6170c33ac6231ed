// Package apierr turns workflow errors into HTTP responses and operator
// toasts.
package apierr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/toast"
)

// From translates store-level errors to an *echo.HTTPError. Validation
// problems carry the offending field.
func From(err error) *echo.HTTPError {
	var ve *hospital.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"message": ve.Error(),
			"field":   ve.Field,
		})
	case errors.Is(err, hospital.ErrPatientNotFound),
		errors.Is(err, hospital.ErrPrescriptionNotFound),
		errors.Is(err, hospital.ErrStaffNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, hospital.ErrInvalidTransition),
		errors.Is(err, hospital.ErrDuplicateEmail):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, hospital.ErrInsufficientStock),
		errors.Is(err, hospital.ErrUnknownMedication):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

// Report raises an error toast for err and returns the matching response.
func Report(n toast.Notifier, err error) error {
	he := From(err)
	if he == nil {
		return nil
	}
	n.Add(Message(err), toast.KindError, 0)
	return he
}

// Message is the operator-facing text for err.
func Message(err error) string {
	var ve *hospital.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if From(err).Code == http.StatusInternalServerError {
		return "Something went wrong"
	}
	return err.Error()
}

// BadRequest reports an unreadable body.
func BadRequest(n toast.Notifier) error {
	n.Add("Invalid request", toast.KindError, 0)
	return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
}
