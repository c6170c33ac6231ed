package hospital

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrUnknownMedication    = errors.New("medication not in inventory")
	ErrDuplicateEmail       = errors.New("email already in use")
	ErrStaffNotFound        = errors.New("staff member not found")
)

// TransitionError reports a rejected status change.
type TransitionError struct {
	PatientID string
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("patient %s cannot move from %q to %q", e.PatientID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError is a form field problem the operator can correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
