package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/auth"
	"github.com/hms/hms/internal/platform/kvstore"
)

func newStore(t *testing.T) *hospital.Store {
	t.Helper()
	docs := kvstore.NewJSON(kvstore.NewMemoryStore(), zerolog.Nop(), nil)
	s, err := hospital.Open(context.Background(), docs, hospital.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func toVitalsTaken(t *testing.T, s *hospital.Store, id string) {
	t.Helper()
	ctx := context.Background()
	code := 1111
	if _, err := s.UpdatePatientStatus(ctx, id, hospital.StatusWaiting, &code); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddVitals(ctx, hospital.VitalsRecord{PatientID: id, Temp: "37", BP: "120/80", Pulse: "70"}); err != nil {
		t.Fatal(err)
	}
}

func intp(v int) *int { return &v }

func TestSuggestMedicines(t *testing.T) {
	if got := SuggestMedicines("  "); len(got) != 0 {
		t.Errorf("blank query should match nothing, got %v", got)
	}
	got := SuggestMedicines("VITA")
	want := []string{"Vitamin C", "Vitamin D", "Multivitamin"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got := SuggestMedicines("a"); len(got) != SuggestionLimit {
		t.Errorf("expected %d suggestions, got %d", SuggestionLimit, len(got))
	}
	if got := SuggestMedicines("pril"); got[0] != "Lisinopril" {
		t.Errorf("expected catalog order, got %v", got)
	}
}

func TestPrescriptionForm_Validate(t *testing.T) {
	f := PrescriptionForm{
		PatientID: "PT001",
		Diagnosis: " Flu ",
		Medications: []hospital.Medication{
			{Name: "Paracetamol", Dosage: "500mg", Frequency: "2x daily", Quantity: intp(2)},
			{Name: "   "},
			{Name: "Vitamin C"},
		},
	}
	rx, err := f.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if rx.Diagnosis != "Flu" || len(rx.Medications) != 2 {
		t.Errorf("unexpected prescription: %+v", rx)
	}

	f.Medications[2].Quantity = intp(0)
	var ve *hospital.ValidationError
	if _, err := f.Validate(); !errors.As(err, &ve) || ve.Field != "medications" {
		t.Errorf("expected quantity error, got %v", err)
	}
	f.Medications[2].Quantity = intp(hospital.MaxQuantity + 1)
	if _, err := f.Validate(); !errors.As(err, &ve) || ve.Field != "medications" {
		t.Errorf("expected quantity cap error, got %v", err)
	}
	f.Medications[2].Quantity = intp(hospital.MaxQuantity)
	if _, err := f.Validate(); err != nil {
		t.Errorf("quantity at the cap must pass: %v", err)
	}

	if _, err := (PrescriptionForm{PatientID: "PT001"}).Validate(); !errors.As(err, &ve) || ve.Field != "diagnosis" {
		t.Errorf("expected diagnosis error, got %v", err)
	}
}

func TestPrescribe(t *testing.T) {
	s := newStore(t)
	svc := NewService(s)
	form := PrescriptionForm{PatientID: "PT001", Diagnosis: "Malaria", Medications: []hospital.Medication{{Name: "Paracetamol"}}}

	if _, err := svc.Prescribe(context.Background(), form); !errors.Is(err, hospital.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition before vitals, got %v", err)
	}

	toVitalsTaken(t, s, "PT001")
	q := svc.Queue()
	if len(q) != 1 || q[0].Vitals == nil || q[0].Vitals.BP != "120/80" {
		t.Fatalf("expected queue entry with vitals, got %+v", q)
	}

	rx, err := svc.Prescribe(context.Background(), form)
	if err != nil {
		t.Fatal(err)
	}
	if rx.PatientName != "Desmond Bokor" {
		t.Errorf("unexpected prescription: %+v", rx)
	}
	p, _ := s.Patient("PT001")
	if p.Status != hospital.StatusPrescribed {
		t.Errorf("expected Prescribed, got %s", p.Status)
	}
	if len(svc.Queue()) != 0 {
		t.Error("patient should leave the doctor queue")
	}
}

func TestHandler(t *testing.T) {
	s := newStore(t)
	toVitalsTaken(t, s, "PT002")
	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), auth.Identity{Role: hospital.RoleDoctor})))
			return next(c)
		}
	})
	NewHandler(NewService(s), nil).RegisterRoutes(e.Group("/api/v1"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/doctor/medicines?q=statin", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Atorvastatin") {
		t.Errorf("unexpected suggestions: %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/doctor/prescriptions",
		strings.NewReader(`{"patientId":"PT002","diagnosis":"","medications":[]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing diagnosis: expected 400, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/doctor/prescriptions",
		strings.NewReader(`{"patientId":"PT002","diagnosis":"Cold","medications":[{"name":"Vitamin C","dosage":"1 tab","frequency":"daily","quantity":3}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}
