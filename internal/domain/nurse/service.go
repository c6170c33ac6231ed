package nurse

import (
	"context"
	"strconv"
	"strings"

	"github.com/hms/hms/internal/hospital"
)

// Accepted vital ranges.
const (
	MinTemp      = 30.0
	MaxTemp      = 45.0
	MinSystolic  = 50
	MaxSystolic  = 250
	MinDiastolic = 30
	MaxDiastolic = 150
	MinPulse     = 30
	MaxPulse     = 220
)

// VitalsForm is the nurse's input. Values arrive as typed.
type VitalsForm struct {
	PatientID string `json:"patientId"`
	Temp      string `json:"temp"`
	BP        string `json:"bp"`
	Pulse     string `json:"pulse"`
	Symptoms  string `json:"symptoms"`
}

// Validate checks every field and returns the record to store.
func (f VitalsForm) Validate() (hospital.VitalsRecord, error) {
	rec := hospital.VitalsRecord{
		PatientID: strings.TrimSpace(f.PatientID),
		Temp:      strings.TrimSpace(f.Temp),
		BP:        strings.ReplaceAll(strings.TrimSpace(f.BP), " ", ""),
		Pulse:     strings.TrimSpace(f.Pulse),
		Symptoms:  strings.TrimSpace(f.Symptoms),
	}
	if rec.PatientID == "" {
		return rec, hospital.Invalid("patientId", "select a patient")
	}

	temp, err := strconv.ParseFloat(rec.Temp, 64)
	if err != nil {
		return rec, hospital.Invalid("temp", "temperature must be a number")
	}
	if temp < MinTemp || temp > MaxTemp {
		return rec, hospital.Invalid("temp", "temperature must be between %g and %g °C", MinTemp, MaxTemp)
	}

	if err := validateBP(rec.BP); err != nil {
		return rec, err
	}

	pulse, err := strconv.Atoi(rec.Pulse)
	if err != nil {
		return rec, hospital.Invalid("pulse", "pulse must be a whole number")
	}
	if pulse < MinPulse || pulse > MaxPulse {
		return rec, hospital.Invalid("pulse", "pulse must be between %d and %d", MinPulse, MaxPulse)
	}
	return rec, nil
}

func validateBP(bp string) error {
	sys, dia, ok := strings.Cut(bp, "/")
	if !ok {
		return hospital.Invalid("bp", "blood pressure must look like 120/80")
	}
	systolic, err1 := strconv.Atoi(sys)
	diastolic, err2 := strconv.Atoi(dia)
	if err1 != nil || err2 != nil {
		return hospital.Invalid("bp", "blood pressure must look like 120/80")
	}
	if systolic < MinSystolic || systolic > MaxSystolic {
		return hospital.Invalid("bp", "systolic must be between %d and %d", MinSystolic, MaxSystolic)
	}
	if diastolic < MinDiastolic || diastolic > MaxDiastolic {
		return hospital.Invalid("bp", "diastolic must be between %d and %d", MinDiastolic, MaxDiastolic)
	}
	if systolic <= diastolic {
		return hospital.Invalid("bp", "systolic must be greater than diastolic")
	}
	return nil
}

type Service struct {
	store *hospital.Store
}

func NewService(store *hospital.Store) *Service {
	return &Service{store: store}
}

// Queue lists patients waiting for vitals.
func (s *Service) Queue() []hospital.Patient {
	return s.store.PatientsByStatus(hospital.StatusWaiting)
}

// Log returns recorded vitals, newest first.
func (s *Service) Log() []hospital.VitalsRecord {
	return s.store.Vitals()
}

func (s *Service) RecordVitals(ctx context.Context, f VitalsForm) (hospital.VitalsRecord, error) {
	rec, err := f.Validate()
	if err != nil {
		return hospital.VitalsRecord{}, err
	}
	if _, ok := s.store.Patient(rec.PatientID); !ok {
		return hospital.VitalsRecord{}, hospital.ErrPatientNotFound
	}
	return s.store.AddVitals(ctx, rec)
}
