package doctor

import (
	"context"
	"strings"

	"github.com/hms/hms/internal/hospital"
)

// QueueEntry is a patient awaiting diagnosis with the nurse's report.
type QueueEntry struct {
	Patient hospital.Patient       `json:"patient"`
	Vitals  *hospital.VitalsRecord `json:"vitals,omitempty"`
}

type PrescriptionForm struct {
	PatientID   string                `json:"patientId"`
	Diagnosis   string                `json:"diagnosis"`
	Medications []hospital.Medication `json:"medications"`
}

// Validate trims the form, drops rows without a medicine name and checks
// quantities.
func (f PrescriptionForm) Validate() (hospital.Prescription, error) {
	rx := hospital.Prescription{
		PatientID:   strings.TrimSpace(f.PatientID),
		Diagnosis:   strings.TrimSpace(f.Diagnosis),
		Medications: []hospital.Medication{},
	}
	if rx.PatientID == "" {
		return rx, hospital.Invalid("patientId", "select a patient")
	}
	if rx.Diagnosis == "" {
		return rx, hospital.Invalid("diagnosis", "enter a diagnosis")
	}
	for i, m := range f.Medications {
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Frequency = strings.TrimSpace(m.Frequency)
		if m.Quantity != nil && *m.Quantity < 1 {
			return rx, hospital.Invalid("medications", "row %d: quantity must be at least 1", i+1)
		}
		if m.Quantity != nil && *m.Quantity > hospital.MaxQuantity {
			return rx, hospital.Invalid("medications", "row %d: quantity cannot exceed %d", i+1, hospital.MaxQuantity)
		}
		rx.Medications = append(rx.Medications, m)
	}
	return rx, nil
}

type Service struct {
	store *hospital.Store
}

func NewService(store *hospital.Store) *Service {
	return &Service{store: store}
}

// Queue lists Vitals Taken patients with their latest vitals.
func (s *Service) Queue() []QueueEntry {
	patients := s.store.PatientsByStatus(hospital.StatusVitalsTaken)
	out := make([]QueueEntry, len(patients))
	for i, p := range patients {
		out[i] = QueueEntry{Patient: p}
		if v, ok := s.store.LatestVitalsFor(p.ID); ok {
			out[i].Vitals = &v
		}
	}
	return out
}

func (s *Service) Prescriptions() []hospital.Prescription {
	return s.store.Prescriptions()
}

func (s *Service) Prescribe(ctx context.Context, f PrescriptionForm) (hospital.Prescription, error) {
	rx, err := f.Validate()
	if err != nil {
		return hospital.Prescription{}, err
	}
	if _, ok := s.store.Patient(rx.PatientID); !ok {
		return hospital.Prescription{}, hospital.ErrPatientNotFound
	}
	return s.store.AddPrescription(ctx, rx)
}
