package patients

import (
	"context"
	"strings"

	"github.com/hms/hms/internal/domain/checkin"
	"github.com/hms/hms/internal/hospital"
)

// Genders offered on the registration form.
var Genders = []string{"Male", "Female"}

const MaxAge = 150

type Service struct {
	store   *hospital.Store
	checkin *checkin.Service
}

func NewService(store *hospital.Store, checkin *checkin.Service) *Service {
	return &Service{store: store, checkin: checkin}
}

// List returns every patient, or only those in the given statuses.
func (s *Service) List(statuses ...hospital.Status) []hospital.Patient {
	if len(statuses) == 0 {
		return s.store.Patients()
	}
	return s.store.PatientsByStatus(statuses...)
}

func (s *Service) Get(id string) (hospital.Patient, error) {
	p, ok := s.store.Patient(id)
	if !ok {
		return hospital.Patient{}, hospital.ErrPatientNotFound
	}
	return p, nil
}

// Register validates the form and adds the patient as Registered.
func (s *Service) Register(ctx context.Context, in hospital.NewPatient) (hospital.Patient, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return hospital.Patient{}, hospital.Invalid("name", "name is required")
	}
	if in.Age < 0 || in.Age > MaxAge {
		return hospital.Patient{}, hospital.Invalid("age", "age must be between 0 and %d", MaxAge)
	}
	gender, ok := normalizeGender(in.Gender)
	if !ok {
		return hospital.Patient{}, hospital.Invalid("gender", "gender must be one of %s", strings.Join(Genders, ", "))
	}
	in.Gender = gender
	return s.store.AddPatient(ctx, in)
}

func normalizeGender(g string) (string, bool) {
	g = strings.TrimSpace(g)
	if g == "" {
		return Genders[0], true
	}
	for _, v := range Genders {
		if strings.EqualFold(v, g) {
			return v, true
		}
	}
	return "", false
}

func (s *Service) BeginCheckIn(ctx context.Context, id string) (checkin.Staged, error) {
	return s.checkin.Begin(ctx, id)
}

func (s *Service) ConfirmCheckIn(ctx context.Context, id, code string) (hospital.Patient, error) {
	return s.checkin.Confirm(ctx, id, code)
}

// PendingCheckIn returns the unconfirmed code staged for id.
func (s *Service) PendingCheckIn(id string) (checkin.Staged, error) {
	if _, err := s.Get(id); err != nil {
		return checkin.Staged{}, err
	}
	st, ok := s.checkin.Pending(id)
	if !ok {
		return checkin.Staged{}, checkin.ErrNotStaged
	}
	return st, nil
}

func (s *Service) CancelCheckIn(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	s.checkin.Cancel(id)
	return nil
}
