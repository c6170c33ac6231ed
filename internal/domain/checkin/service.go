// Package checkin stages the one-time codes that confirm a patient has
// physically arrived.
package checkin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/metrics"
)

// Code range, upper bound exclusive.
const (
	MinCode = 1000
	MaxCode = 9999
)

var (
	ErrNotStaged       = errors.New("no check-in code has been generated for this patient")
	ErrCodeMismatch    = errors.New("the code does not match")
	ErrCodeExpired     = errors.New("the check-in code has expired")
	ErrTooManyAttempts = errors.New("too many wrong codes; generate a new one")
)

// Attempt results recorded in metrics.
const (
	resultConfirmed = "confirmed"
	resultMismatch  = "mismatch"
	resultExpired   = "expired"
	resultLocked    = "locked"
	resultUnstaged  = "unstaged"
)

// PatientStore is the part of the hospital store check-in needs.
type PatientStore interface {
	Patient(id string) (hospital.Patient, bool)
	UpdatePatientStatus(ctx context.Context, id string, to hospital.Status, otp *int) (bool, error)
}

// Staged is a generated code awaiting confirmation.
type Staged struct {
	PatientID string    `json:"patientId"`
	Code      int       `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	attempts  int
}

type Options struct {
	// TTL is how long a code stays valid. Zero disables expiry.
	TTL time.Duration
	// MaxAttempts discards a code after that many mismatches. Zero allows
	// any number.
	MaxAttempts int
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	Now         func() time.Time
	Rand        io.Reader
}

type Service struct {
	patients PatientStore
	opts     Options

	mu     sync.Mutex
	staged map[string]*Staged
}

func NewService(patients PatientStore, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	return &Service{patients: patients, opts: opts, staged: make(map[string]*Staged)}
}

// Begin draws a fresh code for a Registered patient, replacing any earlier
// one.
func (s *Service) Begin(_ context.Context, patientID string) (Staged, error) {
	p, ok := s.patients.Patient(patientID)
	if !ok {
		return Staged{}, hospital.ErrPatientNotFound
	}
	if !hospital.CanTransition(p.Status, hospital.StatusWaiting) {
		return Staged{}, &hospital.TransitionError{PatientID: p.ID, From: p.Status, To: hospital.StatusWaiting}
	}
	code, err := s.draw()
	if err != nil {
		return Staged{}, err
	}

	st := &Staged{PatientID: p.ID, Code: code}
	if s.opts.TTL > 0 {
		st.ExpiresAt = s.opts.Now().Add(s.opts.TTL)
	}
	s.mu.Lock()
	s.staged[p.ID] = st
	s.mu.Unlock()

	s.opts.Logger.Info().Str("patient_id", p.ID).Msg("check-in code generated")
	return *st, nil
}

func (s *Service) draw() (int, error) {
	n, err := rand.Int(s.opts.Rand, big.NewInt(MaxCode-MinCode))
	if err != nil {
		return 0, fmt.Errorf("draw check-in code: %w", err)
	}
	return MinCode + int(n.Int64()), nil
}

// Confirm compares entered against the staged code as text. On a match the
// patient moves to Waiting with the code recorded; otherwise nothing in the
// hospital store changes.
func (s *Service) Confirm(ctx context.Context, patientID, entered string) (hospital.Patient, error) {
	s.mu.Lock()
	st, ok := s.staged[patientID]
	if !ok {
		s.mu.Unlock()
		s.opts.Metrics.CheckInAttempt(resultUnstaged)
		return hospital.Patient{}, ErrNotStaged
	}
	if !st.ExpiresAt.IsZero() && !s.opts.Now().Before(st.ExpiresAt) {
		delete(s.staged, patientID)
		s.mu.Unlock()
		s.opts.Metrics.CheckInAttempt(resultExpired)
		return hospital.Patient{}, ErrCodeExpired
	}
	want := strconv.Itoa(st.Code)
	if subtle.ConstantTimeCompare([]byte(want), []byte(entered)) != 1 {
		st.attempts++
		locked := s.opts.MaxAttempts > 0 && st.attempts >= s.opts.MaxAttempts
		if locked {
			delete(s.staged, patientID)
		}
		s.mu.Unlock()
		if locked {
			s.opts.Metrics.CheckInAttempt(resultLocked)
			s.opts.Logger.Warn().Str("patient_id", patientID).Msg("check-in code discarded after repeated mismatches")
			return hospital.Patient{}, ErrTooManyAttempts
		}
		s.opts.Metrics.CheckInAttempt(resultMismatch)
		return hospital.Patient{}, ErrCodeMismatch
	}
	code := st.Code
	delete(s.staged, patientID)
	s.mu.Unlock()

	found, err := s.patients.UpdatePatientStatus(ctx, patientID, hospital.StatusWaiting, &code)
	if err != nil {
		return hospital.Patient{}, err
	}
	if !found {
		return hospital.Patient{}, hospital.ErrPatientNotFound
	}
	s.opts.Metrics.CheckInAttempt(resultConfirmed)
	p, _ := s.patients.Patient(patientID)
	return p, nil
}

// Pending returns the staged code for patientID, if any.
func (s *Service) Pending(patientID string) (Staged, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.staged[patientID]
	if !ok {
		return Staged{}, false
	}
	return *st, true
}

// Cancel drops any staged code for patientID.
func (s *Service) Cancel(patientID string) {
	s.mu.Lock()
	delete(s.staged, patientID)
	s.mu.Unlock()
}
