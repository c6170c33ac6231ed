package checkin

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/kvstore"
	"github.com/hms/hms/internal/platform/metrics"
)

func newStore(t *testing.T) *hospital.Store {
	t.Helper()
	docs := kvstore.NewJSON(kvstore.NewMemoryStore(), zerolog.Nop(), nil)
	s, err := hospital.Open(context.Background(), docs, hospital.Options{Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestBegin_DrawsCodeInRange(t *testing.T) {
	svc := NewService(newStore(t), Options{})
	for i := 0; i < 200; i++ {
		st, err := svc.Begin(context.Background(), "PT001")
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if st.Code < MinCode || st.Code >= MaxCode {
			t.Fatalf("code %d out of range", st.Code)
		}
	}
}

func TestBegin_UsesRandReader(t *testing.T) {
	// Zero bytes from the reader map to the bottom of the range.
	svc := NewService(newStore(t), Options{Rand: bytes.NewReader(make([]byte, 64))})
	st, err := svc.Begin(context.Background(), "PT001")
	if err != nil {
		t.Fatal(err)
	}
	if st.Code != MinCode {
		t.Errorf("expected %d, got %d", MinCode, st.Code)
	}
}

func TestBegin_Rejections(t *testing.T) {
	store := newStore(t)
	svc := NewService(store, Options{})
	if _, err := svc.Begin(context.Background(), "PT999"); !errors.Is(err, hospital.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}

	code := 1234
	if _, err := store.UpdatePatientStatus(context.Background(), "PT001", hospital.StatusWaiting, &code); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Begin(context.Background(), "PT001"); !errors.Is(err, hospital.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for a Waiting patient, got %v", err)
	}
}

func TestConfirm_MismatchThenMatch(t *testing.T) {
	store := newStore(t)
	svc := NewService(store, Options{})
	ctx := context.Background()

	p, err := store.AddPatient(ctx, hospital.NewPatient{Name: "A", Age: 30, Gender: "Female"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "PT003" {
		t.Fatalf("expected PT003, got %s", p.ID)
	}
	st, err := svc.Begin(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}

	wrong := "0000"
	if _, err := svc.Confirm(ctx, p.ID, wrong); !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	got, _ := store.Patient(p.ID)
	if got.Status != hospital.StatusRegistered || got.OTP != nil {
		t.Fatalf("mismatch must not change the patient: %+v", got)
	}

	confirmed, err := svc.Confirm(ctx, p.ID, strconv.Itoa(st.Code))
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != hospital.StatusWaiting || confirmed.OTP == nil || *confirmed.OTP != st.Code {
		t.Errorf("unexpected patient after confirm: %+v", confirmed)
	}
	if _, ok := svc.Pending(p.ID); ok {
		t.Error("code should be consumed")
	}
}

func TestConfirm_ExactTextOnly(t *testing.T) {
	svc := NewService(newStore(t), Options{})
	st, _ := svc.Begin(context.Background(), "PT001")
	if _, err := svc.Confirm(context.Background(), "PT001", " "+strconv.Itoa(st.Code)); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("padded code should not match, got %v", err)
	}
}

func TestConfirm_LatestCodeWins(t *testing.T) {
	svc := NewService(newStore(t), Options{Rand: bytes.NewReader([]byte{0, 0, 0, 1})})
	first, _ := svc.Begin(context.Background(), "PT001")
	second, err := svc.Begin(context.Background(), "PT001")
	if err != nil {
		t.Fatal(err)
	}
	if first.Code != MinCode || second.Code != MinCode+1 {
		t.Fatalf("unexpected codes %d, %d", first.Code, second.Code)
	}
	if _, err := svc.Confirm(context.Background(), "PT001", strconv.Itoa(first.Code)); !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("replaced code should not match, got %v", err)
	}
}

func TestConfirm_NotStaged(t *testing.T) {
	svc := NewService(newStore(t), Options{})
	if _, err := svc.Confirm(context.Background(), "PT001", "1234"); !errors.Is(err, ErrNotStaged) {
		t.Errorf("expected ErrNotStaged, got %v", err)
	}
}

func TestConfirm_Expiry(t *testing.T) {
	c := &clock{t: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
	svc := NewService(newStore(t), Options{TTL: 5 * time.Minute, Now: c.now})
	st, _ := svc.Begin(context.Background(), "PT001")
	c.t = c.t.Add(5 * time.Minute)
	if _, err := svc.Confirm(context.Background(), "PT001", strconv.Itoa(st.Code)); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("expected ErrCodeExpired, got %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "PT001", strconv.Itoa(st.Code)); !errors.Is(err, ErrNotStaged) {
		t.Errorf("expired code should be discarded, got %v", err)
	}
}

func TestConfirm_AttemptLimit(t *testing.T) {
	m := metrics.New()
	svc := NewService(newStore(t), Options{MaxAttempts: 3, Metrics: m})
	st, _ := svc.Begin(context.Background(), "PT001")
	wrong := strconv.Itoa(MinCode - 1)

	for i := 0; i < 2; i++ {
		if _, err := svc.Confirm(context.Background(), "PT001", wrong); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("attempt %d: expected mismatch, got %v", i+1, err)
		}
	}
	if _, err := svc.Confirm(context.Background(), "PT001", wrong); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected lockout, got %v", err)
	}
	if _, err := svc.Confirm(context.Background(), "PT001", strconv.Itoa(st.Code)); !errors.Is(err, ErrNotStaged) {
		t.Errorf("locked code must be discarded, got %v", err)
	}

	if got, err := testutil.GatherAndCount(m.Registry(), "hms_checkin_attempts_total"); err != nil || got != 3 {
		t.Errorf("expected 3 result series, got %d (%v)", got, err)
	}
}

func TestCancel(t *testing.T) {
	svc := NewService(newStore(t), Options{})
	_, _ = svc.Begin(context.Background(), "PT002")
	svc.Cancel("PT002")
	if _, ok := svc.Pending("PT002"); ok {
		t.Error("expected code to be dropped")
	}
}
