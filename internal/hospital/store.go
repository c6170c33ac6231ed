// Package hospital owns the shared patient workflow data: patients, vitals,
// prescriptions, invoices, staff and pharmacy inventory. Every mutation goes
// through Store, which serializes writers and persists each collection as a
// JSON document.
package hospital

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/events"
	"github.com/hms/hms/internal/platform/kvstore"
	"github.com/hms/hms/internal/platform/metrics"
)

// Document keys.
const (
	KeyPatients      = "patients"
	KeyVitals        = "vitalsRecords"
	KeyPrescriptions = "prescriptions"
	KeyInvoices      = "invoices"
	KeyStaff         = "staff"
	KeyInventory     = "pharmacy_inventory"
	KeySchemaVersion = "schema_version"
)

// SchemaVersion is written on first run.
const SchemaVersion = 1

// Options configures a Store. Zero values are usable.
type Options struct {
	Logger  zerolog.Logger
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

type Store struct {
	mu   sync.RWMutex
	docs *kvstore.JSON

	patients      []Patient
	vitals        []VitalsRecord
	prescriptions []Prescription
	invoices      []Invoice
	staff         []StaffMember
	inventory     []InventoryItem
	lastID        int64

	logger  zerolog.Logger
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

// Open loads every collection from docs, seeding missing ones with their
// first-run defaults. Unreadable documents fall back to the default and the
// failure is logged by docs.
func Open(ctx context.Context, docs *kvstore.JSON, opts Options) (*Store, error) {
	if docs == nil {
		return nil, errors.New("hospital: document store is required")
	}
	s := &Store{
		docs:    docs,
		logger:  opts.Logger,
		events:  opts.Events,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := Seed(ctx, docs, false); err != nil {
		s.logger.Warn().Err(err).Msg("seeding defaults failed; continuing with in-memory defaults")
	}

	var version int
	if docs.Load(ctx, KeySchemaVersion, &version) && version > SchemaVersion {
		s.logger.Warn().Int("stored", version).Int("supported", SchemaVersion).
			Msg("stored data is newer than this build understands")
	}

	s.patients = DefaultPatients()
	s.inventory = DefaultInventory()
	s.vitals = []VitalsRecord{}
	s.prescriptions = []Prescription{}
	s.invoices = []Invoice{}
	s.staff = []StaffMember{}

	docs.Load(ctx, KeyPatients, &s.patients)
	docs.Load(ctx, KeyVitals, &s.vitals)
	docs.Load(ctx, KeyPrescriptions, &s.prescriptions)
	docs.Load(ctx, KeyInvoices, &s.invoices)
	docs.Load(ctx, KeyStaff, &s.staff)
	docs.Load(ctx, KeyInventory, &s.inventory)

	s.logger.Info().
		Int("patients", len(s.patients)).
		Int("vitals", len(s.vitals)).
		Int("prescriptions", len(s.prescriptions)).
		Int("invoices", len(s.invoices)).
		Int("staff", len(s.staff)).
		Int("inventory", len(s.inventory)).
		Msg("hospital data loaded")
	return s, nil
}

// save writes one collection. Errors are already logged and counted by the
// JSON adapter; the in-memory change stands either way. Callers hold s.mu.
func (s *Store) save(ctx context.Context, key string, v any) {
	_ = s.docs.Save(context.WithoutCancel(ctx), key, v)
}

// emit publishes transitions after the lock is released.
func (s *Store) emit(ctx context.Context, evts []events.StatusChanged) {
	for _, evt := range evts {
		s.metrics.StatusTransition(evt.From, evt.To)
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.Warn().Err(err).Str("patient_id", evt.PatientID).Msg("status event not published")
		}
	}
}

// ---------------------------------------------------------------------------
// Read views. Each returns copies.
// ---------------------------------------------------------------------------

func (s *Store) Patients() []Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Patient, len(s.patients))
	for i, p := range s.patients {
		out[i] = clonePatient(p)
	}
	return out
}

// PatientsByStatus returns patients in any of statuses, in registration order.
func (s *Store) PatientsByStatus(statuses ...Status) []Patient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Patient{}
	for _, p := range s.patients {
		if slices.Contains(statuses, p.Status) {
			out = append(out, clonePatient(p))
		}
	}
	return out
}

func (s *Store) Patient(id string) (Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.patientIndex(id)
	if i < 0 {
		return Patient{}, false
	}
	return clonePatient(s.patients[i]), true
}

func (s *Store) Vitals() []VitalsRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.vitals)
}

// LatestVitalsFor returns the newest vitals record for a patient.
func (s *Store) LatestVitalsFor(patientID string) (VitalsRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vitals {
		if v.PatientID == patientID {
			return v, true
		}
	}
	return VitalsRecord{}, false
}

func (s *Store) Prescriptions() []Prescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Prescription, len(s.prescriptions))
	for i, rx := range s.prescriptions {
		out[i] = clonePrescription(rx)
	}
	return out
}

// LatestPrescriptionFor returns the newest prescription for a patient. The
// log is newest first.
func (s *Store) LatestPrescriptionFor(patientID string) (Prescription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.latestPrescriptionIndex(patientID)
	if i < 0 {
		return Prescription{}, false
	}
	return clonePrescription(s.prescriptions[i]), true
}

func (s *Store) Invoices() []Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Invoice, len(s.invoices))
	for i, inv := range s.invoices {
		out[i] = cloneInvoice(inv)
	}
	return out
}

func (s *Store) Invoice(id int64) (Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.ID == id {
			return cloneInvoice(inv), true
		}
	}
	return Invoice{}, false
}

func (s *Store) Staff() []StaffMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.staff)
}

// StaffByEmail matches case-insensitively.
func (s *Store) StaffByEmail(email string) (StaffMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.staffEmailIndex(email, "")
	if i < 0 {
		return StaffMember{}, false
	}
	return s.staff[i], true
}

func (s *Store) Inventory() []InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.inventory)
}

// InventoryItemByName matches case-insensitively.
func (s *Store) InventoryItemByName(name string) (InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.inventoryIndex(name)
	if i < 0 {
		return InventoryItem{}, false
	}
	return s.inventory[i], true
}

// MedicationItem resolves a prescribed medicine name to a stocked item:
// an exact case-insensitive match, else the longest item name the
// prescribed name contains, so "Paracetamol 500mg" finds Paracetamol.
func (s *Store) MedicationItem(name string) (InventoryItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.medicationIndex(name)
	if i < 0 {
		return InventoryItem{}, false
	}
	return s.inventory[i], true
}

// ---------------------------------------------------------------------------
// Helpers. Callers hold s.mu.
// ---------------------------------------------------------------------------

func (s *Store) patientIndex(id string) int {
	return slices.IndexFunc(s.patients, func(p Patient) bool { return p.ID == id })
}

func (s *Store) latestPrescriptionIndex(patientID string) int {
	return slices.IndexFunc(s.prescriptions, func(rx Prescription) bool { return rx.PatientID == patientID })
}

func (s *Store) inventoryIndex(name string) int {
	return slices.IndexFunc(s.inventory, func(it InventoryItem) bool { return sameName(it.Name, name) })
}

func (s *Store) medicationIndex(name string) int {
	if i := s.inventoryIndex(name); i >= 0 {
		return i
	}
	return MatchContained(name, len(s.inventory), func(i int) string { return s.inventory[i].Name })
}

// staffEmailIndex finds email among staff other than exceptID.
func (s *Store) staffEmailIndex(email, exceptID string) int {
	return slices.IndexFunc(s.staff, func(m StaffMember) bool {
		return m.ID != exceptID && sameName(m.Email, email)
	})
}

func clonePatient(p Patient) Patient {
	if p.OTP != nil {
		otp := *p.OTP
		p.OTP = &otp
	}
	return p
}

func clonePrescription(rx Prescription) Prescription {
	meds := make([]Medication, len(rx.Medications))
	for i, m := range rx.Medications {
		if m.Quantity != nil {
			q := *m.Quantity
			m.Quantity = &q
		}
		meds[i] = m
	}
	rx.Medications = meds
	return rx
}

func cloneInvoice(inv Invoice) Invoice {
	inv.Lines = slices.Clone(inv.Lines)
	return inv
}
