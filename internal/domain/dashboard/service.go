package dashboard

import (
	"time"

	"github.com/hms/hms/internal/hospital"
)

type StatusCount struct {
	Status hospital.Status `json:"status"`
	Count  int             `json:"count"`
}

type Stats struct {
	Patients      int            `json:"patients"`
	VitalsRecords int            `json:"vitalsRecords"`
	Prescriptions int            `json:"prescriptions"`
	Invoices      int            `json:"invoices"`
	Staff         int            `json:"staff"`
	LowStock      int            `json:"lowStock"`
	Revenue       hospital.Cents `json:"revenue"`
	Currency      string         `json:"currency"`
	ByStatus      []StatusCount  `json:"byStatus"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

type Service struct {
	store    *hospital.Store
	currency string
	now      func() time.Time
}

func NewService(store *hospital.Store, currency string) *Service {
	return &Service{store: store, currency: currency, now: time.Now}
}

// Stats counts every collection. ByStatus follows pipeline order and lists
// empty statuses too.
func (s *Service) Stats() Stats {
	patients := s.store.Patients()
	invoices := s.store.Invoices()

	counts := make(map[hospital.Status]int, len(hospital.Pipeline))
	for _, p := range patients {
		counts[p.Status]++
	}
	st := Stats{
		Patients:      len(patients),
		VitalsRecords: len(s.store.Vitals()),
		Prescriptions: len(s.store.Prescriptions()),
		Invoices:      len(invoices),
		Staff:         len(s.store.Staff()),
		Currency:      s.currency,
		ByStatus:      make([]StatusCount, len(hospital.Pipeline)),
		GeneratedAt:   s.now().UTC(),
	}
	for i, status := range hospital.Pipeline {
		st.ByStatus[i] = StatusCount{Status: status, Count: counts[status]}
	}
	for _, inv := range invoices {
		st.Revenue += inv.Total
	}
	for _, it := range s.store.Inventory() {
		if it.LowStock() {
			st.LowStock++
		}
	}
	return st
}
