package pharmacy

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/metrics"
)

// QueueEntry is a Prescribed patient with the prescription to fill.
type QueueEntry struct {
	Patient      hospital.Patient       `json:"patient"`
	Prescription *hospital.Prescription `json:"prescription,omitempty"`
}

// StockItem is an inventory row as the pharmacy screen shows it.
type StockItem struct {
	hospital.InventoryItem
	LowStock bool `json:"lowStock"`
}

type Service struct {
	store   *hospital.Store
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(store *hospital.Store, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{store: store, metrics: m, logger: logger}
}

func (s *Service) Queue() []QueueEntry {
	patients := s.store.PatientsByStatus(hospital.StatusPrescribed)
	out := make([]QueueEntry, len(patients))
	for i, p := range patients {
		out[i] = QueueEntry{Patient: p}
		if rx, ok := s.store.LatestPrescriptionFor(p.ID); ok {
			out[i].Prescription = &rx
		}
	}
	return out
}

func (s *Service) Inventory() []StockItem {
	items := s.store.Inventory()
	out := make([]StockItem, len(items))
	for i, it := range items {
		out[i] = StockItem{InventoryItem: it, LowStock: it.LowStock()}
	}
	return out
}

// LowStock lists items at or below the threshold.
func (s *Service) LowStock() []StockItem {
	out := []StockItem{}
	for _, it := range s.Inventory() {
		if it.LowStock {
			out = append(out, it)
		}
	}
	return out
}

// AddStock validates the form and creates or restocks the item.
func (s *Service) AddStock(ctx context.Context, in hospital.NewInventoryItem) (StockItem, bool, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Name == "" {
		return StockItem{}, false, hospital.Invalid("name", "medicine name is required")
	}
	if in.Stock < 0 {
		return StockItem{}, false, hospital.Invalid("stock", "stock cannot be negative")
	}
	if in.Stock > hospital.MaxStock {
		return StockItem{}, false, hospital.Invalid("stock", "stock cannot exceed %d", hospital.MaxStock)
	}
	if in.Price != nil && *in.Price < 0 {
		return StockItem{}, false, hospital.Invalid("price", "price cannot be negative")
	}
	if in.Price != nil && *in.Price > hospital.MaxPrice {
		return StockItem{}, false, hospital.Invalid("price", "price cannot exceed %s", hospital.MaxPrice)
	}
	if _, exists := s.store.InventoryItemByName(in.Name); !exists && in.Unit == "" {
		in.Unit = "tabs"
	}
	it, created, err := s.store.AddInventory(ctx, in)
	if err != nil {
		return StockItem{}, false, err
	}
	return StockItem{InventoryItem: it, LowStock: it.LowStock()}, created, nil
}

// Dispense fills the patient's latest prescription.
func (s *Service) Dispense(ctx context.Context, patientID string) ([]hospital.DispensedLine, error) {
	lines, err := s.store.Dispense(ctx, patientID)
	s.metrics.Dispense(dispenseResult(err))
	if err != nil {
		s.logger.Info().Err(err).Str("patient_id", patientID).Msg("dispense rejected")
		return nil, err
	}
	for _, l := range lines {
		if l.Remaining <= hospital.LowStockThreshold {
			s.logger.Warn().Str("item", l.Name).Int("remaining", l.Remaining).Msg("inventory low")
		}
	}
	return lines, nil
}

func dispenseResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, hospital.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, hospital.ErrUnknownMedication):
		return "unknown_medication"
	case errors.Is(err, hospital.ErrInvalidTransition):
		return "invalid_status"
	default:
		return "error"
	}
}
