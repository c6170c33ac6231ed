package hospital

import (
	"context"
	"fmt"

	"github.com/hms/hms/internal/platform/kvstore"
)

// Keys lists every document the store owns, in seeding order.
var Keys = []string{
	KeyPatients, KeyVitals, KeyPrescriptions, KeyInvoices, KeyStaff, KeyInventory, KeySchemaVersion,
}

// DefaultPatients are present on first run.
func DefaultPatients() []Patient {
	return []Patient{
		{ID: "PT001", Name: "Desmond Bokor", Age: 32, Gender: "Male", Status: StatusRegistered},
		{ID: "PT002", Name: "Black Widow", Age: 27, Gender: "Female", Status: StatusRegistered},
	}
}

// DefaultInventory is the first-run pharmacy stock.
func DefaultInventory() []InventoryItem {
	return []InventoryItem{
		{ID: 1, Name: "Paracetamol", Stock: 500, Unit: "tabs", Price: 50},
		{ID: 2, Name: "Amoxicillin", Stock: 120, Unit: "tabs", Price: 120},
		{ID: 3, Name: "Ibuprofen", Stock: 200, Unit: "tabs", Price: 40},
		{ID: 4, Name: "Vitamin C", Stock: 300, Unit: "tabs", Price: 25},
	}
}

func defaults() map[string]any {
	return map[string]any{
		KeyPatients:      DefaultPatients(),
		KeyVitals:        []VitalsRecord{},
		KeyPrescriptions: []Prescription{},
		KeyInvoices:      []Invoice{},
		KeyStaff:         []StaffMember{},
		KeyInventory:     DefaultInventory(),
		KeySchemaVersion: SchemaVersion,
	}
}

// Seed writes the first-run document for every missing key. With reset, all
// keys are removed first so the defaults replace existing data.
func Seed(ctx context.Context, docs *kvstore.JSON, reset bool) error {
	if reset {
		for _, key := range Keys {
			if err := docs.Remove(ctx, key); err != nil {
				return fmt.Errorf("reset %s: %w", key, err)
			}
		}
	}
	d := defaults()
	for _, key := range Keys {
		// A read error must not be mistaken for a missing document.
		_, found, err := docs.Store().Get(ctx, key)
		if err != nil {
			return fmt.Errorf("check %s: %w", key, err)
		}
		if found {
			continue
		}
		if err := docs.Save(ctx, key, d[key]); err != nil {
			return fmt.Errorf("seed %s: %w", key, err)
		}
	}
	return nil
}
