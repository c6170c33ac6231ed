package billing

import (
	"maps"
	"slices"
	"strings"

	"github.com/hms/hms/internal/hospital"
)

// DefaultTaxRate is applied to the subtotal.
const DefaultTaxRate = 0.05

// PriceTable holds unit prices used when a medicine is not stocked.
var PriceTable = map[string]hospital.Cents{
	"paracetamol":  50,
	"amoxicillin":  120,
	"ibuprofen":    40,
	"vitamin c":    25,
	"aspirin":      30,
	"azithromycin": 250,
	"metformin":    60,
	"omeprazole":   80,
	"multivitamin": 35,
	"cough syrup":  300,
}

var priceNames = slices.Sorted(maps.Keys(PriceTable))

// PriceSource resolves a prescribed name to a stocked item.
type PriceSource interface {
	MedicationItem(name string) (hospital.InventoryItem, bool)
}

// UnitPrice resolves name from inventory first, then PriceTable, matching
// the way dispensing does: exact name, else the longest contained name.
// Unknown medicines cost nothing.
func UnitPrice(src PriceSource, name string) hospital.Cents {
	if src != nil {
		if it, ok := src.MedicationItem(name); ok {
			return it.Price
		}
	}
	if c, ok := PriceTable[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	if i := hospital.MatchContained(name, len(priceNames), func(i int) string { return priceNames[i] }); i >= 0 {
		return PriceTable[priceNames[i]]
	}
	return 0
}

// Quote is an invoice before it is recorded.
type Quote struct {
	PatientID   string                 `json:"patientId"`
	PatientName string                 `json:"patientName"`
	Lines       []hospital.InvoiceLine `json:"lines"`
	Medication  hospital.Cents         `json:"medication"`
	Subtotal    hospital.Cents         `json:"subtotal"`
	Tax         hospital.Cents         `json:"tax"`
	Total       hospital.Cents         `json:"total"`
	Currency    string                 `json:"currency"`
}

// Price builds the invoice lines for meds: the fee, one line per medicine,
// and the totals.
func Price(src PriceSource, fee hospital.Cents, taxRate float64, meds []hospital.Medication) Quote {
	q := Quote{Lines: []hospital.InvoiceLine{{Description: "Consultation Fee", Quantity: 1, UnitPrice: fee, Amount: fee}}}
	for _, m := range meds {
		unit := UnitPrice(src, m.Name)
		amount := unit.Times(m.Qty())
		q.Lines = append(q.Lines, hospital.InvoiceLine{
			Description: m.Name,
			Quantity:    m.Qty(),
			UnitPrice:   unit,
			Amount:      amount,
		})
		q.Medication += amount
	}
	q.Subtotal = fee + q.Medication
	q.Tax = q.Subtotal.Percent(taxRate)
	q.Total = q.Subtotal + q.Tax
	return q
}
