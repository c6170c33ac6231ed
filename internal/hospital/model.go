package hospital

import (
	"strings"
	"time"
)

// Role is a staff role. The first variant of the system held no other
// identity than this.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleNurse      Role = "nurse"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RoleBilling    Role = "billing"
)

// StaffRoles are the roles an administrator may assign.
var StaffRoles = []Role{RoleDoctor, RoleNurse, RolePharmacist, RoleBilling}

func (r Role) Valid() bool {
	return r == RoleAdmin || r.IsStaffRole()
}

// IsStaffRole reports whether r can be assigned to a staff member.
func (r Role) IsStaffRole() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

type Patient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	Status Status `json:"status"`
	OTP    *int   `json:"otp,omitempty"`
}

// NewPatient is the registration form.
type NewPatient struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type VitalsRecord struct {
	ID          int64     `json:"id"`
	PatientID   string    `json:"patientId"`
	PatientName string    `json:"patientName"`
	Temp        string    `json:"temp"`
	BP          string    `json:"bp"`
	Pulse       string    `json:"pulse"`
	Symptoms    string    `json:"symptoms"`
	Timestamp   time.Time `json:"timestamp"`
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// Qty is the prescribed quantity, 1 when unspecified.
func (m Medication) Qty() int {
	if m.Quantity == nil {
		return 1
	}
	return *m.Quantity
}

type Prescription struct {
	ID          int64        `json:"id"`
	PatientID   string       `json:"patientId"`
	PatientName string       `json:"patientName"`
	Diagnosis   string       `json:"diagnosis"`
	Medications []Medication `json:"medications"`
	Timestamp   time.Time    `json:"timestamp"`
}

type InvoiceLine struct {
	Description string `json:"desc"`
	Quantity    int    `json:"quantity,omitempty"`
	UnitPrice   Cents  `json:"unitPrice,omitempty"`
	Amount      Cents  `json:"amount"`
}

type Invoice struct {
	ID          int64         `json:"id"`
	InvoiceNum  string        `json:"invoiceNum"`
	PatientID   string        `json:"patientId"`
	PatientName string        `json:"patientName"`
	Lines       []InvoiceLine `json:"lines,omitempty"`
	Subtotal    Cents         `json:"subtotal"`
	Tax         Cents         `json:"tax"`
	Total       Cents         `json:"total"`
	Timestamp   time.Time     `json:"timestamp"`
}

type InventoryItem struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
	Unit  string `json:"unit"`
	Price Cents  `json:"price"`
}

// LowStockThreshold is the stock level at or below which an item is flagged.
const LowStockThreshold = 100

func (i InventoryItem) LowStock() bool { return i.Stock <= LowStockThreshold }

// MatchContained returns the index of the longest of n candidate names
// that name contains, ignoring case, or -1. Ties go to the earlier index.
func MatchContained(name string, n int, candidate func(i int) string) int {
	hay := strings.ToLower(strings.TrimSpace(name))
	best, bestLen := -1, 0
	for i := range n {
		c := strings.ToLower(strings.TrimSpace(candidate(i)))
		if c != "" && len(c) > bestLen && strings.Contains(hay, c) {
			best, bestLen = i, len(c)
		}
	}
	return best
}

// Upper bounds on operator-entered amounts. They keep stock sums and
// quantity-times-price products well inside int range.
const (
	MaxQuantity = 10_000
	MaxStock    = 1_000_000
	MaxPrice    = Cents(100_000_000)
)

// NewInventoryItem creates an item or restocks an existing one by name.
type NewInventoryItem struct {
	Name  string `json:"name"`
	Stock int    `json:"stock"`
	Unit  string `json:"unit"`
	Price *Cents `json:"price,omitempty"`
}

type StaffMember struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone,omitempty"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
}

// NewStaff is the add-staff form.
type NewStaff struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	Role       Role   `json:"role"`
	Department string `json:"department"`
}

// StaffUpdate carries a partial update; nil fields are left alone.
type StaffUpdate struct {
	Name       *string `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
	Password   *string `json:"password,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Role       *Role   `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
}

// DispensedLine reports one inventory decrement.
type DispensedLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
