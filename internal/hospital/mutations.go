package hospital

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hms/hms/internal/platform/events"
)

// transition moves patient i to to, recording the event. Callers hold s.mu
// and have checked CanTransition.
func (s *Store) transition(i int, to Status, otp *int) events.StatusChanged {
	p := &s.patients[i]
	evt := events.StatusChanged{
		PatientID: p.ID,
		From:      string(p.Status),
		To:        string(to),
		At:        s.now().UTC(),
	}
	p.Status = to
	p.OTP = otp
	return evt
}

// requireStatus finds a patient and checks that it may move to next. Callers
// hold s.mu.
func (s *Store) requireStatus(patientID string, next Status) (int, error) {
	i := s.patientIndex(patientID)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}
	if from := s.patients[i].Status; !CanTransition(from, next) {
		return -1, &TransitionError{PatientID: patientID, From: from, To: next}
	}
	return i, nil
}

// AddPatient registers a patient with the next PT### id.
func (s *Store) AddPatient(ctx context.Context, in NewPatient) (Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.patients))
	for i, p := range s.patients {
		ids[i] = p.ID
	}
	p := Patient{
		ID:     nextSeqID("PT", ids),
		Name:   strings.TrimSpace(in.Name),
		Age:    in.Age,
		Gender: in.Gender,
		Status: StatusRegistered,
	}
	s.patients = append(s.patients, p)
	s.save(ctx, KeyPatients, s.patients)
	return clonePatient(p), nil
}

// UpdatePatientStatus replaces a patient's status and otp. Only a single step
// forward is accepted. An unknown id changes nothing and reports found=false.
func (s *Store) UpdatePatientStatus(ctx context.Context, id string, to Status, otp *int) (found bool, err error) {
	s.mu.Lock()
	i := s.patientIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	if from := s.patients[i].Status; !CanTransition(from, to) {
		s.mu.Unlock()
		return true, &TransitionError{PatientID: id, From: from, To: to}
	}
	evt := s.transition(i, to, otp)
	s.save(ctx, KeyPatients, s.patients)
	s.mu.Unlock()

	s.emit(ctx, []events.StatusChanged{evt})
	return true, nil
}

// AddVitals prepends a vitals record for a Waiting patient and advances it to
// Vitals Taken.
func (s *Store) AddVitals(ctx context.Context, rec VitalsRecord) (VitalsRecord, error) {
	s.mu.Lock()
	i, err := s.requireStatus(rec.PatientID, StatusVitalsTaken)
	if err != nil {
		s.mu.Unlock()
		return VitalsRecord{}, err
	}
	rec.ID = s.nextStampID()
	rec.PatientName = s.patients[i].Name
	rec.Timestamp = s.now().UTC()
	s.vitals = append([]VitalsRecord{rec}, s.vitals...)
	s.save(ctx, KeyVitals, s.vitals)

	evt := s.transition(i, StatusVitalsTaken, nil)
	s.save(ctx, KeyPatients, s.patients)
	s.mu.Unlock()

	s.emit(ctx, []events.StatusChanged{evt})
	return rec, nil
}

// AddPrescription prepends a prescription for a Vitals Taken patient and
// advances it to Prescribed.
func (s *Store) AddPrescription(ctx context.Context, rx Prescription) (Prescription, error) {
	s.mu.Lock()
	i, err := s.requireStatus(rx.PatientID, StatusPrescribed)
	if err != nil {
		s.mu.Unlock()
		return Prescription{}, err
	}
	rx.ID = s.nextStampID()
	rx.PatientName = s.patients[i].Name
	rx.Timestamp = s.now().UTC()
	rx = clonePrescription(rx)
	s.prescriptions = append([]Prescription{rx}, s.prescriptions...)
	s.save(ctx, KeyPrescriptions, s.prescriptions)

	evt := s.transition(i, StatusPrescribed, nil)
	s.save(ctx, KeyPatients, s.patients)
	s.mu.Unlock()

	s.emit(ctx, []events.StatusChanged{evt})
	return clonePrescription(rx), nil
}

// AddInvoice prepends an invoice for a Medicines Dispensed patient and
// advances it to Billed. The id and invoice number are assigned here.
func (s *Store) AddInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	s.mu.Lock()
	i, err := s.requireStatus(inv.PatientID, StatusBilled)
	if err != nil {
		s.mu.Unlock()
		return Invoice{}, err
	}
	inv.ID = s.nextStampID()
	inv.InvoiceNum = invoiceNumber(inv.ID)
	inv.PatientName = s.patients[i].Name
	inv.Timestamp = s.now().UTC()
	inv = cloneInvoice(inv)
	s.invoices = append([]Invoice{inv}, s.invoices...)
	s.save(ctx, KeyInvoices, s.invoices)

	evt := s.transition(i, StatusBilled, nil)
	s.save(ctx, KeyPatients, s.patients)
	s.mu.Unlock()

	s.emit(ctx, []events.StatusChanged{evt})
	return cloneInvoice(inv), nil
}

// UpdatePrescriptions replaces the prescription log with fn's result.
func (s *Store) UpdatePrescriptions(ctx context.Context, fn func([]Prescription) []Prescription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := make([]Prescription, len(s.prescriptions))
	for i, rx := range s.prescriptions {
		cur[i] = clonePrescription(rx)
	}
	next := fn(cur)
	if next == nil {
		next = []Prescription{}
	}
	s.prescriptions = next
	s.save(ctx, KeyPrescriptions, s.prescriptions)
}

func (s *Store) ReplacePrescriptions(ctx context.Context, list []Prescription) {
	s.UpdatePrescriptions(ctx, func([]Prescription) []Prescription { return list })
}

// UpdateInvoices replaces the invoice log with fn's result.
func (s *Store) UpdateInvoices(ctx context.Context, fn func([]Invoice) []Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := make([]Invoice, len(s.invoices))
	for i, inv := range s.invoices {
		cur[i] = cloneInvoice(inv)
	}
	next := fn(cur)
	if next == nil {
		next = []Invoice{}
	}
	s.invoices = next
	s.save(ctx, KeyInvoices, s.invoices)
}

func (s *Store) ReplaceInvoices(ctx context.Context, list []Invoice) {
	s.UpdateInvoices(ctx, func([]Invoice) []Invoice { return list })
}

// ---------------------------------------------------------------------------
// Staff
// ---------------------------------------------------------------------------

// AddStaff appends a staff member with the next ST### id. Emails are unique
// ignoring case.
func (s *Store) AddStaff(ctx context.Context, in NewStaff) (StaffMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.TrimSpace(in.Email)
	if s.staffEmailIndex(email, "") >= 0 {
		return StaffMember{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
	}
	ids := make([]string, len(s.staff))
	for i, m := range s.staff {
		ids[i] = m.ID
	}
	m := StaffMember{
		ID:         nextSeqID("ST", ids),
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Password:   in.Password,
		Phone:      strings.TrimSpace(in.Phone),
		Role:       in.Role,
		Department: strings.TrimSpace(in.Department),
	}
	s.staff = append(s.staff, m)
	s.save(ctx, KeyStaff, s.staff)
	return m, nil
}

// UpdateStaff merges the non-nil fields of u into the member with id.
func (s *Store) UpdateStaff(ctx context.Context, id string, u StaffUpdate) (StaffMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := -1
	for j, m := range s.staff {
		if m.ID == id {
			i = j
			break
		}
	}
	if i < 0 {
		return StaffMember{}, fmt.Errorf("%w: %s", ErrStaffNotFound, id)
	}
	m := s.staff[i]
	if u.Email != nil {
		email := strings.TrimSpace(*u.Email)
		if s.staffEmailIndex(email, id) >= 0 {
			return StaffMember{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, email)
		}
		m.Email = email
	}
	if u.Name != nil {
		m.Name = strings.TrimSpace(*u.Name)
	}
	if u.Password != nil {
		m.Password = *u.Password
	}
	if u.Phone != nil {
		m.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Role != nil {
		m.Role = *u.Role
	}
	if u.Department != nil {
		m.Department = strings.TrimSpace(*u.Department)
	}
	s.staff[i] = m
	s.save(ctx, KeyStaff, s.staff)
	return m, nil
}

// RemoveStaff deletes the member with id and reports whether it existed.
func (s *Store) RemoveStaff(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.staff)
	s.staff = slices.DeleteFunc(s.staff, func(m StaffMember) bool { return m.ID == id })
	if len(s.staff) == n {
		return false
	}
	s.save(ctx, KeyStaff, s.staff)
	return true
}

// ---------------------------------------------------------------------------
// Pharmacy
// ---------------------------------------------------------------------------

// AddInventory creates an item, or restocks the item with the same name and
// updates its price when one is given. Stock never exceeds MaxStock.
func (s *Store) AddInventory(ctx context.Context, in NewInventoryItem) (item InventoryItem, created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.inventoryIndex(in.Name); i >= 0 {
		it := &s.inventory[i]
		if in.Stock > MaxStock-it.Stock {
			return InventoryItem{}, false, Invalid("stock", "%s would exceed %d %s in stock", it.Name, MaxStock, it.Unit)
		}
		it.Stock += in.Stock
		if in.Price != nil {
			it.Price = *in.Price
		}
		if in.Unit != "" {
			it.Unit = in.Unit
		}
		s.save(ctx, KeyInventory, s.inventory)
		return *it, false, nil
	}
	if in.Stock > MaxStock {
		return InventoryItem{}, false, Invalid("stock", "stock cannot exceed %d", MaxStock)
	}

	var maxID int64
	for _, it := range s.inventory {
		maxID = max(maxID, it.ID)
	}
	it := InventoryItem{
		ID:    maxID + 1,
		Name:  strings.TrimSpace(in.Name),
		Stock: in.Stock,
		Unit:  in.Unit,
	}
	if in.Price != nil {
		it.Price = *in.Price
	}
	s.inventory = append(s.inventory, it)
	s.save(ctx, KeyInventory, s.inventory)
	return it, true, nil
}

// Dispense fills the latest prescription of a Prescribed patient. Every line
// must resolve to an inventory item (see MedicationItem) with enough stock,
// lines for one item counted together; otherwise nothing
// changes. On success stock is decremented and the patient moves to Medicines
// Dispensed.
func (s *Store) Dispense(ctx context.Context, patientID string) ([]DispensedLine, error) {
	s.mu.Lock()
	i, err := s.requireStatus(patientID, StatusMedicinesDispensed)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rxi := s.latestPrescriptionIndex(patientID)
	if rxi < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w for patient %s", ErrPrescriptionNotFound, patientID)
	}

	// Sum per item first so repeated lines of one medicine are checked together.
	want := make(map[int]int)
	var order []int
	for _, med := range s.prescriptions[rxi].Medications {
		j := s.medicationIndex(med.Name)
		if j < 0 {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrUnknownMedication, med.Name)
		}
		if _, seen := want[j]; !seen {
			order = append(order, j)
		}
		it := s.inventory[j]
		qty := med.Qty()
		if qty < 1 {
			s.mu.Unlock()
			return nil, Invalid("medications", "%s: quantity must be at least 1", med.Name)
		}
		if qty > it.Stock-want[j] {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s has %d %s, %s needed", ErrInsufficientStock, it.Name, it.Stock, it.Unit, needed(want[j], qty))
		}
		want[j] += qty
	}

	lines := make([]DispensedLine, 0, len(order))
	for _, j := range order {
		s.inventory[j].Stock -= want[j]
		lines = append(lines, DispensedLine{Name: s.inventory[j].Name, Quantity: want[j], Remaining: s.inventory[j].Stock})
	}
	s.save(ctx, KeyInventory, s.inventory)

	evt := s.transition(i, StatusMedicinesDispensed, nil)
	s.save(ctx, KeyPatients, s.patients)
	s.mu.Unlock()

	s.emit(ctx, []events.StatusChanged{evt})
	return lines, nil
}

// needed renders the running total for a stock error without overflowing.
func needed(sum, qty int) string {
	if qty > MaxStock {
		return fmt.Sprintf("over %d", MaxStock)
	}
	return strconv.Itoa(sum + qty)
}
