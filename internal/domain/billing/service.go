package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/hospital"
	"github.com/hms/hms/internal/platform/archive"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

type Options struct {
	Fee      hospital.Cents
	TaxRate  float64
	Currency string
	Archive  archive.Store
	Logger   zerolog.Logger
}

type Service struct {
	store *hospital.Store
	opts  Options
}

func NewService(store *hospital.Store, opts Options) *Service {
	if opts.Currency == "" {
		opts.Currency = "GH₵"
	}
	return &Service{store: store, opts: opts}
}

func (s *Service) Currency() string { return s.opts.Currency }

// Queue lists patients whose medicines have been dispensed.
func (s *Service) Queue() []hospital.Patient {
	return s.store.PatientsByStatus(hospital.StatusMedicinesDispensed)
}

func (s *Service) Invoices() []hospital.Invoice {
	return s.store.Invoices()
}

func (s *Service) Invoice(id int64) (hospital.Invoice, error) {
	inv, ok := s.store.Invoice(id)
	if !ok {
		return hospital.Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

// Quote prices the patient's latest prescription. A patient without one is
// charged the fee alone.
func (s *Service) Quote(patientID string) (Quote, error) {
	p, ok := s.store.Patient(patientID)
	if !ok {
		return Quote{}, hospital.ErrPatientNotFound
	}
	var meds []hospital.Medication
	if rx, ok := s.store.LatestPrescriptionFor(p.ID); ok {
		meds = rx.Medications
	}
	q := Price(s.store, s.opts.Fee, s.opts.TaxRate, meds)
	q.PatientID = p.ID
	q.PatientName = p.Name
	q.Currency = s.opts.Currency
	return q, nil
}

// Generate records the invoice, bills the patient and archives the receipt.
// Archive failures are logged and leave the invoice in place.
func (s *Service) Generate(ctx context.Context, patientID string) (hospital.Invoice, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return hospital.Invoice{}, hospital.Invalid("patientId", "select a patient")
	}
	q, err := s.Quote(patientID)
	if err != nil {
		return hospital.Invoice{}, err
	}
	inv, err := s.store.AddInvoice(ctx, hospital.Invoice{
		PatientID: q.PatientID,
		Lines:     q.Lines,
		Subtotal:  q.Subtotal,
		Tax:       q.Tax,
		Total:     q.Total,
	})
	if err != nil {
		return hospital.Invoice{}, err
	}
	s.archive(ctx, inv)
	s.opts.Logger.Info().
		Str("invoice", inv.InvoiceNum).
		Str("patient_id", inv.PatientID).
		Str("total", inv.Total.String()).
		Msg("invoice generated")
	return inv, nil
}

func (s *Service) archive(ctx context.Context, inv hospital.Invoice) {
	if s.opts.Archive == nil {
		return
	}
	body, err := s.Receipt(inv)
	if err == nil {
		_, err = s.opts.Archive.Put(context.WithoutCancel(ctx), archive.InvoiceKey(inv.InvoiceNum), "text/html; charset=utf-8", body)
	}
	if err != nil {
		s.opts.Logger.Error().Err(err).Str("invoice", inv.InvoiceNum).Msg("archive receipt")
	}
}

// Receipt renders the printable page for inv.
func (s *Service) Receipt(inv hospital.Invoice) ([]byte, error) {
	return RenderReceipt(inv, s.opts.Currency, s.opts.TaxRate)
}

// ArchivedReceipt returns the stored copy of a receipt.
func (s *Service) ArchivedReceipt(ctx context.Context, invoiceNum string) ([]byte, error) {
	if s.opts.Archive == nil {
		return nil, archive.ErrNotFound
	}
	body, _, err := s.opts.Archive.Get(ctx, archive.InvoiceKey(invoiceNum))
	if err != nil {
		return nil, fmt.Errorf("fetch receipt %s: %w", invoiceNum, err)
	}
	return body, nil
}
