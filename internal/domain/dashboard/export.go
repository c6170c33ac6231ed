package dashboard

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet names in the exported workbook.
const (
	SheetSummary   = "Summary"
	SheetPatients  = "Patients"
	SheetInvoices  = "Invoices"
	SheetInventory = "Inventory"
)

// Export renders the dashboard and the underlying lists as an .xlsx workbook.
func (s *Service) Export() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	st := s.Stats()
	summary := [][]any{
		{"Metric", "Value"},
		{"Patients", st.Patients},
		{"Vitals records", st.VitalsRecords},
		{"Prescriptions", st.Prescriptions},
		{"Invoices", st.Invoices},
		{"Staff", st.Staff},
		{"Low stock items", st.LowStock},
		{"Revenue (" + st.Currency + ")", st.Revenue.Float()},
	}
	for _, sc := range st.ByStatus {
		summary = append(summary, []any{"Status: " + string(sc.Status), sc.Count})
	}

	patients := [][]any{{"ID", "Name", "Age", "Gender", "Status"}}
	for _, p := range s.store.Patients() {
		patients = append(patients, []any{p.ID, p.Name, p.Age, p.Gender, string(p.Status)})
	}

	invoices := [][]any{{"Invoice", "Patient ID", "Patient", "Subtotal", "Tax", "Total", "Date"}}
	for _, inv := range s.store.Invoices() {
		invoices = append(invoices, []any{
			inv.InvoiceNum, inv.PatientID, inv.PatientName,
			inv.Subtotal.Float(), inv.Tax.Float(), inv.Total.Float(),
			inv.Timestamp.UTC().Format("2006-01-02 15:04"),
		})
	}

	inventory := [][]any{{"ID", "Name", "Stock", "Unit", "Price", "Low stock"}}
	for _, it := range s.store.Inventory() {
		low := "No"
		if it.LowStock() {
			low = "Yes"
		}
		inventory = append(inventory, []any{it.ID, it.Name, it.Stock, it.Unit, it.Price.Float(), low})
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetSummary, summary},
		{SheetPatients, patients},
		{SheetInvoices, invoices},
		{SheetInventory, inventory},
	}
	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeRows(f, sh.name, sh.rows, header); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}
