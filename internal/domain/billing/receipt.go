package billing

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"github.com/hms/hms/internal/hospital"
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(currency string, c hospital.Cents) string { return currency + " " + c.String() },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice - {{.Invoice.InvoiceNum}}</title>
<style>
body { font-family: sans-serif; padding: 40px; }
.header { text-align: center; margin-bottom: 40px; }
.details { margin-bottom: 20px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 10px; border-bottom: 1px solid #eee; text-align: left; }
.total { font-size: 1.5rem; text-align: right; margin-top: 30px; }
</style>
</head>
<body>
<div class="header">
<h1>HOSPITAL INVOICE</h1>
<p>Invoice #: {{.Invoice.InvoiceNum}}</p>
</div>
<div class="details">
<p><strong>Patient Name:</strong> {{.Invoice.PatientName}}</p>
<p><strong>Patient ID:</strong> {{.Invoice.PatientID}}</p>
<p><strong>Date:</strong> {{.Date}}</p>
</div>
<table>
<tr><th>Description</th><th>Qty</th><th>Amount</th></tr>
{{- range .Invoice.Lines}}
<tr><td>{{.Description}}</td><td>{{.Quantity}}</td><td>{{money $.Currency .Amount}}</td></tr>
{{- end}}
<tr><td>Tax ({{.TaxPercent}}%)</td><td></td><td>{{money .Currency .Invoice.Tax}}</td></tr>
</table>
<div class="total">
<strong>TOTAL AMOUNT: {{money .Currency .Invoice.Total}}</strong>
</div>
</body>
</html>
`))

// RenderReceipt prints inv as a standalone HTML page.
func RenderReceipt(inv hospital.Invoice, currency string, taxRate float64) ([]byte, error) {
	var buf bytes.Buffer
	err := receiptTmpl.Execute(&buf, struct {
		Invoice    hospital.Invoice
		Currency   string
		TaxPercent string
		Date       string
	}{
		Invoice:    inv,
		Currency:   currency,
		TaxPercent: formatPercent(taxRate),
		Date:       inv.Timestamp.Local().Format("2006-01-02 15:04"),
	})
	if err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", inv.InvoiceNum, err)
	}
	return buf.Bytes(), nil
}

func formatPercent(rate float64) string {
	p := rate * 100
	if p == math.Trunc(p) {
		return fmt.Sprintf("%d", int(p))
	}
	return fmt.Sprintf("%.2f", p)
}
