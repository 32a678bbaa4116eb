package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// Export formats
const (
	ExportJSON = "json"
	ExportCSV  = "csv"
	ExportHTML = "html"
)

var exportContentTypes = map[string]string{
	ExportJSON: "application/json",
	ExportCSV:  "text/csv; charset=utf-8",
	ExportHTML: "text/html; charset=utf-8",
}

// ExportContentType returns the MIME type for format, or "" if unknown
func ExportContentType(format string) string {
	return exportContentTypes[format]
}

// ExportFilename names a download, e.g. offers_2025-01-31_14-05.csv
func ExportFilename(format string, now time.Time) string {
	return "offers_" + now.Format("2006-01-02_15-04") + "." + format
}

// ExportOffers writes offers to w in the given format
func ExportOffers(w io.Writer, offers []models.Offer, format string, now time.Time) error {
	switch format {
	case ExportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if offers == nil {
			offers = []models.Offer{}
		}
		return enc.Encode(offers)
	case ExportCSV:
		return exportCSV(w, offers)
	case ExportHTML:
		return exportHTMLTemplate.Execute(w, exportHTMLData{
			Offers:     offers,
			ExportedAt: now.UTC().Format("2006-01-02 15:04:05 MST"),
		})
	}
	return models.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
}

var csvHeader = []string{"ID", "Name", "Amount min", "Amount max", "Status", "Landing1", "Landing2"}

func exportCSV(w io.Writer, offers []models.Offer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range offers {
		o := &offers[i]
		row := []string{
			o.ID,
			o.Name,
			formatAmount(o.AmountMin),
			formatAmount(o.AmountMax),
			o.Status,
			yesNo(o.Landing1),
			yesNo(o.Landing2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

type exportHTMLData struct {
	Offers     []models.Offer
	ExportedAt string
}

var exportHTMLTemplate = template.Must(template.New("offers").Funcs(template.FuncMap{
	"amount": formatAmount,
	"mark": func(b bool) string {
		if b {
			return "✓"
		}
		return "✗"
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Offers - {{.ExportedAt}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
</style>
</head>
<body>
<h1>Offers ({{len .Offers}})</h1>
<p>Exported: {{.ExportedAt}}</p>
<table>
<thead>
<tr><th>Name</th><th>Amount</th><th>Term</th><th>Status</th><th>Landing 1</th><th>Landing 2</th></tr>
</thead>
<tbody>
{{- range .Offers}}
<tr><td>{{.Name}}</td><td>{{amount .AmountMin}} - {{amount .AmountMax}} ₽</td><td>{{.TermMin}} - {{.TermMax}} days</td><td>{{if eq .Status "active"}}Active{{else}}Inactive{{end}}</td><td>{{mark .Landing1}}</td><td>{{mark .Landing2}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))
