// Package present turns registry rows into the markup and icons the map shows.
package present

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trikala-registry/companymap/internal/registry"
)

// PopupFields are the values shown in a marker popup.
type PopupFields struct {
	Name         string
	LegalType    string
	TaxID        string
	ActivityCode string
	Status       string
	Started      time.Time
	Closed       time.Time
	Capital      decimal.NullDecimal
	Market       string
	Address      string
}

// PopupFieldsOf extracts the popup values of c.
func PopupFieldsOf(c registry.Company) PopupFields {
	return PopupFields{
		Name:         c.Name,
		LegalType:    string(c.LegalType),
		TaxID:        c.TaxID,
		ActivityCode: c.ActivityCode,
		Status:       string(c.Status),
		Started:      c.Started,
		Closed:       c.Closed,
		Capital:      c.Capital,
		Market:       c.Market,
		Address:      c.Address,
	}
}

type popupView struct {
	PopupFields
	StartedText string
	ClosedText  string
	CapitalText string
}

// Optional blocks are omitted entirely when their value is absent.
const popupTemplate = `<head><style>.container{display:flex;width:100%;padding:0;margin:0;}.half{width:100%;padding:0;margin:0;}</style></head>
<span style="font-size:20px;color:#148CDA;"><b>{{.Name}}</b></span>
<hr style="border:1px solid grey;">
<div class="container">
<div class="half">{{label "Εταιρικός Τύπος:"}}<span style="font-size:14px;"><b>{{.LegalType}}</b></span></div>
<div class="half" data-field="tax-id">{{label "Α.Φ.Μ.:"}}<span style="font-size:14px;"><b>{{.TaxID}}</b></span><br><br></div>
</div>
<div class="container">
<div class="half">{{label "ΚΑΔ:"}}<span style="font-size:14px;"><b>{{.ActivityCode}}</b></span></div>
<div class="half" data-field="status">{{label "Κατάσταση:"}}<span style="font-size:14px;"><b>{{.Status}}</b></span><br><br></div>
</div>
<div class="container">
<div class="half" data-field="started">{{label "Ημ/νία Ίδρυσης:"}}<span style="font-size:14px;"><b>{{.StartedText}}</b></span></div>
{{- if .ClosedText}}
<div class="half" data-field="closed">{{label "Ημ/νία Κλεισίματος:"}}<span style="font-size:14px;"><b>{{.ClosedText}}</b></span><br><br></div>
</div>
{{- else}}
<br><br></div>
{{- end}}
{{- if .CapitalText}}
<div class="container">
<div class="half" data-field="capital">{{label "Μετοχικό Κεφάλαιο:"}}<span style="font-size:14px;"><b>{{.CapitalText}}</b></span><br><br></div>
</div>
{{- end}}
<div class="container">
<div class="half" data-field="market">{{label "Δραστηριότητα:"}}<span style="font-size:14px;"><b>{{.Market}}</b></span><br><br></div>
</div>
<div class="container">
<div class="half" data-field="address">{{label "Διεύθυνση:"}}<span style="font-size:14px;"><b>{{.Address}}</b></span><br><br></div>
</div>`

var popupTmpl = template.Must(template.New("popup").Funcs(template.FuncMap{
	"label": func(text string) template.HTML {
		return template.HTML(`<span style="font-size:14px;color:#148CDA;"><b>` + template.HTMLEscapeString(text) + `</b></span> `)
	},
}).Parse(popupTemplate))

// Popup renders the popup markup for one company.
func Popup(f PopupFields) (template.HTML, error) {
	view := popupView{
		PopupFields: f,
		StartedText: FormatDate(f.Started),
		ClosedText:  FormatDate(f.Closed),
	}
	if f.Capital.Valid {
		view.CapitalText = FormatMoney(f.Capital.Decimal)
	}
	var buf bytes.Buffer
	if err := popupTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("present: render popup for %q: %w", f.Name, err)
	}
	return template.HTML(buf.String()), nil
}

// Tooltip renders the hover label for one company.
func Tooltip(name string) template.HTML {
	return template.HTML(`<span style="font-size:14px;"><b>` + template.HTMLEscapeString(name) + `</b></span>`)
}
