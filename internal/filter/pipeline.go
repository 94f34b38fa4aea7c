package filter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trikala-registry/companymap/internal/registry"
)

// Bounds of the sidebar range controls.
const (
	DefaultYearFrom    = 1982
	DefaultYearTo      = 2024
	DefaultCapitalFrom = 0
	DefaultCapitalTo   = 500000
	CapitalStep        = 1000
)

// Selection is one committed set of criteria. Nil ranges mean "no filter".
type Selection struct {
	Activity  string
	LegalType string
	Status    string
	Years     *YearRange
	Capital   *CapitalRange
}

// Apply runs the predicates in their fixed order over a copy of t, skipping every
// criterion that asks for no filtering.
func Apply(t registry.Table, sel Selection) registry.Table {
	out := t.Clone()
	if !IsAll(sel.Activity) {
		out = Activity(out, sel.Activity)
	}
	if !IsAll(sel.LegalType) {
		out = LegalType(out, sel.LegalType)
	}
	if !IsAll(sel.Status) {
		out = Status(out, sel.Status)
	}
	if sel.Years != nil {
		out = FoundingYears(out, *sel.Years)
	}
	if sel.Capital != nil {
		out = Capital(out, *sel.Capital)
	}
	return out
}

// Key identifies the selection, for request de-duplication and logging.
func (s Selection) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "a=%s|l=%s|s=%s", norm(s.Activity), norm(s.LegalType), norm(s.Status))
	if s.Years != nil {
		fmt.Fprintf(&b, "|y=%d-%d", s.Years.From, s.Years.To)
	}
	if s.Capital != nil {
		fmt.Fprintf(&b, "|c=%s-%s", s.Capital.Min.String(), s.Capital.Max.String())
	}
	return b.String()
}

func norm(criterion string) string {
	if IsAll(criterion) {
		return All
	}
	return strings.TrimSpace(criterion)
}

// Controls mirrors the five sidebar controls as the user left them.
type Controls struct {
	Activity    string `json:"activity"`
	LegalType   string `json:"legal_type"`
	Status      string `json:"status"`
	YearFrom    int    `json:"year_from"`
	YearTo      int    `json:"year_to"`
	CapitalFrom int    `json:"capital_from"`
	CapitalTo   int    `json:"capital_to"`
}

// DefaultControls is the untouched sidebar.
func DefaultControls() Controls {
	return Controls{
		Activity:    All,
		LegalType:   All,
		Status:      All,
		YearFrom:    DefaultYearFrom,
		YearTo:      DefaultYearTo,
		CapitalFrom: DefaultCapitalFrom,
		CapitalTo:   DefaultCapitalTo,
	}
}

// FromControls builds the Selection for c. With defaultAsNoFilter set, a range left
// at exactly the control bounds becomes "no filter", so re-selecting the full range
// is indistinguishable from never touching the control.
func FromControls(c Controls, defaultAsNoFilter bool) Selection {
	sel := Selection{
		Activity:  c.Activity,
		LegalType: c.LegalType,
		Status:    c.Status,
		Years:     &YearRange{From: c.YearFrom, To: c.YearTo},
		Capital: &CapitalRange{
			Min: decimal.NewFromInt(int64(c.CapitalFrom)),
			Max: decimal.NewFromInt(int64(c.CapitalTo)),
		},
	}
	if defaultAsNoFilter {
		if c.YearFrom == DefaultYearFrom && c.YearTo == DefaultYearTo {
			sel.Years = nil
		}
		if c.CapitalFrom == DefaultCapitalFrom && c.CapitalTo == DefaultCapitalTo {
			sel.Capital = nil
		}
	}
	return sel
}
