// Package filter narrows a registry table one dimension at a time.
//
// Every predicate is pure: it never touches its input and always returns a new
// Table, so predicates compose in any order with the same result set.
package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/trikala-registry/companymap/internal/registry"
)

// All is the selector value meaning "no filter".
const All = "ΟΛΕΣ"

// Status selector values.
const (
	StatusActive = "ΕΝΕΡΓΗ"
	StatusClosed = "ΚΛΕΙΣΤΗ"
)

// IsAll reports whether a categorical criterion asks for no filtering.
func IsAll(criterion string) bool {
	criterion = strings.TrimSpace(criterion)
	return criterion == "" || criterion == All || strings.EqualFold(criterion, "ALL")
}

// YearRange is an inclusive range of founding years.
type YearRange struct {
	From int
	To   int
}

// CapitalRange is an inclusive range of declared capital.
type CapitalRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// ActivityPrefix resolves a named market or a raw code prefix to the prefix matched
// against activity codes.
func ActivityPrefix(criterion string) string {
	criterion = strings.TrimSpace(criterion)
	if c, ok := registry.CategoryForMarket(criterion); ok {
		return c.Prefix()
	}
	return criterion
}

// Activity keeps rows whose activity code starts with the resolved prefix.
func Activity(t registry.Table, criterion string) registry.Table {
	if IsAll(criterion) {
		return t.Clone()
	}
	prefix := ActivityPrefix(criterion)
	return where(t, func(c registry.Company) bool {
		return strings.HasPrefix(c.ActivityCode, prefix)
	})
}

// LegalType keeps rows with exactly the given legal type.
func LegalType(t registry.Table, legalType string) registry.Table {
	if IsAll(legalType) {
		return t.Clone()
	}
	want := registry.LegalType(strings.TrimSpace(legalType))
	return where(t, func(c registry.Company) bool {
		return c.LegalType == want
	})
}

// ResolveStatus maps a selector value to the registry status label.
func ResolveStatus(selection string) registry.Status {
	if strings.TrimSpace(selection) == StatusActive {
		return registry.StatusActive
	}
	return registry.StatusClosed
}

// Status keeps rows with the status chosen on the selector.
func Status(t registry.Table, selection string) registry.Table {
	if IsAll(selection) {
		return t.Clone()
	}
	want := ResolveStatus(selection)
	return where(t, func(c registry.Company) bool {
		return c.Status == want
	})
}

// FoundingYears keeps rows founded within r, bounds included.
func FoundingYears(t registry.Table, r YearRange) registry.Table {
	return where(t, func(c registry.Company) bool {
		year := c.FoundedYear()
		return year >= r.From && year <= r.To
	})
}

// Capital keeps rows whose capital lies within r, bounds included. When the lower
// bound is zero, rows without declared capital are kept too and come first.
func Capital(t registry.Table, r CapitalRange) registry.Table {
	inRange := func(c registry.Company) bool {
		return c.Capital.Valid &&
			c.Capital.Decimal.GreaterThanOrEqual(r.Min) &&
			c.Capital.Decimal.LessThanOrEqual(r.Max)
	}
	if !r.Min.IsZero() {
		return where(t, inRange)
	}
	out := where(t, func(c registry.Company) bool { return !c.Capital.Valid })
	for _, c := range t {
		if inRange(c) {
			out = append(out, c)
		}
	}
	return out
}

func where(t registry.Table, keep func(registry.Company) bool) registry.Table {
	out := make(registry.Table, 0, len(t))
	for _, c := range t {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
