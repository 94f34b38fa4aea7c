package registry

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// LegalType is the legal form a company is registered under.
type LegalType string

const (
	LegalTypeSoleProprietor     LegalType = "ΑΤΟΜΙΚΗ"
	LegalTypeGeneralPartnership LegalType = "ΟΕ"
	LegalTypePrivateCapital     LegalType = "ΙΚΕ"
	LegalTypePublicCapital      LegalType = "ΑΕ"
	LegalTypeLimitedPartnership LegalType = "ΕΕ"
	LegalTypeLimitedLiability   LegalType = "ΕΠΕ"
)

// LegalTypes lists the legal forms in the order the sidebar offers them.
var LegalTypes = []LegalType{
	LegalTypeSoleProprietor,
	LegalTypeGeneralPartnership,
	LegalTypePrivateCapital,
	LegalTypePublicCapital,
	LegalTypeLimitedPartnership,
	LegalTypeLimitedLiability,
}

// Status is the registry status label of a company.
type Status string

const (
	StatusActive Status = "Ενεργή"
	StatusClosed Status = "Κλειστή"
)

// Company is one row of the business registry.
type Company struct {
	Name         string
	LegalType    LegalType
	TaxID        string
	ActivityCode string
	Market       string
	Address      string
	Started      time.Time
	Closed       time.Time
	Status       Status
	Capital      decimal.NullDecimal
	Latitude     float64
	Longitude    float64
	Links        string
}

// HasClosed reports whether a closing date was recorded.
func (c Company) HasClosed() bool {
	return !c.Closed.IsZero()
}

// FoundedYear returns the calendar year of incorporation.
func (c Company) FoundedYear() int {
	return c.Started.Year()
}

// Category returns the activity category derived from the activity code.
func (c Company) Category() (Category, bool) {
	return CategoryOf(c.ActivityCode)
}

// Table is an ordered set of companies. Filters always return a new Table.
type Table []Company

// Clone returns a shallow copy that shares no backing array with t.
func (t Table) Clone() Table {
	if t == nil {
		return Table{}
	}
	return slices.Clone(t)
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t)
}

// MeanCapital averages the declared capitals. ok is false when no row declares one.
func (t Table) MeanCapital() (mean decimal.Decimal, ok bool) {
	sum := decimal.Zero
	n := int64(0)
	for _, c := range t {
		if !c.Capital.Valid {
			continue
		}
		sum = sum.Add(c.Capital.Decimal)
		n++
	}
	if n == 0 {
		return decimal.Zero, false
	}
	return sum.Div(decimal.NewFromInt(n)), true
}
