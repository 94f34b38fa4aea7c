package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Source column positions. The header row is skipped; names are assigned here.
const (
	colName = iota
	colLegalType
	colTaxID
	colActivity
	colMarket
	colAddress
	colStarted
	colClosed
	colStatus
	colCapital
	colLatLon
	colLinks

	columnCount
)

// ColumnNames are the canonical names of the twelve source columns.
var ColumnNames = [columnCount]string{
	"NAME", "LEGAL TYPE", "VAT", "KAD", "MARKET", "ADDRESS",
	"DATE_STARTED", "DATE_CLOSED", "STATUS", "CAPITAL", "LAT_LON", "LINKS",
}

// Delimiter separates fields in the registry export.
const Delimiter = ';'

var dayFirstLayouts = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

var (
	errEmpty       = errors.New("value required")
	errCoordinates = errors.New("expected exactly one comma between latitude and longitude")
	errNegative    = errors.New("must not be negative")
	errClosedOrder = errors.New("closing date precedes founding date")
	errDayFirst    = errors.New("not a day-first date")
	errGrouping    = errors.New("comma followed by three digits is ambiguous with a thousands separator")
	errColumnCount = fmt.Errorf("expected %d columns", columnCount)
)

// ParseCSV reads a semicolon-delimited registry export with a header row.
func ParseCSV(r io.Reader) (Table, error) {
	table := Table{}
	err := EachRecord(r, func(line int, row []string) error {
		company, err := ParseRow(line, row)
		if err != nil {
			return err
		}
		table = append(table, company)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// EachRecord calls fn with every non-blank data row of a registry export and its
// 1-based line number (the header is line 1). It stops at the first error.
func EachRecord(r io.Reader, fn func(line int, row []string) error) error {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("registry: read header: %w", err)
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("registry: read line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

// ParseRow converts the twelve raw fields of one source line into a Company.
func ParseRow(line int, row []string) (Company, error) {
	if len(row) != columnCount {
		return Company{}, &FormatError{Line: line, Column: "*", Value: strconv.Itoa(len(row)), Err: errColumnCount}
	}
	fields := make([]string, columnCount)
	for i, raw := range row {
		fields[i] = clean(raw)
	}

	c := Company{
		Name:         fields[colName],
		LegalType:    LegalType(fields[colLegalType]),
		TaxID:        fields[colTaxID],
		ActivityCode: fields[colActivity],
		Market:       fields[colMarket],
		Address:      fields[colAddress],
		Status:       Status(fields[colStatus]),
		Links:        fields[colLinks],
	}
	if c.Name == "" {
		return Company{}, formatErr(line, colName, fields, errEmpty)
	}

	var err error
	if c.Started, err = parseDate(fields[colStarted]); err != nil {
		return Company{}, formatErr(line, colStarted, fields, err)
	}
	if fields[colClosed] != "" {
		if c.Closed, err = parseDate(fields[colClosed]); err != nil {
			return Company{}, formatErr(line, colClosed, fields, err)
		}
		if c.Closed.Before(c.Started) {
			return Company{}, formatErr(line, colClosed, fields, errClosedOrder)
		}
	}
	if c.Capital, err = parseCapital(fields[colCapital]); err != nil {
		return Company{}, formatErr(line, colCapital, fields, err)
	}
	if c.Latitude, c.Longitude, err = ParseCoordinates(fields[colLatLon]); err != nil {
		return Company{}, formatErr(line, colLatLon, fields, err)
	}
	return c, nil
}

// ParseCoordinates splits a combined "lat,lon" field.
func ParseCoordinates(value string) (lat, lon float64, err error) {
	if strings.Count(value, ",") != 1 {
		return 0, 0, errCoordinates
	}
	latText, lonText, _ := strings.Cut(value, ",")
	if lat, err = strconv.ParseFloat(strings.TrimSpace(latText), 64); err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(lonText), 64); err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	return lat, lon, nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errEmpty
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errDayFirst
}

func parseCapital(value string) (decimal.NullDecimal, error) {
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	if strings.Contains(value, ",") && !strings.Contains(value, ".") {
		_, frac, _ := strings.Cut(value, ",")
		if len(frac) == 3 && isDigits(frac) {
			return decimal.NullDecimal{}, errGrouping
		}
		value = strings.Replace(value, ",", ".", 1)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	if d.IsNegative() {
		return decimal.NullDecimal{}, errNegative
	}
	return decimal.NewNullDecimal(d), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func clean(value string) string {
	return strings.TrimSpace(norm.NFC.String(value))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func formatErr(line, col int, fields []string, err error) *FormatError {
	return &FormatError{Line: line, Column: ColumnNames[col], Value: fields[col], Err: err}
}
