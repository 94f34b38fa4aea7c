// Package export writes the filtered registry table as a spreadsheet.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/trikala-registry/companymap/internal/registry"
)

const (
	// SheetName matches the default sheet of a new workbook.
	SheetName = "Sheet1"
	// FileName is offered to the browser on download.
	FileName = "data_download.xlsx"
	// ContentType is the XLSX MIME type.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns are the exported headers, in order.
var Columns = []string{
	"NAME", "LEGAL TYPE", "VAT", "KAD", "MARKET", "ADDRESS",
	"DATE_STARTED", "DATE_CLOSED", "STATUS", "CAPITAL",
}

const (
	firstDateColumn = 7
	lastDateColumn  = 8
)

var dateFormat = "yyyy-mm-dd"

// WriteXLSX serialises t as a single-sheet workbook. Dates are written as date cells
// without a time component; absent closing dates and capitals stay empty.
func WriteXLSX(w io.Writer, t registry.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]any, 0, len(Columns))
	for _, name := range Columns {
		header = append(header, name)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for i, c := range t {
		row := []any{
			c.Name,
			string(c.LegalType),
			c.TaxID,
			c.ActivityCode,
			c.Market,
			c.Address,
			c.Started,
			nil,
			string(c.Status),
			nil,
		}
		if c.HasClosed() {
			row[lastDateColumn-1] = c.Closed
		}
		if c.Capital.Valid {
			row[len(row)-1] = c.Capital.Decimal.InexactFloat64()
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}

	if len(t) > 0 {
		style, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
		if err != nil {
			return fmt.Errorf("export: date style: %w", err)
		}
		from, _ := excelize.CoordinatesToCellName(firstDateColumn, 2)
		to, _ := excelize.CoordinatesToCellName(lastDateColumn, len(t)+1)
		if err := f.SetCellStyle(SheetName, from, to, style); err != nil {
			return fmt.Errorf("export: apply date style: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
