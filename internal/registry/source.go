package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
)

// Source yields the raw registry table.
type Source interface {
	Name() string
	Load(ctx context.Context) (Table, error)
}

// CSVSource reads the semicolon-delimited export from disk.
type CSVSource struct {
	Path string
}

// Name identifies the source in logs.
func (s CSVSource) Name() string {
	return "csv:" + s.Path
}

// Load opens and parses the file.
func (s CSVSource) Load(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", s.Path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseCSV(f)
}

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresTable holds the registry rows when REGISTRY_SOURCE=postgres.
const PostgresTable = "registry_companies"

const selectCompanies = `SELECT
	COALESCE(name, ''), COALESCE(legal_type, ''), COALESCE(vat, ''), COALESCE(kad, ''),
	COALESCE(market, ''), COALESCE(address, ''), COALESCE(date_started, ''), COALESCE(date_closed, ''),
	COALESCE(status, ''), COALESCE(capital, ''), COALESCE(lat_lon, ''), COALESCE(links, '')
FROM ` + PostgresTable + ` ORDER BY id`

// PostgresSource reads the same twelve text columns from a table, so both sources
// share the parsing rules of ParseRow.
type PostgresSource struct {
	DB Querier
}

// Name identifies the source in logs.
func (s PostgresSource) Name() string {
	return "postgres:" + PostgresTable
}

// Load queries every row and parses it.
func (s PostgresSource) Load(ctx context.Context) (Table, error) {
	if s.DB == nil {
		return nil, fmt.Errorf("registry: postgres source not configured")
	}
	rows, err := s.DB.Query(ctx, selectCompanies)
	if err != nil {
		return nil, fmt.Errorf("registry: query %s: %w", PostgresTable, err)
	}
	defer rows.Close()

	table := Table{}
	line := 0
	for rows.Next() {
		line++
		raw := make([]string, columnCount)
		dest := make([]any, columnCount)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("registry: scan row %d: %w", line, err)
		}
		company, err := ParseRow(line, raw)
		if err != nil {
			return nil, err
		}
		table = append(table, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registry: iterate %s: %w", PostgresTable, err)
	}
	return table, nil
}
