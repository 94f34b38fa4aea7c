package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = "testdata/registry.csv"

func loadFixture(t *testing.T) Table {
	t.Helper()
	table, err := CSVSource{Path: fixture}.Load(context.Background())
	require.NoError(t, err)
	return table
}

func TestParseCSVNormalisesRows(t *testing.T) {
	table := loadFixture(t)
	require.Len(t, table, 4)

	alpha := table[0]
	assert.Equal(t, "Alpha Bakery", alpha.Name)
	assert.Equal(t, LegalTypePublicCapital, alpha.LegalType)
	assert.Equal(t, "012345678", alpha.TaxID)
	assert.Equal(t, "56.10", alpha.ActivityCode)
	assert.Equal(t, "Εστιατόρια", alpha.Market)
	assert.Equal(t, StatusActive, alpha.Status)
	assert.Equal(t, time.Date(2005, time.March, 1, 0, 0, 0, 0, time.UTC), alpha.Started)
	assert.False(t, alpha.HasClosed())
	require.True(t, alpha.Capital.Valid)
	assert.True(t, alpha.Capital.Decimal.Equal(decimal.NewFromInt(120000)))

	beta := table[1]
	assert.Equal(t, time.Date(2015, time.December, 31, 0, 0, 0, 0, time.UTC), beta.Closed)
	assert.False(t, beta.Capital.Valid)
	assert.Equal(t, StatusClosed, beta.Status)

	gamma := table[2]
	assert.Equal(t, time.Date(2018, time.September, 7, 0, 0, 0, 0, time.UTC), gamma.Started)
	assert.True(t, gamma.Capital.Decimal.Equal(decimal.RequireFromString("4500.50")))
}

func TestCoordinatesMatchCombinedField(t *testing.T) {
	raw, err := os.ReadFile(fixture)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")[1:]
	table := loadFixture(t)
	require.Len(t, table, len(lines))

	for i, line := range lines {
		fields := strings.Split(line, ";")
		latText, lonText, _ := strings.Cut(fields[colLatLon], ",")
		lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
		require.NoError(t, err)
		lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
		require.NoError(t, err)
		assert.Equal(t, lat, table[i].Latitude, "row %d", i)
		assert.Equal(t, lon, table[i].Longitude, "row %d", i)
	}
}

func TestParseCoordinatesRejectsMalformed(t *testing.T) {
	for _, value := range []string{"39.5", "39.5,21.7,0", "north,21.7", "39.5,east", ""} {
		_, _, err := ParseCoordinates(value)
		assert.Error(t, err, value)
	}
}

func TestParseRowFormatErrors(t *testing.T) {
	base := []string{"Name", "ΑΕ", "1", "56.10", "m", "a", "01/03/2005", "", "Ενεργή", "", "39.5,21.7", ""}
	cases := map[string]struct {
		col   int
		value string
	}{
		"coordinates":   {colLatLon, "39.5 21.7"},
		"start date":    {colStarted, "2005/31/31"},
		"missing start": {colStarted, ""},
		"close date":    {colClosed, "yesterday"},
		"close order":   {colClosed, "01/01/2000"},
		"capital":       {colCapital, "lots"},
		"negative":      {colCapital, "-5"},
		"name":          {colName, "  "},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			row := append([]string(nil), base...)
			row[tc.col] = tc.value
			_, err := ParseRow(7, row)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDataFormat))
			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, 7, fe.Line)
			assert.Equal(t, ColumnNames[tc.col], fe.Column)
		})
	}

	_, err := ParseRow(3, base[:11])
	assert.ErrorIs(t, err, ErrDataFormat)
}

func TestParseDateDayFirst(t *testing.T) {
	want := time.Date(2010, time.February, 3, 0, 0, 0, 0, time.UTC)
	for _, value := range []string{"03/02/2010", "3/2/2010", "03-02-2010", "03.02.2010", "03/02/2010 00:00:00", "2010-02-03"} {
		got, err := parseDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, want, got, value)
	}
}

func TestParseCapitalCommaDecimal(t *testing.T) {
	got, err := parseCapital("1500,75")
	require.NoError(t, err)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("1500.75")))

	got, err = parseCapital("1500,5")
	require.NoError(t, err)
	assert.True(t, got.Decimal.Equal(decimal.RequireFromString("1500.5")))
}

func TestParseCapitalRejectsThousandsComma(t *testing.T) {
	for _, value := range []string{"1,500", "12,000"} {
		_, err := parseCapital(value)
		assert.ErrorIs(t, err, errGrouping, value)
	}
}

func TestParseDateRejectsUnknownLayouts(t *testing.T) {
	for _, value := range []string{"2010/02/03x", "Feb 3 2010", "13/13/2010"} {
		_, err := parseDate(value)
		assert.ErrorIs(t, err, errDayFirst, value)
	}
}

func TestParseCSVFailsWholeLoad(t *testing.T) {
	data := "h1;h2;h3;h4;h5;h6;h7;h8;h9;h10;h11;h12\n" +
		"A;ΑΕ;1;56.10;m;a;01/03/2005;;Ενεργή;;39.5,21.7;\n" +
		"B;ΑΕ;2;56.10;m;a;01/03/2005;;Ενεργή;;39.5;\n"
	table, err := ParseCSV(strings.NewReader(data))
	assert.Nil(t, table)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 3, fe.Line)
	assert.Equal(t, "LAT_LON", fe.Column)
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	table Table
	err   error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Load(ctx context.Context) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.table, s.err
}

func TestStoreLoadsOnce(t *testing.T) {
	src := &countingSource{table: Table{{Name: "A"}, {Name: "B"}}}
	store := NewStore(src, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := store.Snapshot(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 2, snap.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, src.calls)

	first, _ := store.Snapshot(context.Background())
	second, _ := store.Snapshot(context.Background())
	assert.Same(t, first, second)
	assert.Equal(t, "counting", first.Source())
}

func TestStoreRemembersFailure(t *testing.T) {
	src := &countingSource{err: &FormatError{Line: 2, Column: "LAT_LON", Err: errCoordinates}}
	store := NewStore(src, nil)
	_, err := store.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrDataFormat)
	_, err = store.Snapshot(context.Background())
	require.ErrorIs(t, err, ErrDataFormat)
	assert.Equal(t, 1, src.calls)
}

func TestSnapshotTableIsACopy(t *testing.T) {
	snap := NewSnapshot("test", Table{{Name: "A"}}, time.Now())
	rows := snap.Table()
	rows[0].Name = "mutated"
	assert.Equal(t, "A", snap.Table()[0].Name)
}

func TestSnapshotFingerprintFollowsContent(t *testing.T) {
	table := loadFixture(t)
	first := NewSnapshot("a", table, time.Now())
	second := NewSnapshot("b", table, time.Now().Add(time.Hour))
	assert.Len(t, first.Fingerprint(), 16)
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())

	changed := table.Clone()
	changed[0].Capital = decimal.NullDecimal{}
	assert.NotEqual(t, first.Fingerprint(), NewSnapshot("a", changed, time.Now()).Fingerprint())
	assert.Equal(t, "", (*Snapshot)(nil).Fingerprint())
}

func TestCSVSourceMissingFile(t *testing.T) {
	_, err := CSVSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMeanCapital(t *testing.T) {
	table := Table{
		{Capital: decimal.NewNullDecimal(decimal.NewFromInt(100))},
		{},
		{Capital: decimal.NewNullDecimal(decimal.NewFromInt(300))},
	}
	mean, ok := table.MeanCapital()
	require.True(t, ok)
	assert.True(t, mean.Equal(decimal.NewFromInt(200)))

	_, ok = Table{{}, {}}.MeanCapital()
	assert.False(t, ok)
}

func TestCategoryOf(t *testing.T) {
	c, ok := CategoryOf("41.20")
	require.True(t, ok)
	assert.Equal(t, CategoryConstruction, c)
	assert.True(t, c.Known())

	c, ok = CategoryOf("47.11")
	require.True(t, ok)
	assert.False(t, c.Known())

	_, ok = CategoryOf("n/a")
	assert.False(t, ok)

	c, ok = CategoryForMarket(MarketFoodService)
	require.True(t, ok)
	assert.Equal(t, "56", c.Prefix())
}
