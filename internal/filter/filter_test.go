package filter

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trikala-registry/companymap/internal/registry"
)

func capital(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func founded(year int) time.Time {
	return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC)
}

func sampleTable() registry.Table {
	return registry.Table{
		{Name: "Alpha Bakery", LegalType: registry.LegalTypePublicCapital, ActivityCode: "56.10", Status: registry.StatusActive, Capital: capital(120000), Started: founded(2005)},
		{Name: "Beta Builders", LegalType: registry.LegalTypeLimitedLiability, ActivityCode: "41.20", Status: registry.StatusClosed, Started: founded(1999)},
		{Name: "Gamma Clinic", LegalType: registry.LegalTypePrivateCapital, ActivityCode: "86.21", Status: registry.StatusActive, Capital: capital(4500), Started: founded(2018)},
		{Name: "Delta Tutoring", LegalType: registry.LegalTypeSoleProprietor, ActivityCode: "85.59", Status: registry.StatusActive, Started: founded(1982)},
		{Name: "Epsilon Cafe", LegalType: registry.LegalTypeGeneralPartnership, ActivityCode: "56.30", Status: registry.StatusClosed, Capital: capital(75000), Started: founded(2024)},
	}
}

func names(t registry.Table) []string {
	out := make([]string, 0, len(t))
	for _, c := range t {
		out = append(out, c.Name)
	}
	return out
}

func TestActivityNamedMatchesPrefix(t *testing.T) {
	table := sampleTable()
	for market := range map[string]string{
		registry.MarketConstruction: "41",
		registry.MarketHealth:       "86",
		registry.MarketEducation:    "85",
		registry.MarketFoodService:  "56",
	} {
		c, _ := registry.CategoryForMarket(market)
		assert.Equal(t, names(Activity(table, c.Prefix())), names(Activity(table, market)), market)
	}
	assert.Equal(t, []string{"Alpha Bakery", "Epsilon Cafe"}, names(Activity(table, registry.MarketFoodService)))
}

func TestActivitySentinel(t *testing.T) {
	table := sampleTable()
	assert.Len(t, Activity(table, All), len(table))
	assert.Len(t, Activity(table, "ALL"), len(table))
}

func TestLegalTypeAndStatus(t *testing.T) {
	table := sampleTable()
	assert.Equal(t, []string{"Alpha Bakery"}, names(LegalType(table, "ΑΕ")))
	assert.Empty(t, LegalType(table, "ΣΥΝΕΤΑΙΡΙΣΜΟΣ"))
	assert.Equal(t, []string{"Beta Builders", "Epsilon Cafe"}, names(Status(table, StatusClosed)))
	assert.Len(t, Status(table, StatusActive), 3)
}

func TestFoundingYearsInclusive(t *testing.T) {
	got := FoundingYears(sampleTable(), YearRange{From: 1999, To: 2005})
	assert.Equal(t, []string{"Alpha Bakery", "Beta Builders"}, names(got))
}

func TestCapitalZeroLowerBoundKeepsAbsent(t *testing.T) {
	table := registry.Table{
		{Name: "no capital"},
		{Name: "big", Capital: capital(75000)},
	}
	got := Capital(table, CapitalRange{Min: decimal.Zero, Max: decimal.NewFromInt(50000)})
	assert.Equal(t, []string{"no capital"}, names(got))

	for _, upper := range []int64{0, 1, 1000, 500000} {
		got := Capital(sampleTable(), CapitalRange{Min: decimal.Zero, Max: decimal.NewFromInt(upper)})
		assert.Subset(t, names(got), []string{"Beta Builders", "Delta Tutoring"}, "upper=%d", upper)
	}
}

func TestCapitalPositiveLowerBoundDropsAbsent(t *testing.T) {
	got := Capital(sampleTable(), CapitalRange{Min: decimal.NewFromInt(1000), Max: decimal.NewFromInt(100000)})
	assert.Equal(t, []string{"Gamma Clinic", "Epsilon Cafe"}, names(got))
}

func TestPredicatesDoNotMutateInput(t *testing.T) {
	table := sampleTable()
	before := names(table)
	_ = Capital(table, CapitalRange{Max: decimal.NewFromInt(10)})
	_ = Activity(table, "41")
	out := Status(table, All)
	out[0].Name = "changed"
	assert.Equal(t, before, names(table))
}

func TestApplyOrderIndependentResults(t *testing.T) {
	table := sampleTable()
	sel := Selection{
		Activity: registry.MarketFoodService,
		Status:   StatusActive,
		Years:    &YearRange{From: 2000, To: 2024},
		Capital:  &CapitalRange{Min: decimal.Zero, Max: decimal.NewFromInt(200000)},
	}
	forward := Apply(table, sel)
	backward := Activity(Status(FoundingYears(Capital(table, *sel.Capital), *sel.Years), sel.Status), sel.Activity)
	assert.ElementsMatch(t, names(forward), names(backward))
	assert.Equal(t, []string{"Alpha Bakery"}, names(forward))
}

func TestFromControlsDefaultRangeIsNoFilter(t *testing.T) {
	table := sampleTable()
	sel := FromControls(DefaultControls(), true)
	assert.Nil(t, sel.Years)
	assert.Nil(t, sel.Capital)
	assert.Equal(t, names(table), names(Apply(table, sel)))

	explicit := FromControls(DefaultControls(), false)
	require.NotNil(t, explicit.Years)
	require.NotNil(t, explicit.Capital)
	assert.Equal(t, YearRange{From: 1982, To: 2024}, *explicit.Years)
}

func TestFromControlsNarrowedRange(t *testing.T) {
	c := DefaultControls()
	c.YearFrom = 2000
	sel := FromControls(c, true)
	require.NotNil(t, sel.Years)
	assert.Nil(t, sel.Capital)
	assert.Equal(t, []string{"Alpha Bakery", "Gamma Clinic", "Epsilon Cafe"}, names(Apply(sampleTable(), sel)))
}

func TestSelectionKey(t *testing.T) {
	a := FromControls(DefaultControls(), true)
	b := Selection{Activity: "", LegalType: "ALL", Status: All}
	assert.Equal(t, a.Key(), b.Key())

	c := DefaultControls()
	c.CapitalTo = 1000
	assert.NotEqual(t, a.Key(), FromControls(c, true).Key())
}

func TestAlphaBakeryScenario(t *testing.T) {
	alpha := sampleTable()[0]
	got := Activity(registry.Table{alpha}, registry.MarketFoodService)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha Bakery", got[0].Name)
}
