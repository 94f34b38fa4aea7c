package registry

import (
	"strconv"
	"strings"
)

// Category is the integer prefix of an activity code (the part before the first dot).
type Category int

const (
	CategoryConstruction Category = 41
	CategoryHealth       Category = 86
	CategoryEducation    Category = 85
	CategoryFoodService  Category = 56
)

// Market names offered by the activity selector.
const (
	MarketConstruction = "ΚΑΤΑΣΚΕΥΕΣ"
	MarketHealth       = "ΥΓΕΙΑ"
	MarketEducation    = "ΕΚΠΑΙΔΕΥΣΗ"
	MarketFoodService  = "ΕΣΤΙΑΣΗ"
)

// Markets lists the named market categories in sidebar order.
var Markets = []string{MarketConstruction, MarketHealth, MarketEducation, MarketFoodService}

var marketCategories = map[string]Category{
	MarketConstruction: CategoryConstruction,
	MarketHealth:       CategoryHealth,
	MarketEducation:    CategoryEducation,
	MarketFoodService:  CategoryFoodService,
}

// CategoryForMarket resolves a named market to its category.
func CategoryForMarket(name string) (Category, bool) {
	c, ok := marketCategories[strings.TrimSpace(name)]
	return c, ok
}

// CategoryOf parses the category out of an activity code such as "41.20".
func CategoryOf(code string) (Category, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(code), ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, false
	}
	return Category(n), true
}

// Known reports whether c is one of the four mapped categories.
func (c Category) Known() bool {
	switch c {
	case CategoryConstruction, CategoryHealth, CategoryEducation, CategoryFoodService:
		return true
	}
	return false
}

// Prefix renders the category as an activity-code prefix.
func (c Category) Prefix() string {
	return strconv.Itoa(int(c))
}
