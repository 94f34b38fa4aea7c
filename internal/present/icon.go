package present

import "github.com/trikala-registry/companymap/internal/registry"

// Icon is the marker color and Font Awesome glyph.
type Icon struct {
	Color string `json:"color"`
	Glyph string `json:"glyph"`
}

// DefaultIcon is used for activity codes outside the four mapped categories.
var DefaultIcon = Icon{Color: "blue", Glyph: "info-sign"}

type iconKey struct {
	category registry.Category
	status   registry.Status
}

var icons = map[iconKey]Icon{
	{registry.CategoryConstruction, registry.StatusActive}: {"green", "building"},
	{registry.CategoryConstruction, registry.StatusClosed}: {"gray", "building"},
	{registry.CategoryHealth, registry.StatusActive}:       {"red", "ambulance"},
	{registry.CategoryHealth, registry.StatusClosed}:       {"gray", "ambulance"},
	{registry.CategoryEducation, registry.StatusActive}:    {"blue", "book"},
	{registry.CategoryEducation, registry.StatusClosed}:    {"gray", "book"},
	{registry.CategoryFoodService, registry.StatusActive}:  {"orange", "coffee"},
	{registry.CategoryFoodService, registry.StatusClosed}:  {"gray", "coffee"},
}

// IconFor picks the marker icon from the activity category and status.
func IconFor(activityCode string, status registry.Status) Icon {
	category, ok := registry.CategoryOf(activityCode)
	if !ok {
		return DefaultIcon
	}
	if icon, ok := icons[iconKey{category, status}]; ok {
		return icon
	}
	return DefaultIcon
}
