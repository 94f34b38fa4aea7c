package present

import (
	"html/template"

	"github.com/trikala-registry/companymap/internal/registry"
)

// Marker is everything the map widget needs to place one company.
type Marker struct {
	Lat     float64       `json:"lat"`
	Lon     float64       `json:"lon"`
	Tooltip template.HTML `json:"tooltip"`
	Popup   template.HTML `json:"popup"`
	Icon
}

// MarkerOf formats c for the map.
func MarkerOf(c registry.Company) (Marker, error) {
	popup, err := Popup(PopupFieldsOf(c))
	if err != nil {
		return Marker{}, err
	}
	return Marker{
		Lat:     c.Latitude,
		Lon:     c.Longitude,
		Tooltip: Tooltip(c.Name),
		Popup:   popup,
		Icon:    IconFor(c.ActivityCode, c.Status),
	}, nil
}

// Markers formats every row of t, preserving order.
func Markers(t registry.Table) ([]Marker, error) {
	out := make([]Marker, 0, len(t))
	for _, c := range t {
		m, err := MarkerOf(c)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
