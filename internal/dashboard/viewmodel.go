package dashboard

import (
	"encoding/json"
	"fmt"

	"github.com/trikala-registry/companymap/internal/filter"
	"github.com/trikala-registry/companymap/internal/present"
	"github.com/trikala-registry/companymap/internal/registry"
)

// MapOptions configures the Leaflet widget.
type MapOptions struct {
	CenterLat               float64 `json:"center_lat"`
	CenterLon               float64 `json:"center_lon"`
	Zoom                    int     `json:"zoom"`
	MinZoom                 int     `json:"min_zoom"`
	ZoomControl             bool    `json:"zoom_control"`
	DisableClusteringAtZoom int     `json:"disable_clustering_at_zoom"`
	Spiderfy                bool    `json:"spiderfy"`
	FullscreenPosition      string  `json:"fullscreen_position"`
	PopupMinWidth           int     `json:"popup_min_width"`
	PopupMaxWidth           int     `json:"popup_max_width"`
	TileURL                 string  `json:"tile_url"`
	Attribution             string  `json:"attribution"`
}

// DefaultMapOptions centres the map on Trikala.
func DefaultMapOptions() MapOptions {
	return MapOptions{
		CenterLat:               39.558,
		CenterLon:               21.765,
		Zoom:                    12,
		MinZoom:                 8,
		DisableClusteringAtZoom: 15,
		FullscreenPosition:      "topleft",
		PopupMinWidth:           450,
		PopupMaxWidth:           550,
		TileURL:                 "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution:             "&copy; OpenStreetMap contributors",
	}
}

// Option is one entry of a sidebar selector.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Metrics is the numeric summary beside the map.
type Metrics struct {
	Count       int    `json:"count"`
	MeanCapital string `json:"mean_capital"`
}

// PageViewModel feeds pages/dashboard.html.
type PageViewModel struct {
	Controls    filter.Controls
	Activities  []Option
	LegalTypes  []Option
	Statuses    []Option
	YearMin     int
	YearMax     int
	CapitalMin  int
	CapitalMax  int
	CapitalStep int
	Errors      FormErrors
	Metrics     Metrics
	MarkersJSON string
	MapJSON     string
	LoadedAt    string
}

// MarkersResponse is the body of GET /api/markers.
type MarkersResponse struct {
	Selection filter.Controls  `json:"selection"`
	Metrics   Metrics          `json:"metrics"`
	Markers   []present.Marker `json:"markers"`
}

func metricsOf(t registry.Table) Metrics {
	mean, ok := t.MeanCapital()
	return Metrics{Count: t.Len(), MeanCapital: present.FormatMeanCapital(mean, ok)}
}

func buildViewModel(c filter.Controls, visible registry.Table, snap *registry.Snapshot, opts MapOptions, errs FormErrors) (PageViewModel, error) {
	markers, err := present.Markers(visible)
	if err != nil {
		return PageViewModel{}, fmt.Errorf("dashboard: build markers: %w", err)
	}
	markersJSON, err := json.Marshal(markers)
	if err != nil {
		return PageViewModel{}, fmt.Errorf("dashboard: encode markers: %w", err)
	}
	mapJSON, err := json.Marshal(opts)
	if err != nil {
		return PageViewModel{}, fmt.Errorf("dashboard: encode map options: %w", err)
	}

	vm := PageViewModel{
		Controls:    c,
		Activities:  activityOptions(c.Activity),
		LegalTypes:  legalTypeOptions(c.LegalType),
		Statuses:    statusOptions(c.Status),
		YearMin:     filter.DefaultYearFrom,
		YearMax:     filter.DefaultYearTo,
		CapitalMin:  filter.DefaultCapitalFrom,
		CapitalMax:  filter.DefaultCapitalTo,
		CapitalStep: filter.CapitalStep,
		Errors:      errs,
		Metrics:     metricsOf(visible),
		MarkersJSON: string(markersJSON),
		MapJSON:     string(mapJSON),
	}
	if !snap.LoadedAt().IsZero() {
		vm.LoadedAt = present.FormatDate(snap.LoadedAt())
	}
	return vm, nil
}

func activityOptions(selected string) []Option {
	values := append([]string{filter.All}, registry.Markets...)
	return options(values, selected)
}

func legalTypeOptions(selected string) []Option {
	values := []string{filter.All}
	for _, lt := range registry.LegalTypes {
		values = append(values, string(lt))
	}
	return options(values, selected)
}

func statusOptions(selected string) []Option {
	return options([]string{filter.All, filter.StatusActive, filter.StatusClosed}, selected)
}

func options(values []string, selected string) []Option {
	if filter.IsAll(selected) {
		selected = filter.All
	}
	out := make([]Option, 0, len(values))
	for _, v := range values {
		out = append(out, Option{Value: v, Label: v, Selected: v == selected})
	}
	return out
}
