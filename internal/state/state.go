// Package state holds the dashboard state and the store every component
// reads and writes through.
package state

import (
	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
)

// Meta is the valid selector domain of a time-indexed family.
type Meta struct {
	Years []int    `json:"years,omitempty"`
	Dates []string `json:"dates,omitempty"`
}

// MinYear returns the first year, or 0.
func (m *Meta) MinYear() int {
	if m == nil || len(m.Years) == 0 {
		return 0
	}
	return m.Years[0]
}

// MaxYear returns the last year, or 0.
func (m *Meta) MaxYear() int {
	if m == nil || len(m.Years) == 0 {
		return 0
	}
	return m.Years[len(m.Years)-1]
}

// State is the complete dashboard state. Maps are never mutated after they
// are stored: writers build a new map and assign it, so a State returned by
// Store.Get stays valid.
type State struct {
	CurrentScenarioPath string          `json:"currentScenarioPath"`
	ComparisonMode      bool            `json:"comparisonMode"`
	Subcatchments       *geo.Collection `json:"-"`
	WeppStatistic       string          `json:"weppStatistic"`

	WeppSummary       summary.Summary `json:"weppSummary"`
	WeppYearlySummary summary.Summary `json:"weppYearlySummary"`
	WeppEventSummary  summary.Summary `json:"weppEventSummary"`

	WeppYearlyCache     map[int]summary.Summary    `json:"weppYearlyCache"`
	BaseWeppYearlyCache map[int]summary.Summary    `json:"baseWeppYearlyCache"`
	WeppEventCache      map[string]summary.Summary `json:"weppEventCache"`
	BaseWeppEventCache  map[string]summary.Summary `json:"baseWeppEventCache"`
	BaseSummaryCache    map[string]summary.Summary `json:"baseSummaryCache"`

	WeppRanges       summary.Ranges `json:"weppRanges"`
	WeppYearlyRanges summary.Ranges `json:"weppYearlyRanges"`
	WeppEventRanges  summary.Ranges `json:"weppEventRanges"`
	LanduseRanges    summary.Ranges `json:"landuseRanges"`
	SoilsRanges      summary.Ranges `json:"soilsRanges"`
	HillslopesRanges summary.Ranges `json:"hillslopesRanges"`
	WatarRanges      summary.Ranges `json:"watarRanges"`
	RapRanges        summary.Ranges `json:"rapRanges"`

	WeppDiffRanges       summary.DiffRanges `json:"weppDiffRanges"`
	WeppYearlyDiffRanges summary.DiffRanges `json:"weppYearlyDiffRanges"`
	WeppEventDiffRanges  summary.DiffRanges `json:"weppEventDiffRanges"`

	LanduseSummary    summary.Summary `json:"landuseSummary"`
	SoilsSummary      summary.Summary `json:"soilsSummary"`
	HillslopesSummary summary.Summary `json:"hillslopesSummary"`
	WatarSummary      summary.Summary `json:"watarSummary"`
	RapSummary        summary.Summary `json:"rapSummary"`

	Layers       map[overlay.Family][]overlay.Descriptor `json:"layers"`
	RasterLayers []overlay.Descriptor                    `json:"rasterLayers"`

	WeppYearlyMeta *Meta `json:"weppYearlyMeta"`
	WeppEventMeta  *Meta `json:"weppEventMeta"`
	RapMeta        *Meta `json:"rapMeta"`

	WeppYearlySelectedYear int    `json:"weppYearlySelectedYear"`
	WeppEventSelectedDate  string `json:"weppEventSelectedDate"`
	RapSelectedYear        int    `json:"rapSelectedYear"`

	GraphMode      string `json:"graphMode"`
	GraphFocus     bool   `json:"graphFocus"`
	ActiveGraphKey string `json:"activeGraphKey"`

	Basemap            string `json:"basemap"`
	ShowLabels         bool   `json:"showLabels"`
	HighlightedTopazID string `json:"highlightedTopazId"`

	Version uint64 `json:"version"`
}

// SwitchScenario points st at a new scenario. Every summary of the previous
// scenario, its active caches and every range are dropped; base caches are
// keyed by year, date or dataset and survive. Layer lists and visibility
// are kept until detection runs again.
func (st *State) SwitchScenario(path string) {
	st.CurrentScenarioPath = path
	st.WeppSummary = nil
	st.WeppYearlySummary = nil
	st.WeppEventSummary = nil
	st.WeppYearlyCache = nil
	st.WeppEventCache = nil
	st.WeppRanges = nil
	st.WeppYearlyRanges = nil
	st.WeppEventRanges = nil
	st.WeppDiffRanges = nil
	st.WeppYearlyDiffRanges = nil
	st.WeppEventDiffRanges = nil

	st.LanduseSummary, st.LanduseRanges = nil, nil
	st.SoilsSummary, st.SoilsRanges = nil, nil
	st.HillslopesSummary, st.HillslopesRanges = nil, nil
	st.WatarSummary, st.WatarRanges = nil, nil
	st.RapSummary, st.RapRanges = nil, nil
}

// SetVisible flips one descriptor's visibility. Raster overlays toggle
// independently. Subcatchment overlays are exclusive when exclusive is set:
// showing one hides every other. It reports whether the key was found.
func (st *State) SetVisible(key string, visible, exclusive bool) bool {
	for i, d := range st.RasterLayers {
		if d.Key == key {
			rasters := append([]overlay.Descriptor(nil), st.RasterLayers...)
			rasters[i].Visible = visible
			st.RasterLayers = rasters
			return true
		}
	}

	found := false
	layers := make(map[overlay.Family][]overlay.Descriptor, len(st.Layers))
	for fam, ds := range st.Layers {
		cp := append([]overlay.Descriptor(nil), ds...)
		for i := range cp {
			switch {
			case cp[i].Key == key:
				cp[i].Visible = visible
				found = true
			case exclusive && visible:
				cp[i].Visible = false
			}
		}
		layers[fam] = cp
	}
	if found {
		st.Layers = layers
	}
	return found
}

// FamilyVisible reports whether any descriptor of family is visible.
func (st *State) FamilyVisible(family overlay.Family) bool {
	if family == overlay.Raster {
		return overlay.AnyVisible(st.RasterLayers)
	}
	return overlay.AnyVisible(st.Layers[family])
}

// With returns a copy of m with k set to v.
func With[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for key, val := range m {
		out[key] = val
	}
	out[k] = v
	return out
}

// WithLayers returns a copy of st.Layers with family replaced.
func (st *State) WithLayers(family overlay.Family, ds []overlay.Descriptor) map[overlay.Family][]overlay.Descriptor {
	return With(st.Layers, family, ds)
}
