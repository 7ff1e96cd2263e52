package state

import (
	"fmt"
	"strconv"

	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
)

// FamilyData is what a family's colour function reads.
type FamilyData struct {
	Summary    summary.Summary
	Base       summary.Summary
	Ranges     summary.Ranges
	DiffRanges summary.DiffRanges
}

// BaseKey names a dataset in BaseSummaryCache.
func BaseKey(family overlay.Family, selector string) string {
	if selector == "" {
		return string(family)
	}
	return string(family) + "/" + selector
}

// FamilyData returns the summaries and ranges backing family. Base data is
// only returned in comparison mode with a non-base scenario selected.
func (st *State) FamilyData(family overlay.Family) FamilyData {
	comparing := st.ComparisonMode && st.CurrentScenarioPath != ""
	var d FamilyData
	switch family {
	case overlay.Wepp:
		d = FamilyData{Summary: st.WeppSummary, Ranges: st.WeppRanges, DiffRanges: st.WeppDiffRanges}
		if comparing {
			d.Base = st.BaseSummaryCache[BaseKey(overlay.Wepp, st.WeppStatistic)]
		}
	case overlay.WeppYearly:
		d = FamilyData{Summary: st.WeppYearlySummary, Ranges: st.WeppYearlyRanges, DiffRanges: st.WeppYearlyDiffRanges}
		if comparing {
			d.Base = st.BaseWeppYearlyCache[st.WeppYearlySelectedYear]
		}
	case overlay.WeppEvent:
		d = FamilyData{Summary: st.WeppEventSummary, Ranges: st.WeppEventRanges, DiffRanges: st.WeppEventDiffRanges}
		if comparing {
			d.Base = st.BaseWeppEventCache[st.WeppEventSelectedDate]
		}
	case overlay.Landuse:
		d = FamilyData{Summary: st.LanduseSummary, Ranges: st.LanduseRanges}
	case overlay.Soils:
		d = FamilyData{Summary: st.SoilsSummary, Ranges: st.SoilsRanges}
	case overlay.Hillslopes:
		d = FamilyData{Summary: st.HillslopesSummary, Ranges: st.HillslopesRanges}
	case overlay.Watar:
		d = FamilyData{Summary: st.WatarSummary, Ranges: st.WatarRanges}
	case overlay.Rap:
		d = FamilyData{Summary: st.RapSummary, Ranges: st.RapRanges}
	default:
		panic(fmt.Sprintf("state: unknown layer family %q", family))
	}
	return d
}

// Selector returns the scalar selector a family is keyed by, if any.
func (st *State) Selector(family overlay.Family) string {
	switch family {
	case overlay.Wepp:
		return st.WeppStatistic
	case overlay.WeppYearly:
		return strconv.Itoa(st.WeppYearlySelectedYear)
	case overlay.WeppEvent:
		return st.WeppEventSelectedDate
	case overlay.Rap:
		return strconv.Itoa(st.RapSelectedYear)
	}
	return ""
}
