package wepp

import (
	"context"

	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/query"
	"github.com/weppcloud/gldash/pkg/summary"
)

// RefreshWeppStatisticData reloads the whole-run summary for the selected
// statistic. It does nothing while no WEPP layer is visible.
func (m *Manager) RefreshWeppStatisticData(ctx context.Context) error {
	st := m.store.Get()
	if !st.FamilyVisible(overlay.Wepp) {
		return nil
	}
	gen := m.statGen.Add(1)
	statistic, scenario := st.WeppStatistic, st.CurrentScenarioPath

	s := m.FetchWeppSummary(ctx, query.Active, statistic)
	if s == nil {
		return ErrNoData
	}
	ranges := m.ComputeWeppRanges(s)

	var diff summary.DiffRanges
	if st.ComparisonMode && scenario != "" {
		if base := m.loadBaseWeppSummary(ctx, statistic); base != nil {
			diff = summary.ComputeDiffRanges(s, base, overlay.MeasureKeys(overlay.Wepp), summary.EpsilonDefault)
		}
	}

	stale := false
	m.store.SetState(func(cur *state.State) {
		if m.statGen.Load() != gen || cur.WeppStatistic != statistic || cur.CurrentScenarioPath != scenario {
			stale = true
			return
		}
		cur.WeppSummary = s
		cur.WeppRanges = ranges
		cur.WeppDiffRanges = diff
	})
	if stale {
		m.log.Debug().Str("statistic", statistic).Msg("dropped stale wepp summary")
		return ErrStale
	}
	return nil
}

// RefreshWeppYearlyData shows the selected year, from cache when possible.
func (m *Manager) RefreshWeppYearlyData(ctx context.Context) error {
	st := m.store.Get()
	if !st.FamilyVisible(overlay.WeppYearly) {
		return nil
	}
	gen := m.yearlyGen.Add(1)
	year, scenario := st.WeppYearlySelectedYear, st.CurrentScenarioPath

	s, cached := st.WeppYearlyCache[year]
	if !cached {
		s = m.FetchWeppYearlySummary(ctx, query.Active, year)
		if s == nil {
			return ErrNoData
		}
	}
	ranges := m.ComputeWeppYearlyRanges(s)

	var diff summary.DiffRanges
	if st.ComparisonMode && scenario != "" {
		if base := m.LoadBaseWeppYearlyData(ctx, year); base != nil {
			diff = yearlyDiff(s, base)
		}
	}

	stale := false
	m.store.SetState(func(cur *state.State) {
		// The summary is right for its year even if the slider moved.
		if !cached && cur.CurrentScenarioPath == scenario {
			cur.WeppYearlyCache = state.With(cur.WeppYearlyCache, year, s)
		}
		if m.yearlyGen.Load() != gen || cur.WeppYearlySelectedYear != year || cur.CurrentScenarioPath != scenario {
			stale = true
			return
		}
		cur.WeppYearlySummary = s
		cur.WeppYearlyRanges = ranges
		cur.WeppYearlyDiffRanges = diff
	})
	if stale {
		m.log.Debug().Int("year", year).Msg("dropped stale yearly summary")
		return ErrStale
	}
	return nil
}

// RefreshWeppEventData shows the selected date, from cache when possible.
func (m *Manager) RefreshWeppEventData(ctx context.Context) error {
	st := m.store.Get()
	if !st.FamilyVisible(overlay.WeppEvent) || st.WeppEventSelectedDate == "" {
		return nil
	}
	gen := m.eventGen.Add(1)
	date, scenario := st.WeppEventSelectedDate, st.CurrentScenarioPath

	s, cached := st.WeppEventCache[date]
	if !cached {
		s = m.FetchWeppEventSummary(ctx, query.Active, date)
		if s == nil {
			return ErrNoData
		}
	}
	ranges := m.ComputeWeppEventRanges(s)

	var diff summary.DiffRanges
	if st.ComparisonMode && scenario != "" {
		if base := m.LoadBaseWeppEventData(ctx, date); base != nil {
			diff = eventDiff(s, base)
		}
	}

	stale := false
	m.store.SetState(func(cur *state.State) {
		if !cached && cur.CurrentScenarioPath == scenario {
			cur.WeppEventCache = state.With(cur.WeppEventCache, date, s)
		}
		if m.eventGen.Load() != gen || cur.WeppEventSelectedDate != date || cur.CurrentScenarioPath != scenario {
			stale = true
			return
		}
		cur.WeppEventSummary = s
		cur.WeppEventRanges = ranges
		cur.WeppEventDiffRanges = diff
	})
	if stale {
		m.log.Debug().Str("date", date).Msg("dropped stale event summary")
		return ErrStale
	}
	return nil
}
