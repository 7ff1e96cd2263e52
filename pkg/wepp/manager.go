// Package wepp fetches WEPP erosion-model summaries per subcatchment and
// derives the display ranges the map colours are scaled by.
package wepp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/query"
	"github.com/weppcloud/gldash/pkg/summary"
)

var (
	// ErrNoData is returned by a refresh whose summary could not be fetched.
	// State is left untouched.
	ErrNoData = errors.New("wepp: no data")
	// ErrStale is returned when a refresh resolved after its selector moved
	// on. The result was dropped; keyed caches were still filled.
	ErrStale = errors.New("wepp: stale result discarded")
)

// Manager is the WEPP data manager.
type Manager struct {
	poster   query.Poster
	store    *state.Store
	datasets config.Datasets
	log      zerolog.Logger

	loads singleflight.Group

	statGen   atomic.Uint64
	yearlyGen atomic.Uint64
	eventGen  atomic.Uint64
}

// NewManager creates a manager reading and writing st.
func NewManager(poster query.Poster, st *state.Store, datasets config.Datasets, log zerolog.Logger) *Manager {
	return &Manager{
		poster:   poster,
		store:    st,
		datasets: datasets,
		log:      log.With().Str("component", "wepp").Logger(),
	}
}

func (m *Manager) post(ctx context.Context, target query.Target, p *query.Payload) *query.Result {
	switch target {
	case query.Active:
		return m.poster.PostQueryEngine(ctx, p)
	case query.Base:
		return m.poster.PostBaseQueryEngine(ctx, p)
	}
	panic(fmt.Sprintf("wepp: unsupported target %v", target))
}

// fetch walks candidates and returns the first summary that answers, or nil.
func (m *Manager) fetch(ctx context.Context, target query.Target, p *query.Payload, candidates []string) summary.Summary {
	for _, path := range candidates {
		res := m.post(ctx, target, p.WithDataset(path))
		if res == nil {
			m.log.Debug().Str("dataset", path).Stringer("target", target).Msg("candidate dataset unavailable")
			continue
		}
		s := summary.FromRecords(res.Records, "topaz_id")
		if sc := m.store.Get().Subcatchments; sc.Len() > 0 {
			s = s.Restrict(sc)
		}
		return s
	}
	return nil
}

func (m *Manager) joined(primary, alias string) *query.Payload {
	hill := ""
	if len(m.datasets.Hillslopes) > 0 {
		hill = m.datasets.Hillslopes[0]
	}
	return &query.Payload{
		Datasets: []query.Dataset{
			{Path: primary, Alias: alias},
			{Path: hill, Alias: hillAlias},
		},
		Joins:   []query.Join{{Left: alias, Right: hillAlias, On: []string{"wepp_id"}, Type: "inner"}},
		Columns: []string{hillAlias + ".topaz_id AS topaz_id"},
		GroupBy: []string{hillAlias + ".topaz_id"},
	}
}

// FetchWeppSummary fetches the whole-run summary for statistic.
func (m *Manager) FetchWeppSummary(ctx context.Context, target query.Target, statistic string) summary.Summary {
	p := m.joined("", lossAlias)
	p.Aggregations = BuildWeppAggregations(statistic)
	return m.fetch(ctx, target, p, m.datasets.WeppLoss)
}

// FetchWeppYearlySummary fetches one simulation year.
func (m *Manager) FetchWeppYearlySummary(ctx context.Context, target query.Target, year int) summary.Summary {
	p := m.joined("", lossAlias)
	p.Aggregations = yearlyAggregations()
	p.Filters = []query.Filter{{Column: lossAlias + ".year", Op: "=", Value: year}}
	return m.fetch(ctx, target, p, m.datasets.WeppYearly)
}

// FetchWeppEventSummary fetches one day, given as YYYY-MM-DD.
func (m *Manager) FetchWeppEventSummary(ctx context.Context, target query.Target, date string) summary.Summary {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		m.log.Warn().Err(err).Str("date", date).Msg("event date not understood")
		return nil
	}
	p := m.joined("", eventAlias)
	p.Aggregations = eventAggregations()
	p.Filters = []query.Filter{
		{Column: eventAlias + ".year", Op: "=", Value: d.Year()},
		{Column: eventAlias + ".mo", Op: "=", Value: int(d.Month())},
		{Column: eventAlias + ".da", Op: "=", Value: d.Day()},
	}
	return m.fetch(ctx, target, p, m.datasets.WeppEvents)
}

// ComputeWeppRanges returns display ranges for a whole-run summary.
func (m *Manager) ComputeWeppRanges(s summary.Summary) summary.Ranges {
	return summary.ComputeRanges(s, overlay.MeasureKeys(overlay.Wepp), summary.EpsilonDefault)
}

// ComputeWeppYearlyRanges returns display ranges for a yearly summary.
func (m *Manager) ComputeWeppYearlyRanges(s summary.Summary) summary.Ranges {
	return summary.ComputeRanges(s, overlay.MeasureKeys(overlay.WeppYearly), summary.EpsilonDefault)
}

// ComputeWeppEventRanges returns display ranges for an event summary.
// Event values are mostly sub-unit so flat ranges widen by a smaller step.
func (m *Manager) ComputeWeppEventRanges(s summary.Summary) summary.Ranges {
	return summary.ComputeRanges(s, overlay.MeasureKeys(overlay.WeppEvent), summary.EpsilonEvent)
}

// ComputeWeppYearlyDiffRanges pairs the cached scenario and base summaries
// for year.
func (m *Manager) ComputeWeppYearlyDiffRanges(year int) summary.DiffRanges {
	st := m.store.Get()
	scenario, ok := st.WeppYearlyCache[year]
	if !ok && st.WeppYearlySelectedYear == year {
		scenario = st.WeppYearlySummary
	}
	return yearlyDiff(scenario, st.BaseWeppYearlyCache[year])
}

// ComputeWeppEventDiffRanges pairs the cached scenario and base summaries
// for date.
func (m *Manager) ComputeWeppEventDiffRanges(date string) summary.DiffRanges {
	st := m.store.Get()
	scenario, ok := st.WeppEventCache[date]
	if !ok && st.WeppEventSelectedDate == date {
		scenario = st.WeppEventSummary
	}
	return eventDiff(scenario, st.BaseWeppEventCache[date])
}

func yearlyDiff(scenario, base summary.Summary) summary.DiffRanges {
	return summary.ComputeDiffRanges(scenario, base, overlay.MeasureKeys(overlay.WeppYearly), summary.EpsilonDefault)
}

func eventDiff(scenario, base summary.Summary) summary.DiffRanges {
	return summary.ComputeDiffRanges(scenario, base, overlay.MeasureKeys(overlay.WeppEvent), summary.EpsilonEvent)
}

// LoadBaseWeppYearlyData returns the base summary for year, fetching it at
// most once. Concurrent callers for the same year share one request.
func (m *Manager) LoadBaseWeppYearlyData(ctx context.Context, year int) summary.Summary {
	if s, ok := m.store.Get().BaseWeppYearlyCache[year]; ok {
		return s
	}
	v, _, _ := m.loads.Do(fmt.Sprintf("yearly/%d", year), func() (any, error) {
		if s, ok := m.store.Get().BaseWeppYearlyCache[year]; ok {
			return s, nil
		}
		s := m.FetchWeppYearlySummary(ctx, query.Base, year)
		if s == nil {
			return nil, nil
		}
		m.store.SetState(func(st *state.State) {
			st.BaseWeppYearlyCache = state.With(st.BaseWeppYearlyCache, year, s)
		})
		return s, nil
	})
	s, _ := v.(summary.Summary)
	return s
}

// LoadBaseWeppEventData returns the base summary for date, fetching it at
// most once.
func (m *Manager) LoadBaseWeppEventData(ctx context.Context, date string) summary.Summary {
	if s, ok := m.store.Get().BaseWeppEventCache[date]; ok {
		return s
	}
	v, _, _ := m.loads.Do("event/"+date, func() (any, error) {
		if s, ok := m.store.Get().BaseWeppEventCache[date]; ok {
			return s, nil
		}
		s := m.FetchWeppEventSummary(ctx, query.Base, date)
		if s == nil {
			return nil, nil
		}
		m.store.SetState(func(st *state.State) {
			st.BaseWeppEventCache = state.With(st.BaseWeppEventCache, date, s)
		})
		return s, nil
	})
	s, _ := v.(summary.Summary)
	return s
}

// loadBaseWeppSummary returns the base whole-run summary for statistic.
func (m *Manager) loadBaseWeppSummary(ctx context.Context, statistic string) summary.Summary {
	key := state.BaseKey(overlay.Wepp, statistic)
	if s, ok := m.store.Get().BaseSummaryCache[key]; ok {
		return s
	}
	v, _, _ := m.loads.Do(key, func() (any, error) {
		if s, ok := m.store.Get().BaseSummaryCache[key]; ok {
			return s, nil
		}
		s := m.FetchWeppSummary(ctx, query.Base, statistic)
		if s == nil {
			return nil, nil
		}
		m.store.SetState(func(st *state.State) {
			st.BaseSummaryCache = state.With(st.BaseSummaryCache, key, s)
		})
		return s, nil
	})
	s, _ := v.(summary.Summary)
	return s
}
