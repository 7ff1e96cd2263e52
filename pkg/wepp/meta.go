package wepp

import (
	"context"
	"fmt"
	"sort"

	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/query"
)

// LoadWeppYearlyMeta discovers the simulated years and clamps the selected
// year into them. It returns nil when no yearly dataset answers.
func (m *Manager) LoadWeppYearlyMeta(ctx context.Context) *state.Meta {
	p := &query.Payload{
		Datasets: []query.Dataset{{Alias: lossAlias}},
		Columns:  []string{lossAlias + ".year AS year"},
		GroupBy:  []string{lossAlias + ".year"},
	}
	for _, path := range m.datasets.WeppYearly {
		res := m.poster.PostQueryEngine(ctx, p.WithDataset(path))
		if res == nil {
			continue
		}
		seen := make(map[int]bool, len(res.Records))
		meta := &state.Meta{}
		for _, r := range res.Records {
			y, ok := r.Float("year")
			if !ok || seen[int(y)] {
				continue
			}
			seen[int(y)] = true
			meta.Years = append(meta.Years, int(y))
		}
		if len(meta.Years) == 0 {
			return nil
		}
		sort.Ints(meta.Years)
		m.store.SetState(func(st *state.State) {
			st.WeppYearlyMeta = meta
			st.WeppYearlySelectedYear = ClampYear(meta, st.WeppYearlySelectedYear)
		})
		return meta
	}
	return nil
}

// LoadWeppEventMeta discovers the simulated dates and clamps the selected
// date into them.
func (m *Manager) LoadWeppEventMeta(ctx context.Context) *state.Meta {
	p := &query.Payload{
		Datasets: []query.Dataset{{Alias: eventAlias}},
		Columns: []string{
			eventAlias + ".year AS year",
			eventAlias + ".mo AS mo",
			eventAlias + ".da AS da",
		},
		GroupBy: []string{eventAlias + ".year", eventAlias + ".mo", eventAlias + ".da"},
	}
	for _, path := range m.datasets.WeppEvents {
		res := m.poster.PostQueryEngine(ctx, p.WithDataset(path))
		if res == nil {
			continue
		}
		seen := make(map[string]bool, len(res.Records))
		meta := &state.Meta{}
		for _, r := range res.Records {
			y, ok1 := r.Float("year")
			mo, ok2 := r.Float("mo")
			da, ok3 := r.Float("da")
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			d := fmt.Sprintf("%04d-%02d-%02d", int(y), int(mo), int(da))
			if !seen[d] {
				seen[d] = true
				meta.Dates = append(meta.Dates, d)
			}
		}
		if len(meta.Dates) == 0 {
			return nil
		}
		sort.Strings(meta.Dates)
		m.store.SetState(func(st *state.State) {
			st.WeppEventMeta = meta
			st.WeppEventSelectedDate = ClampDate(meta, st.WeppEventSelectedDate)
		})
		return meta
	}
	return nil
}

// ClampYear returns the year in meta closest to year. Ties go to the
// earlier year. With no known domain year is returned as is.
func ClampYear(meta *state.Meta, year int) int {
	if meta == nil || len(meta.Years) == 0 {
		return year
	}
	i := sort.SearchInts(meta.Years, year)
	switch {
	case i == len(meta.Years):
		return meta.Years[i-1]
	case meta.Years[i] == year || i == 0:
		return meta.Years[i]
	}
	lo, hi := meta.Years[i-1], meta.Years[i]
	if year-lo <= hi-year {
		return lo
	}
	return hi
}

// ClampDate returns date when meta knows it, else the first later date,
// else the last date.
func ClampDate(meta *state.Meta, date string) string {
	if meta == nil || len(meta.Dates) == 0 {
		return date
	}
	i := sort.SearchStrings(meta.Dates, date)
	if i == len(meta.Dates) {
		return meta.Dates[i-1]
	}
	return meta.Dates[i]
}
