package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/layers"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
	"github.com/weppcloud/gldash/pkg/timeseries"
	"github.com/weppcloud/gldash/pkg/wepp"
)

// BasemapNone hides the basemap.
const BasemapNone = config.BasemapNone

// SetScenario switches the active scenario. Active summaries and ranges are
// dropped, every detector reruns against the new scenario and the visible
// WEPP families are refreshed.
func (d *Dashboard) SetScenario(ctx context.Context, path string) {
	d.store.SetState(func(st *state.State) { st.SwitchScenario(path) })
	d.log.Info().Str("scenario", path).Msg("scenario changed")
	d.redetect(ctx)
	d.refreshWepp(ctx)
	d.Render()
}

// SetComparisonMode toggles colouring by base − scenario difference.
func (d *Dashboard) SetComparisonMode(ctx context.Context, on bool) {
	d.store.SetState(func(st *state.State) { st.ComparisonMode = on })
	d.refreshWepp(ctx)
	d.Render()
}

// SetBasemap selects a basemap by key, or BasemapNone.
func (d *Dashboard) SetBasemap(key string) error {
	if !config.ValidBasemap(key) {
		return fmt.Errorf("dashboard: unknown basemap %q", key)
	}
	d.store.SetState(func(st *state.State) { st.Basemap = key })
	d.Render()
	return nil
}

// ToggleLabels flips the subcatchment label layer and returns the new value.
func (d *Dashboard) ToggleLabels() bool {
	var on bool
	d.store.SetState(func(st *state.State) {
		st.ShowLabels = !st.ShowLabels
		on = st.ShowLabels
	})
	d.Render()
	return on
}

// SetGraphMode switches the graph layout. An unknown mode panics.
func (d *Dashboard) SetGraphMode(mode string) timeseries.Mode {
	m := timeseries.ParseMode(mode)
	d.graph.SetMode(m)
	d.syncGraphState()
	return m
}

// ToggleGraphCollapse minimizes the graph or restores its last open mode.
func (d *Dashboard) ToggleGraphCollapse() timeseries.Mode {
	m := d.graph.ToggleCollapse()
	d.syncGraphState()
	return m
}

// SetGraphFocus gives the graph focus. It reports the focus actually held.
func (d *Dashboard) SetGraphFocus(focus bool) bool {
	held := d.graph.SetFocus(focus)
	d.syncGraphState()
	return held
}

func (d *Dashboard) syncGraphState() {
	v := d.graph.View()
	d.store.SetState(func(st *state.State) {
		st.GraphMode = string(v.Mode)
		st.GraphFocus = v.Focus
	})
}

// GraphView returns what the graph panel should draw.
func (d *Dashboard) GraphView() timeseries.View {
	return d.graph.View()
}

// HighlightSubcatchment outlines one subcatchment on the map and in the
// graph. An empty id clears the highlight.
func (d *Dashboard) HighlightSubcatchment(topazID string) {
	d.store.SetState(func(st *state.State) { st.HighlightedTopazID = topazID })
	d.Render()
}

// UpdateLegends renders the legends of every visible overlay as HTML.
func (d *Dashboard) UpdateLegends() (string, error) {
	return layers.RenderLegendHTML(d.renderer.Legends(d.store.Get()))
}

// Legends returns the legends of every visible overlay.
func (d *Dashboard) Legends() []layers.Legend {
	return d.renderer.Legends(d.store.Get())
}

// SetLayerVisible shows or hides one overlay. Subcatchment overlays are
// exclusive; rasters toggle independently. Showing a time-indexed family
// loads its selected year or date.
func (d *Dashboard) SetLayerVisible(ctx context.Context, key string, visible bool) error {
	found := false
	d.store.SetState(func(st *state.State) { found = st.SetVisible(key, visible, true) })
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownLayer, key)
	}

	if visible {
		family, _, _ := strings.Cut(key, ":")
		switch overlay.Family(family) {
		case overlay.Wepp:
			d.report("WEPP data", d.wepp.RefreshWeppStatisticData(ctx))
		case overlay.WeppYearly:
			d.report("WEPP yearly data", d.wepp.RefreshWeppYearlyData(ctx))
		case overlay.WeppEvent:
			d.report("WEPP event data", d.wepp.RefreshWeppEventData(ctx))
		}
	}
	d.Render()
	return nil
}

// SetValue writes one state field by its JSON name, then refreshes the
// WEPP families and redraws. No invariant is checked beyond the field type.
func (d *Dashboard) SetValue(ctx context.Context, key string, value any) error {
	if err := d.store.SetValue(key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrArgs, err)
	}
	d.refreshWepp(ctx)
	d.Render()
	return nil
}

// SetWeppStatistic selects the whole-run WEPP statistic. An unknown
// statistic panics.
func (d *Dashboard) SetWeppStatistic(ctx context.Context, statistic string) {
	if !wepp.IsStatistic(statistic) {
		panic(fmt.Sprintf("dashboard: unknown statistic %q", statistic))
	}
	d.store.SetState(func(st *state.State) { st.WeppStatistic = statistic })
	d.report("WEPP data", d.wepp.RefreshWeppStatisticData(ctx))
	d.Render()
}

// SetWeppYear selects the WEPP yearly year, clamped to the known years,
// and returns the year actually selected.
func (d *Dashboard) SetWeppYear(ctx context.Context, year int) int {
	var selected int
	d.store.SetState(func(st *state.State) {
		selected = wepp.ClampYear(st.WeppYearlyMeta, year)
		st.WeppYearlySelectedYear = selected
	})
	d.report("WEPP yearly data", d.wepp.RefreshWeppYearlyData(ctx))
	d.Render()
	return selected
}

// SetEventDate selects the WEPP event date (YYYY-MM-DD), clamped to the
// known dates, and returns the date actually selected.
func (d *Dashboard) SetEventDate(ctx context.Context, date string) string {
	var selected string
	d.store.SetState(func(st *state.State) {
		selected = wepp.ClampDate(st.WeppEventMeta, date)
		st.WeppEventSelectedDate = selected
	})
	d.report("WEPP event data", d.wepp.RefreshWeppEventData(ctx))
	d.Render()
	return selected
}

// SetRapYear loads one RAP cover year. On failure the previous year stays
// selected.
func (d *Dashboard) SetRapYear(ctx context.Context, year int) (int, error) {
	year = wepp.ClampYear(d.store.Get().RapMeta, year)
	s := d.detector.FetchRapSummary(ctx, year)
	if s == nil {
		err := fmt.Errorf("dashboard: rap %d: %w", year, wepp.ErrNoData)
		d.report("RAP data", err)
		return 0, err
	}
	ranges := summary.ComputeRanges(s, overlay.MeasureKeys(overlay.Rap), summary.EpsilonDefault)
	d.store.SetState(func(st *state.State) {
		st.RapSelectedYear = year
		st.RapSummary = s
		st.RapRanges = ranges
	})
	d.Render()
	return year, nil
}

// LoadGraph loads a graph dataset across every scenario and shows it. A
// failed load leaves the current graph in place.
func (d *Dashboard) LoadGraph(ctx context.Context, key string, force bool) (timeseries.View, error) {
	ds, err := d.loader.Load(ctx, key, force)
	if err != nil {
		d.report("graph data", err)
		return d.graph.View(), err
	}
	d.graph.SetData(ds)
	d.store.SetState(func(st *state.State) { st.ActiveGraphKey = key })
	return d.graph.View(), nil
}

// GraphSVG renders the loaded graph as SVG.
func (d *Dashboard) GraphSVG() (string, error) {
	v := d.graph.View()
	if v.Dataset == nil {
		return "", timeseries.ErrNoData
	}
	var buf bytes.Buffer
	if err := timeseries.WriteSVG(&buf, v.Dataset); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Reload drops every cached result of the active scenario and detects again.
func (d *Dashboard) Reload(ctx context.Context) {
	scenario := d.store.Get().CurrentScenarioPath
	if f, ok := d.poster.(interface{ ForgetScenario(string) }); ok {
		f.ForgetScenario(scenario)
	}
	d.loader.Forget(scenario)
	d.redetect(ctx)
	d.refreshWepp(ctx)
	d.Render()
}
