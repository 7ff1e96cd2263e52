package layers

import (
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/colormap"
	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
)

const fixture = `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"TopazID":22},"geometry":{"type":"Polygon","coordinates":[[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
  {"type":"Feature","properties":{"TopazID":23},"geometry":{"type":"Polygon","coordinates":[[[2,0],[4,0],[4,2],[2,2],[2,0]]]}},
  {"type":"Feature","properties":{"TopazID":24},"geometry":{"type":"Polygon","coordinates":[[[4,0],[6,0],[6,2],[4,2],[4,0]]]}}
]}`

func collection(t *testing.T) *geo.Collection {
	t.Helper()
	c, err := geo.Parse([]byte(fixture))
	require.NoError(t, err)
	return c
}

func feature(id string) geo.Feature { return geo.Feature{TopazID: id} }

func show(family overlay.Family, modes ...string) []overlay.Descriptor {
	ds := overlay.Descriptors(family)
	for i := range ds {
		for _, m := range modes {
			if ds[i].Mode == m {
				ds[i].Visible = true
			}
		}
	}
	return ds
}

func baseState(t *testing.T) state.State {
	return state.State{
		Subcatchments: collection(t),
		Basemap:       "osm",
		WeppSummary: summary.Summary{
			"22": {"runoff_volume": 10.0, "soil_loss": 1.0},
			"23": {"runoff_volume": 20.0, "soil_loss": math.NaN()},
		},
		WeppRanges: summary.Ranges{
			"runoff_volume": {Min: 10, Max: 20},
			"soil_loss":     {Min: 1, Max: 2},
		},
	}
}

func TestBuildOrder(t *testing.T) {
	bounds := [4]float64{0, 0, 6, 2}
	st := baseState(t)
	st.ShowLabels = true
	st.RasterLayers = []overlay.Descriptor{
		{Key: "raster:landuse", Family: overlay.Raster, URL: "https://x/nlcd.tif", Bounds: &bounds, Visible: true},
		{Key: "raster:soils", Family: overlay.Raster, URL: "https://x/ssurgo.tif", Bounds: &bounds},
	}
	st.Layers = map[overlay.Family][]overlay.Descriptor{
		overlay.Wepp:    show(overlay.Wepp, "runoff_volume"),
		overlay.Landuse: show(overlay.Landuse, "cancov"),
	}

	got := NewRenderer(zerolog.Nop()).Build(st)
	var ids []string
	for _, l := range got {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"basemap-osm", "raster:landuse", "landuse:cancov", "wepp:runoff_volume", "subcatchment-labels"}, ids)
	assert.Equal(t, KindTile, got[0].Kind)
	assert.Equal(t, KindBitmap, got[1].Kind)
	assert.Equal(t, KindGeoJSON, got[3].Kind)
	assert.Len(t, got[4].Labels, 3)
}

func TestBuildBasemaps(t *testing.T) {
	r := NewRenderer(zerolog.Nop())
	st := state.State{Basemap: "none"}
	assert.Empty(t, r.Build(st))

	st.Basemap = "blueprint"
	assert.Panics(t, func() { r.Build(st) })
}

func TestFillColorPlain(t *testing.T) {
	st := baseState(t)
	fill := FillColor(overlay.Wepp, "runoff_volume", st.FamilyData(overlay.Wepp))

	assert.Equal(t, colormap.Winter(0), fill(feature("22")), "min normalises to 0")
	assert.Equal(t, colormap.Winter(1), fill(feature("23")), "max normalises to 1")
	assert.Equal(t, colormap.Fallback, fill(feature("24")), "id absent from summary")
	assert.Equal(t, colormap.Fallback, fill(feature("")))

	sediment := FillColor(overlay.Wepp, "soil_loss", st.FamilyData(overlay.Wepp))
	assert.Equal(t, colormap.Jet2(0), sediment(feature("22")))
	assert.Equal(t, colormap.Fallback, sediment(feature("23")), "non-finite value")
}

func TestFillColorComparison(t *testing.T) {
	st := baseState(t)
	st.CurrentScenarioPath = "omni/scenarios/thin"
	st.ComparisonMode = true
	st.WeppStatistic = "mean"
	st.BaseSummaryCache = map[string]summary.Summary{
		"wepp/mean": {"22": {"runoff_volume": 14.0}},
	}
	st.WeppDiffRanges = summary.DiffRanges{"runoff_volume": {Min: -2, Max: 2, P5: -2, P95: 2}}

	fill := FillColor(overlay.Wepp, "runoff_volume", st.FamilyData(overlay.Wepp))
	assert.Equal(t, colormap.Diverging(1), fill(feature("22")), "diff clamps to +1")
	assert.Equal(t, colormap.Winter(1), fill(feature("23")), "no base row falls back to plain colouring")

	st.ComparisonMode = false
	plain := FillColor(overlay.Wepp, "runoff_volume", st.FamilyData(overlay.Wepp))
	assert.Equal(t, colormap.Winter(0), plain(feature("22")))
}

func TestFillColorCategoricalAndDefault(t *testing.T) {
	data := state.FamilyData{
		Summary: summary.Summary{
			"22": {"dominant": "#1f77b4", "cancov": 0.5},
			"23": {"dominant": "not-a-colour"},
		},
		Ranges: summary.Ranges{"cancov": {Min: 0, Max: 1}},
	}
	dominant := FillColor(overlay.Landuse, "dominant", data)
	assert.Equal(t, colormap.Hex("#1f77b4"), dominant(feature("22")))
	assert.Equal(t, colormap.Fallback, dominant(feature("23")))

	cancov := FillColor(overlay.Landuse, "cancov", data)
	assert.Equal(t, colormap.Viridis(0.5), cancov(feature("22")))
}

func TestHighlightPass(t *testing.T) {
	st := baseState(t)
	st.Basemap = "none"
	st.HighlightedTopazID = "23"
	st.Layers = map[overlay.Family][]overlay.Descriptor{overlay.Wepp: show(overlay.Wepp, "soil_loss")}

	got := NewRenderer(zerolog.Nop()).Build(st)
	require.Len(t, got, 1)
	l := got[0]
	assert.Equal(t, LineHighlight, l.LineColor(feature("23")))
	assert.Equal(t, LineDefault, l.LineColor(feature("22")))
	assert.Equal(t, []float64{1, 3, 1}, l.LineWidths(st.Subcatchments.Features))
	assert.Equal(t, []any{"23"}, l.UpdateTriggers["getLineColor"])

	// fill is independent of the highlight
	assert.Equal(t, colormap.Jet2(0), l.FillColor(feature("22")))
}

func TestColorsPacksRGBA(t *testing.T) {
	st := baseState(t)
	fill := FillColor(overlay.Wepp, "runoff_volume", st.FamilyData(overlay.Wepp))
	l := Layer{FillColor: fill}

	buf := l.Colors(st.Subcatchments.Features)
	require.Len(t, buf, 12)
	want := colormap.RGBA(colormap.Fallback)
	assert.Equal(t, want[:], buf[8:12])
	assert.Len(t, Layer{}.Colors(st.Subcatchments.Features), 12)
}

func TestUpdateTriggersTrackSummaryReplacement(t *testing.T) {
	r := NewRenderer(zerolog.Nop())
	st := baseState(t)
	st.Basemap = "none"
	st.Layers = map[overlay.Family][]overlay.Descriptor{overlay.Wepp: show(overlay.Wepp, "soil_loss")}

	before := r.Build(st)[0].UpdateTriggers["getFillColor"]
	again := r.Build(st)[0].UpdateTriggers["getFillColor"]
	assert.Equal(t, before, again)

	st.WeppSummary = summary.Summary{"22": {"soil_loss": 5.0}}
	after := r.Build(st)[0].UpdateTriggers["getFillColor"]
	assert.NotEqual(t, before, after)
}

func TestLegends(t *testing.T) {
	st := baseState(t)
	st.LanduseSummary = summary.Summary{
		"22": {"dominant": "#1f77b4", "dominant_desc": "<Forest>"},
		"23": {"dominant": "#ff7f0e", "dominant_desc": "Shrub"},
		"24": {"dominant": "#1f77b4", "dominant_desc": "<Forest>"},
	}
	st.Layers = map[overlay.Family][]overlay.Descriptor{
		overlay.Landuse: show(overlay.Landuse, "dominant"),
		overlay.Wepp:    show(overlay.Wepp, "runoff_volume"),
	}

	legends := NewRenderer(zerolog.Nop()).Legends(st)
	require.Len(t, legends, 2)
	assert.Equal(t, LegendCategorical, legends[0].Kind)
	assert.Equal(t, []Swatch{{Color: "#1f77b4", Label: "<Forest>"}, {Color: "#ff7f0e", Label: "Shrub"}}, legends[0].Items)

	assert.Equal(t, LegendSequential, legends[1].Kind)
	assert.Equal(t, 10.0, legends[1].Min)
	assert.Equal(t, 20.0, legends[1].Max)
	assert.Len(t, legends[1].Stops, legendSteps)
	assert.Equal(t, colormap.CSS(colormap.Winter(0)), legends[1].Stops[0].Color)

	html, err := RenderLegendHTML(legends)
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;Forest&gt;")
	assert.Contains(t, html, "background-color: #1f77b4")
	assert.Contains(t, html, "Runoff (mm)")
	assert.Equal(t, 2, strings.Count(html, `class="gl-legend"`))
}

func TestDivergingLegend(t *testing.T) {
	st := baseState(t)
	st.CurrentScenarioPath = "s"
	st.ComparisonMode = true
	st.WeppYearlySelectedYear = 2001
	st.WeppYearlySummary = summary.Summary{"22": {"soil_loss": 1.0}}
	st.BaseWeppYearlyCache = map[int]summary.Summary{2001: {"22": {"soil_loss": 3.0}}}
	st.WeppYearlyDiffRanges = summary.DiffRanges{"soil_loss": {Min: -2, Max: 2, P5: 2, P95: 2}}
	st.Layers = map[overlay.Family][]overlay.Descriptor{overlay.WeppYearly: show(overlay.WeppYearly, "soil_loss")}

	legends := NewRenderer(zerolog.Nop()).Legends(st)
	require.Len(t, legends, 1)
	assert.Equal(t, LegendDiverging, legends[0].Kind)
	assert.Equal(t, -2.0, legends[0].Min)
	assert.Equal(t, colormap.CSS(colormap.Diverging(-1)), legends[0].Stops[0].Color)
	assert.Equal(t, colormap.CSS(colormap.Diverging(1)), legends[0].Stops[legendSteps-1].Color)
}
