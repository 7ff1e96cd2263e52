package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Dataset {
	boxes, members := boxSeries(nil, "topaz_id", "soil_loss")
	s := Series{Name: "Base", Boxes: boxes, members: members}
	s.members["22"] = []Point{{X: 2001, Y: 1}}
	return &Dataset{Key: HillslopeSoilLoss, Kind: KindBoxplot, Series: []Series{s, {Name: "Other"}}}
}

func TestGraphVisibilityRules(t *testing.T) {
	g := NewGraph(Split)
	assert.False(t, g.View().Visible, "hidden until data arrives")

	g.SetData(sample())
	v := g.View()
	assert.True(t, v.Visible)
	assert.False(t, v.Expanded)
	assert.True(t, v.MapInteractive)
	assert.Equal(t, HillslopeSoilLoss, v.Key)

	g.SetMode(Full)
	v = g.View()
	assert.True(t, v.Expanded)
	assert.False(t, v.MapInteractive, "full takes interaction from the map")

	g.SetMode(Minimized)
	v = g.View()
	assert.False(t, v.Visible)
	assert.True(t, v.MapInteractive)

	g.SetMode(Split)
	g.Hide()
	assert.False(t, g.View().Visible)
}

func TestGraphFocusNeedsOpenPanel(t *testing.T) {
	g := NewGraph(Minimized)
	assert.False(t, g.SetFocus(true))

	g.SetMode(Split)
	assert.True(t, g.SetFocus(true))
	g.SetData(sample())
	assert.True(t, g.View().Focus)

	g.SetMode(Minimized)
	assert.False(t, g.View().Focus, "minimizing drops focus")
	g.SetMode(Split)
	assert.False(t, g.View().Focus)
}

func TestToggleCollapseRestoresMode(t *testing.T) {
	g := NewGraph(Full)
	assert.Equal(t, Minimized, g.ToggleCollapse())
	assert.Equal(t, Full, g.ToggleCollapse())

	g = NewGraph(Minimized)
	assert.Equal(t, Split, g.ToggleCollapse())
}

func TestGraphHighlight(t *testing.T) {
	g := NewGraph(Split)
	g.SetData(sample())
	g.SetCurrentYear(2001)
	g.HighlightSubcatchment("22")

	v := g.View()
	assert.Equal(t, 2001, v.CurrentYear)
	require.Len(t, v.HighlightSeries, 1)
	assert.Equal(t, "Base", v.HighlightSeries[0].Name)

	g.ClearHighlight()
	assert.Empty(t, g.View().HighlightSeries)
}

func TestParseModePanics(t *testing.T) {
	assert.Equal(t, Full, ParseMode("full"))
	assert.Panics(t, func() { ParseMode("huge") })
	assert.Panics(t, func() { NewGraph(Split).SetMode("tiny") })
}
