// Package layers projects dashboard state onto an ordered stack of map
// layers and the legends that explain them.
package layers

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/colormap"
	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
)

// Kind names the map library layer constructor.
type Kind string

const (
	KindTile    Kind = "TileLayer"
	KindBitmap  Kind = "BitmapLayer"
	KindGeoJSON Kind = "GeoJsonLayer"
	KindText    Kind = "TextLayer"
)

// Basemaps maps basemap keys to XYZ tile templates.
var Basemaps = config.Basemaps

// Outline colours and widths for the highlight pass.
var (
	LineDefault   = drawing.Color{R: 40, G: 40, B: 40, A: 160}
	LineHighlight = drawing.Color{R: 255, G: 215, B: 0, A: 255}
)

const (
	widthDefault   = 1.0
	widthHighlight = 3.0
)

// Layer is one renderable layer. Accessor callbacks are not serialised;
// the host evaluates them through Colors or calls them directly.
type Layer struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	TileURL string      `json:"tileUrl,omitempty"`
	Image   string      `json:"image,omitempty"`
	Bounds  *[4]float64 `json:"bounds,omitempty"`

	Family   overlay.Family `json:"family,omitempty"`
	Mode     string         `json:"mode,omitempty"`
	Opacity  float64        `json:"opacity,omitempty"`
	Pickable bool           `json:"pickable,omitempty"`

	FillColor func(geo.Feature) drawing.Color `json:"-"`
	LineColor func(geo.Feature) drawing.Color `json:"-"`
	LineWidth func(geo.Feature) float64       `json:"-"`

	// UpdateTriggers lists, per accessor, every state value it reads.
	UpdateTriggers map[string][]any `json:"updateTriggers,omitempty"`

	Labels []geo.Label `json:"labels,omitempty"`
}

// Colors evaluates FillColor for every feature into packed RGBA bytes.
func (l Layer) Colors(features []geo.Feature) []byte {
	out := make([]byte, 0, 4*len(features))
	for _, f := range features {
		c := colormap.Fallback
		if l.FillColor != nil {
			c = l.FillColor(f)
		}
		out = append(out, c.R, c.G, c.B, c.A)
	}
	return out
}

// LineWidths evaluates LineWidth for every feature.
func (l Layer) LineWidths(features []geo.Feature) []float64 {
	out := make([]float64, len(features))
	for i, f := range features {
		out[i] = widthDefault
		if l.LineWidth != nil {
			out[i] = l.LineWidth(f)
		}
	}
	return out
}

// Renderer builds layer stacks.
type Renderer struct {
	log zerolog.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(log zerolog.Logger) *Renderer {
	return &Renderer{log: log.With().Str("component", "layers").Logger()}
}

// Build returns the layer stack for st: basemap, visible rasters, one
// GeoJSON layer per visible subcatchment overlay in family order, labels.
// An unknown basemap key panics.
func (r *Renderer) Build(st state.State) []Layer {
	var out []Layer

	if st.Basemap != config.BasemapNone {
		url, ok := Basemaps[st.Basemap]
		if !ok {
			panic(fmt.Sprintf("layers: unknown basemap %q", st.Basemap))
		}
		out = append(out, Layer{ID: "basemap-" + st.Basemap, Kind: KindTile, TileURL: url})
	}

	for _, d := range st.RasterLayers {
		if !d.Visible {
			continue
		}
		if d.Bounds == nil {
			r.log.Warn().Str("layer", d.Key).Msg("raster has no bounds, skipped")
			continue
		}
		out = append(out, Layer{ID: d.Key, Kind: KindBitmap, Image: d.URL, Bounds: d.Bounds, Opacity: 0.7})
	}

	if st.Subcatchments.Len() > 0 {
		for _, fam := range overlay.SubcatchmentFamilies {
			for _, d := range st.Layers[fam] {
				if d.Visible {
					out = append(out, r.subcatchmentLayer(st, fam, d))
				}
			}
		}
	}

	if st.ShowLabels && st.Subcatchments.Len() > 0 {
		out = append(out, Layer{ID: "subcatchment-labels", Kind: KindText, Labels: st.Subcatchments.Labels()})
	}
	return out
}

func (r *Renderer) subcatchmentLayer(st state.State, fam overlay.Family, d overlay.Descriptor) Layer {
	data := st.FamilyData(fam)
	highlighted := st.HighlightedTopazID
	return Layer{
		ID:        d.Key,
		Kind:      KindGeoJSON,
		Family:    fam,
		Mode:      d.Mode,
		Opacity:   0.8,
		Pickable:  true,
		FillColor: FillColor(fam, d.Mode, data),
		LineColor: func(f geo.Feature) drawing.Color {
			if highlighted != "" && f.TopazID == highlighted {
				return LineHighlight
			}
			return LineDefault
		},
		LineWidth: func(f geo.Feature) float64 {
			if highlighted != "" && f.TopazID == highlighted {
				return widthHighlight
			}
			return widthDefault
		},
		UpdateTriggers: map[string][]any{
			"getFillColor": {
				d.Mode, st.CurrentScenarioPath, st.ComparisonMode, st.Selector(fam),
				identity(data.Summary), identity(data.Base), identity(data.Ranges), identity(data.DiffRanges),
			},
			"getLineColor": {highlighted},
			"getLineWidth": {highlighted},
		},
	}
}

// FillColor returns the fill accessor for one measure of a family.
// Comparison colouring applies when base data is present, the measure is
// comparable and the feature has a base row; otherwise the raw value is
// scaled by the plain range. Missing values get the fallback gray.
func FillColor(fam overlay.Family, mode string, data state.FamilyData) func(geo.Feature) drawing.Color {
	m, ok := overlay.Lookup(fam, mode)
	if !ok {
		m = overlay.Measure{Key: mode, Scale: overlay.ScaleDefault}
	}
	diff, hasDiff := data.DiffRanges[mode]
	comparing := data.Base != nil && hasDiff && overlay.Comparable(mode)
	rng, ok := data.Ranges[mode]
	if !ok {
		rng = summary.Range{Min: 0, Max: 1}
	}
	scale := sequential(m.Scale)

	return func(f geo.Feature) drawing.Color {
		row, ok := data.Summary[f.TopazID]
		if !ok {
			return colormap.Fallback
		}
		if m.Scale == overlay.ScaleCategorical {
			return colormap.Hex(row.String(mode))
		}
		v, ok := row.Float(mode)
		if !ok {
			return colormap.Fallback
		}
		if comparing {
			if bv, ok := data.Base.Value(f.TopazID, mode); ok {
				return colormap.Diverging(summary.NormalizeDiff(bv-v, diff))
			}
		}
		return scale(summary.Normalize(v, rng))
	}
}

func sequential(s overlay.Scale) colormap.Func {
	switch s {
	case overlay.ScaleWater:
		return colormap.Winter
	case overlay.ScaleSediment:
		return colormap.Jet2
	}
	return colormap.Viridis
}

// identity is a token that changes whenever a copy-on-write map is replaced.
func identity(m any) string {
	v := reflect.ValueOf(m)
	if !v.IsValid() || v.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%x", v.Pointer())
}
