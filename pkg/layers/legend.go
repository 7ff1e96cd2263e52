package layers

import (
	"bytes"
	"html/template"
	"sort"

	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/colormap"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/summary"
)

// Legend kinds.
const (
	LegendSequential  = "sequential"
	LegendDiverging   = "diverging"
	LegendCategorical = "categorical"
)

const legendSteps = 8

// Legend describes one visible overlay's colour key.
type Legend struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Units string   `json:"units,omitempty"`
	Kind  string   `json:"kind"`
	Min   float64  `json:"min"`
	Max   float64  `json:"max"`
	Stops []Swatch `json:"stops,omitempty"`
	Items []Swatch `json:"items,omitempty"`
}

// Swatch is one colour sample, with a label for categorical legends.
type Swatch struct {
	Color string `json:"color"`
	Label string `json:"label,omitempty"`
}

// Legends returns one legend per visible subcatchment overlay, in render
// order.
func (r *Renderer) Legends(st state.State) []Legend {
	var out []Legend
	for _, fam := range overlay.SubcatchmentFamilies {
		for _, d := range st.Layers[fam] {
			if !d.Visible {
				continue
			}
			out = append(out, legendFor(d, st.FamilyData(fam)))
		}
	}
	return out
}

func legendFor(d overlay.Descriptor, data state.FamilyData) Legend {
	l := Legend{Key: d.Key, Title: d.Label, Units: d.Units}

	if d.Scale == overlay.ScaleCategorical {
		l.Kind = LegendCategorical
		l.Items = categories(data.Summary, d.Mode)
		return l
	}

	if dr, ok := data.DiffRanges[d.Mode]; ok && data.Base != nil && overlay.Comparable(d.Mode) {
		l.Kind = LegendDiverging
		l.Title += " (base − scenario)"
		l.Min, l.Max = dr.Min, dr.Max
		l.Stops = ramp(func(t float64) string { return colormap.CSS(colormap.Diverging(2*t - 1)) })
		return l
	}

	rng, ok := data.Ranges[d.Mode]
	if !ok {
		rng = summary.Range{Min: 0, Max: 1}
	}
	l.Kind = LegendSequential
	l.Min, l.Max = rng.Min, rng.Max
	scale := sequential(d.Scale)
	l.Stops = ramp(func(t float64) string { return colormap.CSS(scale(t)) })
	return l
}

func ramp(color func(float64) string) []Swatch {
	out := make([]Swatch, legendSteps)
	for i := range out {
		out[i] = Swatch{Color: color(float64(i) / float64(legendSteps-1))}
	}
	return out
}

// categories lists the distinct class colours of mode, labelled by the
// "<mode>_desc" column when present.
func categories(s summary.Summary, mode string) []Swatch {
	seen := make(map[string]string)
	for _, row := range s {
		c := row.String(mode)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; !ok || seen[c] == "" {
			seen[c] = row.String(mode + "_desc")
		}
	}
	out := make([]Swatch, 0, len(seen))
	for c, label := range seen {
		if label == "" {
			label = c
		}
		out = append(out, Swatch{Color: colormap.CSS(colormap.Hex(c)), Label: label})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Color < out[j].Color
	})
	return out
}

var legendTemplate = template.Must(template.New("legend").Parse(
	`{{range .}}<div class="gl-legend" data-key="{{.Key}}">` +
		`<div class="gl-legend__title">{{.Title}}{{if .Units}} ({{.Units}}){{end}}</div>` +
		`{{if .Items}}<ul class="gl-legend__items">{{range .Items}}` +
		`<li><span class="gl-legend__swatch" style="background-color: {{.Color}}"></span>{{.Label}}</li>` +
		`{{end}}</ul>{{else}}<div class="gl-legend__ramp gl-legend__ramp--{{.Kind}}">{{range .Stops}}` +
		`<span style="background-color: {{.Color}}"></span>` +
		`{{end}}</div><div class="gl-legend__scale"><span>{{printf "%.3g" .Min}}</span><span>{{printf "%.3g" .Max}}</span></div>{{end}}` +
		`</div>{{end}}`))

// RenderLegendHTML renders legends as an HTML fragment.
func RenderLegendHTML(legends []Legend) (string, error) {
	var buf bytes.Buffer
	if err := legendTemplate.Execute(&buf, legends); err != nil {
		return "", err
	}
	return buf.String(), nil
}
