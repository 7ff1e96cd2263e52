package timeseries

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
)

// WriteSVG renders d as an SVG line chart: one line per scenario, box plots
// drawn by their median.
func WriteSVG(w io.Writer, d *Dataset) error {
	if d == nil || len(d.Series) == 0 {
		return ErrNoData
	}
	series := make([]chart.Series, 0, len(d.Series))
	for i, s := range d.Series {
		var xs, ys []float64
		if d.Kind == KindBoxplot {
			for _, b := range s.Boxes {
				xs = append(xs, float64(b.Year))
				ys = append(ys, b.Median)
			}
		} else {
			for _, p := range s.Points {
				xs = append(xs, p.X)
				ys = append(ys, p.Y)
			}
		}
		if len(xs) < 2 {
			continue
		}
		name := s.Name
		if name == "" {
			name = s.Scenario
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.GetDefaultColor(i),
				StrokeWidth: 2,
			},
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: %s needs two years per series", ErrNoData, d.Key)
	}

	ch := chart.Chart{
		Title:      d.Title,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "Year", ValueFormatter: yearFormatter},
		YAxis:      chart.YAxis{Name: d.Units},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("timeseries: render %s: %w", d.Key, err)
	}
	return nil
}

func yearFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprint(v)
}
