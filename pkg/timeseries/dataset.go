// Package timeseries builds comparable per-scenario graph datasets and
// drives the single graph panel.
package timeseries

import (
	"errors"
	"sort"

	"github.com/weppcloud/gldash/pkg/query"
)

// Graph keys.
const (
	HillslopeSoilLoss = "hillslope-soil-loss"
	HillslopeRunoff   = "hillslope-runoff"
	ChannelSoilLoss   = "channel-soil-loss"
	OutletSediment    = "outlet-sediment"
	OutletDischarge   = "outlet-discharge"
)

// Dataset kinds.
const (
	KindBoxplot = "boxplot"
	KindLine    = "line"
)

// ErrUnknownGraph is returned for a key not in Keys.
var ErrUnknownGraph = errors.New("timeseries: unknown graph")

// ErrNoData is returned when no scenario produced data.
var ErrNoData = errors.New("timeseries: no data")

type source int

const (
	fromHills source = iota
	fromChannels
	fromOutlet
)

type graphDef struct {
	title   string
	units   string
	kind    string
	measure string
	source  source
}

var graphs = map[string]graphDef{
	HillslopeSoilLoss: {"Hillslope soil loss", "t/ha", KindBoxplot, "soil_loss", fromHills},
	HillslopeRunoff:   {"Hillslope runoff", "mm", KindBoxplot, "runoff_volume", fromHills},
	ChannelSoilLoss:   {"Channel soil loss", "t/ha", KindBoxplot, "soil_loss", fromChannels},
	OutletSediment:    {"Outlet sediment discharge", "t/ha", KindLine, "sediment", fromOutlet},
	OutletDischarge:   {"Outlet stream discharge", "mm", KindLine, "discharge", fromOutlet},
}

// Keys lists the graph keys in menu order.
func Keys() []string {
	return []string{HillslopeSoilLoss, HillslopeRunoff, ChannelSoilLoss, OutletSediment, OutletDischarge}
}

// Point is one (year, value) sample.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Series is one scenario's data.
type Series struct {
	Scenario string  `json:"scenario"`
	Name     string  `json:"name"`
	Boxes    []Box   `json:"boxes,omitempty"`
	Points   []Point `json:"points,omitempty"`

	// members holds per-element points for box plots, keyed by topaz id.
	members map[string][]Point
}

// Member returns the points of one box-plot element, e.g. a subcatchment.
func (s Series) Member(id string) []Point {
	return s.members[id]
}

// Dataset is everything the graph panel draws for one key.
type Dataset struct {
	Key    string   `json:"key"`
	Title  string   `json:"title"`
	Units  string   `json:"units"`
	Kind   string   `json:"kind"`
	Years  []int    `json:"years"`
	Series []Series `json:"series"`
}

// boxSeries groups records by year, one box per year, keeping each
// element's per-year value for highlighting.
func boxSeries(records []query.Record, idKey, measure string) ([]Box, map[string][]Point) {
	byYear := make(map[int][]float64)
	members := make(map[string][]Point)
	for _, r := range records {
		y, ok := r.Float("year")
		if !ok {
			continue
		}
		v, ok := r.Float(measure)
		if !ok {
			continue
		}
		byYear[int(y)] = append(byYear[int(y)], v)
		if id := r.String(idKey); id != "" {
			members[id] = append(members[id], Point{X: y, Y: v})
		}
	}
	years := sortedKeys(byYear)
	boxes := make([]Box, 0, len(years))
	for _, y := range years {
		b := BoxStats(byYear[y])
		b.Year = y
		boxes = append(boxes, b)
	}
	for id := range members {
		pts := members[id]
		sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	}
	return boxes, members
}

func lineSeries(records []query.Record, measure string) []Point {
	var pts []Point
	for _, r := range records {
		y, ok1 := r.Float("year")
		v, ok2 := r.Float(measure)
		if ok1 && ok2 {
			pts = append(pts, Point{X: y, Y: v})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })
	return pts
}

func sortedKeys(m map[int][]float64) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
