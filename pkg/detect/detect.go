// Package detect discovers which overlays a run has data for.
package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/geo"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/query"
	"github.com/weppcloud/gldash/pkg/resource"
	"github.com/weppcloud/gldash/pkg/summary"
	"github.com/weppcloud/gldash/pkg/wepp"
)

// Detection is what a detector found for one family. Layers start hidden.
type Detection struct {
	Family  overlay.Family
	Layers  []overlay.Descriptor
	Summary summary.Summary
	Ranges  summary.Ranges
	Meta    *state.Meta
	// Year is the year Summary was loaded for, when the family is yearly.
	Year int
}

// Detector checks the query engine and the resource tree.
type Detector struct {
	poster   query.Poster
	source   resource.Source
	store    *state.Store
	wepp     *wepp.Manager
	datasets config.Datasets
	log      zerolog.Logger
}

// New creates a Detector.
func New(poster query.Poster, source resource.Source, st *state.Store, mgr *wepp.Manager, datasets config.Datasets, log zerolog.Logger) *Detector {
	return &Detector{
		poster:   poster,
		source:   source,
		store:    st,
		wepp:     mgr,
		datasets: datasets,
		log:      log.With().Str("component", "detect").Logger(),
	}
}

// LoadSubcatchments fetches and parses the first subcatchment GeoJSON found.
func (d *Detector) LoadSubcatchments(ctx context.Context) (*geo.Collection, error) {
	name, data, err := resource.FetchFirst(ctx, d.source, d.datasets.Subcatchments)
	if err != nil {
		return nil, fmt.Errorf("detect: subcatchments: %w", err)
	}
	c, err := geo.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("detect: %s: %w", name, err)
	}
	d.log.Info().Str("resource", name).Int("features", c.Len()).Str("id_key", c.IDKey).Msg("subcatchments loaded")
	return c, nil
}

// DetectRasters lists the configured rasters present in the resource tree.
func (d *Detector) DetectRasters(ctx context.Context) *Detection {
	var bounds *[4]float64
	if b, ok := d.store.Get().Subcatchments.Bounds(); ok {
		bounds = &b
	}
	var layers []overlay.Descriptor
	for _, r := range d.datasets.Rasters {
		if !d.source.Exists(ctx, r.Path) {
			continue
		}
		layers = append(layers, overlay.Descriptor{
			Key:    "raster:" + r.Key,
			Family: overlay.Raster,
			Mode:   r.Key,
			Label:  r.Label,
			Scale:  overlay.ScaleCategorical,
			URL:    d.source.URL(r.Path),
			Bounds: bounds,
		})
	}
	if len(layers) == 0 {
		return nil
	}
	return &Detection{Family: overlay.Raster, Layers: layers}
}

// table describes a per-subcatchment parquet table.
type table struct {
	family     overlay.Family
	alias      string
	candidates []string
	columns    []string // besides topaz_id; "col AS alias" renames
	aggregate  bool     // several rows per subcatchment, averaged
}

func (d *Detector) detectTable(ctx context.Context, t table) *Detection {
	p := &query.Payload{
		Datasets: []query.Dataset{{Alias: t.alias}},
		Columns:  []string{t.alias + ".topaz_id AS topaz_id"},
	}
	for _, c := range t.columns {
		col, as, ok := strings.Cut(c, " AS ")
		if !ok {
			as = col
		}
		if t.aggregate {
			p.Aggregations = append(p.Aggregations, query.Aggregation{SQL: fmt.Sprintf("AVG(%s.%s)", t.alias, col), Alias: as})
		} else {
			p.Columns = append(p.Columns, fmt.Sprintf("%s.%s AS %s", t.alias, col, as))
		}
	}
	if t.aggregate {
		p.GroupBy = []string{t.alias + ".topaz_id"}
	}

	for _, path := range t.candidates {
		res := d.poster.PostQueryEngine(ctx, p.WithDataset(path))
		if res == nil {
			continue
		}
		s := d.restrict(summary.FromRecords(res.Records, "topaz_id"))
		if len(s) == 0 {
			return nil
		}
		d.log.Debug().Str("family", string(t.family)).Str("dataset", path).Int("rows", len(s)).Msg("overlay detected")
		return &Detection{
			Family:  t.family,
			Layers:  overlay.Descriptors(t.family),
			Summary: s,
			Ranges:  summary.ComputeRanges(s, overlay.MeasureKeys(t.family), summary.EpsilonDefault),
		}
	}
	return nil
}

func (d *Detector) restrict(s summary.Summary) summary.Summary {
	if sc := d.store.Get().Subcatchments; sc.Len() > 0 {
		return s.Restrict(sc)
	}
	return s
}

// DetectLanduse reads the landuse table. "dominant" carries the class
// colour, "dominant_desc" its name.
func (d *Detector) DetectLanduse(ctx context.Context) *Detection {
	return d.detectTable(ctx, table{
		family:     overlay.Landuse,
		alias:      "lu",
		candidates: d.datasets.Landuse,
		columns:    []string{"color AS dominant", "desc AS dominant_desc", "cancov", "inrcov", "rilcov"},
	})
}

// DetectSoils reads the soils table.
func (d *Detector) DetectSoils(ctx context.Context) *Detection {
	return d.detectTable(ctx, table{
		family:     overlay.Soils,
		alias:      "soil",
		candidates: d.datasets.Soils,
		columns:    []string{"color AS dominant", "desc AS dominant_desc", "clay", "sand", "bd", "rock", "soil_depth"},
	})
}

// DetectHillslopes reads hillslope geometry attributes.
func (d *Detector) DetectHillslopes(ctx context.Context) *Detection {
	return d.detectTable(ctx, table{
		family:     overlay.Hillslopes,
		alias:      "hill",
		candidates: d.datasets.Hillslopes,
		columns:    []string{"slope_scalar", "length", "aspect"},
	})
}

// DetectWatar averages the post-fire ash transport annuals.
func (d *Detector) DetectWatar(ctx context.Context) *Detection {
	return d.detectTable(ctx, table{
		family:     overlay.Watar,
		alias:      "ash",
		candidates: d.datasets.Watar,
		columns:    []string{"wind_transport", "water_transport", "ash_transport"},
		aggregate:  true,
	})
}

// DetectWepp fetches the whole-run summary for the selected statistic.
func (d *Detector) DetectWepp(ctx context.Context) *Detection {
	statistic := d.store.Get().WeppStatistic
	if statistic == "" {
		statistic = wepp.StatMean
	}
	s := d.wepp.FetchWeppSummary(ctx, query.Active, statistic)
	if len(s) == 0 {
		return nil
	}
	return &Detection{
		Family:  overlay.Wepp,
		Layers:  overlay.Descriptors(overlay.Wepp),
		Summary: s,
		Ranges:  d.wepp.ComputeWeppRanges(s),
	}
}

// DetectWeppYearly finds the simulated years. The yearly summary itself is
// loaded when a yearly layer is shown.
func (d *Detector) DetectWeppYearly(ctx context.Context) *Detection {
	meta := d.wepp.LoadWeppYearlyMeta(ctx)
	if meta == nil {
		return nil
	}
	return &Detection{Family: overlay.WeppYearly, Layers: overlay.Descriptors(overlay.WeppYearly), Meta: meta}
}

// DetectWeppEvent finds the simulated dates.
func (d *Detector) DetectWeppEvent(ctx context.Context) *Detection {
	meta := d.wepp.LoadWeppEventMeta(ctx)
	if meta == nil {
		return nil
	}
	return &Detection{Family: overlay.WeppEvent, Layers: overlay.Descriptors(overlay.WeppEvent), Meta: meta}
}

// DetectAll runs every detector concurrently and returns what was found in
// render order, rasters first.
func (d *Detector) DetectAll(ctx context.Context) []*Detection {
	detectors := []func(context.Context) *Detection{
		d.DetectRasters,
		d.DetectLanduse,
		d.DetectSoils,
		d.DetectHillslopes,
		d.DetectWatar,
		d.DetectWepp,
		d.DetectWeppYearly,
		d.DetectWeppEvent,
		d.DetectRap,
	}
	found := make([]*Detection, len(detectors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, fn := range detectors {
		g.Go(func() error {
			found[i] = fn(gctx)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*Detection, 0, len(found))
	for _, det := range found {
		if det != nil {
			out = append(out, det)
		}
	}
	return out
}

// Apply writes a detection into st. Visibility of descriptors that already
// existed is kept.
func (det *Detection) Apply(st *state.State) {
	if det.Family == overlay.Raster {
		st.RasterLayers = keepVisibility(st.RasterLayers, det.Layers)
		return
	}
	st.Layers = st.WithLayers(det.Family, keepVisibility(st.Layers[det.Family], det.Layers))

	switch det.Family {
	case overlay.Landuse:
		st.LanduseSummary, st.LanduseRanges = det.Summary, det.Ranges
	case overlay.Soils:
		st.SoilsSummary, st.SoilsRanges = det.Summary, det.Ranges
	case overlay.Hillslopes:
		st.HillslopesSummary, st.HillslopesRanges = det.Summary, det.Ranges
	case overlay.Watar:
		st.WatarSummary, st.WatarRanges = det.Summary, det.Ranges
	case overlay.Wepp:
		st.WeppSummary, st.WeppRanges = det.Summary, det.Ranges
	case overlay.WeppYearly:
		st.WeppYearlyMeta = det.Meta
		st.WeppYearlySelectedYear = wepp.ClampYear(det.Meta, st.WeppYearlySelectedYear)
	case overlay.WeppEvent:
		st.WeppEventMeta = det.Meta
		st.WeppEventSelectedDate = wepp.ClampDate(det.Meta, st.WeppEventSelectedDate)
	case overlay.Rap:
		st.RapSummary, st.RapRanges = det.Summary, det.Ranges
		st.RapMeta = det.Meta
		st.RapSelectedYear = det.Year
	default:
		panic(fmt.Sprintf("detect: unknown layer family %q", det.Family))
	}
}

func keepVisibility(old, fresh []overlay.Descriptor) []overlay.Descriptor {
	shown := make(map[string]bool, len(old))
	for _, d := range old {
		if d.Visible {
			shown[d.Key] = true
		}
	}
	out := append([]overlay.Descriptor(nil), fresh...)
	for i := range out {
		out[i].Visible = shown[out[i].Key]
	}
	return out
}

// years collects distinct integer years from records.
func years(records []query.Record) []int {
	seen := make(map[int]bool)
	var out []int
	for _, r := range records {
		y, ok := r.Float("year")
		if !ok || seen[int(y)] {
			continue
		}
		seen[int(y)] = true
		out = append(out, int(y))
	}
	sort.Ints(out)
	return out
}
