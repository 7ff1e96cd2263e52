package detect

import (
	"context"

	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/pkg/overlay"
	"github.com/weppcloud/gldash/pkg/query"
	"github.com/weppcloud/gldash/pkg/summary"
	"github.com/weppcloud/gldash/pkg/wepp"
)

const rapAlias = "rap"

// DetectRap finds the RAP cover years and loads the selected (by default
// the latest) year.
func (d *Detector) DetectRap(ctx context.Context) *Detection {
	p := &query.Payload{
		Datasets: []query.Dataset{{Alias: rapAlias}},
		Columns:  []string{rapAlias + ".year AS year"},
		GroupBy:  []string{rapAlias + ".year"},
	}
	for _, path := range d.datasets.Rap {
		res := d.poster.PostQueryEngine(ctx, p.WithDataset(path))
		if res == nil {
			continue
		}
		meta := &state.Meta{Years: years(res.Records)}
		if len(meta.Years) == 0 {
			return nil
		}
		year := d.store.Get().RapSelectedYear
		if year == 0 {
			year = meta.MaxYear()
		}
		year = wepp.ClampYear(meta, year)

		s := d.fetchRap(ctx, path, year)
		if s == nil {
			return nil
		}
		return &Detection{
			Family:  overlay.Rap,
			Layers:  overlay.Descriptors(overlay.Rap),
			Summary: s,
			Ranges:  summary.ComputeRanges(s, overlay.MeasureKeys(overlay.Rap), summary.EpsilonDefault),
			Meta:    meta,
			Year:    year,
		}
	}
	return nil
}

// FetchRapSummary loads one RAP year from the first answering dataset.
func (d *Detector) FetchRapSummary(ctx context.Context, year int) summary.Summary {
	for _, path := range d.datasets.Rap {
		if s := d.fetchRap(ctx, path, year); s != nil {
			return s
		}
	}
	return nil
}

func (d *Detector) fetchRap(ctx context.Context, path string, year int) summary.Summary {
	p := &query.Payload{
		Datasets: []query.Dataset{{Path: path, Alias: rapAlias}},
		Columns:  []string{rapAlias + ".topaz_id AS topaz_id"},
		Filters:  []query.Filter{{Column: rapAlias + ".year", Op: "=", Value: year}},
		GroupBy:  []string{rapAlias + ".topaz_id"},
	}
	for _, band := range overlay.MeasureKeys(overlay.Rap) {
		p.Aggregations = append(p.Aggregations, query.Aggregation{SQL: "AVG(" + rapAlias + "." + band + ")", Alias: band})
	}
	res := d.poster.PostQueryEngine(ctx, p)
	if res == nil {
		return nil
	}
	return d.restrict(summary.FromRecords(res.Records, "topaz_id"))
}
