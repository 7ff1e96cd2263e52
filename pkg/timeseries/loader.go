package timeseries

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/pkg/query"
)

// Loader fetches graph data for every configured scenario. Each scenario's
// records are fetched once per source and reused until forced.
type Loader struct {
	poster    query.Poster
	scenarios []config.Scenario
	datasets  config.Datasets
	log       zerolog.Logger

	mu                  sync.Mutex
	hillLossCache       map[string][]query.Record
	channelLossCache    map[string][]query.Record
	outletAllYearsCache map[string][]query.Record
}

// NewLoader creates a Loader over scenarios, base first.
func NewLoader(poster query.Poster, scenarios []config.Scenario, datasets config.Datasets, log zerolog.Logger) *Loader {
	return &Loader{
		poster:              poster,
		scenarios:           scenarios,
		datasets:            datasets,
		log:                 log.With().Str("component", "timeseries").Logger(),
		hillLossCache:       make(map[string][]query.Record),
		channelLossCache:    make(map[string][]query.Record),
		outletAllYearsCache: make(map[string][]query.Record),
	}
}

func (l *Loader) cacheFor(src source) map[string][]query.Record {
	switch src {
	case fromHills:
		return l.hillLossCache
	case fromChannels:
		return l.channelLossCache
	}
	return l.outletAllYearsCache
}

// Load builds the dataset for key across all scenarios. Scenarios whose
// data cannot be fetched are left out.
func (l *Loader) Load(ctx context.Context, key string, force bool) (*Dataset, error) {
	def, ok := graphs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGraph, key)
	}

	records := make([][]query.Record, len(l.scenarios))
	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range l.scenarios {
		g.Go(func() error {
			records[i] = l.records(gctx, def.source, sc.Path, force)
			return nil
		})
	}
	_ = g.Wait()

	ds := &Dataset{Key: key, Title: def.title, Units: def.units, Kind: def.kind}
	years := make(map[int]bool)
	for i, sc := range l.scenarios {
		if records[i] == nil {
			continue
		}
		s := Series{Scenario: sc.Path, Name: sc.Name}
		if def.kind == KindBoxplot {
			idKey := "topaz_id"
			if def.source == fromChannels {
				idKey = "chn_id"
			}
			s.Boxes, s.members = boxSeries(records[i], idKey, def.measure)
			for _, b := range s.Boxes {
				years[b.Year] = true
			}
		} else {
			s.Points = lineSeries(records[i], def.measure)
			for _, p := range s.Points {
				years[int(p.X)] = true
			}
		}
		ds.Series = append(ds.Series, s)
	}
	if len(ds.Series) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoData, key)
	}
	for y := range years {
		ds.Years = append(ds.Years, y)
	}
	sort.Ints(ds.Years)
	return ds, nil
}

// Forget drops every cached record set for scenarioPath.
func (l *Loader) Forget(scenarioPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hillLossCache, scenarioPath)
	delete(l.channelLossCache, scenarioPath)
	delete(l.outletAllYearsCache, scenarioPath)
}

func (l *Loader) records(ctx context.Context, src source, scenario string, force bool) []query.Record {
	l.mu.Lock()
	cached, ok := l.cacheFor(src)[scenario]
	l.mu.Unlock()
	if ok && !force {
		return cached
	}

	var fetched []query.Record
	switch src {
	case fromHills:
		fetched = l.fetchHills(ctx, scenario)
	case fromChannels:
		fetched = l.fetchChannels(ctx, scenario)
	default:
		fetched = l.fetchOutlet(ctx, scenario)
	}
	if fetched == nil {
		l.log.Warn().Str("scenario", scenario).Msg("graph data unavailable")
		return nil
	}

	l.mu.Lock()
	l.cacheFor(src)[scenario] = fetched
	l.mu.Unlock()
	return fetched
}

func (l *Loader) first(ctx context.Context, scenario string, p *query.Payload, candidates []string) []query.Record {
	for _, path := range candidates {
		if res := l.poster.PostQueryEngineForScenario(ctx, p.WithDataset(path), scenario); res != nil {
			return res.Records
		}
	}
	return nil
}

func (l *Loader) hillslopes() string {
	if len(l.datasets.Hillslopes) == 0 {
		return ""
	}
	return l.datasets.Hillslopes[0]
}

// fetchHills returns per-hillslope annual soil loss (t/ha) and runoff (mm).
func (l *Loader) fetchHills(ctx context.Context, scenario string) []query.Record {
	p := &query.Payload{
		Datasets: []query.Dataset{{Alias: "loss"}, {Path: l.hillslopes(), Alias: "hill"}},
		Joins:    []query.Join{{Left: "loss", Right: "hill", On: []string{"wepp_id"}, Type: "inner"}},
		Columns:  []string{"loss.year AS year", "hill.topaz_id AS topaz_id"},
		Aggregations: []query.Aggregation{
			{SQL: "SUM(loss.soil_loss / hill.area * 10)", Alias: "soil_loss"},
			{SQL: "SUM(loss.runoff_volume / hill.area * 1000)", Alias: "runoff_volume"},
		},
		GroupBy: []string{"loss.year", "hill.topaz_id"},
	}
	return l.first(ctx, scenario, p, l.datasets.WeppYearly)
}

// fetchChannels returns per-channel annual soil loss (t/ha).
func (l *Loader) fetchChannels(ctx context.Context, scenario string) []query.Record {
	p := &query.Payload{
		Datasets:     []query.Dataset{{Alias: "chn"}},
		Columns:      []string{"chn.year AS year", "chn.chn_enum AS chn_id"},
		Aggregations: []query.Aggregation{{SQL: "SUM(chn.soil_loss / chn.area * 10)", Alias: "soil_loss"}},
		GroupBy:      []string{"chn.year", "chn.chn_enum"},
	}
	return l.first(ctx, scenario, p, l.datasets.Channels)
}

// fetchOutlet returns annual outlet totals normalised by watershed area.
func (l *Loader) fetchOutlet(ctx context.Context, scenario string) []query.Record {
	annual := &query.Payload{
		Datasets: []query.Dataset{{Alias: "out"}},
		Columns:  []string{"out.year AS year"},
		Aggregations: []query.Aggregation{
			{SQL: "SUM(out.sed_del)", Alias: "sed_del"},
			{SQL: "SUM(out.runoff_volume)", Alias: "runoff_volume"},
		},
		GroupBy: []string{"out.year"},
	}
	rows := l.first(ctx, scenario, annual, l.datasets.Outlet)
	if rows == nil {
		return nil
	}

	area := &query.Payload{
		Datasets:     []query.Dataset{{Alias: "hill"}},
		Aggregations: []query.Aggregation{{SQL: "SUM(hill.area)", Alias: "area"}},
	}
	res := l.first(ctx, scenario, area, l.datasets.Hillslopes)
	if len(res) == 0 {
		return nil
	}
	a, ok := res[0].Float("area")
	if !ok || a <= 0 {
		return nil
	}

	out := make([]query.Record, 0, len(rows))
	for _, r := range rows {
		rec := query.Record{"year": r["year"]}
		if v, ok := r.Float("sed_del"); ok {
			rec["sediment"] = v / a * 10
		}
		if v, ok := r.Float("runoff_volume"); ok {
			rec["discharge"] = v / a * 1000
		}
		out = append(out, rec)
	}
	return out
}
