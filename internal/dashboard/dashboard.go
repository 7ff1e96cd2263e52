// Package dashboard composes the store, data manager, detectors, renderer,
// graph and map controller into one context object and implements the
// dashboard's control flow: update state, refresh data, rebuild layers,
// apply them to the map, resync the graph.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/internal/logx"
	"github.com/weppcloud/gldash/internal/state"
	"github.com/weppcloud/gldash/internal/store"
	"github.com/weppcloud/gldash/pkg/detect"
	"github.com/weppcloud/gldash/pkg/layers"
	"github.com/weppcloud/gldash/pkg/mapctl"
	"github.com/weppcloud/gldash/pkg/query"
	"github.com/weppcloud/gldash/pkg/resource"
	"github.com/weppcloud/gldash/pkg/timeseries"
	"github.com/weppcloud/gldash/pkg/wepp"
)

// ErrUnknownLayer is returned when a layer key names no detected overlay.
var ErrUnknownLayer = errors.New("dashboard: unknown layer")

// Options wires a Dashboard. Only Config is required; the rest is built
// from it when left empty.
type Options struct {
	Config *config.Config

	Poster query.Poster
	Source resource.Source
	// Cache backs the query client when Poster is nil.
	Cache store.Storer

	// Deck creates the map instance. Nil runs headless.
	Deck      mapctl.Factory
	Callbacks mapctl.Callbacks

	// Status receives user-facing messages such as refresh failures.
	Status func(msg string)

	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

// Dashboard is the context object every façade call goes through.
type Dashboard struct {
	cfg      *config.Config
	store    *state.Store
	poster   query.Poster
	source   resource.Source
	wepp     *wepp.Manager
	detector *detect.Detector
	renderer *layers.Renderer
	loader   *timeseries.Loader
	graph    *timeseries.Graph
	mapc     *mapctl.Controller
	status   func(string)
	log      zerolog.Logger

	mu    sync.Mutex
	stack []layers.Layer
}

// New builds a dashboard. The map deck, if any, is created here, once.
func New(opts Options) (*Dashboard, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", config.ErrInvalid)
	}
	if !config.ValidBasemap(cfg.Map.Basemap) {
		return nil, fmt.Errorf("%w: map.basemap %q", config.ErrInvalid, cfg.Map.Basemap)
	}
	log := logx.Component(opts.Logger, "dashboard")

	d := &Dashboard{
		cfg:    cfg,
		store:  state.New(initialState(cfg)),
		status: opts.Status,
		log:    log,
	}
	if d.status == nil {
		d.status = func(string) {}
	}

	d.poster = opts.Poster
	if d.poster == nil {
		d.poster = d.newClient(opts)
	}
	d.source = opts.Source
	if d.source == nil {
		src, err := newSource(cfg.Resources)
		if err != nil {
			return nil, err
		}
		d.source = src
	}

	d.wepp = wepp.NewManager(d.poster, d.store, cfg.Datasets, logx.Component(opts.Logger, "wepp"))
	d.detector = detect.New(d.poster, d.source, d.store, d.wepp, cfg.Datasets, logx.Component(opts.Logger, "detect"))
	d.renderer = layers.NewRenderer(logx.Component(opts.Logger, "layers"))
	d.loader = timeseries.NewLoader(d.poster, cfg.Scenarios, cfg.Datasets, logx.Component(opts.Logger, "timeseries"))
	d.graph = timeseries.NewGraph(timeseries.ParseMode(cfg.Graph.Mode))
	d.store.Subscribe(d.syncGraph)

	if opts.Deck != nil {
		vs := mapctl.ViewState{Longitude: cfg.Map.Longitude, Latitude: cfg.Map.Latitude, Zoom: cfg.Map.Zoom}
		mc, err := mapctl.New(opts.Deck, vs, map[string]any{"dragRotate": false}, opts.Callbacks)
		if err != nil {
			return nil, err
		}
		d.mapc = mc
	}
	return d, nil
}

func initialState(cfg *config.Config) state.State {
	return state.State{
		WeppStatistic: cfg.Wepp.Statistic,
		GraphMode:     cfg.Graph.Mode,
		Basemap:       cfg.Map.Basemap,
		ShowLabels:    cfg.Map.Labels,
	}
}

func (d *Dashboard) newClient(opts Options) *query.Client {
	qe := d.cfg.QueryEngine
	var limiter *rate.Limiter
	if qe.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(qe.RequestsPerSecond), qe.Burst)
	}
	return query.NewClient(query.Options{
		BaseURL:  qe.BaseURL,
		RunID:    qe.RunID,
		Config:   qe.Config,
		Scenario: func() string { return d.store.Get().CurrentScenarioPath },
		Timeout:  qe.Timeout,
		Limiter:  limiter,
		Cache:    opts.Cache,
		Metrics:  query.NewMetrics(opts.Registerer),
		Logger:   logx.Component(opts.Logger, "query"),
	})
}

func newSource(rc config.ResourceConfig) (resource.Source, error) {
	if rc.Dir != "" {
		src, err := resource.NewDirSource(rc.Dir)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return resource.NewHTTPSource(rc.BaseURL, nil), nil
}

// syncGraph keeps the graph panel on the year and subcatchment shown on
// the map. It runs after every state write.
func (d *Dashboard) syncGraph(st state.State) {
	d.graph.SetCurrentYear(st.WeppYearlySelectedYear)
	if st.HighlightedTopazID == "" {
		d.graph.ClearHighlight()
		return
	}
	d.graph.HighlightSubcatchment(st.HighlightedTopazID)
}

// Store exposes the state store.
func (d *Dashboard) Store() *state.Store { return d.store }

// Graph exposes the graph panel.
func (d *Dashboard) Graph() *timeseries.Graph { return d.graph }

// Init loads the subcatchments, runs every detector and renders the first
// layer stack. Missing subcatchments are fatal for the map; everything else
// degrades to absent overlays.
func (d *Dashboard) Init(ctx context.Context) error {
	subs, err := d.detector.LoadSubcatchments(ctx)
	if err != nil {
		d.status("Unable to load subcatchments")
		return fmt.Errorf("dashboard: init: %w", err)
	}
	d.store.SetState(func(st *state.State) { st.Subcatchments = subs })

	if d.mapc != nil && d.cfg.Map.Longitude == 0 && d.cfg.Map.Latitude == 0 {
		if b, ok := subs.Bounds(); ok {
			d.mapc.SetViewState(mapctl.ViewState{
				Longitude: (b[0] + b[2]) / 2,
				Latitude:  (b[1] + b[3]) / 2,
				Zoom:      d.cfg.Map.Zoom,
			})
		}
	}

	d.redetect(ctx)
	d.log.Info().Int("subcatchments", subs.Len()).Msg("dashboard ready")
	d.Render()
	return nil
}

func (d *Dashboard) redetect(ctx context.Context) {
	found := d.detector.DetectAll(ctx)
	d.store.SetState(func(st *state.State) {
		for _, det := range found {
			det.Apply(st)
		}
	})
}

// Render rebuilds the layer stack from the current state and hands it to
// the map.
func (d *Dashboard) Render() []layers.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stack = d.renderer.Build(d.store.Get())
	if d.mapc != nil {
		d.mapc.ApplyLayers(d.stack)
	}
	return d.stack
}

// Layers returns the last rendered stack.
func (d *Dashboard) Layers() []layers.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stack
}

// report turns a refresh error into a status message. Stale results are
// expected whenever selections change quickly and are not reported.
func (d *Dashboard) report(what string, err error) {
	switch {
	case err == nil, errors.Is(err, wepp.ErrStale):
		return
	case errors.Is(err, wepp.ErrNoData), errors.Is(err, timeseries.ErrNoData):
		d.log.Warn().Str("what", what).Msg("refresh returned no data")
	default:
		d.log.Warn().Err(err).Str("what", what).Msg("refresh failed")
	}
	d.status("Unable to refresh " + what)
}

func (d *Dashboard) refreshWepp(ctx context.Context) {
	d.report("WEPP data", d.wepp.RefreshWeppStatisticData(ctx))
	d.report("WEPP yearly data", d.wepp.RefreshWeppYearlyData(ctx))
	d.report("WEPP event data", d.wepp.RefreshWeppEventData(ctx))
}
