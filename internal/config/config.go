// Package config loads the dashboard configuration.
// The same document drives the WASM build (passed in as JSON by the page)
// and the headless CLI (read from a YAML file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultQueryTimeout      = 30 * time.Second
	DefaultRequestsPerSecond = 0 // unlimited
	DefaultBurst             = 4
	DefaultCacheBackend      = CacheNone
	DefaultBasemap           = "osm"
	DefaultGraphMode         = "split"
	DefaultStatistic         = "mean"
	DefaultLogLevel          = "info"
	DefaultZoom              = 12
)

// Query result cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
)

// BasemapNone hides the basemap.
const BasemapNone = "none"

// MinQueryTimeout is the shortest accepted query_engine.timeout.
const MinQueryTimeout = time.Millisecond

// Basemaps maps basemap keys to XYZ tile templates.
var Basemaps = map[string]string{
	"osm":       "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
	"satellite": "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
	"topo":      "https://tile.opentopomap.org/{z}/{x}/{y}.png",
}

// ValidBasemap reports whether key names a basemap or is BasemapNone.
func ValidBasemap(key string) bool {
	_, ok := Basemaps[key]
	return ok || key == BasemapNone
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the complete dashboard configuration.
type Config struct {
	QueryEngine QueryEngineConfig `yaml:"query_engine" json:"query_engine"`
	Resources   ResourceConfig    `yaml:"resources" json:"resources"`
	Scenarios   []Scenario        `yaml:"scenarios" json:"scenarios"`
	Datasets    Datasets          `yaml:"datasets" json:"datasets"`
	Map         MapConfig         `yaml:"map" json:"map"`
	Graph       GraphConfig       `yaml:"graph" json:"graph"`
	Wepp        WeppConfig        `yaml:"wepp" json:"wepp"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

// QueryEngineConfig addresses the remote columnar query service.
type QueryEngineConfig struct {
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	RunID             string        `yaml:"run_id" json:"run_id"`
	Config            string        `yaml:"config" json:"config"`
	// Timeout is a duration string such as "30s". Bare numbers are rejected.
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	Cache             string        `yaml:"cache" json:"cache"`
}

// ResourceConfig locates the per-run resource tree (GeoJSON, GeoTIFF).
// Exactly one of BaseURL or Dir is used; Dir wins when both are set.
type ResourceConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Dir     string `yaml:"dir" json:"dir"`
}

// Scenario is one named dataset variant. Path "" is the base scenario.
type Scenario struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// Datasets lists candidate paths per data family. The first path that
// answers wins.
type Datasets struct {
	Subcatchments []string `yaml:"subcatchments" json:"subcatchments"`
	Hillslopes    []string `yaml:"hillslopes" json:"hillslopes"`
	Landuse       []string `yaml:"landuse" json:"landuse"`
	Soils         []string `yaml:"soils" json:"soils"`
	WeppLoss      []string `yaml:"wepp_loss" json:"wepp_loss"`
	WeppYearly    []string `yaml:"wepp_yearly" json:"wepp_yearly"`
	WeppEvents    []string `yaml:"wepp_events" json:"wepp_events"`
	Channels      []string `yaml:"channels" json:"channels"`
	Outlet        []string `yaml:"outlet" json:"outlet"`
	Watar         []string `yaml:"watar" json:"watar"`
	Rap           []string `yaml:"rap" json:"rap"`
	Rasters       []Raster `yaml:"rasters" json:"rasters"`
}

// Raster is a GeoTIFF overlay looked up by the raster detector.
type Raster struct {
	Key   string `yaml:"key" json:"key"`
	Label string `yaml:"label" json:"label"`
	Path  string `yaml:"path" json:"path"`
}

// MapConfig holds the initial view and display toggles.
type MapConfig struct {
	Longitude float64 `yaml:"longitude" json:"longitude"`
	Latitude  float64 `yaml:"latitude" json:"latitude"`
	Zoom      float64 `yaml:"zoom" json:"zoom"`
	Basemap   string  `yaml:"basemap" json:"basemap"`
	Labels    bool    `yaml:"labels" json:"labels"`
}

// GraphConfig holds the initial graph panel state.
type GraphConfig struct {
	Mode string `yaml:"mode" json:"mode"`
}

// WeppConfig holds WEPP display defaults.
type WeppConfig struct {
	Statistic string `yaml:"statistic" json:"statistic"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML (or JSON) document, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.QueryEngine.Timeout <= 0 {
		c.QueryEngine.Timeout = DefaultQueryTimeout
	}
	if c.QueryEngine.RequestsPerSecond < 0 {
		c.QueryEngine.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.QueryEngine.Burst <= 0 {
		c.QueryEngine.Burst = DefaultBurst
	}
	if c.QueryEngine.Cache == "" {
		c.QueryEngine.Cache = DefaultCacheBackend
	}
	c.QueryEngine.BaseURL = strings.TrimRight(c.QueryEngine.BaseURL, "/")
	c.Resources.BaseURL = strings.TrimRight(c.Resources.BaseURL, "/")

	if len(c.Scenarios) == 0 || c.Scenarios[0].Path != "" {
		c.Scenarios = append([]Scenario{{Name: "Base", Path: ""}}, c.Scenarios...)
	}

	d := &c.Datasets
	d.Subcatchments = orDefault(d.Subcatchments, "dem/wbt/subcatchments.WGS.geojson", "dem/topaz/SUBCATCHMENTS.WGS.JSON")
	d.Hillslopes = orDefault(d.Hillslopes, "watershed/hillslopes.parquet")
	d.Landuse = orDefault(d.Landuse, "landuse/landuse.parquet")
	d.Soils = orDefault(d.Soils, "soils/soils.parquet")
	d.WeppLoss = orDefault(d.WeppLoss, "wepp/output/interchange/loss_pw0.all_years.hill.parquet")
	d.WeppYearly = orDefault(d.WeppYearly, "wepp/output/interchange/loss_pw0.all_years.hill.parquet")
	d.WeppEvents = orDefault(d.WeppEvents, "wepp/output/interchange/H.pass.parquet")
	d.Channels = orDefault(d.Channels, "wepp/output/interchange/loss_pw0.all_years.chn.parquet")
	d.Outlet = orDefault(d.Outlet, "wepp/output/interchange/ebe_pw0.parquet")
	d.Watar = orDefault(d.Watar, "ash/post/hillslope_annuals.parquet")
	d.Rap = orDefault(d.Rap, "rap/rap_ts.parquet")
	if len(d.Rasters) == 0 {
		d.Rasters = []Raster{
			{Key: "landuse", Label: "Landuse (NLCD)", Path: "landuse/nlcd.tif"},
			{Key: "soils", Label: "Soils (SSURGO)", Path: "soils/ssurgo.tif"},
		}
	}

	if c.Map.Zoom <= 0 {
		c.Map.Zoom = DefaultZoom
	}
	if c.Map.Basemap == "" {
		c.Map.Basemap = DefaultBasemap
	}
	if c.Graph.Mode == "" {
		c.Graph.Mode = DefaultGraphMode
	}
	if c.Wepp.Statistic == "" {
		c.Wepp.Statistic = DefaultStatistic
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func orDefault(v []string, defaults ...string) []string {
	if len(v) > 0 {
		return v
	}
	return defaults
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.QueryEngine.BaseURL == "" {
		return fmt.Errorf("%w: query_engine.base_url is required", ErrInvalid)
	}
	if c.QueryEngine.RunID == "" {
		return fmt.Errorf("%w: query_engine.run_id is required", ErrInvalid)
	}
	if c.QueryEngine.Timeout < MinQueryTimeout {
		return fmt.Errorf("%w: query_engine.timeout %s is below %s", ErrInvalid, c.QueryEngine.Timeout, MinQueryTimeout)
	}
	switch c.QueryEngine.Cache {
	case CacheNone, CacheMemory, CacheSQLite:
	default:
		return fmt.Errorf("%w: query_engine.cache %q (want none, memory or sqlite)", ErrInvalid, c.QueryEngine.Cache)
	}
	if c.Resources.BaseURL == "" && c.Resources.Dir == "" {
		return fmt.Errorf("%w: resources.base_url or resources.dir is required", ErrInvalid)
	}
	if !ValidBasemap(c.Map.Basemap) {
		return fmt.Errorf("%w: map.basemap %q", ErrInvalid, c.Map.Basemap)
	}
	switch c.Graph.Mode {
	case "minimized", "split", "full":
	default:
		return fmt.Errorf("%w: graph.mode %q", ErrInvalid, c.Graph.Mode)
	}
	switch c.Wepp.Statistic {
	case "mean", "p90", "sd", "cv":
	default:
		return fmt.Errorf("%w: wepp.statistic %q", ErrInvalid, c.Wepp.Statistic)
	}
	seen := make(map[string]bool, len(c.Scenarios))
	for _, s := range c.Scenarios {
		if seen[s.Path] {
			return fmt.Errorf("%w: duplicate scenario path %q", ErrInvalid, s.Path)
		}
		seen[s.Path] = true
	}
	return nil
}

// ScenarioPaths returns the configured scenario paths, base first.
func (c *Config) ScenarioPaths() []string {
	paths := make([]string, len(c.Scenarios))
	for i, s := range c.Scenarios {
		paths[i] = s.Path
	}
	return paths
}
