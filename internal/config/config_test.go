package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
query_engine:
  base_url: https://wepp.cloud/query-engine/
  run_id: mdobre-fallible-pass
  config: disturbed9002
  requests_per_second: 8
  cache: sqlite
resources:
  base_url: https://wepp.cloud/weppcloud/runs/mdobre-fallible-pass/disturbed9002/browse
scenarios:
  - name: Uniform High
    path: omni/scenarios/uniform_high
  - name: Thinning
    path: omni/scenarios/thinning
graph:
  mode: full
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://wepp.cloud/query-engine", cfg.QueryEngine.BaseURL)
	assert.Equal(t, DefaultQueryTimeout, cfg.QueryEngine.Timeout)
	assert.Equal(t, 8.0, cfg.QueryEngine.RequestsPerSecond)
	assert.Equal(t, CacheSQLite, cfg.QueryEngine.Cache)
	assert.Equal(t, "full", cfg.Graph.Mode)
	assert.Equal(t, DefaultStatistic, cfg.Wepp.Statistic)
	assert.Equal(t, DefaultBasemap, cfg.Map.Basemap)
	assert.NotEmpty(t, cfg.Datasets.WeppLoss)
	assert.Len(t, cfg.Datasets.Rasters, 2)

	// base scenario is always first
	assert.Equal(t, []string{"", "omni/scenarios/uniform_high", "omni/scenarios/thinning"}, cfg.ScenarioPaths())
}

func TestParseJSONDocument(t *testing.T) {
	doc := `{"query_engine":{"base_url":"http://qe","run_id":"r1","timeout":"5s"},"resources":{"base_url":"http://res"}}`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.QueryEngine.Timeout)
	assert.Equal(t, CacheNone, cfg.QueryEngine.Cache)
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing base url", `query_engine: {run_id: r}` + "\nresources: {dir: /tmp}"},
		{"missing run id", `query_engine: {base_url: http://qe}` + "\nresources: {dir: /tmp}"},
		{"bad cache", `query_engine: {base_url: http://qe, run_id: r, cache: redis}` + "\nresources: {dir: /tmp}"},
		{"no resources", `query_engine: {base_url: http://qe, run_id: r}`},
		{"bad graph mode", `query_engine: {base_url: http://qe, run_id: r}` + "\nresources: {dir: /tmp}\ngraph: {mode: huge}"},
		{"bad statistic", `query_engine: {base_url: http://qe, run_id: r}` + "\nresources: {dir: /tmp}\nwepp: {statistic: median}"},
		{"bad basemap", `query_engine: {base_url: http://qe, run_id: r}` + "\nresources: {dir: /tmp}\nmap: {basemap: mapbox}"},
		{"tiny timeout", `query_engine: {base_url: http://qe, run_id: r, timeout: 500us}` + "\nresources: {dir: /tmp}"},
		{"duplicate scenario", `query_engine: {base_url: http://qe, run_id: r}` + "\nresources: {dir: /tmp}\nscenarios: [{name: a, path: x}, {name: b, path: x}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestBareNumberTimeoutRejected(t *testing.T) {
	_, err := Parse([]byte(`{"query_engine":{"base_url":"http://qe","run_id":"r1","timeout":30},"resources":{"base_url":"http://res"}}`))
	assert.Error(t, err)
}

func TestBasemapNoneAccepted(t *testing.T) {
	cfg, err := Parse([]byte(`query_engine: {base_url: http://qe, run_id: r}` + "\nresources: {dir: /tmp}\nmap: {basemap: none}"))
	require.NoError(t, err)
	assert.Equal(t, BasemapNone, cfg.Map.Basemap)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gldash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mdobre-fallible-pass", cfg.QueryEngine.RunID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
