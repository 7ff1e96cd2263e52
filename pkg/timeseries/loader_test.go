package timeseries

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weppcloud/gldash/internal/config"
	"github.com/weppcloud/gldash/pkg/query"
)

// scenarioPoster answers named-scenario queries by scenario and dataset.
type scenarioPoster struct {
	mu     sync.Mutex
	tables map[string]map[string][]query.Record
	calls  int
}

func (p *scenarioPoster) PostQueryEngine(context.Context, *query.Payload) *query.Result { return nil }

func (p *scenarioPoster) PostBaseQueryEngine(context.Context, *query.Payload) *query.Result {
	return nil
}

func (p *scenarioPoster) PostQueryEngineForScenario(_ context.Context, pl *query.Payload, scenario string) *query.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	records, ok := p.tables[scenario][pl.Datasets[0].Path]
	if !ok {
		return nil
	}
	return &query.Result{Records: records}
}

var scenarios = []config.Scenario{
	{Name: "Base", Path: ""},
	{Name: "Thinning", Path: "omni/scenarios/thin"},
	{Name: "Broken", Path: "omni/scenarios/broken"},
}

func newLoader(t *testing.T) (*Loader, *scenarioPoster) {
	t.Helper()
	ds := config.Default().Datasets
	hills := ds.WeppYearly[0]
	poster := &scenarioPoster{tables: map[string]map[string][]query.Record{
		"": {
			hills: {
				{"year": 2001.0, "topaz_id": 22.0, "soil_loss": 1.0, "runoff_volume": 10.0},
				{"year": 2001.0, "topaz_id": 23.0, "soil_loss": 3.0, "runoff_volume": 30.0},
				{"year": 2002.0, "topaz_id": 22.0, "soil_loss": 2.0, "runoff_volume": 20.0},
			},
			ds.Outlet[0]: {
				{"year": 2001.0, "sed_del": 2000.0, "runoff_volume": 500.0},
				{"year": 2002.0, "sed_del": 1000.0, "runoff_volume": 250.0},
			},
			ds.Hillslopes[0]: {{"area": 10000.0}},
		},
		"omni/scenarios/thin": {
			hills: {
				{"year": 2001.0, "topaz_id": 22.0, "soil_loss": 0.5, "runoff_volume": 5.0},
				{"year": 2002.0, "topaz_id": 22.0, "soil_loss": 0.7, "runoff_volume": 7.0},
			},
		},
	}}
	return NewLoader(poster, scenarios, ds, zerolog.Nop()), poster
}

func TestLoadBoxplotAcrossScenarios(t *testing.T) {
	l, _ := newLoader(t)
	d, err := l.Load(context.Background(), HillslopeSoilLoss, false)
	require.NoError(t, err)

	assert.Equal(t, KindBoxplot, d.Kind)
	assert.Equal(t, "t/ha", d.Units)
	assert.Equal(t, []int{2001, 2002}, d.Years)
	require.Len(t, d.Series, 2, "the broken scenario is left out")

	base := d.Series[0]
	assert.Equal(t, "Base", base.Name)
	require.Len(t, base.Boxes, 2)
	assert.Equal(t, 2001, base.Boxes[0].Year)
	assert.Equal(t, 2.0, base.Boxes[0].Median)
	assert.Equal(t, 2, base.Boxes[0].N)
	assert.Equal(t, []Point{{X: 2001, Y: 1}, {X: 2002, Y: 2}}, base.Member("22"))

	assert.Equal(t, "omni/scenarios/thin", d.Series[1].Scenario)
}

func TestLoadCachesPerScenario(t *testing.T) {
	l, poster := newLoader(t)
	ctx := context.Background()

	_, err := l.Load(ctx, HillslopeSoilLoss, false)
	require.NoError(t, err)
	first := poster.calls

	// runoff shares the hillslope cache; only the broken scenario retries
	_, err = l.Load(ctx, HillslopeRunoff, false)
	require.NoError(t, err)
	assert.Equal(t, first+1, poster.calls)

	_, err = l.Load(ctx, HillslopeRunoff, true)
	require.NoError(t, err)
	assert.Equal(t, first+1+3, poster.calls)

	l.Forget("")
	_, err = l.Load(ctx, HillslopeRunoff, false)
	require.NoError(t, err)
	assert.Equal(t, first+1+3+2, poster.calls)
}

func TestLoadOutletNormalisesByArea(t *testing.T) {
	l, _ := newLoader(t)
	d, err := l.Load(context.Background(), OutletSediment, false)
	require.NoError(t, err)
	require.Len(t, d.Series, 1)
	assert.Equal(t, KindLine, d.Kind)
	// 2000 kg over 1 ha
	assert.Equal(t, []Point{{X: 2001, Y: 2}, {X: 2002, Y: 1}}, d.Series[0].Points)

	q, err := l.Load(context.Background(), OutletDischarge, false)
	require.NoError(t, err)
	assert.Equal(t, 50.0, q.Series[0].Points[0].Y)
}

func TestLoadErrors(t *testing.T) {
	l, _ := newLoader(t)
	_, err := l.Load(context.Background(), "hillslope-snow", false)
	assert.ErrorIs(t, err, ErrUnknownGraph)

	_, err = l.Load(context.Background(), ChannelSoilLoss, false)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestWriteSVG(t *testing.T) {
	l, _ := newLoader(t)
	d, err := l.Load(context.Background(), HillslopeRunoff, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, d))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<svg"))
	assert.Contains(t, out, "Thinning")

	assert.ErrorIs(t, WriteSVG(&buf, &Dataset{Key: "x"}), ErrNoData)
	assert.ErrorIs(t, WriteSVG(&buf, &Dataset{Key: "x", Kind: KindLine, Series: []Series{{Points: []Point{{X: 1, Y: 1}}}}}), ErrNoData)
}
