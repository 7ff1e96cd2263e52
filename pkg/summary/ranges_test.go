package summary

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weppcloud/gldash/pkg/query"
)

var weppMeasures = []string{
	"runoff_volume", "subrunoff_volume", "baseflow_volume",
	"soil_loss", "sediment_deposition", "sediment_yield",
}

func TestComputeRanges_Fixture(t *testing.T) {
	s := Summary{
		"10": {"runoff_volume": 5.0, "subrunoff_volume": 2.0, "baseflow_volume": 1.0, "soil_loss": 10.0, "sediment_deposition": 0.5, "sediment_yield": 3.0},
		"11": {"runoff_volume": 1.0, "subrunoff_volume": 4.0, "baseflow_volume": 1.0, "soil_loss": 2.0, "sediment_deposition": 1.5, "sediment_yield": 1.0},
	}

	got := ComputeRanges(s, weppMeasures, EpsilonDefault)

	assert.Equal(t, Ranges{
		"runoff_volume":       {Min: 1, Max: 5},
		"subrunoff_volume":    {Min: 2, Max: 4},
		"baseflow_volume":     {Min: 1, Max: 2}, // flat, widened by +1
		"soil_loss":           {Min: 2, Max: 10},
		"sediment_deposition": {Min: 0.5, Max: 1.5},
		"sediment_yield":      {Min: 1, Max: 3},
	}, got)
}

func TestComputeRanges_MaxAlwaysAboveMin(t *testing.T) {
	cases := map[string]Summary{
		"empty":     {},
		"nil":       nil,
		"single":    {"1": {"soil_loss": 7.0}},
		"flat":      {"1": {"soil_loss": 3.0}, "2": {"soil_loss": 3.0}},
		"nonfinite": {"1": {"soil_loss": math.NaN()}, "2": {"soil_loss": math.Inf(1)}, "3": {"soil_loss": nil}},
		"negative":  {"1": {"soil_loss": -4.0}, "2": {"soil_loss": -9.0}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			for _, eps := range []float64{EpsilonDefault, EpsilonEvent} {
				got := ComputeRanges(s, weppMeasures, eps)
				require.Len(t, got, len(weppMeasures))
				for m, r := range got {
					assert.Greater(t, r.Max, r.Min, "measure %s", m)
				}
			}
		})
	}
}

func TestComputeRanges_EmptyDefault(t *testing.T) {
	got := ComputeRanges(Summary{}, []string{"event_P"}, EpsilonEvent)
	assert.Equal(t, Range{Min: 0, Max: 1}, got["event_P"])

	got = ComputeRanges(Summary{"1": {"event_P": 0.2}}, []string{"event_P"}, EpsilonEvent)
	assert.InDelta(t, 0.201, got["event_P"].Max, 1e-12)
}

func TestComputeDiffRanges_EventPair(t *testing.T) {
	scenario := Summary{"30": {"event_P": 10.0}, "31": {"event_P": 4.0}}
	base := Summary{"30": {"event_P": 12.0}, "31": {"event_P": 2.0}}

	got := ComputeDiffRanges(scenario, base, []string{"event_P", "event_Q"}, EpsilonEvent)

	assert.Equal(t, DiffRanges{"event_P": {Min: -2, Max: 2, P5: -2, P95: 2}}, got)
}

func TestComputeDiffRanges_FlatYearly(t *testing.T) {
	scenario := Summary{"a": {"soil_loss": 4.0}, "b": {"soil_loss": 6.0}, "c": {"soil_loss": 5.0}, "d": {"soil_loss": 4.0}}
	base := Summary{"a": {"soil_loss": 4.0}, "b": {"soil_loss": 4.0}, "c": {"soil_loss": 5.0}, "d": {"soil_loss": 4.0}}

	got := ComputeDiffRanges(scenario, base, []string{"soil_loss"}, EpsilonDefault)
	r := got["soil_loss"]
	assert.Equal(t, -2.0, r.Min)
	assert.Equal(t, 2.0, r.Max)
	assert.Equal(t, -r.Max, r.Min)
}

func TestComputeDiffRanges_SymmetricAndRobust(t *testing.T) {
	scenario := Summary{}
	base := Summary{}
	for i := 0; i < 100; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		scenario[id] = Row{"runoff_volume": 10.0}
		base[id] = Row{"runoff_volume": 10.0 + float64(i%7) - 3}
	}
	// one wild outlier must not set the scale
	scenario["zz"] = Row{"runoff_volume": 0.0}
	base["zz"] = Row{"runoff_volume": 1000.0}

	r := ComputeDiffRanges(scenario, base, []string{"runoff_volume"}, EpsilonDefault)["runoff_volume"]
	assert.Equal(t, -r.Max, r.Min)
	assert.Equal(t, 3.0, r.Max)
}

func TestComputeDiffRanges_NoPairs(t *testing.T) {
	got := ComputeDiffRanges(Summary{"1": {"soil_loss": 1.0}}, Summary{"2": {"soil_loss": 1.0}}, []string{"soil_loss"}, EpsilonDefault)
	assert.Empty(t, got)
	assert.Empty(t, ComputeDiffRanges(nil, nil, []string{"soil_loss"}, EpsilonDefault))

	zero := ComputeDiffRanges(Summary{"1": {"soil_loss": 1.0}}, Summary{"1": {"soil_loss": 1.0}}, []string{"soil_loss"}, EpsilonEvent)
	assert.Equal(t, DiffRange{Min: -EpsilonEvent, Max: EpsilonEvent}, zero["soil_loss"])
}

func TestNormalizeRoundTrip(t *testing.T) {
	r := Range{Min: 1, Max: 5}
	assert.Equal(t, 1.0, Normalize(r.Max, r))
	assert.Equal(t, 0.0, Normalize(r.Min, r))
	assert.Equal(t, 0.5, Normalize(3, r))
	assert.Equal(t, 1.0, Normalize(99, r))
	assert.Equal(t, 0.0, Normalize(3, Range{Min: 2, Max: 2}))

	d := DiffRange{Min: -2, Max: 2}
	assert.Equal(t, 1.0, NormalizeDiff(5, d))
	assert.Equal(t, -0.5, NormalizeDiff(-1, d))
}

func TestFromRecordsAndRestrict(t *testing.T) {
	records := []query.Record{
		{"topaz_id": 22.0, "soil_loss": 1.0},
		{"topaz_id": "23", "soil_loss": 2.0},
		{"topaz_id": 99.0, "soil_loss": 3.0},
		{"soil_loss": 4.0},
	}
	s := FromRecords(records, "topaz_id")
	assert.Len(t, s, 3)

	v, ok := s.Value("22", "soil_loss")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = s.Value("404", "soil_loss")
	assert.False(t, ok)

	restricted := s.Restrict(idSet{"22": true, "23": true})
	assert.Len(t, restricted, 2)
	assert.NotContains(t, restricted, "99")
	assert.Len(t, s, 3, "restrict does not mutate the input")
}

type idSet map[string]bool

func (s idSet) Has(id string) bool { return s[id] }

func TestRestrictKeepsStringIDs(t *testing.T) {
	s := Summary{
		"H1":  {"soil_loss": 1.0},
		"H2":  {"soil_loss": 2.0},
		"C31": {"soil_loss": 3.0},
	}
	restricted := s.Restrict(idSet{"H1": true, "H2": true})
	assert.Len(t, restricted, 2)
	assert.Contains(t, restricted, "H1")
	assert.NotContains(t, restricted, "C31")
}

func TestPercentileIndex(t *testing.T) {
	assert.Equal(t, 0.0, PercentileIndex(nil, 0.5))
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, 1.0, PercentileIndex(sorted, 0.05))
	assert.Equal(t, 10.0, PercentileIndex(sorted, 0.95))
	assert.Equal(t, 10.0, PercentileIndex(sorted, 1))
}
