package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"TopazID": 22, "WeppID": 1},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[2,0],[2,2],[0,2],[0,0]]]}},
    {"type": "Feature", "properties": {"TopazID": "23", "WeppID": 2},
     "geometry": {"type": "Polygon", "coordinates": [[[2,0],[4,0],[4,2],[2,2],[2,0]]]}},
    {"type": "Feature", "properties": {"WeppID": 3},
     "geometry": {"type": "Polygon", "coordinates": [[[4,0],[6,0],[6,2],[4,2],[4,0]]]}}
  ]
}`

func TestParseResolvesIDKeyOnce(t *testing.T) {
	c, err := Parse([]byte(fixture))
	require.NoError(t, err)

	assert.Equal(t, "TopazID", c.IDKey)
	// the third feature lacks the resolved key and is dropped
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("22"))
	assert.True(t, c.Has("23"))
	assert.False(t, c.Has("3"))

	ids := c.IDs()
	assert.EqualValues(t, 2, ids.GetCardinality())
	assert.True(t, ids.Contains(22))

	f, ok := c.Feature("23")
	require.True(t, ok)
	assert.Equal(t, 2.0, f.Properties["WeppID"])
}

func TestParseFallsBackThroughIDKeys(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"wepp_id":7},"geometry":{"type":"Point","coordinates":[1,1]}}]}`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "wepp_id", c.IDKey)
	assert.True(t, c.Has("7"))
}

func TestHasStringIDs(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"topaz_id":"H1"},"geometry":{"type":"Point","coordinates":[1,1]}},
	  {"type":"Feature","properties":{"topaz_id":"0042"},"geometry":{"type":"Point","coordinates":[2,1]}}]}`
	c, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.True(t, c.Has("H1"))
	assert.True(t, c.Has("0042"))
	assert.False(t, c.Has("42"))
	assert.False(t, c.Has("H2"))
	assert.EqualValues(t, 0, c.IDs().GetCardinality())
}

func TestIDFromReadsResolvedKeyOnly(t *testing.T) {
	c, err := Parse([]byte(fixture))
	require.NoError(t, err)

	props := map[string]any{"TopazID": 22.0, "WeppID": 1.0, "id": "other"}
	var asked []string
	id := c.IDFrom(func(key string) any {
		asked = append(asked, key)
		return props[key]
	})
	assert.Equal(t, "22", id)
	assert.Equal(t, []string{"TopazID"}, asked)

	var empty *Collection
	assert.Empty(t, empty.IDFrom(func(string) any { return 1.0 }))
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"x"},"geometry":null}]}`))
	assert.ErrorIs(t, err, ErrNoIDProperty)

	_, err = Parse([]byte(`not json`))
	assert.Error(t, err)

	empty, err := Parse([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	_, ok := empty.Bounds()
	assert.False(t, ok)
}

func TestBoundsAndLabels(t *testing.T) {
	c, err := Parse([]byte(fixture))
	require.NoError(t, err)

	b, ok := c.Bounds()
	require.True(t, ok)
	assert.Equal(t, [4]float64{0, 0, 4, 2}, b)

	labels := c.Labels()
	require.Len(t, labels, 2)
	assert.Equal(t, "22", labels[0].TopazID)
	assert.InDelta(t, 1.0, labels[0].Position[0], 1e-9)
	assert.InDelta(t, 1.0, labels[0].Position[1], 1e-9)
	assert.InDelta(t, 3.0, labels[1].Position[0], 1e-9)
}

func TestNilCollection(t *testing.T) {
	var c *Collection
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Has("1"))
	assert.Nil(t, c.Labels())
	assert.EqualValues(t, 0, c.IDs().GetCardinality())
}
