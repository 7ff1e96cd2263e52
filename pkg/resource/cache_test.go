package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource counts fetches that reach the origin.
type countingSource struct {
	Source
	fetches int
}

func (s *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.fetches++
	return s.Source.Fetch(ctx, name)
}

func TestCachedSourceFetchesOnce(t *testing.T) {
	origin := &countingSource{Source: newMemSource(t, map[string]string{
		"dem/wbt/subcatchments.WGS.geojson": `{"type":"FeatureCollection","features":[]}`,
	})}
	cache, err := mem.NewFS()
	require.NoError(t, err)
	src := &CachedSource{Source: origin, Cache: cache, Log: zerolog.Nop()}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		data, err := src.Fetch(ctx, "/dem/wbt/subcatchments.WGS.geojson")
		require.NoError(t, err)
		assert.Contains(t, string(data), "FeatureCollection")
	}
	assert.Equal(t, 1, origin.fetches)

	cached, err := hackpadfs.ReadFile(cache, "dem/wbt/subcatchments.WGS.geojson")
	require.NoError(t, err)
	assert.Contains(t, string(cached), "FeatureCollection")

	assert.True(t, src.Exists(ctx, "dem/wbt/subcatchments.WGS.geojson"))
	assert.Equal(t, "file:///runs/r1/dem/wbt/subcatchments.WGS.geojson", src.URL("dem/wbt/subcatchments.WGS.geojson"))
}

func TestCachedSourceMissDoesNotCache(t *testing.T) {
	cache, err := mem.NewFS()
	require.NoError(t, err)
	src := &CachedSource{Source: newMemSource(t, nil), Cache: cache, Log: zerolog.Nop()}

	_, err = src.Fetch(context.Background(), "landuse/nlcd.tif")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, src.Exists(context.Background(), "landuse/nlcd.tif"))
}
