package resource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemSource(t *testing.T, files map[string]string) *FSSource {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	for name, body := range files {
		dir := name
		for i := len(dir) - 1; i >= 0; i-- {
			if dir[i] == '/' {
				require.NoError(t, hackpadfs.MkdirAll(fsys, dir[:i], 0o755))
				break
			}
		}
		require.NoError(t, hackpadfs.WriteFullFile(fsys, name, []byte(body), 0o644))
	}
	return &FSSource{FS: fsys, Prefix: "file:///runs/r1"}
}

func TestFSSource(t *testing.T) {
	src := newMemSource(t, map[string]string{
		"dem/wbt/subcatchments.WGS.geojson": `{"type":"FeatureCollection","features":[]}`,
	})
	ctx := context.Background()

	assert.True(t, src.Exists(ctx, "/dem/wbt/subcatchments.WGS.geojson"))
	assert.False(t, src.Exists(ctx, "dem/wbt"), "directories are not resources")
	assert.False(t, src.Exists(ctx, "landuse/nlcd.tif"))

	data, err := src.Fetch(ctx, "dem/wbt/subcatchments.WGS.geojson")
	require.NoError(t, err)
	assert.Contains(t, string(data), "FeatureCollection")

	_, err = src.Fetch(ctx, "missing.tif")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, "file:///runs/r1/landuse/nlcd.tif", src.URL("landuse/nlcd.tif"))
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/browse/landuse/nlcd.tif":
			w.Write([]byte("II*\x00"))
		case "/browse/broken.tif":
			w.WriteHeader(http.StatusBadGateway)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/browse/", nil)
	ctx := context.Background()

	assert.True(t, src.Exists(ctx, "landuse/nlcd.tif"))
	assert.False(t, src.Exists(ctx, "soils/ssurgo.tif"))

	data, err := src.Fetch(ctx, "/landuse/nlcd.tif")
	require.NoError(t, err)
	assert.Equal(t, "II*\x00", string(data))

	_, err = src.Fetch(ctx, "soils/ssurgo.tif")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = src.Fetch(ctx, "broken.tif")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestFetchFirst(t *testing.T) {
	src := newMemSource(t, map[string]string{"b.geojson": "B"})

	name, data, err := FetchFirst(context.Background(), src, []string{"a.geojson", "b.geojson"})
	require.NoError(t, err)
	assert.Equal(t, "b.geojson", name)
	assert.Equal(t, "B", string(data))

	_, _, err = FetchFirst(context.Background(), src, []string{"x", "y"})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, _, err = FetchFirst(context.Background(), src, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}
