// Package geo ingests the subcatchment feature collection every summary is
// joined against.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"
)

// IDKeys are the feature properties tried, in order, for the topaz id.
var IDKeys = []string{"TopazID", "topaz_id", "topaz", "id", "WeppID", "wepp_id"}

// ErrNoIDProperty is returned when no feature carries any of IDKeys.
var ErrNoIDProperty = errors.New("geo: no topaz id property")

// Feature is one subcatchment polygon.
type Feature struct {
	TopazID    string
	Properties map[string]any
	Geometry   geom.T
}

// Collection is an ingested subcatchment feature collection.
// The id property is resolved once at ingestion, not per render.
type Collection struct {
	Features []Feature
	IDKey    string
	ids      *roaring.Bitmap
	index    map[string]int
	bounds   *geom.Bounds
}

// Parse decodes a GeoJSON FeatureCollection and resolves its id accessor.
func Parse(data []byte) (*Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("geo: decode feature collection: %w", err)
	}

	key := resolveIDKey(fc.Features)
	if key == "" && len(fc.Features) > 0 {
		return nil, ErrNoIDProperty
	}

	c := &Collection{
		Features: make([]Feature, 0, len(fc.Features)),
		IDKey:    key,
		ids:      roaring.New(),
		index:    make(map[string]int, len(fc.Features)),
	}
	for _, f := range fc.Features {
		id := idString(f.Properties[key])
		if id == "" {
			continue
		}
		c.index[id] = len(c.Features)
		if n, err := strconv.ParseUint(id, 10, 32); err == nil && strconv.FormatUint(n, 10) == id {
			c.ids.Add(uint32(n))
		}
		c.Features = append(c.Features, Feature{TopazID: id, Properties: f.Properties, Geometry: f.Geometry})
		if f.Geometry != nil {
			if c.bounds == nil {
				c.bounds = geom.NewBounds(f.Geometry.Layout())
			}
			c.bounds.Extend(f.Geometry)
		}
	}
	return c, nil
}

// resolveIDKey picks the first IDKeys entry carried by any feature.
func resolveIDKey(features []*geojson.Feature) string {
	for _, key := range IDKeys {
		for _, f := range features {
			if idString(f.Properties[key]) != "" {
				return key
			}
		}
	}
	return ""
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Has reports whether the collection contains topazID. Canonical numeric
// ids are answered from the id bitmap.
func (c *Collection) Has(topazID string) bool {
	if c == nil {
		return false
	}
	if n, err := strconv.ParseUint(topazID, 10, 32); err == nil && strconv.FormatUint(n, 10) == topazID {
		return c.ids.Contains(uint32(n))
	}
	_, ok := c.index[topazID]
	return ok
}

// IDFrom reads the topaz id of a feature through get, which returns one of
// its properties by name. Only the resolved key is read.
func (c *Collection) IDFrom(get func(key string) any) string {
	if c == nil || c.IDKey == "" {
		return ""
	}
	return idString(get(c.IDKey))
}

// IDs returns a copy of the canonical numeric topaz id set.
func (c *Collection) IDs() *roaring.Bitmap {
	if c == nil {
		return roaring.New()
	}
	return c.ids.Clone()
}

// Feature returns the feature for topazID.
func (c *Collection) Feature(topazID string) (Feature, bool) {
	if c == nil {
		return Feature{}, false
	}
	i, ok := c.index[topazID]
	if !ok {
		return Feature{}, false
	}
	return c.Features[i], true
}

// Bounds returns [minLon, minLat, maxLon, maxLat], or false when empty.
func (c *Collection) Bounds() ([4]float64, bool) {
	if c == nil || c.bounds == nil || c.bounds.IsEmpty() {
		return [4]float64{}, false
	}
	return [4]float64{c.bounds.Min(0), c.bounds.Min(1), c.bounds.Max(0), c.bounds.Max(1)}, true
}

// Label is a text anchor for one subcatchment.
type Label struct {
	TopazID  string     `json:"topaz_id"`
	Position [2]float64 `json:"position"`
}

// Labels returns one label per feature at its centroid.
// Features whose centroid cannot be computed are skipped.
func (c *Collection) Labels() []Label {
	if c == nil {
		return nil
	}
	out := make([]Label, 0, len(c.Features))
	for _, f := range c.Features {
		if f.Geometry == nil {
			continue
		}
		pt, err := xy.Centroid(f.Geometry)
		if err != nil || len(pt) < 2 {
			continue
		}
		out = append(out, Label{TopazID: f.TopazID, Position: [2]float64{pt[0], pt[1]}})
	}
	return out
}
