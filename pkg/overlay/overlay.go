// Package overlay names the layer families and the measures each one can
// colour subcatchments by.
package overlay

import "fmt"

// Family is a data family with its own summary and layer list.
type Family string

const (
	Landuse    Family = "landuse"
	Soils      Family = "soils"
	Hillslopes Family = "hillslopes"
	Watar      Family = "watar"
	Wepp       Family = "wepp"
	WeppYearly Family = "wepp_yearly"
	WeppEvent  Family = "wepp_event"
	Rap        Family = "rap"
	Raster     Family = "raster"
)

// SubcatchmentFamilies is the render order of polygon overlays.
var SubcatchmentFamilies = []Family{Landuse, Soils, Hillslopes, Watar, Wepp, WeppYearly, WeppEvent, Rap}

// ParseFamily validates a family name.
func ParseFamily(s string) (Family, error) {
	f := Family(s)
	if f == Raster {
		return f, nil
	}
	for _, known := range SubcatchmentFamilies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("overlay: unknown family %q", s)
}

// Scale is the colour treatment a measure gets.
type Scale string

const (
	ScaleWater       Scale = "water"       // winter
	ScaleSediment    Scale = "sediment"    // jet2
	ScaleCategorical Scale = "categorical" // hex colour carried by the row
	ScaleDefault     Scale = "default"     // viridis
)

// Measure describes one colourable column.
type Measure struct {
	Key   string
	Label string
	Units string
	Scale Scale
}

// Descriptor is one entry of a family's layer list. Visible is the only
// field the renderer gates on.
type Descriptor struct {
	Key     string `json:"key"`
	Family  Family `json:"family"`
	Mode    string `json:"mode"`
	Label   string `json:"label"`
	Units   string `json:"units,omitempty"`
	Scale   Scale  `json:"scale"`
	Visible bool   `json:"visible"`

	// Raster overlays only.
	URL    string      `json:"url,omitempty"`
	Bounds *[4]float64 `json:"bounds,omitempty"`
}

// Descriptors builds an invisible descriptor per measure of family.
func Descriptors(family Family) []Descriptor {
	ms := Measures(family)
	out := make([]Descriptor, len(ms))
	for i, m := range ms {
		out[i] = Descriptor{
			Key:    string(family) + ":" + m.Key,
			Family: family,
			Mode:   m.Key,
			Label:  m.Label,
			Units:  m.Units,
			Scale:  m.Scale,
		}
	}
	return out
}

// AnyVisible reports whether any descriptor is visible.
func AnyVisible(ds []Descriptor) bool {
	for _, d := range ds {
		if d.Visible {
			return true
		}
	}
	return false
}

// VisibleModes returns the modes of the visible descriptors, in order.
func VisibleModes(ds []Descriptor) []string {
	var out []string
	for _, d := range ds {
		if d.Visible {
			out = append(out, d.Mode)
		}
	}
	return out
}
