package overlay

// WEPP measures shared by the whole-run and yearly families.
var weppMeasures = []Measure{
	{Key: "runoff_volume", Label: "Runoff", Units: "mm", Scale: ScaleWater},
	{Key: "subrunoff_volume", Label: "Lateral flow", Units: "mm", Scale: ScaleWater},
	{Key: "baseflow_volume", Label: "Baseflow", Units: "mm", Scale: ScaleWater},
	{Key: "soil_loss", Label: "Soil loss", Units: "t/ha", Scale: ScaleSediment},
	{Key: "sediment_deposition", Label: "Sediment deposition", Units: "t/ha", Scale: ScaleSediment},
	{Key: "sediment_yield", Label: "Sediment yield", Units: "t/ha", Scale: ScaleSediment},
}

var eventMeasures = []Measure{
	{Key: "event_P", Label: "Precipitation", Units: "mm", Scale: ScaleWater},
	{Key: "event_Q", Label: "Runoff", Units: "mm", Scale: ScaleWater},
	{Key: "event_peakro", Label: "Peak runoff", Units: "m³/s", Scale: ScaleWater},
	{Key: "event_tdet", Label: "Detachment", Units: "t/ha", Scale: ScaleSediment},
	{Key: "event_tdep", Label: "Deposition", Units: "t/ha", Scale: ScaleSediment},
}

var catalog = map[Family][]Measure{
	Landuse: {
		{Key: "dominant", Label: "Dominant landuse", Scale: ScaleCategorical},
		{Key: "cancov", Label: "Canopy cover", Units: "fraction", Scale: ScaleDefault},
		{Key: "inrcov", Label: "Interrill cover", Units: "fraction", Scale: ScaleDefault},
		{Key: "rilcov", Label: "Rill cover", Units: "fraction", Scale: ScaleDefault},
	},
	Soils: {
		{Key: "dominant", Label: "Dominant soil", Scale: ScaleCategorical},
		{Key: "clay", Label: "Clay", Units: "%", Scale: ScaleDefault},
		{Key: "sand", Label: "Sand", Units: "%", Scale: ScaleDefault},
		{Key: "bd", Label: "Bulk density", Units: "g/cm³", Scale: ScaleDefault},
		{Key: "rock", Label: "Rock", Units: "%", Scale: ScaleDefault},
		{Key: "soil_depth", Label: "Soil depth", Units: "mm", Scale: ScaleDefault},
	},
	Hillslopes: {
		{Key: "slope_scalar", Label: "Slope", Units: "m/m", Scale: ScaleDefault},
		{Key: "length", Label: "Length", Units: "m", Scale: ScaleDefault},
		{Key: "aspect", Label: "Aspect", Units: "°", Scale: ScaleDefault},
	},
	Watar: {
		{Key: "wind_transport", Label: "Wind ash transport", Units: "t/ha", Scale: ScaleDefault},
		{Key: "water_transport", Label: "Water ash transport", Units: "t/ha", Scale: ScaleDefault},
		{Key: "ash_transport", Label: "Total ash transport", Units: "t/ha", Scale: ScaleDefault},
	},
	Wepp:       weppMeasures,
	WeppYearly: weppMeasures,
	WeppEvent:  eventMeasures,
	Rap: {
		{Key: "AFG", Label: "Annual forb & grass", Units: "%", Scale: ScaleDefault},
		{Key: "PFG", Label: "Perennial forb & grass", Units: "%", Scale: ScaleDefault},
		{Key: "SHR", Label: "Shrub", Units: "%", Scale: ScaleDefault},
		{Key: "TRE", Label: "Tree", Units: "%", Scale: ScaleDefault},
		{Key: "BGR", Label: "Bare ground", Units: "%", Scale: ScaleDefault},
		{Key: "LTR", Label: "Litter", Units: "%", Scale: ScaleDefault},
	},
}

// Measures returns the measure catalog of a family.
func Measures(f Family) []Measure {
	return catalog[f]
}

// MeasureKeys returns the numeric measure keys of a family; categorical
// measures carry colours, not numbers, and are left out.
func MeasureKeys(f Family) []string {
	var out []string
	for _, m := range catalog[f] {
		if m.Scale != ScaleCategorical {
			out = append(out, m.Key)
		}
	}
	return out
}

// Lookup returns a family's measure by key.
func Lookup(f Family, key string) (Measure, bool) {
	for _, m := range catalog[f] {
		if m.Key == key {
			return m, true
		}
	}
	return Measure{}, false
}

var comparable = func() map[string]bool {
	out := make(map[string]bool)
	for _, m := range weppMeasures {
		out[m.Key] = true
	}
	for _, m := range eventMeasures {
		out[m.Key] = true
	}
	return out
}()

// Comparable reports whether measure takes part in scenario-vs-base colouring.
func Comparable(measure string) bool {
	return comparable[measure]
}
