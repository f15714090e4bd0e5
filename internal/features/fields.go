// Package features translates user-supplied candidate measurements into the
// fixed, ordered feature row the exoplanet classifier was trained on.
//
// The mapping from semantic field to row slot is a static table indexed by an
// enumerated Field. Slot order must match the training column order exactly;
// a reordered row silently corrupts predictions.
package features

// Field identifies one classifier input. The numeric value is the slot index
// in a Row.
type Field int

const (
	OrbitalPeriod Field = iota
	TransitEpoch
	ImpactParameter
	TransitDuration
	TransitDepth
	PlanetaryRadius
	EquilibriumTemperature
	InsolationFlux
	TransitSNR
	TCEPlanetNumber
	StellarTemperature
	StellarSurfaceGravity
	StellarRadius
	RightAscension
	Declination
	KeplerBand

	fieldCount
)

// NumFeatures is the width of a Row.
const NumFeatures = int(fieldCount)

type fieldSpec struct {
	name   string // request field name
	column string // training column name
	value  func(*Observation) (float64, bool)
}

var fieldTable = [NumFeatures]fieldSpec{
	OrbitalPeriod:          {"orbital_period", "koi_period", func(o *Observation) (float64, bool) { return deref(o.OrbitalPeriod) }},
	TransitEpoch:           {"transit_epoch", "koi_time0bk", func(o *Observation) (float64, bool) { return deref(o.TransitEpoch) }},
	ImpactParameter:        {"impact_parameter", "koi_impact", func(o *Observation) (float64, bool) { return deref(o.ImpactParameter) }},
	TransitDuration:        {"transit_duration", "koi_duration", func(o *Observation) (float64, bool) { return deref(o.TransitDuration) }},
	TransitDepth:           {"transit_depth", "koi_depth", func(o *Observation) (float64, bool) { return deref(o.TransitDepth) }},
	PlanetaryRadius:        {"planetary_radius", "koi_prad", func(o *Observation) (float64, bool) { return deref(o.PlanetaryRadius) }},
	EquilibriumTemperature: {"equilibrium_temperature", "koi_teq", func(o *Observation) (float64, bool) { return deref(o.EquilibriumTemperature) }},
	InsolationFlux:         {"insolation_flux", "koi_insol", func(o *Observation) (float64, bool) { return deref(o.InsolationFlux) }},
	TransitSNR:             {"transit_snr", "koi_model_snr", func(o *Observation) (float64, bool) { return deref(o.TransitSNR) }},
	TCEPlanetNumber:        {"tce_planet_number", "koi_tce_plnt_num", func(o *Observation) (float64, bool) { return derefInt(o.TCEPlanetNumber) }},
	StellarTemperature:     {"stellar_temperature", "koi_steff", func(o *Observation) (float64, bool) { return deref(o.StellarTemperature) }},
	StellarSurfaceGravity:  {"stellar_surface_gravity", "koi_slogg", func(o *Observation) (float64, bool) { return deref(o.StellarSurfaceGravity) }},
	StellarRadius:          {"stellar_radius", "koi_srad", func(o *Observation) (float64, bool) { return deref(o.StellarRadius) }},
	RightAscension:         {"ra", "ra", func(o *Observation) (float64, bool) { return deref(o.RA) }},
	Declination:            {"dec", "dec", func(o *Observation) (float64, bool) { return deref(o.Dec) }},
	KeplerBand:             {"kepler_band", "koi_kepmag", func(o *Observation) (float64, bool) { return deref(o.KeplerBand) }},
}

var (
	byName   = make(map[string]Field, NumFeatures)
	byColumn = make(map[string]Field, NumFeatures)
)

func init() {
	for i, fs := range fieldTable {
		byName[fs.name] = Field(i)
		byColumn[fs.column] = Field(i)
	}
}

// Name returns the request field name, e.g. "orbital_period".
func (f Field) Name() string { return fieldTable[f].name }

// Column returns the training column name, e.g. "koi_period".
func (f Field) Column() string { return fieldTable[f].column }

func (f Field) String() string {
	if f < 0 || int(f) >= NumFeatures {
		return "unknown"
	}
	return fieldTable[f].name
}

// Fields returns all fields in slot order.
func Fields() []Field {
	out := make([]Field, NumFeatures)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Names returns the request field names in slot order.
func Names() []string {
	out := make([]string, NumFeatures)
	for i, fs := range fieldTable {
		out[i] = fs.name
	}
	return out
}

// Columns returns the training column names in slot order.
func Columns() []string {
	out := make([]string, NumFeatures)
	for i, fs := range fieldTable {
		out[i] = fs.column
	}
	return out
}

// Lookup resolves either a request field name or a training column name.
func Lookup(name string) (Field, bool) {
	if f, ok := byName[name]; ok {
		return f, true
	}
	f, ok := byColumn[name]
	return f, ok
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func derefInt(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}
