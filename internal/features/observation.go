package features

// Auxiliary defaults applied when a request leaves them out.
const (
	DefaultStellarMetallicity = 0.0
	DefaultStellarMass        = 1.0
	DefaultAgeOfSystem        = 5.0 // billion years
)

// Observation is one transit-signal candidate as submitted by a client.
// Required measurements are pointers so that an omitted field can be told
// apart from a zero value. An Observation is never modified after decoding.
type Observation struct {
	OrbitalPeriod          *float64 `json:"orbital_period" validate:"required"`
	TransitEpoch           *float64 `json:"transit_epoch" validate:"required"`
	ImpactParameter        *float64 `json:"impact_parameter" validate:"required"`
	TransitDuration        *float64 `json:"transit_duration" validate:"required"`
	TransitDepth           *float64 `json:"transit_depth" validate:"required"`
	PlanetaryRadius        *float64 `json:"planetary_radius" validate:"required"`
	EquilibriumTemperature *float64 `json:"equilibrium_temperature" validate:"required"`
	InsolationFlux         *float64 `json:"insolation_flux" validate:"required"`
	TransitSNR             *float64 `json:"transit_snr" validate:"required"`
	TCEPlanetNumber        *int     `json:"tce_planet_number" validate:"required"`
	StellarTemperature     *float64 `json:"stellar_temperature" validate:"required"`
	StellarSurfaceGravity  *float64 `json:"stellar_surface_gravity" validate:"required"`
	StellarRadius          *float64 `json:"stellar_radius" validate:"required"`
	RA                     *float64 `json:"ra" validate:"required"`
	Dec                    *float64 `json:"dec" validate:"required"`
	KeplerBand             *float64 `json:"kepler_band" validate:"required"`

	// Accepted but not used by the classifier.
	StarSystem         string   `json:"star_system"`
	StellarMetallicity *float64 `json:"stellar_metallicity,omitempty"`
	StellarMass        *float64 `json:"stellar_mass,omitempty"`
	AgeOfSystem        *float64 `json:"age_of_system,omitempty"`
}

// WithDefaults returns a copy with the auxiliary fields filled in.
func (o Observation) WithDefaults() Observation {
	if o.StellarMetallicity == nil {
		o.StellarMetallicity = Float(DefaultStellarMetallicity)
	}
	if o.StellarMass == nil {
		o.StellarMass = Float(DefaultStellarMass)
	}
	if o.AgeOfSystem == nil {
		o.AgeOfSystem = Float(DefaultAgeOfSystem)
	}
	return o
}

// Value returns the measurement bound to f and whether it was supplied.
func (o *Observation) Value(f Field) (float64, bool) {
	return fieldTable[f].value(o)
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
