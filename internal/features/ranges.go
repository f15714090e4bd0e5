package features

import "math"

// Range is the closed interval a field spanned in the training data.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies inside r.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// TrainingRanges are the per-column extremes of the training catalogue.
// Values outside them are still scored; callers may flag them.
var TrainingRanges = [NumFeatures]Range{
	OrbitalPeriod:          {0.241842544, 129995.7784},
	TransitEpoch:           {120.5159138, 1472.522306},
	ImpactParameter:        {0.0, 100.806},
	TransitDuration:        {0.052, 138.54},
	TransitDepth:           {0.0, 1541400.0},
	PlanetaryRadius:        {0.08, 200346.0},
	EquilibriumTemperature: {25.0, 14667.0},
	InsolationFlux:         {0.0, 10947554.55},
	TransitSNR:             {0.0, 9054.7},
	TCEPlanetNumber:        {1.0, 8.0},
	StellarTemperature:     {2661.0, 15896.0},
	StellarSurfaceGravity:  {0.047, 5.364},
	StellarRadius:          {0.109, 229.908},
	RightAscension:         {279.85272, 301.72076},
	Declination:            {36.577381, 52.33601},
	KeplerBand:             {6.966, 20.003},
}

// OutOfRange returns the names of fields whose value lies outside the
// training range. NaN slots are skipped.
func OutOfRange(r Row) []string {
	var out []string
	for i, v := range r {
		if math.IsNaN(v) {
			continue
		}
		if !TrainingRanges[i].Contains(v) {
			out = append(out, Field(i).Name())
		}
	}
	return out
}

// RangeMap returns the training ranges keyed by request field name.
func RangeMap() map[string]Range {
	out := make(map[string]Range, NumFeatures)
	for i, rg := range TrainingRanges {
		out[Field(i).Name()] = rg
	}
	return out
}
