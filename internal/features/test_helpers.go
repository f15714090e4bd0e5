package features

// EarthLike returns a complete observation of an Earth analogue around a
// Sun-like star, used as a fixture across packages.
func EarthLike() Observation {
	return Observation{
		OrbitalPeriod:          Float(365.25),
		TransitEpoch:           Float(134.45),
		ImpactParameter:        Float(0.3),
		TransitDuration:        Float(13.0),
		TransitDepth:           Float(84.0),
		PlanetaryRadius:        Float(1.0),
		EquilibriumTemperature: Float(288),
		InsolationFlux:         Float(1.0),
		TransitSNR:             Float(12.0),
		TCEPlanetNumber:        Int(1),
		StellarTemperature:     Float(5778),
		StellarSurfaceGravity:  Float(4.44),
		StellarRadius:          Float(1.0),
		RA:                     Float(290.0),
		Dec:                    Float(44.5),
		KeplerBand:             Float(11.5),
		StarSystem:             "Kepler-Sol",
	}
}

// HotFalsePositive returns a short-period, oversized companion around a cool
// star, typical of an eclipsing-binary false positive.
func HotFalsePositive() Observation {
	return Observation{
		OrbitalPeriod:          Float(3.5),
		TransitEpoch:           Float(170.5),
		ImpactParameter:        Float(0.9),
		TransitDuration:        Float(2.5),
		TransitDepth:           Float(15000),
		PlanetaryRadius:        Float(30),
		EquilibriumTemperature: Float(1800),
		InsolationFlux:         Float(2500),
		TransitSNR:             Float(8),
		TCEPlanetNumber:        Int(1),
		StellarTemperature:     Float(4000),
		StellarSurfaceGravity:  Float(4.6),
		StellarRadius:          Float(0.6),
		RA:                     Float(291.9),
		Dec:                    Float(48.1),
		KeplerBand:             Float(15.2),
		StarSystem:             "KOI-7016",
	}
}
