package features

import (
	"errors"
	"math"
	"testing"

	"exoplanet-ai/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldTable_Complete(t *testing.T) {
	names := make(map[string]bool)
	columns := make(map[string]bool)
	obs := EarthLike()

	for i, fs := range fieldTable {
		require.NotEmpty(t, fs.name, "slot %d has no name", i)
		require.NotEmpty(t, fs.column, "slot %d has no column", i)
		require.NotNil(t, fs.value, "slot %d has no accessor", i)

		assert.False(t, names[fs.name], "duplicate name %s", fs.name)
		assert.False(t, columns[fs.column], "duplicate column %s", fs.column)
		names[fs.name] = true
		columns[fs.column] = true

		_, ok := obs.Value(Field(i))
		assert.True(t, ok, "accessor for %s did not read the fixture", fs.name)
	}
}

func TestColumns_TrainingOrder(t *testing.T) {
	expected := []string{
		"koi_period", "koi_time0bk", "koi_impact", "koi_duration", "koi_depth",
		"koi_prad", "koi_teq", "koi_insol", "koi_model_snr", "koi_tce_plnt_num",
		"koi_steff", "koi_slogg", "koi_srad", "ra", "dec", "koi_kepmag",
	}
	assert.Equal(t, expected, Columns())
	assert.Len(t, Names(), NumFeatures)
}

func TestAdapt_PreservesValues(t *testing.T) {
	adapter := NewAdapter()
	obs := EarthLike()

	row, err := adapter.Adapt(obs)
	require.NoError(t, err)

	assert.Equal(t, 365.25, row.Get(OrbitalPeriod))
	assert.Equal(t, 84.0, row.Get(TransitDepth))
	assert.Equal(t, 1.0, row.Get(PlanetaryRadius))
	assert.Equal(t, 288.0, row.Get(EquilibriumTemperature))
	assert.Equal(t, 1.0, row.Get(TCEPlanetNumber))
	assert.Equal(t, 11.5, row.Get(KeplerBand))
	assert.Empty(t, row.Missing())

	for _, f := range Fields() {
		v, _ := obs.Value(f)
		assert.Equal(t, v, row[f], "slot %s", f)
	}
}

func TestAdapt_ZeroIsNotMissing(t *testing.T) {
	obs := EarthLike()
	obs.ImpactParameter = Float(0)

	row, err := NewAdapter().Adapt(obs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, row.Get(ImpactParameter))
}

func TestAdapt_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Observation)
		missing []string
	}{
		{
			name:    "stellar temperature",
			mutate:  func(o *Observation) { o.StellarTemperature = nil },
			missing: []string{"stellar_temperature"},
		},
		{
			name:    "planet number",
			mutate:  func(o *Observation) { o.TCEPlanetNumber = nil },
			missing: []string{"tce_planet_number"},
		},
		{
			name: "several",
			mutate: func(o *Observation) {
				o.OrbitalPeriod = nil
				o.KeplerBand = nil
			},
			missing: []string{"orbital_period", "kepler_band"},
		},
	}

	adapter := NewAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := EarthLike()
			tt.mutate(&obs)

			_, err := adapter.Adapt(obs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))

			var verr *common.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.missing, verr.Fields)
		})
	}
}

func TestAdapt_AuxiliaryFieldsIgnored(t *testing.T) {
	adapter := NewAdapter()
	a := EarthLike()
	b := EarthLike()
	b.StarSystem = "Other"
	b.StellarMass = Float(2.5)

	ra, err := adapter.Adapt(a)
	require.NoError(t, err)
	rb, err := adapter.Adapt(b)
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}

func TestAdaptValues(t *testing.T) {
	row := NewAdapter().AdaptValues(map[string]float64{
		"koi_period":     10.5,
		"stellar_radius": 0.9,
		"unknown":        1,
	})

	assert.Equal(t, 10.5, row.Get(OrbitalPeriod))
	assert.Equal(t, 0.9, row.Get(StellarRadius))
	assert.True(t, math.IsNaN(row.Get(TransitDepth)))
	assert.Len(t, row.Missing(), NumFeatures-2)
}

func TestRowFromSlice_Width(t *testing.T) {
	_, err := RowFromSlice(make([]float64, 15))
	assert.True(t, errors.Is(err, common.ErrValidation))

	row, err := RowFromSlice(make([]float64, NumFeatures))
	require.NoError(t, err)
	assert.Len(t, row.Slice(), NumFeatures)
}

func TestWithDefaults(t *testing.T) {
	obs := EarthLike().WithDefaults()
	require.NotNil(t, obs.StellarMass)
	assert.Equal(t, DefaultStellarMass, *obs.StellarMass)
	assert.Equal(t, DefaultAgeOfSystem, *obs.AgeOfSystem)
	assert.Equal(t, DefaultStellarMetallicity, *obs.StellarMetallicity)

	custom := EarthLike()
	custom.StellarMass = Float(0.8)
	assert.Equal(t, 0.8, *custom.WithDefaults().StellarMass)
}

func TestOutOfRange(t *testing.T) {
	row, err := NewAdapter().Adapt(EarthLike())
	require.NoError(t, err)
	assert.Empty(t, OutOfRange(row))

	row[TCEPlanetNumber] = 12
	row[TransitDepth] = math.NaN()
	assert.Equal(t, []string{"tce_planet_number"}, OutOfRange(row))
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("koi_srad")
	require.True(t, ok)
	assert.Equal(t, StellarRadius, f)

	f, ok = Lookup("dec")
	require.True(t, ok)
	assert.Equal(t, Declination, f)

	_, ok = Lookup("stellar_mass")
	assert.False(t, ok)
}
