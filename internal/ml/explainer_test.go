package ml

import (
	"context"
	"testing"

	"exoplanet-ai/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeExplainer_Efficiency(t *testing.T) {
	model := FixtureClassifier()
	e, err := NewTreeExplainer(model)
	require.NoError(t, err)

	for _, o := range []features.Observation{features.EarthLike(), features.HotFalsePositive()} {
		row := rowOf(t, o)
		attr, err := e.Explain(context.Background(), row)
		require.NoError(t, err)

		margin, err := model.Margin(row)
		require.NoError(t, err)

		require.Len(t, attr.Values, features.NumFeatures)
		assert.InDelta(t, margin, attr.Sum()+attr.ExpectedValue, 1e-9)
	}
}

func TestTreeExplainer_AlignedByName(t *testing.T) {
	e, err := NewTreeExplainer(FixtureClassifier())
	require.NoError(t, err)

	attr, err := e.Explain(context.Background(), rowOf(t, features.EarthLike()))
	require.NoError(t, err)

	for i, f := range features.Fields() {
		assert.Equal(t, f.Name(), attr.Values[i].Feature)
	}

	// features the trees never split on contribute nothing
	v, ok := attr.Value(features.KeplerBand.Name())
	require.True(t, ok)
	assert.Equal(t, 0.0, v)

	_, ok = attr.Value("no_such_feature")
	assert.False(t, ok)
}

func TestTreeExplainer_SingleSplit(t *testing.T) {
	model := FixtureClassifier()
	e, err := NewTreeExplainer(model)
	require.NoError(t, err)

	attr, err := e.Explain(context.Background(), rowOf(t, features.EarthLike()))
	require.NoError(t, err)

	// SNR appears alone in one tree: 0.6 minus the cover-weighted mean 0.35
	v, _ := attr.Value(features.TransitSNR.Name())
	assert.InDelta(t, 0.25, v, 1e-12)

	// period splits twice in one tree; EarthLike lands on leaf 3
	// expected tree value (30*0.2 + 40*0 + 0*0.1 + 30*-1.5) / 100 = -0.39
	v, _ = attr.Value(features.OrbitalPeriod.Name())
	assert.InDelta(t, -1.5+0.39, v, 1e-12)
}

func TestTreeExplainer_ExpectedValue(t *testing.T) {
	e, err := NewTreeExplainer(FixtureClassifier())
	require.NoError(t, err)

	tree0 := (10*0.5 + 20*-0.3 + 30*0.8 + 40*-1.2) / 100.0
	tree1 := (25*-0.4 + 75*0.6) / 100.0
	tree2 := (30*0.2 + 30*-1.5) / 100.0
	assert.InDelta(t, tree0+tree1+tree2+fixtureBias, e.ExpectedValue(), 1e-12)
}

func TestTreeExplainer_RequiresLeafWeights(t *testing.T) {
	model := FixtureClassifier()
	for i := range model.trees {
		model.trees[i].leafWeights = nil
	}
	_, err := NewTreeExplainer(model)
	assert.Error(t, err)
}

func TestTreeExplainer_Cancelled(t *testing.T) {
	e, err := NewTreeExplainer(FixtureClassifier())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Explain(ctx, rowOf(t, features.EarthLike()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShapleyWeights(t *testing.T) {
	assert.Nil(t, shapleyWeights(0))
	assert.Equal(t, []float64{1}, shapleyWeights(1))
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 6, 1.0 / 3}, shapleyWeights(3), 1e-12)
}

func TestAttribution_Negate(t *testing.T) {
	a := newAttribution(0.5, make([]float64, features.NumFeatures))
	a.Values[0].Value = 2
	n := a.negate()
	assert.Equal(t, -0.5, n.ExpectedValue)
	assert.Equal(t, -2.0, n.Values[0].Value)
	assert.Equal(t, 2.0, a.Values[0].Value)
	assert.False(t, n.Empty())
	assert.True(t, Attribution{}.Empty())
}
