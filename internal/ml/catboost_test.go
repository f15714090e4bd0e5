package ml

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowOf(t *testing.T, o features.Observation) []float64 {
	t.Helper()
	row, err := features.NewAdapter().Adapt(o)
	require.NoError(t, err)
	return row.Slice()
}

func TestLoadClassifier_Fixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, FixtureModelJSON(), 0o600))

	c, err := LoadClassifier(path)
	require.NoError(t, err)

	assert.Equal(t, features.NumFeatures, c.FeatureCount())
	assert.Equal(t, features.Columns(), c.Columns())
	assert.Equal(t, 3, c.TreeCount())
	assert.Equal(t, 2, c.MaxDepth())
	assert.True(t, c.HasLeafWeights())
	assert.Equal(t, path, c.Path())
	assert.False(t, c.ModTime().IsZero())
}

func TestClassifier_Margin(t *testing.T) {
	c := FixtureClassifier()

	m, err := c.Margin(rowOf(t, features.EarthLike()))
	require.NoError(t, err)
	assert.InDelta(t, -0.95, m, 1e-12)

	m, err = c.Margin(rowOf(t, features.HotFalsePositive()))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, m, 1e-12)
}

func TestClassifier_BorderIsLeftBranch(t *testing.T) {
	c := FixtureClassifier()
	row := rowOf(t, features.EarthLike())

	// x > border goes right, so a value on the border stays left
	row[features.TransitSNR] = 10
	m, err := c.Margin(row)
	require.NoError(t, err)
	assert.InDelta(t, -0.3-0.4-1.5+fixtureBias, m, 1e-12)
}

func TestClassifier_WidthMismatch(t *testing.T) {
	c := FixtureClassifier()
	_, err := c.Margin(make([]float64, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInference))
}

func TestClassifier_NaNTreatment(t *testing.T) {
	model := `{
		"features_info": {"float_features": [
			{"feature_index": 0, "flat_feature_index": 0, "feature_id": "a", "nan_value_treatment": "AsTrue"},
			{"feature_index": 1, "flat_feature_index": 1, "feature_id": "b", "nan_value_treatment": "AsFalse"}
		]},
		"oblivious_trees": [
			{"leaf_values": [1, 2], "splits": [{"float_feature_index": 0, "border": 0.5, "split_type": "FloatFeature"}]},
			{"leaf_values": [10, 20], "splits": [{"float_feature_index": 1, "border": 0.5, "split_type": "FloatFeature"}]}
		],
		"scale_and_bias": [2, 1]
	}`
	c, err := decodeClassifier([]byte(model))
	require.NoError(t, err)
	assert.False(t, c.HasLeafWeights())

	m, err := c.Margin([]float64{math.NaN(), math.NaN()})
	require.NoError(t, err)
	assert.Equal(t, 2*(2.0+10.0)+1, m)
}

func TestDecodeClassifier_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		model string
	}{
		{"not json", `{`},
		{"no features", `{"features_info": {"float_features": []}, "oblivious_trees": [{"leaf_values": [1], "splits": []}]}`},
		{"no trees", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]}, "oblivious_trees": []}`},
		{"leaf count", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]},
			"oblivious_trees": [{"leaf_values": [1, 2, 3], "splits": [{"float_feature_index": 0, "border": 1}]}]}`},
		{"weight count", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]},
			"oblivious_trees": [{"leaf_values": [1, 2], "leaf_weights": [1], "splits": [{"float_feature_index": 0, "border": 1}]}]}`},
		{"categorical split", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]},
			"oblivious_trees": [{"leaf_values": [1, 2], "splits": [{"float_feature_index": 0, "split_type": "OneHotFeature"}]}]}`},
		{"unknown feature", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]},
			"oblivious_trees": [{"leaf_values": [1, 2], "splits": [{"float_feature_index": 3, "border": 1}]}]}`},
		{"multi bias", `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": 0}]},
			"oblivious_trees": [{"leaf_values": [1], "splits": []}], "scale_and_bias": [1, [0.1, 0.2]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeClassifier([]byte(tt.model))
			assert.Error(t, err)
		})
	}
}

func TestLoadClassifier_ArtifactErrors(t *testing.T) {
	_, err := LoadClassifier(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrArtifact))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"oblivious_trees": []}`), 0o600))
	_, err = LoadClassifier(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrArtifact))
	assert.Contains(t, err.Error(), path)
}
