package ml

import (
	"encoding/json"
	"sync"

	"exoplanet-ai/internal/features"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu                 sync.Mutex
	predictions        int
	failures           int
	validationFailures int
	cacheHits          int
	latencySum         float64
	explainLatencySum  float64
	modelAge           float64
	predictionScores   []float64
	drift              map[string]float64
	driftAlerts        int
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLValidationFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationFailures++
}

func (m *MockMetrics) MLCacheHitsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLExplainLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.explainLatencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLPredictionScoresObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictionScores = append(m.predictionScores, v)
}

func (m *MockMetrics) MLFeatureDriftSet(feature string, psi float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drift == nil {
		m.drift = make(map[string]float64)
	}
	m.drift[feature] = psi
}

func (m *MockMetrics) MLDriftAlertsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driftAlerts++
}

// Drift returns the last PSI reported per feature and the alert count.
func (m *MockMetrics) Drift() (map[string]float64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.drift))
	for k, v := range m.drift {
		out[k] = v
	}
	return out, m.driftAlerts
}

// Counts returns predictions, failures, validation failures and cache hits.
func (m *MockMetrics) Counts() (predictions, failures, validationFailures, cacheHits int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.predictions, m.failures, m.validationFailures, m.cacheHits
}

type fixtureTree struct {
	splits  [][2]float64 // {flat feature index, border}
	values  []float64
	weights []float64
}

// fixtureTrees make a small ensemble over three features. For EarthLike the
// class-1 margin is -0.95; for HotFalsePositive it is 0.85.
var fixtureTrees = []fixtureTree{
	{
		splits:  [][2]float64{{float64(features.StellarTemperature), 5000}, {float64(features.PlanetaryRadius), 2}},
		values:  []float64{0.5, -0.3, 0.8, -1.2},
		weights: []float64{10, 20, 30, 40},
	},
	{
		splits:  [][2]float64{{float64(features.TransitSNR), 10}},
		values:  []float64{-0.4, 0.6},
		weights: []float64{25, 75},
	},
	{
		splits:  [][2]float64{{float64(features.OrbitalPeriod), 10}, {float64(features.OrbitalPeriod), 100}},
		values:  []float64{0.2, 0, 0.1, -1.5},
		weights: []float64{30, 40, 0, 30},
	},
}

const fixtureBias = 0.25

// FixtureModelJSON renders the fixture ensemble in CatBoost's JSON format.
func FixtureModelJSON() []byte {
	floats := make([]map[string]any, features.NumFeatures)
	for i, col := range features.Columns() {
		floats[i] = map[string]any{
			"feature_index":       i,
			"flat_feature_index":  i,
			"feature_id":          col,
			"borders":             []float64{},
			"nan_value_treatment": "AsIs",
		}
	}

	trees := make([]map[string]any, len(fixtureTrees))
	for i, ft := range fixtureTrees {
		splits := make([]map[string]any, len(ft.splits))
		for j, s := range ft.splits {
			splits[j] = map[string]any{
				"float_feature_index": int(s[0]),
				"border":              s[1],
				"split_type":          "FloatFeature",
			}
		}
		trees[i] = map[string]any{
			"leaf_values":  ft.values,
			"leaf_weights": ft.weights,
			"splits":       splits,
		}
	}

	data, err := json.Marshal(map[string]any{
		"features_info":   map[string]any{"float_features": floats},
		"oblivious_trees": trees,
		"scale_and_bias":  []any{1.0, []float64{fixtureBias}},
	})
	if err != nil {
		panic(err)
	}
	return data
}

// FixtureClassifier returns the fixture ensemble.
func FixtureClassifier() *Classifier {
	c, err := decodeClassifier(FixtureModelJSON())
	if err != nil {
		panic(err)
	}
	return c
}

// FixtureImputer returns a 3-neighbor uniform imputer fit on variations of
// the EarthLike and HotFalsePositive observations.
func FixtureImputer() *KNNImputer {
	var fit [][]float64
	for _, o := range []features.Observation{features.EarthLike(), features.HotFalsePositive()} {
		row, err := features.NewAdapter().Adapt(o)
		if err != nil {
			panic(err)
		}
		for _, scale := range []float64{0.9, 1, 1.1} {
			r := row.Slice()
			for i := range r {
				r[i] *= scale
			}
			fit = append(fit, r)
		}
	}
	imp, err := NewKNNImputer(3, WeightsUniform, features.Columns(), fit)
	if err != nil {
		panic(err)
	}
	return imp
}

// NewFixturePipeline wires the fixture artifacts with the tree explainer.
func NewFixturePipeline(cfg PipelineConfig, metrics MetricsInterface) *Pipeline {
	model := FixtureClassifier()
	explainer, err := NewTreeExplainer(model)
	if err != nil {
		panic(err)
	}
	p, err := NewPipeline(model, FixtureImputer(), explainer, cfg, metrics)
	if err != nil {
		panic(err)
	}
	return p
}
