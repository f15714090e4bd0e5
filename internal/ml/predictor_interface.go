// Package ml provides the inference pipeline of the exoplanet classifier.
// It loads a CatBoost model exported as JSON and a fitted KNN imputer,
// scores feature rows, and computes per-feature attributions with either a
// native tree explainer or a remote explainer service.
//
// Loaded artifacts are immutable and shared across goroutines without
// locking.
package ml

import "context"

// Model scores an imputed feature row.
type Model interface {
	// FeatureCount is the row width the model was trained on.
	FeatureCount() int

	// Margin returns the raw log-odds of class 1 for the row.
	Margin(row []float64) (float64, error)
}

// Imputer fills NaN slots of a feature row.
type Imputer interface {
	FeatureCount() int

	// Transform returns an imputed copy of row. The input is not modified.
	Transform(row []float64) ([]float64, error)
}

// Explainer computes per-feature attributions of the class 1 log-odds for
// an imputed row.
type Explainer interface {
	Explain(ctx context.Context, row []float64) (Attribution, error)
}

// MetricsInterface defines metrics methods needed by the pipeline
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLValidationFailuresInc()
	MLLatencyObserve(float64)
	MLExplainLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLPredictionScoresObserve(float64)
	MLCacheHitsInc()
	MLFeatureDriftSet(feature string, psi float64)
	MLDriftAlertsInc()
}
