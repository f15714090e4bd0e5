package metrics

import (
	"testing"

	"exoplanet-ai/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// The wrapper is what the pipeline reports through.
var _ ml.MetricsInterface = (*MetricsWrapper)(nil)

func TestNewWrapper(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_CounterOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	// Initial value should be 0
	if v := testutil.ToFloat64(metrics.MLPredictions); v != 0 {
		t.Errorf("Expected initial counter value 0, got %f", v)
	}

	wrapper.MLPredictionsInc()
	wrapper.MLPredictionsInc()
	wrapper.MLFailuresInc()
	wrapper.MLValidationFailuresInc()
	wrapper.MLCacheHitsInc()

	if v := testutil.ToFloat64(metrics.MLPredictions); v != 2 {
		t.Errorf("Expected 2 predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLFailures); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLValidationFailures); v != 1 {
		t.Errorf("Expected 1 validation failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLCacheHits); v != 1 {
		t.Errorf("Expected 1 cache hit, got %f", v)
	}
}

func TestMetricsWrapper_GaugeOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.MLModelAgeSet(3600)
	if v := testutil.ToFloat64(metrics.MLModelAge); v != 3600 {
		t.Errorf("Expected model age 3600, got %f", v)
	}

	wrapper.MLModelAgeSet(60)
	if v := testutil.ToFloat64(metrics.MLModelAge); v != 60 {
		t.Errorf("Expected model age 60 after reset, got %f", v)
	}
}

func TestMetricsWrapper_DriftOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.MLFeatureDriftSet("orbital_period", 0.35)
	wrapper.MLFeatureDriftSet("ra", 0.01)
	wrapper.MLDriftAlertsInc()

	if v := testutil.ToFloat64(metrics.MLFeatureDrift.WithLabelValues("orbital_period")); v != 0.35 {
		t.Errorf("Expected orbital_period PSI 0.35, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.MLDriftAlerts); v != 1 {
		t.Errorf("Expected 1 drift alert, got %f", v)
	}
	if n := testutil.CollectAndCount(metrics.MLFeatureDrift); n != 2 {
		t.Errorf("Expected 2 drift series, got %d", n)
	}
}

func TestMetricsWrapper_HistogramOperations(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	wrapper := NewWrapper(metrics)

	wrapper.MLLatencyObserve(0.002)
	wrapper.MLExplainLatencyObserve(0.004)
	wrapper.MLPredictionScoresObserve(0.7)
	wrapper.MLPredictionScoresObserve(0.2)

	count, err := testutil.GatherAndCount(registry, "ml_latency_seconds", "ml_explain_latency_seconds", "ml_prediction_scores")
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 histogram series, got %d", count)
	}
}

func TestObserveRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)

	metrics.ObserveRequest("/search", "POST", "200", 0.01)
	metrics.ObserveRequest("/search", "POST", "200", 0.02)
	metrics.ObserveRequest("/search", "POST", "422", 0.001)

	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/search", "POST", "200")); v != 2 {
		t.Errorf("Expected 2 successful requests, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/search", "POST", "422")); v != 1 {
		t.Errorf("Expected 1 rejected request, got %f", v)
	}
}

func TestGetErrorRate(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)

	if rate := metrics.GetErrorRate(); rate != 0 {
		t.Errorf("Expected 0 error rate before any prediction, got %f", rate)
	}

	for i := 0; i < 3; i++ {
		metrics.MLPredictions.Inc()
	}
	metrics.MLFailures.Inc()

	if rate := metrics.GetErrorRate(); rate != 0.25 {
		t.Errorf("Expected error rate 0.25, got %f", rate)
	}
}

func TestNewWithRegistry_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	NewWithRegistry(registry)
}
