// Package metrics provides Prometheus metrics collection for the exoplanet
// classifier service. It defines the inference, attribution, HTTP and storage
// metrics exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Inference metrics
	MLPredictions        prometheus.Counter   // Total number of classifications made
	MLFailures           prometheus.Counter   // Classifications that failed after validation
	MLValidationFailures prometheus.Counter   // Observations rejected before scoring
	MLModelAge           prometheus.Gauge     // Age of the loaded model artifact in seconds
	MLLatency            prometheus.Histogram // End-to-end pipeline latency in seconds
	MLExplainLatency     prometheus.Histogram // Attribution latency in seconds
	MLPredictionScores   prometheus.Histogram // Distribution of P(positive class)
	MLCacheHits          prometheus.Counter   // Results served from the prediction cache
	MLFeatureDrift       *prometheus.GaugeVec // PSI of recent inputs against the training data, by feature
	MLDriftAlerts        prometheus.Counter   // Drift alerts raised

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec   // Requests by route, method and status
	HTTPDuration *prometheus.HistogramVec // Request latency by route

	// Storage and live feed metrics
	HistorySize      prometheus.Gauge   // Number of stored searches
	StoreErrors      prometheus.Counter // Failed store operations
	WSClients        prometheus.Gauge   // Connected history feed clients
	WSBroadcastDrops prometheus.Counter // Messages dropped for slow feed clients
}

// New creates and registers all Prometheus metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		MLPredictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_predictions_total",
			Help: "Total number of classifications made",
		}),
		MLFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_failures_total",
			Help: "Total number of classification failures",
		}),
		MLValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_validation_failures_total",
			Help: "Total number of observations rejected before scoring",
		}),
		MLModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ml_model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
		MLLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_latency_seconds",
			Help:    "Inference latency in seconds (end-to-end)",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		MLExplainLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_explain_latency_seconds",
			Help:    "Attribution latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		MLPredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ml_prediction_scores",
			Help:    "Distribution of positive-class probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		MLCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_cache_hits_total",
			Help: "Total number of results served from the prediction cache",
		}),
		MLFeatureDrift: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ml_feature_drift_psi",
			Help: "Population stability index of recent inputs against the training data",
		}, []string{"feature"}),
		MLDriftAlerts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ml_drift_alerts_total",
			Help: "Total number of input drift alerts raised",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		HistorySize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "history_records",
			Help: "Number of stored searches",
		}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of failed store operations",
		}),
		WSClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ws_history_clients",
			Help: "Number of connected history feed clients",
		}),
		WSBroadcastDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "ws_broadcast_drops_total",
			Help: "Total number of feed messages dropped for slow clients",
		}),
	}
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method, status string, seconds float64) {
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

// GetErrorRate returns failed classifications over all attempts that passed
// validation, or 0 before the first one.
func (m *Metrics) GetErrorRate() float64 {
	ok := counterValue(m.MLPredictions)
	failed := counterValue(m.MLFailures)
	if ok+failed == 0 {
		return 0
	}
	return failed / (ok + failed)
}

func counterValue(c prometheus.Counter) float64 {
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		return 0
	}
	return out.GetCounter().GetValue()
}
