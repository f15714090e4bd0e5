package metrics

// MetricsWrapper adapts Metrics to the narrow interface the inference
// pipeline reports through.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLValidationFailuresInc() {
	w.m.MLValidationFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(v float64) {
	w.m.MLLatency.Observe(v)
}

func (w *MetricsWrapper) MLExplainLatencyObserve(v float64) {
	w.m.MLExplainLatency.Observe(v)
}

func (w *MetricsWrapper) MLModelAgeSet(v float64) {
	w.m.MLModelAge.Set(v)
}

func (w *MetricsWrapper) MLPredictionScoresObserve(v float64) {
	w.m.MLPredictionScores.Observe(v)
}

func (w *MetricsWrapper) MLCacheHitsInc() {
	w.m.MLCacheHits.Inc()
}

func (w *MetricsWrapper) MLFeatureDriftSet(feature string, psi float64) {
	w.m.MLFeatureDrift.WithLabelValues(feature).Set(psi)
}

func (w *MetricsWrapper) MLDriftAlertsInc() {
	w.m.MLDriftAlerts.Inc()
}
