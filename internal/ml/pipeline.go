package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/features"

	"github.com/rs/zerolog/log"
)

// Decision threshold on the positive-class probability.
const labelThreshold = 0.5

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// PositiveClass is the model class that means "exoplanet". The
	// reference training run encoded confirmed planets as class 0.
	PositiveClass int
	CacheSize     int
	CacheTTL      time.Duration
	Drift         DriftConfig
}

// Result is the classification of one observation.
type Result struct {
	Label       bool    `json:"label"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// Output carries every intermediate of a pipeline run.
type Output struct {
	Row         features.Row
	Imputed     []float64
	Margin      float64
	Result      Result
	Attribution Attribution
	Cached      bool
}

// Pipeline runs impute, classify and (optionally) attribute. Artifacts are
// read-only after construction, so a Pipeline is safe for concurrent use.
type Pipeline struct {
	adapter       *features.Adapter
	imputer       Imputer
	model         Model
	explainer     Explainer
	positiveClass int
	metrics       MetricsInterface
	cache         *PredictionCache
	importance    *FeatureImportance
	drift         *DriftDetector
	perfStats     *PerformanceStats
}

type HealthStatus struct {
	Healthy          bool      `json:"healthy"`
	LastCheck        time.Time `json:"last_check"`
	ModelLoaded      bool      `json:"model_loaded"`
	ExplainerEnabled bool      `json:"explainer_enabled"`
	AverageLatency   float64   `json:"average_latency_ms"`
	PredictionCount  int64     `json:"prediction_count"`
	ErrorRate        float64   `json:"error_rate"`
	CacheHitRate     float64   `json:"cache_hit_rate"`
	LastError        string    `json:"last_error,omitempty"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
}

type PerformanceStats struct {
	mu           sync.RWMutex
	predictions  int64
	errors       int64
	cacheHits    int64
	cacheMisses  int64
	totalLatency time.Duration
	startTime    time.Time
	lastError    string
}

// NewPipeline checks that the artifacts agree with each other and with the
// feature table. explainer and metrics may be nil.
func NewPipeline(model Model, imputer Imputer, explainer Explainer, cfg PipelineConfig, metrics MetricsInterface) (*Pipeline, error) {
	if model == nil || imputer == nil {
		return nil, fmt.Errorf("%w: model and imputer are required", common.ErrArtifact)
	}
	if n := model.FeatureCount(); n != features.NumFeatures {
		return nil, fmt.Errorf("%w: model expects %d features, feature table has %d", common.ErrArtifact, n, features.NumFeatures)
	}
	if n := imputer.FeatureCount(); n != features.NumFeatures {
		return nil, fmt.Errorf("%w: imputer expects %d features, feature table has %d", common.ErrArtifact, n, features.NumFeatures)
	}
	if err := checkColumns("model", model); err != nil {
		return nil, err
	}
	if err := checkColumns("imputer", imputer); err != nil {
		return nil, err
	}
	if cfg.PositiveClass != 0 && cfg.PositiveClass != 1 {
		return nil, fmt.Errorf("positive class must be 0 or 1, got %d", cfg.PositiveClass)
	}

	p := &Pipeline{
		adapter:       features.NewAdapter(),
		imputer:       imputer,
		model:         model,
		explainer:     explainer,
		positiveClass: cfg.PositiveClass,
		metrics:       metrics,
		cache:         NewPredictionCache(cfg.CacheSize, cfg.CacheTTL),
		perfStats:     &PerformanceStats{startTime: time.Now()},
	}
	if cfg.Drift.Window > 0 {
		if src, ok := imputer.(baselineSource); ok {
			p.drift = NewDriftDetector(features.Names(), src.ObservedColumns(), cfg.Drift)
		} else {
			log.Warn().Msg("Imputer carries no fit matrix, drift tracking disabled")
		}
	}
	return p, nil
}

// baselineSource is an imputer that can show the training distribution.
type baselineSource interface {
	ObservedColumns() [][]float64
}

type columnSource interface {
	Columns() []string
}

// checkColumns compares recorded column names with the training order. An
// artifact saved without names is accepted.
func checkColumns(kind string, a any) error {
	src, ok := a.(columnSource)
	if !ok {
		return nil
	}
	got := src.Columns()
	want := features.Columns()
	named := false
	for _, c := range got {
		if c != "" {
			named = true
			break
		}
	}
	if !named {
		return nil
	}
	if len(got) != len(want) {
		return fmt.Errorf("%w: %s has %d columns, expected %d", common.ErrArtifact, kind, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("%w: %s column %d is %q, expected %q", common.ErrArtifact, kind, i, got[i], want[i])
		}
	}
	return nil
}

// SetImportance attaches a tracker fed with every fresh attribution.
func (p *Pipeline) SetImportance(fi *FeatureImportance) { p.importance = fi }

// Importance returns the attached tracker, if any.
func (p *Pipeline) Importance() *FeatureImportance { return p.importance }

// Drift returns the input drift detector, nil when tracking is off.
func (p *Pipeline) Drift() *DriftDetector { return p.drift }

// PositiveClass returns the class index treated as "exoplanet".
func (p *Pipeline) PositiveClass() int { return p.positiveClass }

// ExplainerEnabled reports whether attributions are produced.
func (p *Pipeline) ExplainerEnabled() bool { return p.explainer != nil }

// Infer classifies an observation. The attribution is empty when no
// explainer is configured.
func (p *Pipeline) Infer(ctx context.Context, o features.Observation) (Result, Attribution, error) {
	out, err := p.Run(ctx, o)
	if err != nil {
		return Result{}, Attribution{}, err
	}
	return out.Result, out.Attribution, nil
}

// InferRow classifies a raw row in training column order. NaN entries are
// imputed.
func (p *Pipeline) InferRow(ctx context.Context, values []float64) (Result, Attribution, error) {
	row, err := features.RowFromSlice(values)
	if err != nil {
		p.validationFailed()
		return Result{}, Attribution{}, err
	}
	out, err := p.RunRow(ctx, row)
	if err != nil {
		return Result{}, Attribution{}, err
	}
	return out.Result, out.Attribution, nil
}

// Run adapts the observation and scores it. A missing required field fails
// before the imputer or the model is touched.
func (p *Pipeline) Run(ctx context.Context, o features.Observation) (Output, error) {
	row, err := p.adapter.Adapt(o)
	if err != nil {
		p.validationFailed()
		return Output{}, err
	}
	return p.RunRow(ctx, row)
}

// RunRow scores a feature row.
func (p *Pipeline) RunRow(ctx context.Context, row features.Row) (Output, error) {
	start := time.Now()
	defer func() {
		p.recordLatency(time.Since(start))
	}()

	// Check context
	select {
	case <-ctx.Done():
		return Output{}, ctx.Err()
	default:
	}

	out, err := p.run(ctx, row)
	if err != nil {
		p.recordError(err)
		if p.metrics != nil {
			p.metrics.MLFailuresInc()
		}
		log.Warn().Err(err).Msg("inference failed")
		return Output{}, err
	}

	p.recordPrediction()
	if p.drift != nil {
		p.drift.Observe(row.Slice())
	}
	if p.metrics != nil {
		p.metrics.MLPredictionsInc()
		p.metrics.MLPredictionScoresObserve(out.Result.Probability)
	}
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, row features.Row) (Output, error) {
	imputed, err := p.imputer.Transform(row.Slice())
	if err != nil {
		return Output{}, wrapInference("impute", err)
	}
	if len(imputed) != features.NumFeatures {
		return Output{}, common.InferenceError("imputer returned %d values", len(imputed))
	}
	for i, v := range imputed {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Output{}, common.InferenceError("imputed %s is not finite", features.Field(i).Name())
		}
	}

	key := cacheKey(imputed, p.explainer != nil)
	if cached, ok := p.cache.get(key); ok {
		p.recordCacheHit()
		if p.metrics != nil {
			p.metrics.MLCacheHitsInc()
		}
		return Output{
			Row:         row,
			Imputed:     imputed,
			Margin:      cached.Margin,
			Result:      cached.Result,
			Attribution: cached.Attribution,
			Cached:      true,
		}, nil
	}
	p.recordCacheMiss()

	margin, err := p.model.Margin(imputed)
	if err != nil {
		return Output{}, wrapInference("classify", err)
	}
	if math.IsNaN(margin) || math.IsInf(margin, 0) {
		return Output{}, common.InferenceError("model produced non-finite margin")
	}

	result := p.derive(margin)

	var attr Attribution
	if p.explainer != nil {
		attr, err = p.attribute(ctx, imputed)
		if err != nil {
			return Output{}, err
		}
	}

	p.cache.put(key, margin, result, attr)

	return Output{
		Row:         row,
		Imputed:     imputed,
		Margin:      margin,
		Result:      result,
		Attribution: attr,
	}, nil
}

// derive maps the class-1 margin to the positive-class result.
func (p *Pipeline) derive(margin float64) Result {
	prob := sigmoid(margin)
	if p.positiveClass == 0 {
		prob = sigmoid(-margin)
	}
	return Result{
		Label:       prob > labelThreshold,
		Probability: prob,
		Confidence:  prob * 100,
	}
}

func (p *Pipeline) attribute(ctx context.Context, imputed []float64) (Attribution, error) {
	start := time.Now()
	attr, err := p.explainer.Explain(ctx, imputed)
	if p.metrics != nil {
		p.metrics.MLExplainLatencyObserve(time.Since(start).Seconds())
	}
	if err != nil {
		return Attribution{}, wrapInference("attribute", err)
	}
	if len(attr.Values) != features.NumFeatures {
		return Attribution{}, common.InferenceError("explainer returned %d values", len(attr.Values))
	}
	if p.positiveClass == 0 {
		attr = attr.negate()
	}
	if p.importance != nil {
		p.importance.Observe(attr)
	}
	return attr, nil
}

// wrapInference keeps context errors and already classified errors intact.
func wrapInference(phase string, err error) error {
	if errors.Is(err, common.ErrInference) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", phase, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrInference, phase, err)
}

func (p *Pipeline) validationFailed() {
	if p.metrics != nil {
		p.metrics.MLValidationFailuresInc()
	}
}

// Start runs the cache cleaner and reports model age until ctx is done.
func (p *Pipeline) Start(ctx context.Context) {
	interval := time.Minute
	if p.cache != nil && p.cache.ttl/2 > 0 && p.cache.ttl/2 < interval {
		interval = p.cache.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.reportModelAge()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cache.clean()
			p.reportModelAge()
			p.checkDrift()
		}
	}
}

// checkDrift publishes per-feature PSI and counts raised alerts.
func (p *Pipeline) checkDrift() {
	if p.drift == nil {
		return
	}
	alerts := p.drift.Detect()
	if p.metrics == nil {
		return
	}
	for _, fd := range p.drift.Status() {
		p.metrics.MLFeatureDriftSet(fd.Feature, fd.PSI)
	}
	for range alerts {
		p.metrics.MLDriftAlertsInc()
	}
}

type modTimer interface {
	ModTime() time.Time
}

func (p *Pipeline) reportModelAge() {
	if p.metrics == nil {
		return
	}
	if mt, ok := p.model.(modTimer); ok && !mt.ModTime().IsZero() {
		p.metrics.MLModelAgeSet(time.Since(mt.ModTime()).Seconds())
	}
}

// HealthStatus summarizes pipeline performance since start.
func (p *Pipeline) HealthStatus() *HealthStatus {
	p.perfStats.mu.RLock()
	defer p.perfStats.mu.RUnlock()

	s := p.perfStats
	total := s.predictions + s.errors

	var avgLatency float64
	if total > 0 {
		avgLatency = float64(s.totalLatency.Milliseconds()) / float64(total)
	}

	var errorRate float64
	if total > 0 {
		errorRate = float64(s.errors) / float64(total)
	}

	var cacheHitRate float64
	if access := s.cacheHits + s.cacheMisses; access > 0 {
		cacheHitRate = float64(s.cacheHits) / float64(access)
	}

	return &HealthStatus{
		Healthy:          errorRate < 0.1,
		LastCheck:        time.Now(),
		ModelLoaded:      p.model != nil,
		ExplainerEnabled: p.explainer != nil,
		AverageLatency:   avgLatency,
		PredictionCount:  s.predictions,
		ErrorRate:        errorRate,
		CacheHitRate:     cacheHitRate,
		LastError:        s.lastError,
		UptimeSeconds:    time.Since(s.startTime).Seconds(),
	}
}

// Performance tracking methods
func (p *Pipeline) recordLatency(d time.Duration) {
	p.perfStats.mu.Lock()
	p.perfStats.totalLatency += d
	p.perfStats.mu.Unlock()
	if p.metrics != nil {
		p.metrics.MLLatencyObserve(d.Seconds())
	}
}

func (p *Pipeline) recordPrediction() {
	p.perfStats.mu.Lock()
	p.perfStats.predictions++
	p.perfStats.mu.Unlock()
}

func (p *Pipeline) recordError(err error) {
	p.perfStats.mu.Lock()
	p.perfStats.errors++
	p.perfStats.lastError = err.Error()
	p.perfStats.mu.Unlock()
}

func (p *Pipeline) recordCacheHit() {
	p.perfStats.mu.Lock()
	p.perfStats.cacheHits++
	p.perfStats.mu.Unlock()
}

func (p *Pipeline) recordCacheMiss() {
	p.perfStats.mu.Lock()
	p.perfStats.cacheMisses++
	p.perfStats.mu.Unlock()
}
