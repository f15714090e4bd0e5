package ml

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Drift defaults.
const (
	DefaultDriftWindow     = 500
	DefaultDriftThreshold  = 0.2
	DefaultDriftMinSamples = 30
	DefaultDriftCooldown   = time.Hour

	driftBins = 10
	// floor for empty bins so that PSI stays finite
	driftEpsilon = 1e-4
)

// DriftConfig configures drift tracking. In a PipelineConfig a zero Window
// disables it.
type DriftConfig struct {
	// Window is the number of recent values kept per feature.
	Window int
	// Threshold is the PSI above which a feature counts as drifted.
	Threshold     float64
	MinSamples    int
	AlertCooldown time.Duration
}

// FeatureDrift compares one feature's recent submissions with the imputer's
// fit matrix.
type FeatureDrift struct {
	Feature string  `json:"feature"`
	Samples int     `json:"samples"`
	PSI     float64 `json:"psi"`
	KS      float64 `json:"ks"`
	Drifted bool    `json:"drifted"`
}

// DriftAlert is raised for a drifted feature, at most once per cooldown.
type DriftAlert struct {
	Timestamp time.Time `json:"timestamp"`
	Feature   string    `json:"feature"`
	PSI       float64   `json:"psi"`
	KS        float64   `json:"ks"`
	Threshold float64   `json:"threshold"`
	Severity  string    `json:"severity"`
}

// DriftDetector keeps a sliding window of submitted measurements per
// feature. Missing measurements are not counted: their imputed values come
// from the baseline itself.
type DriftDetector struct {
	mu        sync.Mutex
	names     []string
	baseline  [][]float64 // sorted
	edges     [][]float64 // inner bin edges, baseline deciles
	window    [][]float64
	pos       []int
	size      int
	threshold float64
	minSample int
	cooldown  time.Duration
	lastAlert time.Time
	now       func() time.Time
}

// NewDriftDetector builds a detector over baseline, one slice of observed
// training values per feature in names order.
func NewDriftDetector(names []string, baseline [][]float64, cfg DriftConfig) *DriftDetector {
	if cfg.Window <= 0 {
		cfg.Window = DefaultDriftWindow
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultDriftThreshold
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = DefaultDriftMinSamples
	}
	if cfg.AlertCooldown == 0 {
		cfg.AlertCooldown = DefaultDriftCooldown
	}

	d := &DriftDetector{
		names:     names,
		baseline:  make([][]float64, len(names)),
		edges:     make([][]float64, len(names)),
		window:    make([][]float64, len(names)),
		pos:       make([]int, len(names)),
		size:      cfg.Window,
		threshold: cfg.Threshold,
		minSample: cfg.MinSamples,
		cooldown:  cfg.AlertCooldown,
		now:       time.Now,
	}
	for i := range names {
		if i >= len(baseline) {
			break
		}
		base := append([]float64(nil), baseline[i]...)
		sort.Float64s(base)
		d.baseline[i] = base
		d.window[i] = make([]float64, 0, cfg.Window)
		if len(base) > 0 {
			for b := 1; b < driftBins; b++ {
				d.edges[i] = append(d.edges[i], stat.Quantile(float64(b)/driftBins, stat.Empirical, base, nil))
			}
		}
	}
	return d
}

// Observe adds the supplied values of one scored row. NaN slots are skipped.
func (d *DriftDetector) Observe(row []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, v := range row {
		if i >= len(d.window) || math.IsNaN(v) {
			continue
		}
		if w := d.window[i]; len(w) < d.size {
			d.window[i] = append(w, v)
			continue
		}
		d.window[i][d.pos[i]] = v
		d.pos[i] = (d.pos[i] + 1) % d.size
	}
}

// Status scores every feature. Features with fewer than the minimum number
// of samples on either side report zero scores.
func (d *DriftDetector) Status() []FeatureDrift {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]FeatureDrift, len(d.names))
	for i, name := range d.names {
		fd := FeatureDrift{Feature: name, Samples: len(d.window[i])}
		if fd.Samples >= d.minSample && len(d.baseline[i]) >= d.minSample {
			current := append([]float64(nil), d.window[i]...)
			sort.Float64s(current)
			fd.PSI = psi(d.edges[i], d.baseline[i], current)
			fd.KS = stat.KolmogorovSmirnov(d.baseline[i], nil, current, nil)
			fd.Drifted = fd.PSI > d.threshold
		}
		out[i] = fd
	}
	return out
}

// Detect returns an alert per drifted feature, unless alerts were raised
// within the cooldown.
func (d *DriftDetector) Detect() []DriftAlert {
	status := d.Status()

	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if !d.lastAlert.IsZero() && now.Sub(d.lastAlert) < d.cooldown {
		return nil
	}

	var alerts []DriftAlert
	for _, fd := range status {
		if !fd.Drifted {
			continue
		}
		a := DriftAlert{
			Timestamp: now,
			Feature:   fd.Feature,
			PSI:       fd.PSI,
			KS:        fd.KS,
			Threshold: d.threshold,
			Severity:  severity(fd.PSI, d.threshold),
		}
		log.Warn().
			Str("feature", a.Feature).
			Float64("psi", a.PSI).
			Float64("ks", a.KS).
			Str("severity", a.Severity).
			Msg("Input drift detected")
		alerts = append(alerts, a)
	}
	if len(alerts) > 0 {
		d.lastAlert = now
	}
	return alerts
}

func severity(score, threshold float64) string {
	switch {
	case score > 3*threshold:
		return "critical"
	case score > 2*threshold:
		return "high"
	default:
		return "medium"
	}
}

// psi is the population stability index of current against baseline over
// bins cut at edges.
func psi(edges, baseline, current []float64) float64 {
	b := histogram(edges, baseline)
	c := histogram(edges, current)
	var score float64
	for i := range b {
		score += (c[i] - b[i]) * math.Log(c[i]/b[i])
	}
	return score
}

func histogram(edges, values []float64) []float64 {
	counts := make([]float64, len(edges)+1)
	for _, v := range values {
		counts[sort.SearchFloat64s(edges, v)]++
	}
	for i := range counts {
		counts[i] = math.Max(counts[i]/float64(len(values)), driftEpsilon)
	}
	return counts
}
