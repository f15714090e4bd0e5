// Package evaluation scores a classifier against labeled observations.
//
// The model only knows classes 0 and 1; which of them means "exoplanet" is a
// property of the training run. The engine reports accuracy, precision and
// recall under both readings so the configured positive class can be checked
// against real data.
package evaluation

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"exoplanet-ai/internal/features"
	"exoplanet-ai/internal/ml"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Scorer is the part of the pipeline the engine needs.
type Scorer interface {
	RunRow(ctx context.Context, row features.Row) (ml.Output, error)
	PositiveClass() int
}

// PolarityStats is the confusion matrix of one reading of the model classes.
type PolarityStats struct {
	PositiveClass  int     `json:"positive_class"`
	TruePositives  int     `json:"true_positives"`
	FalsePositives int     `json:"false_positives"`
	TrueNegatives  int     `json:"true_negatives"`
	FalseNegatives int     `json:"false_negatives"`
	Accuracy       float64 `json:"accuracy"`
	Precision      float64 `json:"precision"`
	Recall         float64 `json:"recall"`
	F1             float64 `json:"f1"`
}

func (p *PolarityStats) add(predictedPlanet, planet bool) {
	switch {
	case predictedPlanet && planet:
		p.TruePositives++
	case predictedPlanet && !planet:
		p.FalsePositives++
	case !predictedPlanet && planet:
		p.FalseNegatives++
	default:
		p.TrueNegatives++
	}
}

func (p *PolarityStats) finish() {
	total := p.TruePositives + p.FalsePositives + p.TrueNegatives + p.FalseNegatives
	p.Accuracy = ratio(p.TruePositives+p.TrueNegatives, total)
	p.Precision = ratio(p.TruePositives, p.TruePositives+p.FalsePositives)
	p.Recall = ratio(p.TruePositives, p.TruePositives+p.FalseNegatives)
	if p.Precision+p.Recall > 0 {
		p.F1 = 2 * p.Precision * p.Recall / (p.Precision + p.Recall)
	}
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// Results holds the outcome of an evaluation run.
type Results struct {
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Samples    int       `json:"samples"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Planets    int       `json:"planets"`
	Configured int       `json:"configured_positive_class"`

	// Polarities is indexed by the positive class.
	Polarities  [2]PolarityStats `json:"polarities"`
	Recommended int              `json:"recommended_positive_class"`

	// MeanMargin is the average class-1 margin over true planets and over
	// non-planets.
	MeanMarginPlanet    float64 `json:"mean_margin_planet"`
	MeanMarginNonPlanet float64 `json:"mean_margin_non_planet"`
}

// Agrees reports whether the configured positive class is the recommended one.
func (r *Results) Agrees() bool { return r.Configured == r.Recommended }

// Engine runs every loaded sample through the scorer.
type Engine struct {
	scorer  Scorer
	adapter *features.Adapter
	data    *DataLoader
	workers int
}

// NewEngine creates a new evaluation engine. The scorer must be safe for
// concurrent use.
func NewEngine(scorer Scorer, data *DataLoader) *Engine {
	return &Engine{
		scorer:  scorer,
		adapter: features.NewAdapter(),
		data:    data,
		workers: runtime.NumCPU(),
	}
}

// SetWorkers bounds the number of samples scored at once.
func (e *Engine) SetWorkers(n int) {
	if n > 0 {
		e.workers = n
	}
}

type outcome struct {
	margin float64
	err    error
}

// score runs all samples, keeping results in sample order.
func (e *Engine) score(ctx context.Context, samples []Sample) ([]outcome, error) {
	outcomes := make([]outcome, len(samples))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range samples {
		i, s := i, s
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			out, err := e.scorer.RunRow(gCtx, e.adapter.AdaptValues(s.Values))
			outcomes[i] = outcome{margin: out.Margin, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, ctx.Err()
}

// Run scores every sample. Rows the pipeline rejects are counted as failed
// and left out of the statistics.
func (e *Engine) Run(ctx context.Context) (*Results, error) {
	samples := e.data.Samples()
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to evaluate")
	}

	res := &Results{
		StartTime:  time.Now(),
		Skipped:    e.data.Skipped(),
		Configured: e.scorer.PositiveClass(),
	}
	res.Polarities[0].PositiveClass = 0
	res.Polarities[1].PositiveClass = 1

	outcomes, err := e.score(ctx, samples)
	if err != nil {
		return nil, err
	}

	var planetMargins, otherMargins []float64
	for i, s := range samples {
		o := outcomes[i]
		if o.err != nil {
			res.Failed++
			log.Debug().Err(o.err).Int("line", s.Line).Msg("Sample failed")
			continue
		}

		res.Samples++
		// a zero margin is p = 0.5, a negative verdict under either reading
		res.Polarities[0].add(o.margin < 0, s.Planet)
		res.Polarities[1].add(o.margin > 0, s.Planet)
		if s.Planet {
			res.Planets++
			planetMargins = append(planetMargins, o.margin)
		} else {
			otherMargins = append(otherMargins, o.margin)
		}
	}

	if res.Samples == 0 {
		return nil, fmt.Errorf("all %d samples failed", res.Failed)
	}

	for i := range res.Polarities {
		res.Polarities[i].finish()
	}
	if res.Polarities[1].Accuracy > res.Polarities[0].Accuracy {
		res.Recommended = 1
	}
	res.MeanMarginPlanet = mean(planetMargins)
	res.MeanMarginNonPlanet = mean(otherMargins)
	res.EndTime = time.Now()

	log.Info().
		Int("samples", res.Samples).
		Int("failed", res.Failed).
		Float64("accuracy_class0", res.Polarities[0].Accuracy).
		Float64("accuracy_class1", res.Polarities[1].Accuracy).
		Int("recommended", res.Recommended).
		Msg("Evaluation finished")

	return res, nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return floats.Sum(v) / float64(len(v))
}
