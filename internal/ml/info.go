package ml

import (
	"time"

	"exoplanet-ai/internal/features"
)

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Features         []string                  `json:"features"`
	Columns          []string                  `json:"columns"`
	Trees            int                       `json:"trees,omitempty"`
	Depth            int                       `json:"depth,omitempty"`
	Neighbors        int                       `json:"imputer_neighbors,omitempty"`
	Weights          string                    `json:"imputer_weights,omitempty"`
	PositiveClass    int                       `json:"positive_class"`
	ExplainerEnabled bool                      `json:"explainer_enabled"`
	ModelAgeHours    float64                   `json:"model_age_hours,omitempty"`
	TrainingRanges   map[string]features.Range `json:"training_ranges"`
	Drift            []FeatureDrift            `json:"drift,omitempty"`
}

type treeModel interface {
	TreeCount() int
	MaxDepth() int
}

type neighborImputer interface {
	Neighbors() int
	Weights() string
}

// Info reports what the pipeline was built from.
func (p *Pipeline) Info() ModelInfo {
	info := ModelInfo{
		Features:         features.Names(),
		Columns:          features.Columns(),
		PositiveClass:    p.positiveClass,
		ExplainerEnabled: p.explainer != nil,
		TrainingRanges:   features.RangeMap(),
	}
	if tm, ok := p.model.(treeModel); ok {
		info.Trees = tm.TreeCount()
		info.Depth = tm.MaxDepth()
	}
	if mt, ok := p.model.(modTimer); ok && !mt.ModTime().IsZero() {
		info.ModelAgeHours = time.Since(mt.ModTime()).Hours()
	}
	if p.drift != nil {
		info.Drift = p.drift.Status()
	}
	if ni, ok := p.imputer.(neighborImputer); ok {
		info.Neighbors = ni.Neighbors()
		info.Weights = ni.Weights()
	}
	return info
}
