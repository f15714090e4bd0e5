package ml

import (
	"time"

	"exoplanet-ai/internal/common"

	"github.com/rs/zerolog/log"
)

// LoadOptions locates the artifacts and selects the attribution backend.
type LoadOptions struct {
	ModelPath   string
	ImputerPath string

	// Explain enables attribution. With ExplainerURL set the remote
	// sidecar is used, otherwise the native tree explainer.
	Explain        bool
	ExplainerURL   string
	ExplainTimeout time.Duration

	Pipeline PipelineConfig
}

// LoadPipeline reads both artifacts from disk and assembles a pipeline.
// Any failure is an ErrArtifact: the caller should refuse to start.
func LoadPipeline(opts LoadOptions, metrics MetricsInterface) (*Pipeline, error) {
	model, err := LoadClassifier(opts.ModelPath)
	if err != nil {
		return nil, err
	}
	imputer, err := LoadImputer(opts.ImputerPath)
	if err != nil {
		return nil, err
	}

	var explainer Explainer
	switch {
	case !opts.Explain:
		log.Info().Msg("Attribution disabled")
	case opts.ExplainerURL != "":
		explainer = NewRemoteExplainer(opts.ExplainerURL, opts.ExplainTimeout)
		log.Info().Str("url", opts.ExplainerURL).Msg("Using remote explainer")
	default:
		tree, err := NewTreeExplainer(model)
		if err != nil {
			return nil, common.ArtifactError(opts.ModelPath, err)
		}
		explainer = tree
	}

	return NewPipeline(model, imputer, explainer, opts.Pipeline, metrics)
}
