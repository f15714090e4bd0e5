package ml

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"exoplanet-ai/internal/common"
	"exoplanet-ai/internal/features"

	"github.com/go-resty/resty/v2"
)

// RemoteExplainer asks an HTTP sidecar (for example a SHAP service running
// next to the original model) for attributions.
type RemoteExplainer struct {
	base string
	rest *resty.Client
}

type explainReq struct {
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

type explainResp struct {
	Values        []float64 `json:"values"`
	ExpectedValue float64   `json:"expected_value"`
	Error         string    `json:"error,omitempty"`
}

// NewRemoteExplainer creates a client for base, e.g. http://localhost:8500.
func NewRemoteExplainer(base string, timeout time.Duration) *RemoteExplainer {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	r.SetRetryCount(1)
	return &RemoteExplainer{base: strings.TrimRight(base, "/"), rest: r}
}

// Explain posts the imputed row to {base}/explain. The sidecar answers in
// log-odds of class 1.
func (r *RemoteExplainer) Explain(ctx context.Context, row []float64) (Attribution, error) {
	if len(row) != features.NumFeatures {
		return Attribution{}, common.InferenceError("explainer expects %d features, got %d", features.NumFeatures, len(row))
	}
	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Attribution{}, common.InferenceError("feature %s is not finite", features.Field(i).Name())
		}
	}

	resp := &explainResp{}
	res, err := r.rest.R().
		SetContext(ctx).
		SetBody(explainReq{Columns: features.Columns(), Features: row}).
		SetResult(resp).
		SetError(resp).
		Post(r.base + "/explain")
	if err != nil {
		return Attribution{}, fmt.Errorf("explainer request: %w", err)
	}
	if res.IsError() {
		return Attribution{}, common.InferenceError("explainer: %d %s", res.StatusCode(), resp.Error)
	}
	if len(resp.Values) != features.NumFeatures {
		return Attribution{}, common.InferenceError("explainer returned %d values, expected %d", len(resp.Values), features.NumFeatures)
	}

	return newAttribution(resp.ExpectedValue, resp.Values), nil
}
