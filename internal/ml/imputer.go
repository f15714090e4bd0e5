package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"exoplanet-ai/internal/common"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// Neighbor weighting schemes.
const (
	WeightsUniform  = "uniform"
	WeightsDistance = "distance"
)

// KNNImputer fills NaN slots from the nearest rows of its fit matrix,
// matching scikit-learn's KNNImputer with the nan_euclidean metric.
type KNNImputer struct {
	neighbors int
	weights   string
	columns   []string
	fit       [][]float64
	colMeans  []float64
}

type knnImputerFile struct {
	NNeighbors     int          `json:"n_neighbors"`
	Weights        string       `json:"weights"`
	FeatureNamesIn []string     `json:"feature_names_in"`
	FitX           [][]*float64 `json:"fit_x"`
}

// LoadImputer reads the JSON export of a fitted imputer produced by
// scripts/export_artifacts.py.
func LoadImputer(path string) (*KNNImputer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ArtifactError(path, err)
	}

	var raw knnImputerFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, common.ArtifactError(path, fmt.Errorf("decode imputer: %w", err))
	}

	imp, err := NewKNNImputer(raw.NNeighbors, raw.Weights, raw.FeatureNamesIn, decodeFit(raw.FitX))
	if err != nil {
		return nil, common.ArtifactError(path, err)
	}

	log.Info().
		Str("imputer_path", path).
		Int("neighbors", imp.neighbors).
		Str("weights", imp.weights).
		Int("fit_rows", len(imp.fit)).
		Msg("KNN imputer loaded")

	return imp, nil
}

// decodeFit maps JSON nulls, the export's encoding of NaN, back to NaN.
func decodeFit(raw [][]*float64) [][]float64 {
	fit := make([][]float64, len(raw))
	for i, r := range raw {
		fit[i] = make([]float64, len(r))
		for j, v := range r {
			if v == nil {
				fit[i][j] = math.NaN()
			} else {
				fit[i][j] = *v
			}
		}
	}
	return fit
}

// NewKNNImputer builds an imputer from an in-memory fit matrix.
func NewKNNImputer(neighbors int, weights string, columns []string, fit [][]float64) (*KNNImputer, error) {
	if neighbors <= 0 {
		return nil, fmt.Errorf("n_neighbors must be positive, got %d", neighbors)
	}
	if weights == "" {
		weights = WeightsUniform
	}
	if weights != WeightsUniform && weights != WeightsDistance {
		return nil, fmt.Errorf("unsupported weights %q", weights)
	}
	if len(fit) == 0 {
		return nil, fmt.Errorf("fit matrix is empty")
	}

	width := len(fit[0])
	if len(columns) != 0 && len(columns) != width {
		return nil, fmt.Errorf("feature_names_in has %d names for %d columns", len(columns), width)
	}
	for i, r := range fit {
		if len(r) != width {
			return nil, fmt.Errorf("fit row %d has %d values, expected %d", i, len(r), width)
		}
	}

	imp := &KNNImputer{
		neighbors: neighbors,
		weights:   weights,
		columns:   columns,
		fit:       fit,
		colMeans:  make([]float64, width),
	}

	for c := 0; c < width; c++ {
		sum, n := 0.0, 0
		for _, r := range fit {
			if !math.IsNaN(r[c]) {
				sum += r[c]
				n++
			}
		}
		if n == 0 {
			return nil, fmt.Errorf("fit column %d has no observed values", c)
		}
		imp.colMeans[c] = sum / float64(n)
	}

	return imp, nil
}

// FeatureCount returns the number of columns the imputer was fit on.
func (k *KNNImputer) FeatureCount() int { return len(k.colMeans) }

// ObservedColumns returns the non-NaN fit values of each column.
func (k *KNNImputer) ObservedColumns() [][]float64 {
	out := make([][]float64, len(k.colMeans))
	for _, r := range k.fit {
		for c, v := range r {
			if !math.IsNaN(v) {
				out[c] = append(out[c], v)
			}
		}
	}
	return out
}

// Columns returns the feature names seen at fit time, if recorded.
func (k *KNNImputer) Columns() []string {
	out := make([]string, len(k.columns))
	copy(out, k.columns)
	return out
}

// Neighbors returns k.
func (k *KNNImputer) Neighbors() int { return k.neighbors }

// Weights returns the weighting scheme.
func (k *KNNImputer) Weights() string { return k.weights }

// Transform returns a copy of row with every NaN replaced. Rows without NaN
// come back unchanged.
func (k *KNNImputer) Transform(row []float64) ([]float64, error) {
	if len(row) != len(k.colMeans) {
		return nil, common.InferenceError("imputer expects %d features, got %d", len(k.colMeans), len(row))
	}

	out := make([]float64, len(row))
	copy(out, row)

	var dist []float64
	for c, v := range row {
		if !math.IsNaN(v) {
			continue
		}
		if dist == nil {
			dist = make([]float64, len(k.fit))
			for i, f := range k.fit {
				dist[i] = nanEuclidean(row, f)
			}
		}
		out[c] = k.imputeColumn(c, dist)
	}

	return out, nil
}

// imputeColumn averages column c over the nearest donors that observed it.
func (k *KNNImputer) imputeColumn(c int, dist []float64) float64 {
	donorDist := make([]float64, 0, len(k.fit))
	donorVal := make([]float64, 0, len(k.fit))
	for i, f := range k.fit {
		if math.IsNaN(f[c]) || math.IsNaN(dist[i]) {
			continue
		}
		donorDist = append(donorDist, dist[i])
		donorVal = append(donorVal, f[c])
	}
	if len(donorDist) == 0 {
		return k.colMeans[c]
	}

	idx := make([]int, len(donorDist))
	for i := range idx {
		idx[i] = i
	}
	floats.Argsort(donorDist, idx)

	n := k.neighbors
	if n > len(idx) {
		n = len(idx)
	}
	nearest := donorDist[:n]
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = donorVal[idx[i]]
	}

	if k.weights == WeightsUniform {
		return floats.Sum(values) / float64(n)
	}
	return weightedMean(values, nearest)
}

// weightedMean applies inverse-distance weights. Exact matches take all the
// weight when present.
func weightedMean(values, dist []float64) float64 {
	w := make([]float64, len(dist))
	exact := false
	for _, d := range dist {
		if d == 0 {
			exact = true
			break
		}
	}
	for i, d := range dist {
		switch {
		case exact && d == 0:
			w[i] = 1
		case exact:
			w[i] = 0
		default:
			w[i] = 1 / d
		}
	}
	return floats.Dot(values, w) / floats.Sum(w)
}

// nanEuclidean is the distance over coordinates present in both rows, scaled
// up by the fraction of coordinates used. It is NaN when nothing overlaps.
func nanEuclidean(a, b []float64) float64 {
	sum := 0.0
	present := 0
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		d := a[i] - b[i]
		sum += d * d
		present++
	}
	if present == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(len(a)) / float64(present) * sum)
}
