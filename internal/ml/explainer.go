package ml

import (
	"context"
	"fmt"
	"math/bits"

	"exoplanet-ai/internal/features"
)

// maxExplainDepth bounds the subset enumeration done per tree.
const maxExplainDepth = 10

// FeatureAttribution is the contribution of one input to the margin.
type FeatureAttribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Attribution holds per-feature contributions in log-odds of the positive
// class. The values plus ExpectedValue add up to the model margin.
type Attribution struct {
	ExpectedValue float64              `json:"expected_value"`
	Values        []FeatureAttribution `json:"values"`
}

// Empty reports whether no attribution was computed.
func (a Attribution) Empty() bool { return len(a.Values) == 0 }

// Sum returns the total contribution of all features.
func (a Attribution) Sum() float64 {
	s := 0.0
	for _, v := range a.Values {
		s += v.Value
	}
	return s
}

// Value looks up the contribution of a single feature by name.
func (a Attribution) Value(feature string) (float64, bool) {
	for _, v := range a.Values {
		if v.Feature == feature {
			return v.Value, true
		}
	}
	return 0, false
}

// negate flips the sign so contributions refer to the other class.
func (a Attribution) negate() Attribution {
	out := Attribution{
		ExpectedValue: -a.ExpectedValue,
		Values:        make([]FeatureAttribution, len(a.Values)),
	}
	for i, v := range a.Values {
		out.Values[i] = FeatureAttribution{Feature: v.Feature, Value: -v.Value}
	}
	return out
}

func newAttribution(expected float64, values []float64) Attribution {
	names := features.Names()
	a := Attribution{
		ExpectedValue: expected,
		Values:        make([]FeatureAttribution, len(values)),
	}
	for i, v := range values {
		a.Values[i] = FeatureAttribution{Feature: names[i], Value: v}
	}
	return a
}

// treeShap caches what the explainer needs per tree.
type treeShap struct {
	tree     *obliviousTree
	nan      []nanTreatment
	covers   [][]float64 // covers[level][prefix]
	unique   []int       // distinct split features
	weights  []float64   // Shapley weight by subset size
	expected float64     // v(empty set)
}

// TreeExplainer computes exact path-dependent Shapley values for the
// classifier's oblivious trees, using leaf weights as node covers.
type TreeExplainer struct {
	model    *Classifier
	trees    []treeShap
	expected float64
}

// NewTreeExplainer prepares an explainer. The model must have been saved
// with leaf weights.
func NewTreeExplainer(model *Classifier) (*TreeExplainer, error) {
	if model.FeatureCount() != features.NumFeatures {
		return nil, fmt.Errorf("explainer needs %d features, model has %d", features.NumFeatures, model.FeatureCount())
	}
	if !model.HasLeafWeights() {
		return nil, fmt.Errorf("model has no leaf weights")
	}
	if d := model.MaxDepth(); d > maxExplainDepth {
		return nil, fmt.Errorf("tree depth %d exceeds %d", d, maxExplainDepth)
	}

	e := &TreeExplainer{
		model: model,
		trees: make([]treeShap, len(model.trees)),
	}
	sum := 0.0
	for i := range model.trees {
		ts := prepareTree(&model.trees[i], model.nan)
		e.trees[i] = ts
		sum += ts.expected
	}
	e.expected = model.scale*sum + model.bias
	return e, nil
}

func prepareTree(t *obliviousTree, nan []nanTreatment) treeShap {
	d := t.depth()
	covers := make([][]float64, d+1)
	covers[d] = t.leafWeights
	for k := d - 1; k >= 0; k-- {
		covers[k] = make([]float64, 1<<k)
		for p := range covers[k] {
			covers[k][p] = covers[k+1][p] + covers[k+1][p|1<<k]
		}
	}

	seen := make(map[int]bool, d)
	var unique []int
	for _, s := range t.splits {
		if !seen[s.feature] {
			seen[s.feature] = true
			unique = append(unique, s.feature)
		}
	}

	ts := treeShap{
		tree:    t,
		nan:     nan,
		covers:  covers,
		unique:  unique,
		weights: shapleyWeights(len(unique)),
	}
	ts.expected = ts.value(nil, nil, 0, 0)
	return ts
}

// shapleyWeights returns |S|!(m-|S|-1)!/m! for |S| = 0..m-1.
func shapleyWeights(m int) []float64 {
	if m == 0 {
		return nil
	}
	fact := make([]float64, m+1)
	fact[0] = 1
	for i := 1; i <= m; i++ {
		fact[i] = fact[i-1] * float64(i)
	}
	w := make([]float64, m)
	for s := 0; s < m; s++ {
		w[s] = fact[s] * fact[m-s-1] / fact[m]
	}
	return w
}

// value is the expected tree output when the features in known follow row and
// the rest are averaged by cover. Evaluation starts at level k, prefix p.
func (ts *treeShap) value(row []float64, known map[int]bool, k, p int) float64 {
	t := ts.tree
	if k == t.depth() {
		return t.leafValues[p]
	}
	s := t.splits[k]
	left, right := p, p|1<<k
	if known[s.feature] {
		if goesRight(row[s.feature], s.border, ts.nan[s.feature]) {
			return ts.value(row, known, k+1, right)
		}
		return ts.value(row, known, k+1, left)
	}
	cl, cr := ts.covers[k+1][left], ts.covers[k+1][right]
	vl, vr := ts.value(row, known, k+1, left), ts.value(row, known, k+1, right)
	if cl+cr == 0 {
		return (vl + vr) / 2
	}
	return (cl*vl + cr*vr) / (cl + cr)
}

// shap adds this tree's contributions into phi.
func (ts *treeShap) shap(row []float64, phi []float64, scale float64) {
	m := len(ts.unique)
	if m == 0 {
		return
	}

	values := make([]float64, 1<<m)
	known := make(map[int]bool, m)
	for mask := range values {
		for j, f := range ts.unique {
			known[f] = mask&(1<<j) != 0
		}
		values[mask] = ts.value(row, known, 0, 0)
	}

	for j, f := range ts.unique {
		bit := 1 << j
		contrib := 0.0
		for mask := range values {
			if mask&bit != 0 {
				continue
			}
			contrib += ts.weights[bits.OnesCount(uint(mask))] * (values[mask|bit] - values[mask])
		}
		phi[f] += scale * contrib
	}
}

// Explain returns attributions toward class 1 of the raw model.
func (e *TreeExplainer) Explain(ctx context.Context, row []float64) (Attribution, error) {
	if len(row) != e.model.FeatureCount() {
		return Attribution{}, fmt.Errorf("explainer expects %d features, got %d", e.model.FeatureCount(), len(row))
	}

	phi := make([]float64, len(row))
	for i := range e.trees {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return Attribution{}, err
			}
		}
		e.trees[i].shap(row, phi, e.model.scale)
	}

	return newAttribution(e.expected, phi), nil
}

// ExpectedValue returns the margin averaged over the training distribution.
func (e *TreeExplainer) ExpectedValue() float64 { return e.expected }
