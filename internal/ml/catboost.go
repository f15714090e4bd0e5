package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"exoplanet-ai/internal/common"

	"github.com/rs/zerolog/log"
)

// nanTreatment controls which side of a split a NaN value falls on.
type nanTreatment int

const (
	nanAsFalse nanTreatment = iota // Min handling, NaN is below every border
	nanAsTrue                      // Max handling, NaN is above every border
)

type split struct {
	feature int // flat feature index
	border  float64
}

type obliviousTree struct {
	splits      []split
	leafValues  []float64
	leafWeights []float64
}

// depth is the number of splits; the tree has 1<<depth leaves.
func (t *obliviousTree) depth() int { return len(t.splits) }

// leafIndex follows the CatBoost convention: split i sets bit i.
func (t *obliviousTree) leafIndex(row []float64, nan []nanTreatment) int {
	idx := 0
	for i, s := range t.splits {
		if goesRight(row[s.feature], s.border, nan[s.feature]) {
			idx |= 1 << i
		}
	}
	return idx
}

func goesRight(v, border float64, nan nanTreatment) bool {
	if math.IsNaN(v) {
		return nan == nanAsTrue
	}
	return v > border
}

// Classifier is a binary CatBoost oblivious-tree ensemble.
type Classifier struct {
	path     string
	trees    []obliviousTree
	scale    float64
	bias     float64
	columns  []string
	nan      []nanTreatment
	loadedAt time.Time
	modTime  time.Time
}

// catboostModel mirrors the fields of CatBoost's JSON export we depend on.
type catboostModel struct {
	FeaturesInfo struct {
		FloatFeatures []struct {
			FeatureIndex      int       `json:"feature_index"`
			FlatFeatureIndex  int       `json:"flat_feature_index"`
			FeatureID         string    `json:"feature_id"`
			Borders           []float64 `json:"borders"`
			NanValueTreatment string    `json:"nan_value_treatment"`
		} `json:"float_features"`
		CategoricalFeatures []json.RawMessage `json:"categorical_features"`
	} `json:"features_info"`
	ObliviousTrees []struct {
		LeafValues  []float64 `json:"leaf_values"`
		LeafWeights []float64 `json:"leaf_weights"`
		Splits      []struct {
			Border            float64 `json:"border"`
			FloatFeatureIndex int     `json:"float_feature_index"`
			SplitType         string  `json:"split_type"`
		} `json:"splits"`
	} `json:"oblivious_trees"`
	ScaleAndBias []json.RawMessage `json:"scale_and_bias"`
}

// LoadClassifier reads a model saved with
// model.save_model(path, format="json").
func LoadClassifier(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ArtifactError(path, err)
	}

	c, err := decodeClassifier(data)
	if err != nil {
		return nil, common.ArtifactError(path, err)
	}
	c.path = path
	if info, err := os.Stat(path); err == nil {
		c.modTime = info.ModTime()
	}

	log.Info().
		Str("model_path", path).
		Int("trees", len(c.trees)).
		Int("features", c.FeatureCount()).
		Float64("bias", c.bias).
		Msg("CatBoost model loaded")

	return c, nil
}

func decodeClassifier(data []byte) (*Classifier, error) {
	var raw catboostModel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return newClassifier(raw)
}

func newClassifier(raw catboostModel) (*Classifier, error) {
	if len(raw.FeaturesInfo.CategoricalFeatures) > 0 {
		return nil, fmt.Errorf("categorical features are not supported")
	}
	floats := raw.FeaturesInfo.FloatFeatures
	if len(floats) == 0 {
		return nil, fmt.Errorf("model has no float features")
	}
	if len(raw.ObliviousTrees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}

	width := 0
	for _, ff := range floats {
		if ff.FlatFeatureIndex+1 > width {
			width = ff.FlatFeatureIndex + 1
		}
	}

	c := &Classifier{
		scale:    1,
		columns:  make([]string, width),
		nan:      make([]nanTreatment, width),
		loadedAt: time.Now(),
	}

	// float_feature_index in splits refers to the position in float_features
	flat := make(map[int]int, len(floats))
	for _, ff := range floats {
		flat[ff.FeatureIndex] = ff.FlatFeatureIndex
		c.columns[ff.FlatFeatureIndex] = ff.FeatureID
		switch ff.NanValueTreatment {
		case "", "AsIs", "AsFalse":
			c.nan[ff.FlatFeatureIndex] = nanAsFalse
		case "AsTrue":
			c.nan[ff.FlatFeatureIndex] = nanAsTrue
		default:
			return nil, fmt.Errorf("feature %d: unknown nan treatment %q", ff.FlatFeatureIndex, ff.NanValueTreatment)
		}
	}

	c.trees = make([]obliviousTree, len(raw.ObliviousTrees))
	for i, rt := range raw.ObliviousTrees {
		tree := obliviousTree{
			splits:      make([]split, len(rt.Splits)),
			leafValues:  rt.LeafValues,
			leafWeights: rt.LeafWeights,
		}
		for j, rs := range rt.Splits {
			if rs.SplitType != "" && rs.SplitType != "FloatFeature" {
				return nil, fmt.Errorf("tree %d: unsupported split type %q", i, rs.SplitType)
			}
			f, ok := flat[rs.FloatFeatureIndex]
			if !ok {
				return nil, fmt.Errorf("tree %d: split on unknown feature %d", i, rs.FloatFeatureIndex)
			}
			tree.splits[j] = split{feature: f, border: rs.Border}
		}
		leaves := 1 << tree.depth()
		if len(tree.leafValues) != leaves {
			return nil, fmt.Errorf("tree %d: expected %d leaf values, got %d (multiclass models are not supported)",
				i, leaves, len(tree.leafValues))
		}
		if len(tree.leafWeights) != 0 && len(tree.leafWeights) != leaves {
			return nil, fmt.Errorf("tree %d: expected %d leaf weights, got %d", i, leaves, len(tree.leafWeights))
		}
		c.trees[i] = tree
	}

	if err := c.parseScaleAndBias(raw.ScaleAndBias); err != nil {
		return nil, err
	}

	return c, nil
}

// parseScaleAndBias accepts both [scale, bias] and [scale, [bias]].
func (c *Classifier) parseScaleAndBias(sb []json.RawMessage) error {
	if len(sb) == 0 {
		return nil
	}
	if err := json.Unmarshal(sb[0], &c.scale); err != nil {
		return fmt.Errorf("decode scale: %w", err)
	}
	if len(sb) < 2 {
		return nil
	}
	var biases []float64
	if err := json.Unmarshal(sb[1], &biases); err == nil {
		switch len(biases) {
		case 0:
			c.bias = 0
		case 1:
			c.bias = biases[0]
		default:
			return fmt.Errorf("expected a single bias, got %d", len(biases))
		}
		return nil
	}
	if err := json.Unmarshal(sb[1], &c.bias); err != nil {
		return fmt.Errorf("decode bias: %w", err)
	}
	return nil
}

// FeatureCount returns the number of input columns.
func (c *Classifier) FeatureCount() int { return len(c.columns) }

// Columns returns the training column names recorded in the model. Entries
// are empty when the model was saved without feature names.
func (c *Classifier) Columns() []string {
	out := make([]string, len(c.columns))
	copy(out, c.columns)
	return out
}

// TreeCount returns the number of trees in the ensemble.
func (c *Classifier) TreeCount() int { return len(c.trees) }

// MaxDepth returns the depth of the deepest tree.
func (c *Classifier) MaxDepth() int {
	d := 0
	for i := range c.trees {
		if c.trees[i].depth() > d {
			d = c.trees[i].depth()
		}
	}
	return d
}

// HasLeafWeights reports whether every tree carries leaf weights, which the
// tree explainer needs.
func (c *Classifier) HasLeafWeights() bool {
	for i := range c.trees {
		if len(c.trees[i].leafWeights) == 0 {
			return false
		}
	}
	return true
}

// ModTime returns the modification time of the model file.
func (c *Classifier) ModTime() time.Time { return c.modTime }

// Path returns the file the model was loaded from.
func (c *Classifier) Path() string { return c.path }

// Margin returns scale * sum(leaf values) + bias.
func (c *Classifier) Margin(row []float64) (float64, error) {
	if len(row) != len(c.columns) {
		return 0, common.InferenceError("model expects %d features, got %d", len(c.columns), len(row))
	}
	sum := 0.0
	for i := range c.trees {
		t := &c.trees[i]
		sum += t.leafValues[t.leafIndex(row, c.nan)]
	}
	return c.scale*sum + c.bias, nil
}

// sigmoid converts a score to a probability
func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
