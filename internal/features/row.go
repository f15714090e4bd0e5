package features

import (
	"math"

	"exoplanet-ai/internal/common"
)

// Row is the classifier input vector, one slot per Field. NaN marks a value
// that is not available and must be imputed.
type Row [NumFeatures]float64

// NewRow returns a row with every slot set to NaN.
func NewRow() Row {
	var r Row
	for i := range r {
		r[i] = math.NaN()
	}
	return r
}

// RowFromSlice checks the width of v and copies it into a Row.
func RowFromSlice(v []float64) (Row, error) {
	var r Row
	if len(v) != NumFeatures {
		return r, common.NewValidationError("feature row must have 16 columns")
	}
	copy(r[:], v)
	return r, nil
}

// Slice returns a copy of the row as a slice.
func (r Row) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, r[:])
	return out
}

// Missing lists the slots holding NaN.
func (r Row) Missing() []Field {
	var out []Field
	for i, v := range r {
		if math.IsNaN(v) {
			out = append(out, Field(i))
		}
	}
	return out
}

// Get returns the value in the slot of f.
func (r Row) Get(f Field) float64 { return r[f] }
