package features

import (
	"exoplanet-ai/internal/common"

	"github.com/go-playground/validator/v10"
)

// Adapter converts Observations into Rows. It holds no mutable state and is
// safe for concurrent use.
type Adapter struct {
	validate *validator.Validate
}

// NewAdapter returns an adapter whose validation errors report request field
// names.
func NewAdapter() *Adapter {
	return &Adapter{validate: common.NewValidator()}
}

// Validate reports every required measurement missing from o.
func (a *Adapter) Validate(o Observation) error {
	return common.CheckStruct(a.validate, o, "missing required fields")
}

// Adapt validates o and copies its 16 measurements into a Row, unchanged.
func (a *Adapter) Adapt(o Observation) (Row, error) {
	if err := a.Validate(o); err != nil {
		return Row{}, err
	}
	row := NewRow()
	for i := range fieldTable {
		if v, ok := o.Value(Field(i)); ok {
			row[i] = v
		}
	}
	return row, nil
}

// AdaptValues builds a Row from named values, keyed either by request field
// or training column name. Unknown names are ignored and absent slots stay
// NaN for the imputer. Used for offline evaluation data.
func (a *Adapter) AdaptValues(values map[string]float64) Row {
	row := NewRow()
	for name, v := range values {
		if f, ok := Lookup(name); ok {
			row[f] = v
		}
	}
	return row
}
