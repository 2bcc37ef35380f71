// Package features implements the fit/transform stages of the feature chain.
//
// Every stage follows one contract: Fit learns parameters from a table and
// returns a new fitted Stage, leaving the receiver untouched; Transform maps
// a table to a new table with the same row count and row order. Stateful
// stages return an ErrNotFitted error when transformed before fit.
package features

import (
	stderrors "errors"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// Stage is one step of the feature chain.
type Stage interface {
	// Kind identifies the stage type for serialization.
	Kind() string
	// Fit learns parameters from t and returns the fitted stage.
	Fit(t *table.Table) (Stage, error)
	// Transform applies the stage to t.
	Transform(t *table.Table) (*table.Table, error)
}

// ErrNotFitted is the cause of errors returned by Transform on a stage that
// has not been fitted.
var ErrNotFitted = stderrors.New("stage is not fitted")

// DegeneratePolicy decides what a scaler does with a constant column.
type DegeneratePolicy string

const (
	// DegenerateZero emits 0 for every non-null value of a constant column.
	DegenerateZero DegeneratePolicy = "zero"
	// DegenerateError fails Fit on a constant column.
	DegenerateError DegeneratePolicy = "error"
)

// UnknownPolicy decides what the one-hot encoder does with a category it did
// not see during fit.
type UnknownPolicy string

const (
	// UnknownError fails Transform.
	UnknownError UnknownPolicy = "error"
	// UnknownIgnore emits all-zero indicators for the row.
	UnknownIgnore UnknownPolicy = "ignore"
)

func notFitted(kind string) error {
	return errors.Wrap(ErrNotFitted, errors.ErrorTypeTransform, "transform called before fit").
		WithDetail("stage", kind)
}

// IsNotFitted reports whether err comes from an unfitted stage.
func IsNotFitted(err error) bool {
	return stderrors.Is(err, ErrNotFitted)
}

func missingColumn(kind, column string) error {
	return errors.New(errors.ErrorTypeData, "column not found").
		WithDetail("stage", kind).
		WithDetail("column", column)
}

// numericColumn reads a column as float64 with NaN for nulls.
func numericColumn(t *table.Table, kind, column string) ([]float64, error) {
	if !t.Has(column) {
		return nil, missingColumn(kind, column)
	}
	vals, err := t.Float64s(column)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "stage needs a numeric column").
			WithDetail("stage", kind).
			WithDetail("column", column)
	}
	return vals, nil
}

var registry = map[string]func() Stage{
	KindMapper:         func() Stage { return &Mapper{} },
	KindStandardScaler: func() Stage { return &StandardScaler{} },
	KindMinMaxScaler:   func() Stage { return &MinMaxScaler{} },
	KindOneHotEncoder:  func() Stage { return &OneHotEncoder{} },
	KindRenamer:        func() Stage { return &Renamer{} },
	KindDropper:        func() Stage { return &Dropper{} },
}

// Decode rebuilds a stage of the given kind from its JSON state.
func Decode(kind string, state []byte) (Stage, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, errors.New(errors.ErrorTypeData, "unknown stage kind").WithDetail("kind", kind)
	}
	s := factory()
	if err := json.Unmarshal(state, s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode stage state").WithDetail("kind", kind)
	}
	return s, nil
}
