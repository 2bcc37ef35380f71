package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

const (
	// KindStandardScaler identifies StandardScaler in serialized chains.
	KindStandardScaler = "standard_scaler"
	// KindMinMaxScaler identifies MinMaxScaler in serialized chains.
	KindMinMaxScaler = "minmax_scaler"
)

// StandardScaler centers columns on their mean and divides by the population
// standard deviation. Nulls are skipped when fitting and pass through.
type StandardScaler struct {
	Columns []string         `json:"columns"`
	Policy  DegeneratePolicy `json:"degenerate_policy"`
	Means   []float64        `json:"means,omitempty"`
	Stds    []float64        `json:"stds,omitempty"`
	Fitted  bool             `json:"fitted"`
}

// NewStandardScaler returns an unfitted scaler for columns.
func NewStandardScaler(policy DegeneratePolicy, columns ...string) *StandardScaler {
	return &StandardScaler{Columns: columns, Policy: policy}
}

// Kind implements Stage.
func (s *StandardScaler) Kind() string { return KindStandardScaler }

// Fit implements Stage.
func (s *StandardScaler) Fit(t *table.Table) (Stage, error) {
	fitted := &StandardScaler{
		Columns: append([]string(nil), s.Columns...),
		Policy:  s.Policy,
		Means:   make([]float64, len(s.Columns)),
		Stds:    make([]float64, len(s.Columns)),
		Fitted:  true,
	}
	for j, name := range s.Columns {
		vals, err := numericColumn(t, KindStandardScaler, name)
		if err != nil {
			return nil, err
		}
		present := nonNull(vals)
		if len(present) > 0 {
			fitted.Means[j], fitted.Stds[j] = stat.PopMeanStdDev(present, nil)
		}
		if fitted.Stds[j] == 0 && s.Policy == DegenerateError {
			return nil, degenerate(KindStandardScaler, name)
		}
	}
	return fitted, nil
}

// Transform implements Stage.
func (s *StandardScaler) Transform(t *table.Table) (*table.Table, error) {
	if !s.Fitted {
		return nil, notFitted(KindStandardScaler)
	}
	out := t
	for j, name := range s.Columns {
		vals, err := numericColumn(t, KindStandardScaler, name)
		if err != nil {
			return nil, err
		}
		mean, std := s.Means[j], s.Stds[j]
		scaled := mapNonNull(vals, func(v float64) float64 {
			if std == 0 {
				return 0
			}
			return (v - mean) / std
		})
		if out, err = out.WithColumn(name, scaled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MinMaxScaler maps columns linearly so the fitted minimum becomes 0 and the
// fitted maximum becomes 1. Values outside the fitted range are not clamped.
type MinMaxScaler struct {
	Columns []string         `json:"columns"`
	Policy  DegeneratePolicy `json:"degenerate_policy"`
	Mins    []float64        `json:"mins,omitempty"`
	Maxs    []float64        `json:"maxs,omitempty"`
	Fitted  bool             `json:"fitted"`
}

// NewMinMaxScaler returns an unfitted scaler for columns.
func NewMinMaxScaler(policy DegeneratePolicy, columns ...string) *MinMaxScaler {
	return &MinMaxScaler{Columns: columns, Policy: policy}
}

// Kind implements Stage.
func (s *MinMaxScaler) Kind() string { return KindMinMaxScaler }

// Fit implements Stage.
func (s *MinMaxScaler) Fit(t *table.Table) (Stage, error) {
	fitted := &MinMaxScaler{
		Columns: append([]string(nil), s.Columns...),
		Policy:  s.Policy,
		Mins:    make([]float64, len(s.Columns)),
		Maxs:    make([]float64, len(s.Columns)),
		Fitted:  true,
	}
	for j, name := range s.Columns {
		vals, err := numericColumn(t, KindMinMaxScaler, name)
		if err != nil {
			return nil, err
		}
		present := nonNull(vals)
		if len(present) > 0 {
			fitted.Mins[j], fitted.Maxs[j] = floats.Min(present), floats.Max(present)
		}
		if fitted.Maxs[j] == fitted.Mins[j] && s.Policy == DegenerateError {
			return nil, degenerate(KindMinMaxScaler, name)
		}
	}
	return fitted, nil
}

// Transform implements Stage.
func (s *MinMaxScaler) Transform(t *table.Table) (*table.Table, error) {
	if !s.Fitted {
		return nil, notFitted(KindMinMaxScaler)
	}
	out := t
	for j, name := range s.Columns {
		vals, err := numericColumn(t, KindMinMaxScaler, name)
		if err != nil {
			return nil, err
		}
		lo, span := s.Mins[j], s.Maxs[j]-s.Mins[j]
		scaled := mapNonNull(vals, func(v float64) float64 {
			if span == 0 {
				return 0
			}
			return (v - lo) / span
		})
		if out, err = out.WithColumn(name, scaled); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func degenerate(kind, column string) error {
	return errors.New(errors.ErrorTypeTransform, "column has zero variance").
		WithDetail("stage", kind).
		WithDetail("column", column)
}

func nonNull(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// mapNonNull applies fn to every non-null value; nulls stay nil.
func mapNonNull(vals []float64, fn func(float64) float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		out[i] = fn(v)
	}
	return out
}
