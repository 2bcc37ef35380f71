package features

import (
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// KindOneHotEncoder identifies OneHotEncoder in serialized chains.
const KindOneHotEncoder = "onehot_encoder"

// OneHotEncoder replaces categorical columns with 0/1 indicator columns named
// <column>_<category>. Categories are learned at fit and sorted.
type OneHotEncoder struct {
	Columns    []string            `json:"columns"`
	Policy     UnknownPolicy       `json:"unknown_policy"`
	Categories map[string][]string `json:"categories,omitempty"`
	Fitted     bool                `json:"fitted"`
}

// NewOneHotEncoder returns an unfitted encoder for columns.
func NewOneHotEncoder(policy UnknownPolicy, columns ...string) *OneHotEncoder {
	return &OneHotEncoder{Columns: columns, Policy: policy}
}

// Kind implements Stage.
func (e *OneHotEncoder) Kind() string { return KindOneHotEncoder }

// Fit implements Stage.
func (e *OneHotEncoder) Fit(t *table.Table) (Stage, error) {
	fitted := &OneHotEncoder{
		Columns:    append([]string(nil), e.Columns...),
		Policy:     e.Policy,
		Categories: make(map[string][]string, len(e.Columns)),
		Fitted:     true,
	}
	for _, name := range e.Columns {
		if !t.Has(name) {
			return nil, missingColumn(KindOneHotEncoder, name)
		}
		distinct := t.Distinct(name)
		cats := make([]string, len(distinct))
		for i, v := range distinct {
			cats[i] = table.Key(v)
		}
		fitted.Categories[name] = cats
	}
	return fitted, nil
}

// OutputColumns lists the indicator columns in emission order.
func (e *OneHotEncoder) OutputColumns() []string {
	var out []string
	for _, name := range e.Columns {
		for _, cat := range e.Categories[name] {
			out = append(out, indicatorName(name, cat))
		}
	}
	return out
}

// Transform implements Stage.
func (e *OneHotEncoder) Transform(t *table.Table) (*table.Table, error) {
	if !e.Fitted {
		return nil, notFitted(KindOneHotEncoder)
	}
	out := t
	for _, name := range e.Columns {
		col, ok := t.Column(name)
		if !ok {
			return nil, missingColumn(KindOneHotEncoder, name)
		}
		cats := e.Categories[name]
		index := make(map[string]int, len(cats))
		indicators := make([][]any, len(cats))
		for k, cat := range cats {
			index[cat] = k
			ind := make([]any, len(col))
			for i := range ind {
				ind[i] = 0.0
			}
			indicators[k] = ind
		}

		for i, v := range col {
			if table.IsNull(v) {
				continue
			}
			key := table.Key(v)
			k, known := index[key]
			if !known {
				if e.Policy == UnknownIgnore {
					continue
				}
				return nil, errors.New(errors.ErrorTypeTransform, "unknown category").
					WithDetail("stage", KindOneHotEncoder).
					WithDetail("column", name).
					WithDetail("category", key).
					WithDetail("row", i)
			}
			indicators[k][i] = 1.0
		}

		var err error
		for k, cat := range cats {
			if out, err = out.WithColumn(indicatorName(name, cat), indicators[k]); err != nil {
				return nil, err
			}
		}
	}
	return out.Without(e.Columns...), nil
}

func indicatorName(column, category string) string {
	return column + "_" + category
}
