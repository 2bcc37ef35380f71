package features

import (
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

const (
	// KindRenamer identifies Renamer in serialized chains.
	KindRenamer = "renamer"
	// KindDropper identifies Dropper in serialized chains.
	KindDropper = "dropper"
)

// Renamer renames columns and casts selected columns to integers. Columns
// that are not present are skipped.
type Renamer struct {
	Mapping    map[string]string `json:"mapping"`
	IntColumns []string          `json:"int_columns,omitempty"`
}

// NewRenamer returns a Renamer. intColumns name columns after renaming.
func NewRenamer(mapping map[string]string, intColumns ...string) *Renamer {
	return &Renamer{Mapping: mapping, IntColumns: intColumns}
}

// Kind implements Stage.
func (r *Renamer) Kind() string { return KindRenamer }

// Fit is a no-op.
func (r *Renamer) Fit(*table.Table) (Stage, error) { return r, nil }

// Transform implements Stage.
func (r *Renamer) Transform(t *table.Table) (*table.Table, error) {
	out, err := t.Renamed(r.Mapping)
	if err != nil {
		return nil, err
	}
	for _, name := range r.IntColumns {
		col, ok := out.Column(name)
		if !ok {
			continue
		}
		ints := make([]any, len(col))
		for i, v := range col {
			if table.IsNull(v) {
				continue
			}
			n, ok := table.ToInt64(v)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeData, "cannot cast %v to int", v).
					WithDetail("stage", KindRenamer).
					WithDetail("column", name).
					WithDetail("row", i)
			}
			ints[i] = n
		}
		if out, err = out.WithColumn(name, ints); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Dropper removes columns. Dropping an absent column is not an error.
type Dropper struct {
	Columns []string `json:"columns"`
}

// NewDropper returns a Dropper for columns.
func NewDropper(columns ...string) *Dropper {
	return &Dropper{Columns: columns}
}

// Kind implements Stage.
func (d *Dropper) Kind() string { return KindDropper }

// Fit is a no-op.
func (d *Dropper) Fit(*table.Table) (Stage, error) { return d, nil }

// Transform implements Stage.
func (d *Dropper) Transform(t *table.Table) (*table.Table, error) {
	return t.Without(d.Columns...), nil
}
