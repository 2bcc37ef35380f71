package features

import (
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// KindMapper identifies Mapper in serialized chains.
const KindMapper = "mapper"

// Mapper replaces the string values of one column with integer codes.
// Values absent from the mapping, including nulls, become null.
type Mapper struct {
	Column  string           `json:"column"`
	Mapping map[string]int64 `json:"mapping"`
}

// NewMapper copies mapping into a new Mapper.
func NewMapper(column string, mapping map[string]int) *Mapper {
	m := make(map[string]int64, len(mapping))
	for k, v := range mapping {
		m[k] = int64(v)
	}
	return &Mapper{Column: column, Mapping: m}
}

// Kind implements Stage.
func (m *Mapper) Kind() string { return KindMapper }

// Fit is a no-op; the mapping is fixed at construction.
func (m *Mapper) Fit(*table.Table) (Stage, error) { return m, nil }

// Transform implements Stage.
func (m *Mapper) Transform(t *table.Table) (*table.Table, error) {
	col, ok := t.Column(m.Column)
	if !ok {
		return nil, missingColumn(KindMapper, m.Column)
	}
	out := make([]any, len(col))
	for i, v := range col {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if code, ok := m.Mapping[s]; ok {
			out[i] = code
		}
	}
	return t.WithColumn(m.Column, out)
}
