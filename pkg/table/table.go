// Package table provides the Record and Table value types the feature chain
// operates on.
//
// A Table is column-major and immutable: every operation returns a new Table
// and never writes into a column slice it did not allocate. Column slices are
// shared read-only between Table values.
package table

import (
	"fmt"
	"math"
	"sort"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// Record is one row keyed by field name. A nil value is the null sentinel.
type Record map[string]any

// Table is an ordered set of equally long columns.
type Table struct {
	names []string
	cols  map[string][]any
	rows  int
}

// New builds a table from columns given in order. All columns must have the
// same length.
func New(names []string, columns [][]any) (*Table, error) {
	if len(names) != len(columns) {
		return nil, errors.Newf(errors.ErrorTypeData, "got %d names for %d columns", len(names), len(columns))
	}
	t := &Table{names: make([]string, 0, len(names)), cols: make(map[string][]any, len(names))}
	for i, name := range names {
		if _, dup := t.cols[name]; dup {
			return nil, errors.New(errors.ErrorTypeData, "duplicate column").WithDetail("column", name)
		}
		if i == 0 {
			t.rows = len(columns[i])
		} else if len(columns[i]) != t.rows {
			return nil, errors.New(errors.ErrorTypeData, "column length mismatch").
				WithDetail("column", name).
				WithDetail("rows", len(columns[i])).
				WithDetail("expected", t.rows)
		}
		t.names = append(t.names, name)
		t.cols[name] = columns[i]
	}
	return t, nil
}

// Empty returns a table with rows rows and no columns.
func Empty(rows int) *Table {
	return &Table{cols: map[string][]any{}, rows: rows}
}

// FromRecords builds a table with the given column order. Fields missing
// from a record become nil; fields not listed in columns are dropped.
func FromRecords(columns []string, records []Record) *Table {
	t := &Table{names: make([]string, 0, len(columns)), cols: make(map[string][]any, len(columns)), rows: len(records)}
	for _, name := range columns {
		if _, dup := t.cols[name]; dup {
			continue
		}
		col := make([]any, len(records))
		for i, rec := range records {
			col[i] = rec[name]
		}
		t.names = append(t.names, name)
		t.cols[name] = col
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Len returns the row count.
func (t *Table) Len() int { return t.rows }

// Width returns the column count.
func (t *Table) Width() int { return len(t.names) }

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of a column. The slice must not be modified.
func (t *Table) Column(name string) ([]any, bool) {
	col, ok := t.cols[name]
	return col, ok
}

// Value returns a single cell, nil when the column is absent.
func (t *Table) Value(row int, name string) any {
	col, ok := t.cols[name]
	if !ok || row < 0 || row >= t.rows {
		return nil
	}
	return col[row]
}

func (t *Table) clone() *Table {
	c := &Table{names: make([]string, len(t.names)), cols: make(map[string][]any, len(t.cols)), rows: t.rows}
	copy(c.names, t.names)
	for k, v := range t.cols {
		c.cols[k] = v
	}
	return c
}

// WithColumn replaces an existing column in place or appends a new one.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if len(values) != t.rows {
		return nil, errors.New(errors.ErrorTypeData, "column length mismatch").
			WithDetail("column", name).
			WithDetail("rows", len(values)).
			WithDetail("expected", t.rows)
	}
	c := t.clone()
	if _, ok := c.cols[name]; !ok {
		c.names = append(c.names, name)
	}
	c.cols[name] = values
	return c, nil
}

// Without removes the named columns; absent names are ignored.
func (t *Table) Without(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	c := &Table{names: make([]string, 0, len(t.names)), cols: make(map[string][]any, len(t.cols)), rows: t.rows}
	for _, n := range t.names {
		if _, ok := drop[n]; ok {
			continue
		}
		c.names = append(c.names, n)
		c.cols[n] = t.cols[n]
	}
	return c
}

// Renamed renames columns per mapping, keeping positions. Mappings for
// absent columns are ignored; a rename onto an existing column is an error.
func (t *Table) Renamed(mapping map[string]string) (*Table, error) {
	c := &Table{names: make([]string, len(t.names)), cols: make(map[string][]any, len(t.cols)), rows: t.rows}
	for i, n := range t.names {
		target := n
		if to, ok := mapping[n]; ok {
			target = to
		}
		if _, dup := c.cols[target]; dup {
			return nil, errors.New(errors.ErrorTypeData, "rename collides with an existing column").
				WithDetail("column", n).
				WithDetail("target", target)
		}
		c.names[i] = target
		c.cols[target] = t.cols[n]
	}
	return c, nil
}

// Select reindexes the table to exactly the given columns in that order.
// Columns that do not exist are filled with nil.
func (t *Table) Select(names ...string) *Table {
	c := &Table{names: make([]string, 0, len(names)), cols: make(map[string][]any, len(names)), rows: t.rows}
	for _, n := range names {
		if _, dup := c.cols[n]; dup {
			continue
		}
		col, ok := t.cols[n]
		if !ok {
			col = make([]any, t.rows)
		}
		c.names = append(c.names, n)
		c.cols[n] = col
	}
	return c
}

// Take returns the rows at the given indices, in that order.
func (t *Table) Take(indices []int) (*Table, error) {
	c := &Table{names: make([]string, len(t.names)), cols: make(map[string][]any, len(t.cols)), rows: len(indices)}
	copy(c.names, t.names)
	for _, idx := range indices {
		if idx < 0 || idx >= t.rows {
			return nil, errors.New(errors.ErrorTypeData, "row index out of range").
				WithDetail("index", idx).
				WithDetail("rows", t.rows)
		}
	}
	for _, n := range t.names {
		src := t.cols[n]
		dst := make([]any, len(indices))
		for i, idx := range indices {
			dst[i] = src[idx]
		}
		c.cols[n] = dst
	}
	return c, nil
}

// Float64s returns a numeric view of a column. nil becomes NaN; values that
// are not numeric are an ErrorTypeData error naming the column and row.
func (t *Table) Float64s(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, errors.New(errors.ErrorTypeData, "column not found").WithDetail("column", name)
	}
	out := make([]float64, len(col))
	for i, v := range col {
		f, ok := ToFloat64(v)
		if !ok {
			return nil, errors.Newf(errors.ErrorTypeData, "non-numeric value %v", v).
				WithDetail("column", name).
				WithDetail("row", i)
		}
		out[i] = f
	}
	return out, nil
}

// Matrix returns the row-major numeric matrix for the given columns.
func (t *Table) Matrix(names ...string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, n := range names {
		c, err := t.Float64s(n)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	out := make([][]float64, t.rows)
	for i := range out {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		out[i] = row
	}
	return out, nil
}

// Records converts the table back to row records.
func (t *Table) Records() []Record {
	out := make([]Record, t.rows)
	for i := range out {
		rec := make(Record, len(t.names))
		for _, n := range t.names {
			rec[n] = t.cols[n][i]
		}
		out[i] = rec
	}
	return out
}

// String renders a short description for logs.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%d rows x %d cols %v)", t.rows, len(t.names), t.names)
}

// Distinct returns the distinct non-nil values of a column, ordered by their
// string form.
func (t *Table) Distinct(name string) []any {
	col := t.cols[name]
	seen := make(map[string]any)
	for _, v := range col {
		if IsNull(v) {
			continue
		}
		key := Key(v)
		if _, ok := seen[key]; !ok {
			seen[key] = v
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = seen[k]
	}
	return out
}

// IsNull reports whether v is the null sentinel or a NaN float.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}
