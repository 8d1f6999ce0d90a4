// Package dataset reads ordered, keyed row sets from a data source.
package dataset

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/cockroachdb/indexverify/dbtable"
)

// Row holds values aligned to the Columns of the Dataset it belongs to.
type Row struct {
	Values []any
}

// Key is the composite key of a row, in key column order.
type Key []any

func (k Key) Compare(o Key) (int, error) {
	if len(k) != len(o) {
		return 0, errors.AssertionFailedf("key length mismatch: %d vs %d", len(k), len(o))
	}
	for i := range k {
		c, err := datum.Compare(k[i], o[i])
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

func (k Key) Strings() []string {
	return datum.FormatAll(k)
}

func (k Key) String() string {
	return "(" + strings.Join(k.Strings(), ", ") + ")"
}

// Dataset is a set of rows from one table, ordered by KeyColumns.
type Dataset struct {
	Table      dbtable.Name
	Columns    []string
	KeyColumns []string
	Rows       []Row

	keyIdxs []int
}

// NewDataset returns an empty dataset. Column names are case-insensitive
// and stored in lower case.
func NewDataset(table dbtable.Name, columns []string, keyColumns []string) *Dataset {
	ds := &Dataset{
		Table:      table,
		Columns:    make([]string, len(columns)),
		KeyColumns: make([]string, len(keyColumns)),
	}
	for i, col := range columns {
		ds.Columns[i] = strings.ToLower(col)
	}
	for i, col := range keyColumns {
		ds.KeyColumns[i] = strings.ToLower(col)
	}
	return ds
}

// Append adds a row. The values must align with Columns.
func (ds *Dataset) Append(vals ...any) error {
	if len(vals) != len(ds.Columns) {
		return errors.AssertionFailedf(
			"row for %s has %d values, expected %d", ds.Table.SafeString(), len(vals), len(ds.Columns),
		)
	}
	ds.Rows = append(ds.Rows, Row{Values: vals})
	return nil
}

func (ds *Dataset) Len() int {
	return len(ds.Rows)
}

// ColumnIndex returns the position of col in Columns, or -1.
func (ds *Dataset) ColumnIndex(col string) int {
	col = strings.ToLower(col)
	for i, c := range ds.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Get returns the value of col in row i.
func (ds *Dataset) Get(i int, col string) (any, bool) {
	idx := ds.ColumnIndex(col)
	if idx < 0 {
		return nil, false
	}
	return ds.Rows[i].Values[idx], true
}

// KeyIdxs resolves the position of each key column in Columns.
func (ds *Dataset) KeyIdxs() ([]int, error) {
	if ds.keyIdxs != nil {
		return ds.keyIdxs, nil
	}
	if len(ds.KeyColumns) == 0 {
		return nil, errors.Newf("table %s has no key columns", ds.Table.SafeString())
	}
	idxs := make([]int, len(ds.KeyColumns))
	for i, col := range ds.KeyColumns {
		idxs[i] = ds.ColumnIndex(col)
		if idxs[i] < 0 {
			return nil, errors.Newf("key column %s missing from table %s", col, ds.Table.SafeString())
		}
	}
	ds.keyIdxs = idxs
	return idxs, nil
}

// KeyOf returns the key of row i. KeyIdxs must have succeeded.
func (ds *Dataset) KeyOf(i int) Key {
	idxs, _ := ds.KeyIdxs()
	k := make(Key, len(idxs))
	for j, idx := range idxs {
		k[j] = ds.Rows[i].Values[idx]
	}
	return k
}

// Filter restricts a read.
type Filter struct {
	// Bounds applies to the table's RangeColumn.
	Bounds dbtable.Bounds
	// Scope, if set, restricts the read to rows where Column = Value.
	Scope *Scope
}

type Scope struct {
	Column string
	Value  any
}

func (f Filter) String() string {
	var parts []string
	if f.Bounds.IsSet() {
		parts = append(parts, "range "+f.Bounds.String())
	}
	if f.Scope != nil {
		parts = append(parts, f.Scope.Column+" = "+datum.Format(f.Scope.Value))
	}
	if len(parts) == 0 {
		return "<all>"
	}
	return strings.Join(parts, ", ")
}

// Matches returns whether row i of ds passes the filter.
func (f Filter) Matches(spec dbtable.Spec, ds *Dataset, i int) (bool, error) {
	if f.Bounds.IsSet() {
		v, ok := ds.Get(i, spec.RangeColumn)
		if !ok {
			return false, errors.Newf("range column %q missing from table %s", spec.RangeColumn, ds.Table.SafeString())
		}
		if v == nil {
			return false, nil
		}
		if f.Bounds.Start != nil {
			if c, err := datum.Compare(v, *f.Bounds.Start); err != nil || c < 0 {
				return false, err
			}
		}
		if f.Bounds.End != nil {
			if c, err := datum.Compare(v, *f.Bounds.End); err != nil || c > 0 {
				return false, err
			}
		}
	}
	if f.Scope != nil {
		v, ok := ds.Get(i, f.Scope.Column)
		if !ok {
			return false, errors.Newf("scope column %q missing from table %s", f.Scope.Column, ds.Table.SafeString())
		}
		if !datum.Equal(v, f.Scope.Value) {
			return false, nil
		}
	}
	return true, nil
}
