package dataset

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbtable"
)

// MemReader serves datasets held in memory. Rows are sorted by key on
// Read unless the table was loaded with PreserveOrder, which lets callers
// exercise the precondition checks of a comparison.
type MemReader struct {
	mu struct {
		sync.Mutex
		tables   map[string]*memTable
		failures map[string]error
		reads    int
	}
}

type memTable struct {
	columns       []string
	rows          [][]any
	preserveOrder bool
}

var _ Reader = (*MemReader)(nil)

func NewMemReader() *MemReader {
	r := &MemReader{}
	r.mu.tables = make(map[string]*memTable)
	r.mu.failures = make(map[string]error)
	return r
}

func memKey(name dbtable.Name) string {
	return strings.ToLower(name.Table)
}

// Load registers the rows of a table, replacing any earlier contents.
func (r *MemReader) Load(name dbtable.Name, columns []string, rows ...[]any) *MemReader {
	r.mu.Lock()
	defer r.mu.Unlock()
	lowered := make([]string, len(columns))
	for i, col := range columns {
		lowered[i] = strings.ToLower(col)
	}
	r.mu.tables[memKey(name)] = &memTable{columns: lowered, rows: rows}
	return r
}

// PreserveOrder serves the rows of a table in the order they were loaded.
func (r *MemReader) PreserveOrder(name dbtable.Name) *MemReader {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.mu.tables[memKey(name)]; ok {
		t.preserveOrder = true
	}
	return r
}

// FailWith makes every read of the table return err.
func (r *MemReader) FailWith(name dbtable.Name, err error) *MemReader {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.failures[memKey(name)] = err
	return r
}

// Reads returns the number of Read calls served.
func (r *MemReader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mu.reads
}

func (r *MemReader) Read(ctx context.Context, spec dbtable.Spec, filter Filter) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mu.reads++

	if err, ok := r.mu.failures[memKey(spec.Name)]; ok {
		return nil, err
	}
	t, ok := r.mu.tables[memKey(spec.Name)]
	if !ok {
		return nil, &QueryError{
			Table: spec.Name,
			Cause: errors.Newf("relation %q does not exist", spec.Table),
		}
	}

	cols := t.columns
	var colIdxs []int
	if spec.Columns != nil {
		cols = make([]string, len(spec.Columns))
		colIdxs = make([]int, len(spec.Columns))
		for i, col := range spec.Columns {
			cols[i] = strings.ToLower(col)
			colIdxs[i] = -1
			for j, c := range t.columns {
				if c == cols[i] {
					colIdxs[i] = j
				}
			}
			if colIdxs[i] < 0 {
				return nil, &QueryError{
					Table: spec.Name,
					Cause: errors.Newf("column %q does not exist", col),
				}
			}
		}
	}

	full := NewDataset(spec.Name, t.columns, spec.KeyColumns)
	for _, row := range t.rows {
		if err := full.Append(row...); err != nil {
			return nil, err
		}
	}
	ds := NewDataset(spec.Name, cols, spec.KeyColumns)
	for i, row := range full.Rows {
		ok, err := filter.Matches(spec, full, i)
		if err != nil {
			return nil, &QueryError{Table: spec.Name, Cause: err}
		}
		if !ok {
			continue
		}
		vals := row.Values
		if colIdxs != nil {
			vals = make([]any, len(colIdxs))
			for j, idx := range colIdxs {
				vals[j] = row.Values[idx]
			}
		}
		ds.Rows = append(ds.Rows, Row{Values: vals})
	}
	if !t.preserveOrder {
		sortDataset(ds)
	}
	return ds, nil
}

// sortDataset orders rows by key. Keys which cannot be ordered are left
// where they are for CheckOrdered to reject.
func sortDataset(ds *Dataset) {
	if _, err := ds.KeyIdxs(); err != nil {
		return
	}
	sort.SliceStable(ds.Rows, func(i, j int) bool {
		c, err := ds.KeyOf(i).Compare(ds.KeyOf(j))
		return err == nil && c < 0
	})
}

func (r *MemReader) Clone(ctx context.Context) (Reader, error) {
	return r, nil
}

func (r *MemReader) Close(ctx context.Context) error {
	return nil
}
