package dataset

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbtable"
)

// QueryError is returned when a data source rejects a read, e.g. because
// the table or one of its columns does not exist.
type QueryError struct {
	Table dbtable.Name
	Cause error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("error querying %s: %v", e.Table.SafeString(), e.Cause)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

func IsQueryError(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}

// PrecomparisonError is returned when a dataset violates the input
// contract of a merge join: keys must be present, non-NULL, comparable and
// strictly increasing. Comparing such a dataset would produce wrong
// findings, so the run stops.
type PrecomparisonError struct {
	Table  dbtable.Name
	Side   string
	Reason string
}

func (e *PrecomparisonError) Error() string {
	if e.Side != "" {
		return fmt.Sprintf("cannot compare %s on %s side: %s", e.Table.SafeString(), e.Side, e.Reason)
	}
	return fmt.Sprintf("cannot compare %s: %s", e.Table.SafeString(), e.Reason)
}

func IsPrecomparisonError(err error) bool {
	var pe *PrecomparisonError
	return errors.As(err, &pe)
}

// CheckOrdered verifies ds is strictly increasing by key with no NULL keys.
func CheckOrdered(ds *Dataset) error {
	fail := func(format string, args ...any) error {
		return &PrecomparisonError{Table: ds.Table, Reason: fmt.Sprintf(format, args...)}
	}
	idxs, err := ds.KeyIdxs()
	if err != nil {
		return fail("%v", err)
	}
	var prev Key
	for i := range ds.Rows {
		if len(ds.Rows[i].Values) != len(ds.Columns) {
			return fail("row %d has %d values, expected %d", i, len(ds.Rows[i].Values), len(ds.Columns))
		}
		k := ds.KeyOf(i)
		for j, v := range k {
			if v == nil {
				return fail("row %d has NULL key column %s", i, ds.Columns[idxs[j]])
			}
		}
		if prev != nil {
			c, err := k.Compare(prev)
			if err != nil {
				return fail("row %d key %s cannot be ordered: %v", i, k, err)
			}
			switch {
			case c == 0:
				return fail("duplicate key %s at row %d", k, i)
			case c < 0:
				return fail("key %s at row %d sorts before previous key %s", k, i, prev)
			}
		}
		prev = k
	}
	return nil
}
