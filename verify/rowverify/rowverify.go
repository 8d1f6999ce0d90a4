package rowverify

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dataset"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
)

// PrecomparisonError is returned when an input dataset is not strictly
// ordered by a comparable, non-NULL key.
type PrecomparisonError = dataset.PrecomparisonError

func IsPrecomparisonError(err error) bool {
	return dataset.IsPrecomparisonError(err)
}

// Stats describes the outcome of comparing two datasets.
type Stats struct {
	LeftRows          int
	RightRows         int
	KeyComparisons    int
	Matches           int
	MissingOnLeft     int
	MissingOnRight    int
	MismatchingRows   int
	MismatchingFields int
}

// Findings is the number of findings reported.
func (s Stats) Findings() int {
	return s.MissingOnLeft + s.MissingOnRight + s.MismatchingFields
}

func (s *Stats) Add(o Stats) {
	s.LeftRows += o.LeftRows
	s.RightRows += o.RightRows
	s.KeyComparisons += o.KeyComparisons
	s.Matches += o.Matches
	s.MissingOnLeft += o.MissingOnLeft
	s.MissingOnRight += o.MissingOnRight
	s.MismatchingRows += o.MismatchingRows
	s.MismatchingFields += o.MismatchingFields
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"left rows: %d, right rows: %d, success: %d, missing on left: %d, missing on right: %d, mismatching rows: %d, mismatching fields: %d",
		s.LeftRows,
		s.RightRows,
		s.Matches,
		s.MissingOnLeft,
		s.MissingOnRight,
		s.MismatchingRows,
		s.MismatchingFields,
	)
}

func checkInput(ds *dataset.Dataset, side inconsistency.Side) error {
	if err := dataset.CheckOrdered(ds); err != nil {
		var pe *PrecomparisonError
		if errors.As(err, &pe) {
			pe.Side = side.String()
		}
		return err
	}
	return nil
}

// CompareDatasets merge-joins two datasets ordered by the same key. Rows
// present on one side only are reported as missing rows; rows present on
// both sides are compared field by field. Events are delivered to evl in
// ascending key order. Each step of the join advances at least one side, so
// at most len(left)+len(right) key comparisons are made.
func CompareDatasets(
	left, right *dataset.Dataset, ignore dbtable.IgnoreSet, evl RowEventListener,
) (Stats, error) {
	var stats Stats
	if err := checkInput(left, inconsistency.Left); err != nil {
		return stats, err
	}
	if err := checkInput(right, inconsistency.Right); err != nil {
		return stats, err
	}
	if !sameColumns(left.KeyColumns, right.KeyColumns) {
		return stats, &PrecomparisonError{
			Table: left.Table,
			Reason: fmt.Sprintf(
				"key columns differ: (%s) vs (%s)",
				strings.Join(left.KeyColumns, ", "),
				strings.Join(right.KeyColumns, ", "),
			),
		}
	}
	stats.LeftRows = left.Len()
	stats.RightRows = right.Len()

	cmp := newRowComparator(left.Table, left.KeyColumns, ignore, left.Columns, right.Columns)
	missing := func(key dataset.Key, absentOn inconsistency.Side) {
		switch absentOn {
		case inconsistency.Left:
			stats.MissingOnLeft++
		case inconsistency.Right:
			stats.MissingOnRight++
		}
		evl.OnMissingRow(inconsistency.MissingRow{
			Name:       left.Table,
			KeyColumns: left.KeyColumns,
			KeyValues:  key,
			AbsentOn:   absentOn,
		})
	}

	l, r := 0, 0
	for l < left.Len() && r < right.Len() {
		leftKey, rightKey := left.KeyOf(l), right.KeyOf(r)
		stats.KeyComparisons++
		c, err := leftKey.Compare(rightKey)
		if err != nil {
			return stats, &PrecomparisonError{
				Table:  left.Table,
				Reason: fmt.Sprintf("left key %s cannot be compared with right key %s: %v", leftKey, rightKey, err),
			}
		}
		switch {
		case c < 0:
			evl.OnRowScan()
			missing(leftKey, inconsistency.Right)
			l++
		case c > 0:
			evl.OnRowScan()
			missing(rightKey, inconsistency.Left)
			r++
		default:
			evl.OnRowScan()
			evl.OnRowScan()
			evl.OnRowPair(leftKey, left.Rows[l], right.Rows[r])
			mismatches := cmp.compare(leftKey, left.Rows[l].Values, right.Rows[r].Values)
			if len(mismatches) == 0 {
				stats.Matches++
				evl.OnMatch()
			} else {
				stats.MismatchingRows++
				stats.MismatchingFields += len(mismatches)
				for _, m := range mismatches {
					evl.OnMismatchingField(m)
				}
			}
			l++
			r++
		}
	}
	for ; l < left.Len(); l++ {
		evl.OnRowScan()
		missing(left.KeyOf(l), inconsistency.Right)
	}
	for ; r < right.Len(); r++ {
		evl.OnRowScan()
		missing(right.KeyOf(r), inconsistency.Left)
	}
	return stats, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
