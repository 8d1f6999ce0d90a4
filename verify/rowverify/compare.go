package rowverify

import (
	"github.com/cockroachdb/indexverify/datum"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
)

// rowComparator compares rows of two datasets with possibly different
// column sets. The alignment of columns is worked out once per pair of
// datasets rather than once per row.
type rowComparator struct {
	table      dbtable.Name
	keyColumns []string

	// columns is the union of both column sets in left order followed by
	// right-only columns, minus ignored columns.
	columns   []string
	leftIdxs  []int
	rightIdxs []int
}

func newRowComparator(
	table dbtable.Name, keyColumns []string, ignore dbtable.IgnoreSet, leftCols, rightCols []string,
) *rowComparator {
	c := &rowComparator{table: table, keyColumns: keyColumns}
	rightPos := make(map[string]int, len(rightCols))
	for i, col := range rightCols {
		rightPos[col] = i
	}
	seen := make(map[string]struct{}, len(leftCols))
	for i, col := range leftCols {
		seen[col] = struct{}{}
		if ignore.Contains(col) {
			continue
		}
		rightIdx, ok := rightPos[col]
		if !ok {
			rightIdx = -1
		}
		c.columns = append(c.columns, col)
		c.leftIdxs = append(c.leftIdxs, i)
		c.rightIdxs = append(c.rightIdxs, rightIdx)
	}
	for i, col := range rightCols {
		if _, ok := seen[col]; ok || ignore.Contains(col) {
			continue
		}
		c.columns = append(c.columns, col)
		c.leftIdxs = append(c.leftIdxs, -1)
		c.rightIdxs = append(c.rightIdxs, i)
	}
	return c
}

func valueAt(vals []any, idx int) any {
	if idx < 0 {
		return datum.Absent
	}
	return vals[idx]
}

// compare returns one MismatchingField per compared column whose values
// differ, in column order.
func (c *rowComparator) compare(key []any, left, right []any) []inconsistency.MismatchingField {
	var ret []inconsistency.MismatchingField
	for i, col := range c.columns {
		l := valueAt(left, c.leftIdxs[i])
		r := valueAt(right, c.rightIdxs[i])
		if datum.Equal(l, r) {
			continue
		}
		ret = append(ret, inconsistency.MismatchingField{
			Name:       c.table,
			KeyColumns: c.keyColumns,
			KeyValues:  key,
			Column:     col,
			LeftValue:  l,
			RightValue: r,
		})
	}
	return ret
}

// CompareRows compares two rows sharing key, each given with the names of
// its fields. Fields in ignore are skipped. A field present in only one row
// compares against datum.Absent.
func CompareRows(
	table dbtable.Name,
	keyColumns []string,
	key []any,
	ignore dbtable.IgnoreSet,
	leftCols []string,
	left []any,
	rightCols []string,
	right []any,
) []inconsistency.MismatchingField {
	return newRowComparator(table, keyColumns, ignore, leftCols, rightCols).compare(key, left, right)
}
