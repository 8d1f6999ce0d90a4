package dbtable

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/errors"
)

// DefaultSchema is the schema tables live in when none is given.
const DefaultSchema = "public"

type Name struct {
	Schema string
	Table  string
}

// MakeName returns the table in the default schema.
func MakeName(table string) Name {
	return Name{Schema: DefaultSchema, Table: table}
}

func (n Name) MakeTableName() tree.TableName {
	return tree.MakeTableNameFromPrefix(tree.ObjectNamePrefix{
		SchemaName:     tree.Name(n.Schema),
		ExplicitSchema: n.Schema != "",
	}, tree.Name(n.Table))
}

func (n Name) NewTableName() *tree.TableName {
	tn := n.MakeTableName()
	return &tn
}

func (n Name) SafeString() string {
	return fmt.Sprintf("%s.%s", n.Schema, n.Table)
}

func (n Name) String() string {
	return n.SafeString()
}

func (n Name) Compare(o Name) int {
	if c := strings.Compare(strings.ToLower(n.Schema), strings.ToLower(o.Schema)); c != 0 {
		return c
	}
	return strings.Compare(strings.ToLower(n.Table), strings.ToLower(o.Table))
}

func (n Name) Less(o Name) bool {
	return n.Compare(o) < 0
}

// IgnoreSet is the set of columns of a table excluded from comparison,
// typically storage-internal row identifiers.
type IgnoreSet map[string]struct{}

func MakeIgnoreSet(cols ...string) IgnoreSet {
	ret := make(IgnoreSet, len(cols))
	for _, col := range cols {
		ret[strings.ToLower(col)] = struct{}{}
	}
	return ret
}

func (s IgnoreSet) Contains(col string) bool {
	_, ok := s[strings.ToLower(col)]
	return ok
}

// Columns returns the ignored columns in sorted order.
func (s IgnoreSet) Columns() []string {
	ret := make([]string, 0, len(s))
	for col := range s {
		ret = append(ret, col)
	}
	sort.Strings(ret)
	return ret
}

func (s IgnoreSet) String() string {
	return "{" + strings.Join(s.Columns(), ",") + "}"
}

// Spec describes how one table is read and compared.
type Spec struct {
	Name
	// Columns to select. A nil slice selects every column.
	Columns []string
	// KeyColumns identify a row and give the order rows are read in.
	KeyColumns []string
	// RangeColumn is bounded by Bounds when set.
	RangeColumn string
	// ScopeColumn restricts a read to the children of one parent row.
	ScopeColumn string
	Ignore      IgnoreSet
}

func (s Spec) Validate() error {
	if s.Table == "" {
		return errors.Newf("table name must be set")
	}
	if len(s.KeyColumns) == 0 {
		return errors.Newf("table %s must have at least one key column", s.SafeString())
	}
	seen := make(map[string]struct{}, len(s.KeyColumns))
	for _, col := range s.KeyColumns {
		lower := strings.ToLower(col)
		if _, ok := seen[lower]; ok {
			return errors.Newf("table %s has duplicate key column %s", s.SafeString(), col)
		}
		seen[lower] = struct{}{}
		if s.Ignore.Contains(col) {
			return errors.Newf("table %s cannot ignore key column %s", s.SafeString(), col)
		}
	}
	if s.Columns != nil {
		selected := make(map[string]struct{}, len(s.Columns))
		for _, col := range s.Columns {
			selected[strings.ToLower(col)] = struct{}{}
		}
		for _, col := range s.KeyColumns {
			if _, ok := selected[strings.ToLower(col)]; !ok {
				return errors.Newf("table %s does not select key column %s", s.SafeString(), col)
			}
		}
	}
	return nil
}

// WithIgnore returns a copy of the spec with the given ignore set.
func (s Spec) WithIgnore(ignore IgnoreSet) Spec {
	s.Ignore = ignore
	return s
}

// Bounds is an inclusive range over a table's RangeColumn. A nil side is
// unbounded.
type Bounds struct {
	Start *int64
	End   *int64
}

func MakeBounds(start, end int64) Bounds {
	return Bounds{Start: &start, End: &end}
}

func (b Bounds) IsSet() bool {
	return b.Start != nil || b.End != nil
}

func (b Bounds) Validate() error {
	if b.Start != nil && b.End != nil && *b.Start > *b.End {
		return errors.Newf("start height %d must not be greater than end height %d", *b.Start, *b.End)
	}
	return nil
}

func (b Bounds) String() string {
	start, end := "<beginning>", "<end>"
	if b.Start != nil {
		start = fmt.Sprintf("%d", *b.Start)
	}
	if b.End != nil {
		end = fmt.Sprintf("%d", *b.End)
	}
	return "[" + start + " - " + end + "]"
}
