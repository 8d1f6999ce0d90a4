package inconsistency

import (
	"github.com/cockroachdb/indexverify/dbtable"
)

type ReportableObject interface{}

// Side is one of the two datasets being reconciled.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// ParentKey identifies the parent row a finding was discovered under.
type ParentKey struct {
	Name       dbtable.Name
	KeyColumns []string
	KeyValues  []any
}

// Finding is a discrepancy between the two sides.
type Finding interface {
	TableName() dbtable.Name
	Key() []any
	ParentKey() *ParentKey
}

// MissingRow is a row whose key is present on one side only.
type MissingRow struct {
	dbtable.Name

	KeyColumns []string
	KeyValues  []any
	AbsentOn   Side
	Parent     *ParentKey
}

// MismatchingField is a field of a row present on both sides whose values
// differ. A field that exists in only one of the rows has the value
// datum.Absent on the other.
type MismatchingField struct {
	dbtable.Name

	KeyColumns []string
	KeyValues  []any
	Column     string
	LeftValue  any
	RightValue any
	Parent     *ParentKey
}

func (r MissingRow) TableName() dbtable.Name { return r.Name }
func (r MissingRow) Key() []any              { return r.KeyValues }
func (r MissingRow) ParentKey() *ParentKey   { return r.Parent }

func (r MismatchingField) TableName() dbtable.Name { return r.Name }
func (r MismatchingField) Key() []any              { return r.KeyValues }
func (r MismatchingField) ParentKey() *ParentKey   { return r.Parent }

// WithParent returns a copy of f tagged with parent.
func WithParent(f Finding, parent *ParentKey) Finding {
	switch f := f.(type) {
	case MissingRow:
		f.Parent = parent
		return f
	case MismatchingField:
		f.Parent = parent
		return f
	}
	return f
}
