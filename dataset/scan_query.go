package dataset

import (
	"strings"

	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree"
	"github.com/cockroachdb/cockroachdb-parser/pkg/sql/sem/tree/treecmp"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/mysqlconv"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/model"
	"github.com/pingcap/tidb/parser/opcode"
	// Registers the value expression driver used by ast.NewValueExpr.
	_ "github.com/pingcap/tidb/types/parser_driver"
)

// condition is one predicate of a scan, in dialect-neutral form.
type condition struct {
	col string
	op  treecmp.ComparisonOperatorSymbol
	val any
}

func scanConditions(spec dbtable.Spec, filter Filter) ([]condition, error) {
	var conds []condition
	if filter.Bounds.IsSet() {
		if spec.RangeColumn == "" {
			return nil, errors.AssertionFailedf("table %s has no range column to bound", spec.SafeString())
		}
		if filter.Bounds.Start != nil {
			conds = append(conds, condition{col: spec.RangeColumn, op: treecmp.GE, val: *filter.Bounds.Start})
		}
		if filter.Bounds.End != nil {
			conds = append(conds, condition{col: spec.RangeColumn, op: treecmp.LE, val: *filter.Bounds.End})
		}
	}
	if filter.Scope != nil {
		if filter.Scope.Value == nil {
			return nil, errors.AssertionFailedf("scope on %s.%s cannot be NULL", spec.SafeString(), filter.Scope.Column)
		}
		conds = append(conds, condition{col: filter.Scope.Column, op: treecmp.EQ, val: filter.Scope.Value})
	}
	return conds, nil
}

// newPGScanQuery builds the scan of spec. byteOrderKeys marks the key
// columns which must be ordered by their UTF-8 bytes rather than the
// column's collation, matching datum.Compare.
func newPGScanQuery(spec dbtable.Spec, filter Filter, byteOrderKeys []bool) (string, error) {
	conds, err := scanConditions(spec, filter)
	if err != nil {
		return "", err
	}
	selectClause := &tree.SelectClause{
		From: tree.From{
			Tables: tree.TableExprs{spec.NewTableName()},
		},
	}
	if spec.Columns == nil {
		selectClause.Exprs = tree.SelectExprs{tree.StarSelectExpr()}
	}
	for _, col := range spec.Columns {
		selectClause.Exprs = append(
			selectClause.Exprs,
			tree.SelectExpr{
				Expr: tree.NewUnresolvedName(col),
			},
		)
	}
	var where tree.Expr
	for _, cond := range conds {
		d, err := pgDatum(cond.val)
		if err != nil {
			return "", err
		}
		cmpExpr := &tree.ComparisonExpr{
			Operator: treecmp.MakeComparisonOperator(cond.op),
			Left:     tree.NewUnresolvedName(cond.col),
			Right:    d,
		}
		if where == nil {
			where = cmpExpr
		} else {
			where = &tree.AndExpr{Left: where, Right: cmpExpr}
		}
	}
	if where != nil {
		selectClause.Where = &tree.Where{Type: tree.AstWhere, Expr: where}
	}
	stmt := &tree.Select{Select: selectClause}
	for i, col := range spec.KeyColumns {
		var expr tree.Expr = tree.NewUnresolvedName(col)
		if i < len(byteOrderKeys) && byteOrderKeys[i] {
			expr = &tree.FuncExpr{
				Func:  tree.ResolvableFunctionReference{FunctionReference: tree.NewUnresolvedName("convert_to")},
				Exprs: tree.Exprs{expr, tree.NewDString("UTF8")},
			}
		}
		stmt.OrderBy = append(stmt.OrderBy, &tree.Order{Expr: expr})
	}
	f := tree.NewFmtCtx(tree.FmtParsableNumerics)
	f.FormatNode(stmt)
	return f.CloseAndGetString(), nil
}

// newPGKeyTypesQuery selects no rows, only the key columns of spec, so their
// types can be read from the result description.
func newPGKeyTypesQuery(spec dbtable.Spec) string {
	selectClause := &tree.SelectClause{
		From: tree.From{
			Tables: tree.TableExprs{spec.NewTableName()},
		},
	}
	for _, col := range spec.KeyColumns {
		selectClause.Exprs = append(selectClause.Exprs, tree.SelectExpr{Expr: tree.NewUnresolvedName(col)})
	}
	stmt := &tree.Select{
		Select: selectClause,
		Limit:  &tree.Limit{Count: tree.NewDInt(0)},
	}
	f := tree.NewFmtCtx(tree.FmtParsableNumerics)
	f.FormatNode(stmt)
	return f.CloseAndGetString()
}

func pgDatum(v any) (tree.Datum, error) {
	switch v := v.(type) {
	case int64:
		return tree.NewDInt(tree.DInt(v)), nil
	case string:
		return tree.NewDString(v), nil
	case []byte:
		return tree.NewDBytes(tree.DBytes(v)), nil
	}
	return nil, errors.AssertionFailedf("cannot filter on value %v (%T)", v, v)
}

func newMySQLScanQuery(spec dbtable.Spec, filter Filter, byteOrderKeys []bool) (string, error) {
	conds, err := scanConditions(spec, filter)
	if err != nil {
		return "", err
	}
	fields := &ast.FieldList{}
	if spec.Columns == nil {
		fields.Fields = []*ast.SelectField{{WildCard: &ast.WildCardField{}}}
	}
	for _, col := range spec.Columns {
		fields.Fields = append(fields.Fields, &ast.SelectField{
			Expr: mysqlconv.MySQLASTColumnField(col),
		})
	}
	orderBy := &ast.OrderByClause{
		Items: make([]*ast.ByItem, len(spec.KeyColumns)),
	}
	for i, col := range spec.KeyColumns {
		var expr ast.ExprNode = mysqlconv.MySQLASTColumnField(col)
		if i < len(byteOrderKeys) && byteOrderKeys[i] {
			expr = &ast.FuncCastExpr{Expr: expr, FunctionType: ast.CastBinaryOperator}
		}
		orderBy.Items[i] = &ast.ByItem{Expr: expr}
	}
	stmt := &ast.SelectStmt{
		SelectStmtOpts: &ast.SelectStmtOpts{
			SQLCache: true,
		},
		From: &ast.TableRefsClause{
			TableRefs: &ast.Join{
				Left: &ast.TableSource{
					Source: &ast.TableName{Name: model.NewCIStr(spec.Table)},
				},
			},
		},
		Fields:  fields,
		Kind:    ast.SelectStmtKindSelect,
		OrderBy: orderBy,
	}
	var where ast.ExprNode
	for _, cond := range conds {
		op, err := mysqlOp(cond.op)
		if err != nil {
			return "", err
		}
		cmpExpr := &ast.BinaryOperationExpr{
			Op: op,
			L:  mysqlconv.MySQLASTColumnField(cond.col),
			R:  ast.NewValueExpr(cond.val, "", ""),
		}
		if where == nil {
			where = cmpExpr
		} else {
			where = &ast.BinaryOperationExpr{Op: opcode.LogicAnd, L: where, R: cmpExpr}
		}
	}
	stmt.Where = where
	var sb strings.Builder
	if err := stmt.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", errors.Wrap(err, "error generating MySQL statement")
	}
	return sb.String(), nil
}

func newMySQLKeyTypesQuery(spec dbtable.Spec) (string, error) {
	fields := &ast.FieldList{}
	for _, col := range spec.KeyColumns {
		fields.Fields = append(fields.Fields, &ast.SelectField{
			Expr: mysqlconv.MySQLASTColumnField(col),
		})
	}
	stmt := &ast.SelectStmt{
		SelectStmtOpts: &ast.SelectStmtOpts{
			SQLCache: true,
		},
		From: &ast.TableRefsClause{
			TableRefs: &ast.Join{
				Left: &ast.TableSource{
					Source: &ast.TableName{Name: model.NewCIStr(spec.Table)},
				},
			},
		},
		Fields: fields,
		Kind:   ast.SelectStmtKindSelect,
		Limit:  &ast.Limit{Count: ast.NewValueExpr(0, "", "")},
	}
	var sb strings.Builder
	if err := stmt.Restore(format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)); err != nil {
		return "", errors.Wrap(err, "error generating MySQL statement")
	}
	return sb.String(), nil
}

func mysqlOp(op treecmp.ComparisonOperatorSymbol) (opcode.Op, error) {
	switch op {
	case treecmp.EQ:
		return opcode.EQ, nil
	case treecmp.GE:
		return opcode.GE, nil
	case treecmp.LE:
		return opcode.LE, nil
	}
	return 0, errors.AssertionFailedf("unhandled operator %s", op)
}
