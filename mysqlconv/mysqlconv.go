// Package mysqlconv decodes MySQL rows into datum values and builds
// TiDB parser AST fragments.
package mysqlconv

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/model"
)

func MySQLASTColumnField(name string) *ast.ColumnNameExpr {
	return &ast.ColumnNameExpr{
		Name: &ast.ColumnName{
			Name: model.NewCIStr(name),
		},
	}
}

// ColumnOIDs resolves the decoding type of every column in rows.
func ColumnOIDs(rows *sql.Rows) ([]string, []oid.Oid, error) {
	typs, err := rows.ColumnTypes()
	if err != nil {
		return nil, nil, err
	}
	names := make([]string, len(typs))
	typOIDs := make([]oid.Oid, len(typs))
	for i, typ := range typs {
		names[i] = typ.Name()
		if typOIDs[i], err = DatabaseTypeToOID(typ.DatabaseTypeName()); err != nil {
			return nil, nil, errors.Wrapf(err, "column %s", typ.Name())
		}
	}
	return names, typOIDs, nil
}

// ScanRow reads the current row of rows. The driver hands back the raw
// text of each value, which is decoded according to typOIDs.
func ScanRow(rows *sql.Rows, typOIDs []oid.Oid) ([]any, error) {
	vals := make([][]byte, len(typOIDs))
	valPtrs := make([]any, len(typOIDs))
	for i := range vals {
		valPtrs[i] = &vals[i]
	}
	if err := rows.Scan(valPtrs...); err != nil {
		return nil, errors.Wrap(err, "failed to scan row")
	}
	return ConvertRowValues(vals, typOIDs)
}
