package mysqlconv

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
)

// DatabaseTypeToOID maps a column type as reported by
// sql.ColumnType.DatabaseTypeName to the equivalent PostgreSQL type, which
// decides how the raw text of a value is decoded.
func DatabaseTypeToOID(databaseTypeName string) (oid.Oid, error) {
	typ := strings.ToUpper(databaseTypeName)
	unsigned := strings.HasPrefix(typ, "UNSIGNED ")
	typ = strings.TrimPrefix(typ, "UNSIGNED ")
	switch typ {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "YEAR":
		return oid.T_int8, nil
	case "BIGINT":
		if unsigned {
			// May exceed the range of int64.
			return oid.T_numeric, nil
		}
		return oid.T_int8, nil
	case "DECIMAL", "NUMERIC":
		return oid.T_numeric, nil
	case "FLOAT":
		return oid.T_float4, nil
	case "DOUBLE", "REAL":
		return oid.T_float8, nil
	case "BIT":
		return oid.T_varbit, nil
	case "DATE":
		return oid.T_date, nil
	case "DATETIME":
		return oid.T_timestamp, nil
	case "TIMESTAMP":
		return oid.T_timestamptz, nil
	case "TIME":
		return oid.T_time, nil
	case "CHAR", "VARCHAR", "TINYTEXT", "TEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET":
		return oid.T_text, nil
	case "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB":
		return oid.T_bytea, nil
	case "JSON":
		return oid.T_jsonb, nil
	}
	return 0, errors.Newf("unhandled type %s", databaseTypeName)
}
