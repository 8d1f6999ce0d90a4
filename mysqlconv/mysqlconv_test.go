package mysqlconv

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/require"
)

func TestDatabaseTypeToOID(t *testing.T) {
	for _, tc := range []struct {
		typ      string
		expected oid.Oid
	}{
		{typ: "INT", expected: oid.T_int8},
		{typ: "UNSIGNED INT", expected: oid.T_int8},
		{typ: "BIGINT", expected: oid.T_int8},
		{typ: "UNSIGNED BIGINT", expected: oid.T_numeric},
		{typ: "DECIMAL", expected: oid.T_numeric},
		{typ: "DOUBLE", expected: oid.T_float8},
		{typ: "DATETIME", expected: oid.T_timestamp},
		{typ: "varchar", expected: oid.T_text},
		{typ: "VARBINARY", expected: oid.T_bytea},
		{typ: "JSON", expected: oid.T_jsonb},
	} {
		t.Run(tc.typ, func(t *testing.T) {
			typOID, err := DatabaseTypeToOID(tc.typ)
			require.NoError(t, err)
			require.Equal(t, tc.expected, typOID)
		})
	}

	_, err := DatabaseTypeToOID("GEOMETRY")
	require.EqualError(t, err, "unhandled type GEOMETRY")
}

func TestConvertRowValue(t *testing.T) {
	for _, tc := range []struct {
		desc     string
		val      []byte
		oid      oid.Oid
		expected string
	}{
		{desc: "null", val: nil, oid: oid.T_int8, expected: "NULL"},
		{desc: "int", val: []byte("-42"), oid: oid.T_int8, expected: "-42"},
		{desc: "unsigned bigint", val: []byte("18446744073709551615"), oid: oid.T_numeric, expected: "18446744073709551615"},
		{desc: "decimal", val: []byte("10.50"), oid: oid.T_numeric, expected: "10.50"},
		{desc: "float", val: []byte("0.25"), oid: oid.T_float8, expected: "0.25"},
		{desc: "datetime", val: []byte("2023-01-02 03:04:05.123"), oid: oid.T_timestamp, expected: "2023-01-02T03:04:05.123Z"},
		{desc: "zero datetime", val: []byte("0000-00-00 00:00:00"), oid: oid.T_timestamp, expected: "NULL"},
		{desc: "date", val: []byte("2023-01-02"), oid: oid.T_date, expected: "2023-01-02T00:00:00Z"},
		{desc: "json", val: []byte(`{"b": 2, "a": 1}`), oid: oid.T_jsonb, expected: `{"a":1,"b":2}`},
		{desc: "blob", val: []byte{0x01, 0xff}, oid: oid.T_bytea, expected: `\x01ff`},
		{desc: "text", val: []byte("ok"), oid: oid.T_text, expected: "ok"},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ret, err := ConvertRowValue(tc.val, tc.oid)
			require.NoError(t, err)
			require.Equal(t, tc.expected, datum.Format(ret))
		})
	}

	_, err := ConvertRowValue([]byte("abc"), oid.T_int8)
	require.ErrorContains(t, err, `error decoding integer "abc"`)
}

func TestScanRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRowsWithColumnDefinition(
		sqlmock.NewColumn("height").OfType("BIGINT", int64(0)),
		sqlmock.NewColumn("block_time").OfType("DATETIME", ""),
		sqlmock.NewColumn("proposer").OfType("VARCHAR", ""),
	).
		AddRow("100", "2023-01-02 03:04:05", "val1").
		AddRow("101", nil, "val2")
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	res, err := db.Query("SELECT height, block_time, proposer FROM block_metadata")
	require.NoError(t, err)
	defer func() { _ = res.Close() }()

	names, typOIDs, err := ColumnOIDs(res)
	require.NoError(t, err)
	require.Equal(t, []string{"height", "block_time", "proposer"}, names)
	require.Equal(t, []oid.Oid{oid.T_int8, oid.T_timestamp, oid.T_text}, typOIDs)

	var got [][]any
	for res.Next() {
		row, err := ScanRow(res, typOIDs)
		require.NoError(t, err)
		got = append(got, row)
	}
	require.NoError(t, res.Err())
	require.Equal(t, [][]any{
		{int64(100), time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC), "val1"},
		{int64(101), nil, "val2"},
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
