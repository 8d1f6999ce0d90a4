package dataset

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cockroachdb/indexverify/dbconn"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func newMockReader(t *testing.T, opts ...ReaderOpt) (Reader, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	r, err := NewReader(dbconn.NewMySQLConn("target", "mysql://", db, "indexerdb"), opts...)
	require.NoError(t, err)
	return r, mock
}

func expectKeyTypes(mock sqlmock.Sqlmock, table string, cols ...*sqlmock.Column) {
	mock.ExpectQuery("FROM `" + table + "` LIMIT 0").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(cols...))
}

func TestMySQLReader(t *testing.T) {
	ctx := context.Background()
	spec := dbtable.Spec{
		Name:        dbtable.MakeName("block_metadata"),
		Columns:     []string{"height", "hash", "block_time"},
		KeyColumns:  []string{"height"},
		RangeColumn: "height",
	}

	t.Run("reads converted rows", func(t *testing.T) {
		r, mock := newMockReader(t, WithQueriesPerSecond(1000))
		rows := sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("height").OfType("BIGINT", int64(0)),
			sqlmock.NewColumn("hash").OfType("VARCHAR", ""),
			sqlmock.NewColumn("block_time").OfType("DATETIME", ""),
		).
			AddRow("10", "AAAA", "2023-01-01 00:00:00").
			AddRow("11", "BBBB", "2023-01-01 00:00:06")
		expectKeyTypes(mock, "block_metadata", sqlmock.NewColumn("height").OfType("BIGINT", int64(0)))
		mock.ExpectQuery("FROM `block_metadata` WHERE .*10.*11.* ORDER BY `height`").WillReturnRows(rows)

		ds, err := r.Read(ctx, spec, Filter{Bounds: dbtable.MakeBounds(10, 11)})
		require.NoError(t, err)
		require.Equal(t, []string{"height", "hash", "block_time"}, ds.Columns)
		require.Equal(t, []Row{
			{Values: []any{int64(10), "AAAA", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}},
			{Values: []any{int64(11), "BBBB", time.Date(2023, 1, 1, 0, 0, 6, 0, time.UTC)}},
		}, ds.Rows)
		require.NoError(t, CheckOrdered(ds))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing table is a query error", func(t *testing.T) {
		r, mock := newMockReader(t)
		mock.ExpectQuery("FROM `block_metadata`").
			WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'indexerdb.block_metadata' doesn't exist"})

		_, err := r.Read(ctx, spec, Filter{})
		require.Error(t, err)
		require.True(t, IsQueryError(err))
		require.False(t, dbconn.IsConnectivityError(err))
	})

	t.Run("broken connection is a connectivity error", func(t *testing.T) {
		r, mock := newMockReader(t)
		mock.ExpectQuery("FROM `block_metadata`").WillReturnError(driver.ErrBadConn)

		_, err := r.Read(ctx, spec, Filter{})
		require.Error(t, err)
		require.True(t, dbconn.IsConnectivityError(err))
		require.False(t, IsQueryError(err))
	})

	t.Run("undecodable value is a query error", func(t *testing.T) {
		r, mock := newMockReader(t)
		rows := sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("height").OfType("BIGINT", int64(0)),
			sqlmock.NewColumn("hash").OfType("GEOMETRY", ""),
			sqlmock.NewColumn("block_time").OfType("DATETIME", ""),
		).AddRow("10", "POINT(1 1)", "2023-01-01 00:00:00")
		expectKeyTypes(mock, "block_metadata", sqlmock.NewColumn("height").OfType("BIGINT", int64(0)))
		mock.ExpectQuery("FROM `block_metadata`").WillReturnRows(rows)

		_, err := r.Read(ctx, spec, Filter{})
		require.True(t, IsQueryError(err))
	})

	t.Run("text keys are ordered by their bytes", func(t *testing.T) {
		r, mock := newMockReader(t)
		hashSpec := dbtable.Spec{
			Name:        dbtable.MakeName("msgsend"),
			Columns:     []string{"height", "hash"},
			KeyColumns:  []string{"height", "hash"},
			RangeColumn: "height",
		}
		expectKeyTypes(
			mock,
			"msgsend",
			sqlmock.NewColumn("height").OfType("BIGINT", int64(0)),
			sqlmock.NewColumn("hash").OfType("VARCHAR", ""),
		)
		for i := 0; i < 2; i++ {
			// The server collation would order "a1" before "B2".
			rows := sqlmock.NewRowsWithColumnDefinition(
				sqlmock.NewColumn("height").OfType("BIGINT", int64(0)),
				sqlmock.NewColumn("hash").OfType("VARCHAR", ""),
			).
				AddRow("10", "B2").
				AddRow("10", "a1")
			mock.ExpectQuery("ORDER BY `height`,BINARY `hash`").WillReturnRows(rows)
		}

		for i := 0; i < 2; i++ {
			ds, err := r.Read(ctx, hashSpec, Filter{Bounds: dbtable.MakeBounds(10, 10)})
			require.NoError(t, err)
			require.NoError(t, CheckOrdered(ds))
			require.Equal(t, Key{int64(10), "B2"}, ds.KeyOf(0))
		}
		// Key types are looked up once per table.
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled", func(t *testing.T) {
		r, _ := newMockReader(t, WithQueriesPerSecond(1))
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Read(cctx, spec, Filter{})
		require.Error(t, err)
		require.False(t, IsQueryError(err))
	})
}

func TestNewReaderUnsupportedConn(t *testing.T) {
	_, err := NewReader(dbconn.MakeFakeConn("source"))
	require.EqualError(t, err, "unsupported conn type dbconn.FakeConn")
}
