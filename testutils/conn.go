// Package testutils holds helpers for tests which run against real
// databases. Such tests are skipped unless the database is configured.
package testutils

import (
	"context"
	"os"
	"testing"

	"github.com/cockroachdb/indexverify/dbconn"
	"github.com/stretchr/testify/require"
)

// PGConnStr returns the URL of the PostgreSQL instance to test against,
// skipping the test if POSTGRES_URL is not set.
func PGConnStr(t *testing.T) string {
	t.Helper()
	pgInstanceURL, ok := os.LookupEnv("POSTGRES_URL")
	if !ok {
		t.Skip("POSTGRES_URL not set")
	}
	return pgInstanceURL
}

// MySQLConnStr returns the URL of the MySQL instance to test against,
// skipping the test if MYSQL_URL is not set.
func MySQLConnStr(t *testing.T) string {
	t.Helper()
	mysqlInstanceURL, ok := os.LookupEnv("MYSQL_URL")
	if !ok {
		t.Skip("MYSQL_URL not set")
	}
	return mysqlInstanceURL
}

// Connect connects to connStr, closing the connection when the test ends.
func Connect(t *testing.T, id dbconn.ID, connStr string) dbconn.Conn {
	t.Helper()
	ctx := context.Background()
	conn, err := dbconn.Connect(ctx, id, connStr)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, conn.Close(ctx))
	})
	return conn
}

// Exec runs each statement on conn.
func Exec(t *testing.T, conn dbconn.Conn, stmts ...string) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range stmts {
		switch conn := conn.(type) {
		case *dbconn.PGConn:
			_, err := conn.Exec(ctx, stmt)
			require.NoError(t, err, "[%s] %s", conn.ID(), stmt)
		case *dbconn.MySQLConn:
			_, err := conn.ExecContext(ctx, stmt)
			require.NoError(t, err, "[%s] %s", conn.ID(), stmt)
		default:
			t.Fatalf("unhandled Conn type: %T", conn)
		}
	}
	// Deallocate caches - otherwise the plans may stick around.
	if pgConn, ok := conn.(*dbconn.PGConn); ok {
		require.NoError(t, pgConn.DeallocateAll(ctx))
	}
}
