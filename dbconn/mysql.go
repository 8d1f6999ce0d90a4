package dbconn

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/indexverify/mysqlurl"
)

type MySQLConn struct {
	id      ID
	connStr string
	*sql.DB
	database string
}

var _ Conn = (*MySQLConn)(nil)

func ConnectMySQL(ctx context.Context, id ID, connStr string) (*MySQLConn, error) {
	cfg, err := mysqlurl.Parse(connStr)
	if err != nil {
		return nil, err
	}
	// Values are decoded from their raw text, so the driver must not
	// convert DATETIME columns itself.
	cfg.ParseTime = false
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ClassifyQueryError(id, err)
	}
	return NewMySQLConn(id, connStr, db, cfg.DBName), nil
}

func NewMySQLConn(id ID, connStr string, db *sql.DB, database string) *MySQLConn {
	return &MySQLConn{id: id, connStr: connStr, DB: db, database: database}
}

func (c *MySQLConn) ID() ID {
	return c.id
}

func (c *MySQLConn) Close(ctx context.Context) error {
	return c.DB.Close()
}

func (c *MySQLConn) Clone(ctx context.Context) (Conn, error) {
	return ConnectMySQL(ctx, c.id, c.connStr)
}

func (c *MySQLConn) Database() string {
	return c.database
}

func (c *MySQLConn) ConnStr() string {
	return c.connStr
}

func (c *MySQLConn) Dialect() string {
	return "MySQL"
}
