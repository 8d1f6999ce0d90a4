package dbconn

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ConnectivityError is returned when a database cannot be reached. It is
// fatal to a verification run: nothing is compared against a side which is
// unavailable.
type ConnectivityError struct {
	ConnID ID
	Cause  error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to reach %s: %v", e.ConnID, e.Cause)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Cause
}

func newConnectivityError(id ID, cause error) error {
	return &ConnectivityError{ConnID: id, Cause: cause}
}

func IsConnectivityError(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// IsServerError returns whether the database received and rejected a
// statement, e.g. because a table or column does not exist.
func IsServerError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr)
}

// ClassifyQueryError wraps an error from issuing a statement on conn. Errors
// raised by the server are returned as-is; anything else means the
// connection itself failed and is returned as a ConnectivityError.
// Context cancellation is left untouched.
func ClassifyQueryError(id ID, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsServerError(err) || IsConnectivityError(err) {
		return err
	}
	return newConnectivityError(id, err)
}
