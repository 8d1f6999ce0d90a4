package dbconn

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/retry"
	"github.com/rs/zerolog"
)

type ID string

// OrderedConns holds the two sides being reconciled. Index 0 is the left
// (source) side and index 1 the right (target) side.
type OrderedConns [2]Conn

// Close closes every connection, combining any errors.
func (c OrderedConns) Close(ctx context.Context) error {
	var err error
	for _, conn := range c {
		if conn != nil {
			err = errors.CombineErrors(err, conn.Close(ctx))
		}
	}
	return err
}

type Conn interface {
	ID() ID
	// Close closes the connection.
	Close(ctx context.Context) error
	// Clone creates a new Conn with the same underlying connections arguments.
	Clone(ctx context.Context) (Conn, error)
	Database() string

	ConnStr() string
	Dialect() string
}

// Connect establishes and pings a connection. Any failure to reach the
// database is returned as a ConnectivityError.
func Connect(ctx context.Context, preferredID ID, connStr string) (Conn, error) {
	id := preferredID
	if len(connStr) == 0 {
		return nil, errors.Newf("empty connection string")
	}

	before := strings.SplitN(connStr, "://", 2)

	switch {
	case strings.Contains(before[0], "postgres"):
		u, err := url.Parse(connStr)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to parse url")
		}

		if id == "" {
			id = ID(u.Hostname() + ":" + u.Port())
		}
		return ConnectPG(ctx, id, connStr)
	case strings.Contains(before[0], "mysql"):
		return ConnectMySQL(ctx, id, connStr)
	}
	return nil, errors.Newf("unrecognised scheme %s", before[0])
}

// ConnectWithRetry calls Connect, retrying with backoff while the database
// cannot be reached. Errors other than connectivity errors are returned
// immediately.
func ConnectWithRetry(
	ctx context.Context, logger zerolog.Logger, id ID, connStr string, settings retry.Settings,
) (Conn, error) {
	var conn Conn
	err := retry.Do(
		ctx,
		settings,
		func(ctx context.Context) error {
			var err error
			conn, err = Connect(ctx, id, connStr)
			return err
		},
		IsConnectivityError,
		func(r *retry.Retry, err error) {
			logger.Warn().Err(err).
				Str("conn", string(id)).
				Int("attempt", r.Iteration).
				Time("next_retry", r.NextRetry).
				Msgf("unable to connect, retrying")
		},
	)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
