package dataset

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbconn"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/mysqlconv"
	"github.com/cockroachdb/indexverify/pgconv"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Reader returns the rows of a table ordered ascending by its key columns.
// Readers never write to the data source.
type Reader interface {
	Read(ctx context.Context, spec dbtable.Spec, filter Filter) (*Dataset, error)
	// Clone returns an independent reader over the same data source, safe to
	// use concurrently with the original.
	Clone(ctx context.Context) (Reader, error)
	Close(ctx context.Context) error
}

type readerOpts struct {
	queriesPerSecond float64
	logger           zerolog.Logger
}

type ReaderOpt func(*readerOpts)

// WithQueriesPerSecond limits the rate queries are issued at. Zero means
// unlimited.
func WithQueriesPerSecond(qps float64) ReaderOpt {
	return func(o *readerOpts) {
		o.queriesPerSecond = qps
	}
}

func WithLogger(logger zerolog.Logger) ReaderOpt {
	return func(o *readerOpts) {
		o.logger = logger
	}
}

type connReader struct {
	conn        dbconn.Conn
	opts        readerOpts
	rateLimiter *rate.Limiter
	ownsConn    bool
	keyTypes    *keyTypeCache
}

// keyTypeCache remembers which key columns of a table hold text. It is
// shared between a reader and its clones.
type keyTypeCache struct {
	mu struct {
		sync.Mutex
		byteOrderKeys map[string][]bool
	}
}

func newKeyTypeCache() *keyTypeCache {
	c := &keyTypeCache{}
	c.mu.byteOrderKeys = make(map[string][]bool)
	return c
}

func keyTypeCacheKey(spec dbtable.Spec) string {
	return spec.SafeString() + "(" + strings.Join(spec.KeyColumns, ",") + ")"
}

func (c *keyTypeCache) get(spec dbtable.Spec) ([]bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ret, ok := c.mu.byteOrderKeys[keyTypeCacheKey(spec)]
	return ret, ok
}

func (c *keyTypeCache) put(spec dbtable.Spec, byteOrderKeys []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mu.byteOrderKeys[keyTypeCacheKey(spec)] = byteOrderKeys
}

// NewReader returns a Reader over conn. The caller keeps ownership of conn.
func NewReader(conn dbconn.Conn, opts ...ReaderOpt) (Reader, error) {
	o := readerOpts{logger: zerolog.Nop()}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}
	switch conn.(type) {
	case *dbconn.PGConn, *dbconn.MySQLConn:
	default:
		return nil, errors.Newf("unsupported conn type %T", conn)
	}
	r := &connReader{conn: conn, opts: o, keyTypes: newKeyTypeCache()}
	if o.queriesPerSecond > 0 {
		r.rateLimiter = rate.NewLimiter(rate.Limit(o.queriesPerSecond), 1)
	}
	return r, nil
}

func (r *connReader) Clone(ctx context.Context) (Reader, error) {
	conn, err := r.conn.Clone(ctx)
	if err != nil {
		return nil, err
	}
	// Clones share the rate limit of the original.
	return &connReader{
		conn:        conn,
		opts:        r.opts,
		rateLimiter: r.rateLimiter,
		ownsConn:    true,
		keyTypes:    r.keyTypes,
	}, nil
}

func (r *connReader) Close(ctx context.Context) error {
	if r.ownsConn {
		return r.conn.Close(ctx)
	}
	return nil
}

func (r *connReader) wait(ctx context.Context) error {
	if r.rateLimiter != nil {
		return r.rateLimiter.Wait(ctx)
	}
	return nil
}

func (r *connReader) Read(ctx context.Context, spec dbtable.Spec, filter Filter) (*Dataset, error) {
	byteOrderKeys, err := r.byteOrderKeys(ctx, spec)
	if err != nil {
		return nil, r.classify(spec, err)
	}
	var q string
	switch r.conn.(type) {
	case *dbconn.PGConn:
		q, err = newPGScanQuery(spec, filter, byteOrderKeys)
	case *dbconn.MySQLConn:
		q, err = newMySQLScanQuery(spec, filter, byteOrderKeys)
	default:
		return nil, errors.AssertionFailedf("unhandled conn type: %T", r.conn)
	}
	if err != nil {
		return nil, err
	}
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.opts.logger.Trace().
		Str("conn", string(r.conn.ID())).
		Str("table", spec.SafeString()).
		Str("query", q).
		Msgf("reading dataset")

	var ds *Dataset
	switch conn := r.conn.(type) {
	case *dbconn.PGConn:
		ds, err = readPG(ctx, conn, spec, q)
	case *dbconn.MySQLConn:
		ds, err = readMySQL(ctx, conn, spec, q)
	}
	if err != nil {
		return nil, r.classify(spec, err)
	}
	return ds, nil
}

// byteOrderKeys returns which key columns of spec hold text. Text keys are
// ordered by their bytes, as the server's collation may order them
// differently from datum.Compare.
func (r *connReader) byteOrderKeys(ctx context.Context, spec dbtable.Spec) ([]bool, error) {
	if ret, ok := r.keyTypes.get(spec); ok {
		return ret, nil
	}
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	var ret []bool
	var err error
	switch conn := r.conn.(type) {
	case *dbconn.PGConn:
		ret, err = pgByteOrderKeys(ctx, conn, spec)
	case *dbconn.MySQLConn:
		ret, err = mysqlByteOrderKeys(ctx, conn, spec)
	default:
		return nil, errors.AssertionFailedf("unhandled conn type: %T", r.conn)
	}
	if err != nil {
		return nil, err
	}
	r.keyTypes.put(spec, ret)
	return ret, nil
}

func pgByteOrderKeys(ctx context.Context, conn *dbconn.PGConn, spec dbtable.Spec) ([]bool, error) {
	rows, err := conn.Query(ctx, newPGKeyTypesQuery(spec))
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) != len(spec.KeyColumns) {
		return nil, errors.AssertionFailedf("expected %d key columns, found %d", len(spec.KeyColumns), len(fields))
	}
	ret := make([]bool, len(fields))
	for i, fd := range fields {
		switch fd.DataTypeOID {
		case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
			ret[i] = true
		}
	}
	return ret, nil
}

func mysqlByteOrderKeys(ctx context.Context, conn *dbconn.MySQLConn, spec dbtable.Spec) ([]bool, error) {
	q, err := newMySQLKeyTypesQuery(spec)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	_, typOIDs, err := mysqlconv.ColumnOIDs(rows)
	if err != nil {
		if dbconn.IsServerError(err) {
			return nil, err
		}
		return nil, &QueryError{Table: spec.Name, Cause: err}
	}
	if len(typOIDs) != len(spec.KeyColumns) {
		return nil, errors.AssertionFailedf("expected %d key columns, found %d", len(spec.KeyColumns), len(typOIDs))
	}
	ret := make([]bool, len(typOIDs))
	for i, typOID := range typOIDs {
		ret[i] = typOID == oid.T_text
	}
	return ret, nil
}

func (r *connReader) classify(spec dbtable.Spec, err error) error {
	if IsQueryError(err) {
		return err
	}
	err = dbconn.ClassifyQueryError(r.conn.ID(), err)
	if dbconn.IsServerError(err) {
		return &QueryError{Table: spec.Name, Cause: err}
	}
	return err
}

func readPG(ctx context.Context, conn *dbconn.PGConn, spec dbtable.Spec, q string) (*Dataset, error) {
	rows, err := conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.Name
	}
	ds := NewDataset(spec.Name, cols, spec.KeyColumns)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		converted, err := pgconv.ConvertRowValues(fields, vals, rows.RawValues())
		if err != nil {
			return nil, &QueryError{Table: spec.Name, Cause: err}
		}
		if err := ds.Append(converted...); err != nil {
			return nil, &QueryError{Table: spec.Name, Cause: err}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}

func readMySQL(ctx context.Context, conn *dbconn.MySQLConn, spec dbtable.Spec, q string) (*Dataset, error) {
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, typOIDs, err := mysqlconv.ColumnOIDs(rows)
	if err != nil {
		if dbconn.IsServerError(err) {
			return nil, err
		}
		return nil, &QueryError{Table: spec.Name, Cause: err}
	}
	ds := NewDataset(spec.Name, cols, spec.KeyColumns)
	for rows.Next() {
		vals, err := mysqlconv.ScanRow(rows, typOIDs)
		if err != nil {
			if dbconn.IsServerError(err) {
				return nil, err
			}
			return nil, &QueryError{Table: spec.Name, Cause: err}
		}
		if err := ds.Append(vals...); err != nil {
			return nil, &QueryError{Table: spec.Name, Cause: err}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}
