package verify

import (
	"context"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dataset"
	"github.com/cockroachdb/indexverify/dbconn"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
	"github.com/cockroachdb/indexverify/verify/rowverify"
	"github.com/rs/zerolog"
)

const DefaultConcurrency = 8

// ErrFindings is returned by callers which treat a run with findings as a
// failure.
var ErrFindings = errors.New("inconsistencies found")

// MessageMode selects how the messages of matching transactions are
// compared.
type MessageMode int

const (
	// PerTransaction reads and compares the messages of each transaction
	// separately, keyed by message index.
	PerTransaction MessageMode = iota
	// Global compares the whole message table in one merge join. This
	// relies on both sides ordering the transaction hash identically.
	Global
)

func (m MessageMode) String() string {
	switch m {
	case PerTransaction:
		return "per-transaction"
	case Global:
		return "global"
	}
	return "unknown"
}

func ParseMessageMode(s string) (MessageMode, error) {
	switch strings.ToLower(s) {
	case "per-transaction", "":
		return PerTransaction, nil
	case "global":
		return Global, nil
	}
	return 0, errors.Newf("unknown message mode %q, expected per-transaction or global", s)
}

type VerifyOpt func(*verifyOpts)

type verifyOpts struct {
	bounds           dbtable.Bounds
	schema           Schema
	messageMode      MessageMode
	concurrency      int
	msgTypes         []MsgType
	queriesPerSecond float64
	readers          *[2]dataset.Reader
}

// WithBounds restricts blocks, transactions and detail tables to a height
// range.
func WithBounds(b dbtable.Bounds) VerifyOpt {
	return func(o *verifyOpts) {
		o.bounds = b
	}
}

func WithSchema(s Schema) VerifyOpt {
	return func(o *verifyOpts) {
		o.schema = s
	}
}

func WithMessageMode(m MessageMode) VerifyOpt {
	return func(o *verifyOpts) {
		o.messageMode = m
	}
}

// WithConcurrency bounds the number of transactions whose messages are
// compared at once. Zero uses the number of CPUs.
func WithConcurrency(c int) VerifyOpt {
	return func(o *verifyOpts) {
		o.concurrency = c
	}
}

// WithMsgTypes restricts the detail tables compared. An empty list
// compares every message type.
func WithMsgTypes(types []MsgType) VerifyOpt {
	return func(o *verifyOpts) {
		o.msgTypes = types
	}
}

func WithQueriesPerSecond(qps float64) VerifyOpt {
	return func(o *verifyOpts) {
		o.queriesPerSecond = qps
	}
}

// WithReaders reads from the given readers instead of the connections
// passed to Verify. The readers are not closed.
func WithReaders(left, right dataset.Reader) VerifyOpt {
	return func(o *verifyOpts) {
		o.readers = &[2]dataset.Reader{left, right}
	}
}

// TableStats is the outcome of comparing one table.
type TableStats struct {
	dbtable.Name
	rowverify.Stats
}

// Result summarizes a run.
type Result struct {
	Findings     int
	Tables       []TableStats
	FailedTables []dbtable.Name
}

// HasFindings returns whether the two indexes differ. Tables which could
// not be compared are listed in FailedTables instead.
func (r Result) HasFindings() bool {
	return r.Findings > 0
}

// Verify compares two indexes level by level: blocks, transactions, the
// messages of transactions present on both sides, then the detail table of
// each message type. Findings are sent to reporter as they are found.
//
// A run stops at the first connectivity or precomparison error, and at a
// query error on any level but the detail tables. A detail table which
// cannot be read is reported as a TableFailure and the run continues.
func Verify(
	ctx context.Context,
	conns dbconn.OrderedConns,
	logger zerolog.Logger,
	reporter inconsistency.Reporter,
	inOpts ...VerifyOpt,
) (Result, error) {
	opts := verifyOpts{
		schema:      DefaultSchema(),
		concurrency: DefaultConcurrency,
		messageMode: PerTransaction,
	}
	for _, applyOpt := range inOpts {
		applyOpt(&opts)
	}
	if len(opts.msgTypes) == 0 {
		opts.msgTypes = AllMsgTypes()
	}
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	if opts.concurrency == 0 {
		opts.concurrency = runtime.NumCPU()
		logger.Debug().Int("concurrency", opts.concurrency).
			Msgf("no concurrency set; defaulting to number of CPUs")
	}

	var readers [2]dataset.Reader
	if opts.readers != nil {
		readers = *opts.readers
	} else {
		for i, conn := range conns {
			if conn == nil {
				return Result{}, errors.AssertionFailedf("connection %d is not set", i)
			}
			r, err := dataset.NewReader(
				conn,
				dataset.WithQueriesPerSecond(opts.queriesPerSecond),
				dataset.WithLogger(logger.With().Str("conn", string(conn.ID())).Logger()),
			)
			if err != nil {
				return Result{}, err
			}
			readers[i] = r
		}
		logger.Info().
			Str("left_dialect", conns[0].Dialect()).
			Str("right_dialect", conns[1].Dialect()).
			Msgf("verifying %s against %s", conns[0].ID(), conns[1].ID())
	}

	w := &walker{
		readers:  readers,
		logger:   logger,
		reporter: reporter,
		opts:     opts,
	}
	start := time.Now()
	if err := w.run(ctx); err != nil {
		return w.result, err
	}
	reporter.Report(inconsistency.Summary{
		Findings:      w.result.Findings,
		TablesChecked: len(w.result.Tables),
		FailedTables:  w.result.FailedTables,
		Duration:      time.Since(start),
	})
	return w.result, nil
}

func (o verifyOpts) validate() error {
	if err := o.bounds.Validate(); err != nil {
		return err
	}
	if err := o.schema.Validate(); err != nil {
		return err
	}
	if o.concurrency < 0 {
		return errors.Newf("concurrency must be >= 0, got %d", o.concurrency)
	}
	if o.queriesPerSecond < 0 {
		return errors.Newf("queries per second must be >= 0, got %f", o.queriesPerSecond)
	}
	if o.messageMode != PerTransaction && o.messageMode != Global {
		return errors.Newf("unknown message mode %d", o.messageMode)
	}
	txns := o.schema.Transactions
	scopeCol := o.schema.Messages.ScopeColumn
	if txns.Columns != nil && !containsColumn(txns.Columns, scopeCol) {
		return errors.Newf("table %s must select %s to scope messages", txns.SafeString(), scopeCol)
	}
	if o.messageMode == PerTransaction && len(scopedKeyColumns(o.schema.Messages)) == 0 {
		return errors.Newf(
			"table %s needs a key column besides %s to compare per transaction",
			o.schema.Messages.SafeString(),
			scopeCol,
		)
	}
	return nil
}

func containsColumn(cols []string, col string) bool {
	for _, c := range cols {
		if strings.EqualFold(c, col) {
			return true
		}
	}
	return false
}

// scopedKeyColumns is the key of a table within one scope value.
func scopedKeyColumns(spec dbtable.Spec) []string {
	var ret []string
	for _, col := range spec.KeyColumns {
		if !strings.EqualFold(col, spec.ScopeColumn) {
			ret = append(ret, col)
		}
	}
	return ret
}
