package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dataset"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
	"github.com/cockroachdb/indexverify/verify/rowverify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	messageWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "indexverify",
		Subsystem: "verify",
		Name:      "message_workers_running",
		Help:      "Number of workers comparing the messages of a transaction.",
	})
	tablesVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexverify",
		Subsystem: "verify",
		Name:      "tables_verified",
		Help:      "Tables compared, by outcome.",
	}, []string{"outcome"})
)

var sides = [2]inconsistency.Side{inconsistency.Left, inconsistency.Right}

// txnPair is a transaction present on both sides.
type txnPair struct {
	key dataset.Key
	// scope holds the value of the messages scope column on each side.
	scope [2]any
}

type walker struct {
	readers  [2]dataset.Reader
	logger   zerolog.Logger
	reporter inconsistency.Reporter
	opts     verifyOpts
	result   Result
}

func (w *walker) run(ctx context.Context) error {
	schema := w.opts.schema
	filter := dataset.Filter{Bounds: w.opts.bounds}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.verifyBlocks(ctx, schema.Blocks, filter); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	pairs, err := w.verifyTransactions(ctx, schema.Transactions, schema.Messages.ScopeColumn, filter)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	switch w.opts.messageMode {
	case PerTransaction:
		err = w.verifyMessagesPerTransaction(ctx, schema.Transactions, schema.Messages, pairs)
	case Global:
		err = w.verifyMessagesGlobal(ctx, schema.Transactions, schema.Messages, pairs)
	}
	if err != nil {
		return err
	}

	for _, t := range w.opts.msgTypes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.verifyDetails(ctx, schema.Details[t], filter); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) record(name dbtable.Name, stats rowverify.Stats) {
	w.result.Tables = append(w.result.Tables, TableStats{Name: name, Stats: stats})
	w.result.Findings += stats.Findings()
	tablesVerified.WithLabelValues("success").Inc()
	w.logger.Info().
		Str("table", name.SafeString()).
		Int("findings", stats.Findings()).
		Msgf("finished verifying %s: %s", name.SafeString(), stats)
}

// readBoth reads spec from both sides concurrently.
func readBoth(
	ctx context.Context,
	readers [2]dataset.Reader,
	spec dbtable.Spec,
	filters [2]dataset.Filter,
) ([2]*dataset.Dataset, error) {
	var ret [2]*dataset.Dataset
	g, gCtx := errgroup.WithContext(ctx)
	for i := range readers {
		i := i
		g.Go(func() error {
			ds, err := readers[i].Read(gCtx, spec, filters[i])
			if err != nil {
				return errors.Wrapf(err, "error reading %s side", sides[i])
			}
			ret[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ret, err
	}
	return ret, nil
}

func bothFilters(f dataset.Filter) [2]dataset.Filter {
	return [2]dataset.Filter{f, f}
}

func (w *walker) verifyBlocks(ctx context.Context, spec dbtable.Spec, filter dataset.Filter) error {
	w.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("verifying %s, %s", spec.SafeString(), filter),
	})
	ds, err := readBoth(ctx, w.readers, spec, bothFilters(filter))
	if err != nil {
		return err
	}
	stats, err := rowverify.CompareDatasets(ds[0], ds[1], spec.Ignore, &rowverify.ReportingListener{
		Reporter: w.reporter,
	})
	if err != nil {
		return err
	}
	w.record(spec.Name, stats)
	return nil
}

// verifyTransactions compares transactions and returns those present on
// both sides, in key order.
func (w *walker) verifyTransactions(
	ctx context.Context, spec dbtable.Spec, scopeCol string, filter dataset.Filter,
) ([]txnPair, error) {
	w.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("verifying %s, %s", spec.SafeString(), filter),
	})
	ds, err := readBoth(ctx, w.readers, spec, bothFilters(filter))
	if err != nil {
		return nil, err
	}
	var scopeIdxs [2]int
	for i := range ds {
		if scopeIdxs[i] = ds[i].ColumnIndex(scopeCol); scopeIdxs[i] < 0 {
			return nil, &dataset.QueryError{
				Table: spec.Name,
				Cause: errors.Newf("column %s missing on %s side", scopeCol, sides[i]),
			}
		}
	}
	var pairs []txnPair
	stats, err := rowverify.CompareDatasets(ds[0], ds[1], spec.Ignore, &rowverify.ReportingListener{
		Reporter: w.reporter,
		OnPair: func(key dataset.Key, left, right dataset.Row) {
			pairs = append(pairs, txnPair{
				key:   key,
				scope: [2]any{left.Values[scopeIdxs[0]], right.Values[scopeIdxs[1]]},
			})
		},
	})
	if err != nil {
		return nil, err
	}
	w.record(spec.Name, stats)
	return pairs, nil
}

type txnResult struct {
	stats   rowverify.Stats
	objects []inconsistency.ReportableObject
}

// verifyMessagesPerTransaction compares the messages of each transaction in
// pairs on its own. Transactions are compared concurrently, but findings
// are reported in transaction key order.
func (w *walker) verifyMessagesPerTransaction(
	ctx context.Context, txnSpec, spec dbtable.Spec, pairs []txnPair,
) error {
	w.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("verifying %s for %d transactions", spec.SafeString(), len(pairs)),
	})
	scoped := spec
	scoped.KeyColumns = scopedKeyColumns(spec)

	results := make([]txnResult, len(pairs))
	numWorkers := w.opts.concurrency
	if numWorkers > len(pairs) {
		numWorkers = len(pairs)
	}
	g, gCtx := errgroup.WithContext(ctx)
	workQueue := make(chan int)
	for workerIdx := 0; workerIdx < numWorkers; workerIdx++ {
		g.Go(func() error {
			messageWorkers.Inc()
			defer messageWorkers.Dec()

			// Each worker reads over its own connections.
			readers, err := cloneReaders(gCtx, w.readers)
			if err != nil {
				return err
			}
			defer closeReaders(ctx, w.logger, readers)

			for idx := range workQueue {
				if err := gCtx.Err(); err != nil {
					return err
				}
				res, err := w.verifyTransactionMessages(gCtx, readers, txnSpec, scoped, pairs[idx])
				if err != nil {
					return err
				}
				results[idx] = res
			}
			return nil
		})
	}
feed:
	for idx := range pairs {
		select {
		case workQueue <- idx:
		case <-gCtx.Done():
			break feed
		}
	}
	close(workQueue)
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var stats rowverify.Stats
	for _, res := range results {
		for _, obj := range res.objects {
			w.reporter.Report(obj)
		}
		stats.Add(res.stats)
	}
	w.record(spec.Name, stats)
	return nil
}

func (w *walker) verifyTransactionMessages(
	ctx context.Context, readers [2]dataset.Reader, txnSpec, spec dbtable.Spec, pair txnPair,
) (txnResult, error) {
	var filters [2]dataset.Filter
	for i, v := range pair.scope {
		if v == nil {
			return txnResult{}, &dataset.PrecomparisonError{
				Table:  txnSpec.Name,
				Side:   sides[i].String(),
				Reason: fmt.Sprintf("transaction %s has NULL %s", pair.key, spec.ScopeColumn),
			}
		}
		filters[i] = dataset.Filter{Scope: &dataset.Scope{Column: spec.ScopeColumn, Value: v}}
	}
	ds, err := readBoth(ctx, readers, spec, filters)
	if err != nil {
		return txnResult{}, err
	}
	collector := &inconsistency.CollectingReporter{}
	stats, err := rowverify.CompareDatasets(ds[0], ds[1], spec.Ignore, &rowverify.ReportingListener{
		Reporter: collector,
		Parent: &inconsistency.ParentKey{
			Name:       txnSpec.Name,
			KeyColumns: txnSpec.KeyColumns,
			KeyValues:  pair.key,
		},
	})
	if err != nil {
		return txnResult{}, err
	}
	return txnResult{stats: stats, objects: collector.Objects()}, nil
}

func cloneReaders(ctx context.Context, readers [2]dataset.Reader) ([2]dataset.Reader, error) {
	var ret [2]dataset.Reader
	for i, r := range readers {
		c, err := r.Clone(ctx)
		if err != nil {
			for _, cloned := range ret[:i] {
				_ = cloned.Close(ctx)
			}
			return ret, errors.Wrap(err, "error establishing connection to compare")
		}
		ret[i] = c
	}
	return ret, nil
}

func closeReaders(ctx context.Context, logger zerolog.Logger, readers [2]dataset.Reader) {
	for _, r := range readers {
		if err := r.Close(ctx); err != nil {
			logger.Warn().Err(err).Msgf("error closing reader")
		}
	}
}

// verifyMessagesGlobal compares the whole messages table in one merge
// join. Messages whose transaction is not present on both sides are
// dropped first, so a missing transaction is reported once.
func (w *walker) verifyMessagesGlobal(
	ctx context.Context, txnSpec, spec dbtable.Spec, pairs []txnPair,
) error {
	w.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("verifying %s for %d transactions in one pass", spec.SafeString(), len(pairs)),
	})
	var parents [2]map[string]*inconsistency.ParentKey
	// scopeTypes holds the type of the transaction hashes on each side.
	var scopeTypes [2]string
	for i := range parents {
		parents[i] = make(map[string]*inconsistency.ParentKey, len(pairs))
	}
	for _, pair := range pairs {
		parent := &inconsistency.ParentKey{
			Name:       txnSpec.Name,
			KeyColumns: txnSpec.KeyColumns,
			KeyValues:  pair.key,
		}
		for i, v := range pair.scope {
			if v != nil {
				parents[i][scopeKey(v)] = parent
				scopeTypes[i] = fmt.Sprintf("%T", v)
			}
		}
	}

	ds, err := readBoth(ctx, w.readers, spec, bothFilters(dataset.Filter{}))
	if err != nil {
		return err
	}
	for i := range ds {
		if ds[i], err = keepScoped(ds[i], sides[i], spec.ScopeColumn, scopeTypes[i], parents[i]); err != nil {
			return err
		}
	}
	scopeIdx := -1
	for i, col := range ds[0].KeyColumns {
		if strings.EqualFold(col, spec.ScopeColumn) {
			scopeIdx = i
		}
	}
	stats, err := rowverify.CompareDatasets(ds[0], ds[1], spec.Ignore, &rowverify.ReportingListener{
		Reporter: &parentTagger{
			Reporter: w.reporter,
			parents:  parents,
			scopeIdx: scopeIdx,
		},
	})
	if err != nil {
		return err
	}
	w.record(spec.Name, stats)
	return nil
}

func scopeKey(v any) string {
	return datum.Format(v)
}

// keepScoped returns the rows of ds whose scope column is in keep. Scope
// values must have the same type as the transaction hashes they are matched
// against.
func keepScoped(
	ds *dataset.Dataset,
	side inconsistency.Side,
	scopeCol string,
	scopeType string,
	keep map[string]*inconsistency.ParentKey,
) (*dataset.Dataset, error) {
	idx := ds.ColumnIndex(scopeCol)
	if idx < 0 {
		return nil, &dataset.QueryError{
			Table: ds.Table,
			Cause: errors.Newf("column %s missing", scopeCol),
		}
	}
	ret := dataset.NewDataset(ds.Table, ds.Columns, ds.KeyColumns)
	for _, row := range ds.Rows {
		v := row.Values[idx]
		if v == nil {
			continue
		}
		if typ := fmt.Sprintf("%T", v); scopeType != "" && typ != scopeType {
			return nil, &dataset.PrecomparisonError{
				Table:  ds.Table,
				Side:   side.String(),
				Reason: fmt.Sprintf("%s has type %s but transaction hashes have type %s", scopeCol, typ, scopeType),
			}
		}
		if _, ok := keep[scopeKey(v)]; ok {
			ret.Rows = append(ret.Rows, row)
		}
	}
	return ret, nil
}

// parentTagger sets the parent transaction of each finding from the
// transaction hash in its key.
type parentTagger struct {
	inconsistency.Reporter
	parents  [2]map[string]*inconsistency.ParentKey
	scopeIdx int
}

func (p *parentTagger) parent(side inconsistency.Side, key []any) *inconsistency.ParentKey {
	if p.scopeIdx < 0 || p.scopeIdx >= len(key) {
		return nil
	}
	m := p.parents[0]
	if side == inconsistency.Right {
		m = p.parents[1]
	}
	return m[scopeKey(key[p.scopeIdx])]
}

func (p *parentTagger) Report(obj inconsistency.ReportableObject) {
	switch obj := obj.(type) {
	case inconsistency.MissingRow:
		// The row exists on the other side only.
		obj.Parent = p.parent(obj.AbsentOn.Other(), obj.KeyValues)
		p.Reporter.Report(obj)
	case inconsistency.MismatchingField:
		obj.Parent = p.parent(inconsistency.Left, obj.KeyValues)
		p.Reporter.Report(obj)
	default:
		p.Reporter.Report(obj)
	}
}

// verifyDetails compares the detail table of one message type. A table
// that cannot be queried is reported and skipped.
func (w *walker) verifyDetails(ctx context.Context, spec dbtable.Spec, filter dataset.Filter) error {
	w.reporter.Report(inconsistency.StatusReport{
		Info: fmt.Sprintf("verifying %s, %s", spec.SafeString(), filter),
	})
	ds, err := readBoth(ctx, w.readers, spec, bothFilters(filter))
	if err != nil {
		if dataset.IsQueryError(err) && ctx.Err() == nil {
			w.logger.Err(err).
				Str("table", spec.SafeString()).
				Msgf("error verifying rows")
			w.reporter.Report(inconsistency.TableFailure{Name: spec.Name, Err: err})
			w.result.FailedTables = append(w.result.FailedTables, spec.Name)
			tablesVerified.WithLabelValues("failed").Inc()
			return nil
		}
		return err
	}
	stats, err := rowverify.CompareDatasets(ds[0], ds[1], spec.Ignore, &rowverify.ReportingListener{
		Reporter: w.reporter,
	})
	if err != nil {
		return err
	}
	w.record(spec.Name, stats)
	return nil
}
