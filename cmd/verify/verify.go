package verify

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/cmd/internal/cmdutil"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/reportstore"
	"github.com/cockroachdb/indexverify/verify"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
	"github.com/spf13/cobra"
)

const unsetHeight = -1

func Command() *cobra.Command {
	var (
		verifyConcurrency      int
		verifyMessageMode      string
		verifyQueriesPerSecond float64
		verifyStartHeight      int64
		verifyEndHeight        int64
		verifySorted           bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify two copies of a blockchain index align.",
		Long: `Verify compares blocks, transactions, messages and per message type detail tables
between two copies of a blockchain index, reporting rows missing from either side and fields which differ.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cmdutil.Logger()
			if err != nil {
				return err
			}
			cmdutil.RunMetricsServer(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var opts []verify.VerifyOpt
			var bounds dbtable.Bounds
			if verifyStartHeight != unsetHeight {
				bounds.Start = &verifyStartHeight
			}
			if verifyEndHeight != unsetHeight {
				bounds.End = &verifyEndHeight
			}
			if err := bounds.Validate(); err != nil {
				return err
			}
			mode, err := verify.ParseMessageMode(verifyMessageMode)
			if err != nil {
				return err
			}
			msgTypes, err := cmdutil.MsgTypes()
			if err != nil {
				return err
			}
			schema, err := cmdutil.Schema()
			if err != nil {
				return err
			}
			opts = append(
				opts,
				verify.WithBounds(bounds),
				verify.WithMessageMode(mode),
				verify.WithMsgTypes(msgTypes),
				verify.WithSchema(schema),
				verify.WithConcurrency(verifyConcurrency),
				verify.WithQueriesPerSecond(verifyQueriesPerSecond),
			)

			stores, err := cmdutil.ReportStores(ctx, logger)
			if err != nil {
				return errors.Wrap(err, "error configuring report destination")
			}

			var findingsReporter inconsistency.Reporter = &inconsistency.LogReporter{Logger: logger}
			if verifySorted {
				findingsReporter = &inconsistency.SortingReporter{Reporter: findingsReporter}
			}
			reporter := inconsistency.CombinedReporter{}
			reporter.Reporters = append(reporter.Reporters, findingsReporter)
			runID := reportstore.NewRunID()
			var storeReporters []*inconsistency.StoreReporter
			for _, store := range stores {
				r := inconsistency.NewStoreReporter(
					logger,
					store,
					reportstore.RunKey(runID, "findings.jsonl"),
					cmdutil.ReportUploadTimeout(),
				)
				storeReporters = append(storeReporters, r)
				reporter.Reporters = append(reporter.Reporters, r)
			}

			conns, err := cmdutil.LoadDBConns(ctx, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := conns.Close(context.Background()); err != nil {
					logger.Warn().Err(err).Msgf("error closing connections")
				}
			}()

			reporter.Report(inconsistency.StatusReport{Info: "verification in progress"})
			res, err := verify.Verify(ctx, conns, logger, reporter, opts...)
			if err != nil {
				reporter.Close()
				return errors.Wrapf(err, "error verifying")
			}
			reporter.Report(inconsistency.StatusReport{Info: "verification complete"})
			reporter.Close()

			for _, r := range storeReporters {
				if err := r.Err(); err != nil {
					return err
				}
			}
			if len(res.FailedTables) > 0 {
				return errors.Newf(
					"%d tables could not be verified: %v",
					len(res.FailedTables),
					inconsistency.TableNames(res.FailedTables),
				)
			}
			if res.HasFindings() {
				return errors.Wrapf(verify.ErrFindings, "%d findings", res.Findings)
			}
			return nil
		},
	}

	cmd.PersistentFlags().IntVar(
		&verifyConcurrency,
		"concurrency",
		verify.DefaultConcurrency,
		"number of transactions whose messages are compared at a time (0 uses the number of CPUs)",
	)
	cmd.PersistentFlags().StringVar(
		&verifyMessageMode,
		"message-mode",
		verify.PerTransaction.String(),
		"per-transaction to compare messages one transaction at a time, or global to compare them in a single pass",
	)
	cmd.PersistentFlags().Float64Var(
		&verifyQueriesPerSecond,
		"queries-per-second",
		0,
		"if set, maximum number of queries issued per second to each database",
	)
	cmd.PersistentFlags().Int64Var(
		&verifyStartHeight,
		"start-height",
		unsetHeight,
		"first block height to verify (defaults to the beginning)",
	)
	cmd.PersistentFlags().Int64Var(
		&verifyEndHeight,
		"end-height",
		unsetHeight,
		"last block height to verify (defaults to the end)",
	)
	cmd.PersistentFlags().BoolVar(
		&verifySorted,
		"sort-findings",
		false,
		"whether findings are logged once verification completes, ordered by table and key",
	)
	cmdutil.RegisterDBConnFlags(cmd)
	cmdutil.RegisterMsgFilterFlags(cmd)
	cmdutil.RegisterReportFlags(cmd)
	return cmd
}
