package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/cmd/internal/cmdutil"
	verifycmd "github.com/cockroachdb/indexverify/cmd/verify"
	"github.com/cockroachdb/indexverify/verify"
	"github.com/spf13/cobra"
)

const (
	exitOK       = 0
	exitFindings = 1
	exitError    = 2
)

var rootCmd = &cobra.Command{
	Use:   "indexverify",
	Short: "Reconcile two copies of a blockchain index",
	Long: `indexverify compares two independently produced copies of a blockchain index
and reports every row missing from one side and every field which differs.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return cmdutil.LoadConfig(cmd)
	},
}

// exitCode maps the outcome of a command to the process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, verify.ErrFindings):
		return exitFindings
	}
	return exitError
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func init() {
	cmdutil.RegisterConfigFlags(rootCmd)
	cmdutil.RegisterLoggerFlags(rootCmd)
	cmdutil.RegisterMetricsFlags(rootCmd)
	rootCmd.AddCommand(verifycmd.Command())
}
