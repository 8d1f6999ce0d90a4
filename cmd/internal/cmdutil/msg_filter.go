package cmdutil

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/verify"
	"github.com/spf13/cobra"
)

type msgFilterConfig struct {
	msgTypes []string
	ignore   []string
}

var msgFilterCfg = msgFilterConfig{}

func RegisterMsgFilterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringSliceVar(
		&msgFilterCfg.msgTypes,
		"msg-types",
		msgFilterCfg.msgTypes,
		"message types whose detail tables are verified (defaults to all)",
	)
	cmd.PersistentFlags().StringArrayVar(
		&msgFilterCfg.ignore,
		"ignore",
		msgFilterCfg.ignore,
		"columns of a table excluded from comparison, as table=col1,col2 (replaces the default of rowid)",
	)
}

// MsgTypes returns the message types to verify.
func MsgTypes() ([]verify.MsgType, error) {
	return verify.ParseMsgTypes(msgFilterCfg.msgTypes)
}

// Schema returns the default schema with any ignore overrides applied.
func Schema() (verify.Schema, error) {
	s := verify.DefaultSchema()
	for _, override := range msgFilterCfg.ignore {
		table, cols, ok := strings.Cut(override, "=")
		if !ok || strings.TrimSpace(table) == "" {
			return s, errors.Newf("invalid --ignore value %q, expected table=col1,col2", override)
		}
		var colList []string
		for _, col := range strings.Split(cols, ",") {
			if col = strings.TrimSpace(col); col != "" {
				colList = append(colList, col)
			}
		}
		var err error
		if s, err = s.WithIgnore(strings.TrimSpace(table), colList); err != nil {
			return s, err
		}
	}
	return s, nil
}
