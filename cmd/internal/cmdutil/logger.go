package cmdutil

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type loggerConfig struct {
	level  string
	format string
}

var loggerConfigInst = loggerConfig{
	level:  zerolog.InfoLevel.String(),
	format: "console",
}

func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.level,
		"level",
		loggerConfigInst.level,
		"what level to log at - maps to zerolog.Level",
	)
	cmd.PersistentFlags().StringVar(
		&loggerConfigInst.format,
		"log-format",
		loggerConfigInst.format,
		"console for human readable logs, json for one JSON object per line",
	)
}

func Logger() (zerolog.Logger, error) {
	var w io.Writer
	switch loggerConfigInst.format {
	case "console":
		w = zerolog.NewConsoleWriter()
	case "json":
		w = os.Stderr
	default:
		return zerolog.Nop(), errors.Newf("unknown log format %q", loggerConfigInst.format)
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(loggerConfigInst.level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), err
}
