package cmdutil

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbconn"
	"github.com/cockroachdb/indexverify/retry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type dbConnConfig struct {
	source       dbconn.Config
	target       dbconn.Config
	connectRetry retry.Settings
}

var dbConnCfg = dbConnConfig{
	source:       dbconn.DefaultConfig(),
	target:       dbconn.DefaultConfig(),
	connectRetry: retry.DefaultSettings(),
}

func registerSideFlags(cmd *cobra.Command, side string, cfg *dbconn.Config) {
	flags := cmd.PersistentFlags()
	flags.StringVar(
		&cfg.URL,
		side,
		cfg.URL,
		"URL of the "+side+" database; when set, the other --"+side+"-* flags are ignored",
	)
	flags.StringVar(&cfg.Dialect, side+"-dialect", cfg.Dialect, "dialect of the "+side+" database (postgres or mysql)")
	flags.StringVar(&cfg.Host, side+"-host", cfg.Host, "host of the "+side+" database")
	flags.IntVar(&cfg.Port, side+"-port", cfg.Port, "port of the "+side+" database")
	flags.StringVar(&cfg.User, side+"-user", cfg.User, "user to connect to the "+side+" database as")
	flags.StringVar(&cfg.Password, side+"-password", cfg.Password, "password of the "+side+" database user")
	flags.StringVar(&cfg.Database, side+"-database", cfg.Database, "name of the "+side+" database")
	flags.StringVar(&cfg.SSLMode, side+"-sslmode", cfg.SSLMode, "sslmode used to connect to a postgres "+side+" database")
}

// RegisterDBConnFlags registers the flags describing the source (left) and
// target (right) databases.
func RegisterDBConnFlags(cmd *cobra.Command) {
	registerSideFlags(cmd, "source", &dbConnCfg.source)
	registerSideFlags(cmd, "target", &dbConnCfg.target)
	cmd.PersistentFlags().IntVar(
		&dbConnCfg.connectRetry.MaxRetries,
		"connect-retries",
		dbConnCfg.connectRetry.MaxRetries,
		"number of times to retry connecting to an unreachable database",
	)
	cmd.PersistentFlags().DurationVar(
		&dbConnCfg.connectRetry.InitialBackoff,
		"connect-initial-backoff",
		dbConnCfg.connectRetry.InitialBackoff,
		"time to wait before the first connection retry",
	)
}

// LoadDBConns connects to both databases. Either both connections are
// returned or neither is.
func LoadDBConns(ctx context.Context, logger zerolog.Logger) (dbconn.OrderedConns, error) {
	if err := dbConnCfg.connectRetry.Verify(); err != nil {
		return dbconn.OrderedConns{}, err
	}
	var conns dbconn.OrderedConns
	for i, side := range []struct {
		id  dbconn.ID
		cfg dbconn.Config
	}{
		{id: "source", cfg: dbConnCfg.source},
		{id: "target", cfg: dbConnCfg.target},
	} {
		connStr, err := side.cfg.ConnStr()
		if err != nil {
			_ = conns.Close(ctx)
			return dbconn.OrderedConns{}, errors.Wrapf(err, "invalid %s connection", side.id)
		}
		conns[i], err = dbconn.ConnectWithRetry(ctx, logger, side.id, connStr, dbConnCfg.connectRetry)
		if err != nil {
			_ = conns.Close(ctx)
			return dbconn.OrderedConns{}, err
		}
	}
	return conns, nil
}
