package cmdutil

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variable of every flag, e.g.
// INDEXVERIFY_SOURCE_HOST for --source-host.
const EnvPrefix = "INDEXVERIFY"

type configFileConfig struct {
	path    string
	envFile string
}

var configFileCfg = configFileConfig{
	envFile: ".env",
}

func RegisterConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&configFileCfg.path,
		"config",
		configFileCfg.path,
		"YAML, TOML or JSON file holding flag values, keyed by flag name",
	)
	cmd.PersistentFlags().StringVar(
		&configFileCfg.envFile,
		"env-file",
		configFileCfg.envFile,
		"dotenv file loaded into the environment if it exists",
	)
}

// LoadConfig sets every flag not given on the command line from the
// environment or, failing that, the config file.
func LoadConfig(cmd *cobra.Command) error {
	if configFileCfg.envFile != "" {
		// Variables already in the environment take precedence.
		if err := godotenv.Load(configFileCfg.envFile); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "error loading %s", configFileCfg.envFile)
		}
	}
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if configFileCfg.path != "" {
		v.SetConfigFile(configFileCfg.path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "error reading config file %s", configFileCfg.path)
		}
	}
	return applyConfig(v, cmd.Flags())
}

func applyConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || !v.IsSet(f.Name) {
			return
		}
		switch f.Name {
		case "config", "env-file":
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			switch v.Get(f.Name).(type) {
			case []any, []string:
				if replaceErr := sv.Replace(v.GetStringSlice(f.Name)); replaceErr != nil {
					err = errors.Wrapf(replaceErr, "invalid value for %s", f.Name)
				}
				return
			}
		}
		if setErr := flags.Set(f.Name, v.GetString(f.Name)); setErr != nil {
			err = errors.Wrapf(setErr, "invalid value for %s", f.Name)
		}
	})
	return err
}
