package dbconn

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/mysqlurl"
	mysqldriver "github.com/go-sql-driver/mysql"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// Config describes how to reach one side of a comparison. If URL is set it
// is used verbatim and the discrete fields are ignored.
type Config struct {
	URL      string `mapstructure:"url"`
	Dialect  string `mapstructure:"dialect"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

func DefaultConfig() Config {
	return Config{
		Dialect:  DialectPostgres,
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Database: "indexerdb",
	}
}

// ConnStr returns a connection string for the config.
func (c Config) ConnStr() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	if c.Host == "" {
		return "", errors.Newf("host must be set")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return "", errors.Newf("invalid port %d", c.Port)
	}
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	switch strings.ToLower(c.Dialect) {
	case "", DialectPostgres, "postgresql", "cockroach", "cockroachdb":
		u := url.URL{
			Scheme: "postgres",
			Host:   addr,
			Path:   "/" + c.Database,
		}
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else if c.User != "" {
			u.User = url.User(c.User)
		}
		if c.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": []string{c.SSLMode}}.Encode()
		}
		return u.String(), nil
	case DialectMySQL:
		cfg := mysqldriver.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = addr
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.DBName = c.Database
		if c.SSLMode != "" {
			cfg.TLSConfig = c.SSLMode
		}
		return mysqlurl.CfgToConnStr(cfg), nil
	}
	return "", errors.Newf("unknown dialect %q", c.Dialect)
}
