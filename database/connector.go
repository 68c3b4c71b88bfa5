package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net/url"
	"strings"

	"github.com/bool64/ctxd"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// ErrUnsupportedScheme is returned for URLs without a known driver.
const ErrUnsupportedScheme = ctxd.SentinelError("unsupported database url scheme")

// Driver names.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

// Connector resolves driver by URL scheme.
//
// Supported schemes are postgres, postgresql, mysql, sqlite, sqlite3 and file.
// Connection timeout is passed to driver when it is configured.
func Connector(cfg ModuleConfig) (string, driver.Connector, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" {
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, RedactURL(cfg.URL))
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return postgresConnector(cfg)
	case "mysql":
		return mysqlConnector(cfg, u)
	case "sqlite", "sqlite3", "file":
		return DriverSQLite, dsnConnector{dsn: sqliteDSN(u), driver: &sqlite3.SQLiteDriver{}}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func postgresConnector(cfg ModuleConfig) (string, driver.Connector, error) {
	pc, err := pgx.ParseConfig(cfg.URL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse postgres url: %w", err)
	}

	if t, ok := cfg.ConnectTimeout(); ok {
		pc.ConnectTimeout = t
	}

	return DriverPostgres, stdlib.GetConnector(*pc), nil
}

func mysqlConnector(cfg ModuleConfig, u *url.URL) (string, driver.Connector, error) {
	dsn := ""

	if u.User != nil {
		dsn = u.User.Username()

		if p, ok := u.User.Password(); ok {
			dsn += ":" + p
		}

		dsn += "@"
	}

	dsn += "tcp(" + u.Host + ")/" + strings.TrimPrefix(u.Path, "/")

	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse mysql url %s: %w", RedactURL(cfg.URL), err)
	}

	if t, ok := cfg.ConnectTimeout(); ok {
		mc.Timeout = t
	}

	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return "", nil, err
	}

	return DriverMySQL, conn, nil
}

// sqliteDSN maps sqlite://path/to.db, sqlite:///abs/path.db and sqlite::memory: to driver DSN.
func sqliteDSN(u *url.URL) string {
	if strings.EqualFold(u.Scheme, "file") {
		return u.String()
	}

	dsn := u.Opaque
	if dsn == "" {
		dsn = u.Host + u.Path
	}

	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}

	return dsn
}

// dsnConnector is a driver.Connector for drivers that only implement Open.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

func (c dsnConnector) Connect(_ context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c dsnConnector) Driver() driver.Driver {
	return c.driver
}
