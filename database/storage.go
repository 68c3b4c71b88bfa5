package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/bool64/ctxd"
	"github.com/bool64/sqluct"
	"github.com/bool64/stats"
	"github.com/jmoiron/sqlx"
	"github.com/vearutop/gooselite"
	"github.com/vearutop/gooselite/iofs"
)

// ErrOracleMigrations is returned when migrations are requested in Oracle compatibility mode.
const ErrOracleMigrations = ctxd.SentinelError("migrations are not supported in Oracle compatibility mode")

// SetupStorage initializes database pool with module config and prepares storage.
//
// MaxConnections limits open connections, MinConnections is kept as idle connections,
// IdleTimeoutSec limits idle connection lifetime and ConnectTimeoutSec limits initial ping.
// Migrations are applied from "migrations" directory of fs if it is not nil.
func SetupStorage(
	ctx context.Context,
	cfg ModuleConfig,
	logger ctxd.Logger,
	statsTracker stats.Tracker,
	driverName string,
	conn driver.Connector,
	migrations fs.FS,
) (*sqluct.Storage, error) {
	if logger == nil {
		logger = ctxd.NoOpLogger{}
	}

	if migrations != nil && cfg.CompatibleType == CompatibleOracle {
		return nil, ErrOracleMigrations
	}

	logger.Info(ctx, "setting up database storage", "driver", driverName, "config", cfg.Redacted())

	conn = withTracing(cfg, conn)
	conn = withQueriesLogging(cfg, conn, logger, statsTracker)

	db := sql.OpenDB(conn)
	db.SetMaxOpenConns(int(cfg.MaxConnections))
	db.SetMaxIdleConns(int(cfg.MinConnections))

	if t, ok := cfg.IdleTimeout(); ok {
		db.SetConnMaxIdleTime(t)
	}

	if err := ping(ctx, cfg, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database %s: %w", RedactURL(cfg.URL), err)
	}

	st := sqluct.NewStorage(sqlx.NewDb(db, driverName))

	switch {
	case cfg.CompatibleType == CompatibleOracle:
		st.Format = squirrel.Colon
		st.IdentifierQuoter = sqluct.QuoteANSI
	case driverName == DriverMySQL, driverName == DriverSQLite, driverName == "sqlite":
		st.Format = squirrel.Question
		st.IdentifierQuoter = sqluct.QuoteBackticks
	case driverName == DriverPostgres, driverName == "pgx":
		st.Format = squirrel.Dollar
		st.IdentifierQuoter = sqluct.QuoteANSI
	}

	if migrations == nil {
		return st, nil
	}

	if err := migrate(ctx, logger, driverName, db, migrations); err != nil {
		_ = db.Close()

		return nil, err
	}

	return st, nil
}

func migrate(ctx context.Context, logger ctxd.Logger, driverName string, db *sql.DB, migrations fs.FS) error {
	gooselite.SetLogger(gooseLogger{c: ctx, l: logger})

	if err := gooselite.SetDialect(driverName); err != nil {
		return err
	}

	if err := iofs.Up(db, migrations, "migrations"); err != nil {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}

	return nil
}

func ping(ctx context.Context, cfg ModuleConfig, db *sql.DB) error {
	if t, ok := cfg.ConnectTimeout(); ok {
		var cancel func()

		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	return db.PingContext(ctx)
}

// GooseLogger adapts contextualized logger for goose.
type gooseLogger struct {
	c context.Context // nolint:containedctx // Implemented interface is not contextualized, so ctx is contained.
	l ctxd.Logger
}

func (l gooseLogger) Fatal(v ...interface{}) { l.l.Error(l.c, fmt.Sprint(v...)); os.Exit(1) }
func (l gooseLogger) Fatalf(f string, v ...interface{}) {
	l.l.Error(l.c, fmt.Sprintf(f, v...))
	os.Exit(1)
}

func (l gooseLogger) Print(v ...interface{}) {
	l.l.Info(l.c, strings.TrimRight(fmt.Sprint(v...), "\n"))
}
func (l gooseLogger) Println(v ...interface{}) { l.l.Info(l.c, fmt.Sprint(v...)) }
func (l gooseLogger) Printf(f string, v ...interface{}) {
	l.l.Info(l.c, strings.TrimRight(fmt.Sprintf(f, v...), "\n"))
}
