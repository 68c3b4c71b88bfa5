package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"contrib.go.opencensus.io/integrations/ocsql"
	"github.com/bool64/ctxd"
	"github.com/bool64/dbwrap"
	"github.com/bool64/stats"
	"go.opencensus.io/trace"
)

// skipPackages are not reported as query callers.
var skipPackages = []string{
	"github.com/Masterminds/squirrel",
	"github.com/bool64/sqluct",
	"github.com/jmoiron/sqlx",
}

// withTracing instruments database connector with OpenCensus tracing.
func withTracing(cfg ModuleConfig, dbConnector driver.Connector) driver.Connector {
	return ocsql.WrapConnector(dbConnector,
		ocsql.WithQuery(true),
		ocsql.WithRowsClose(true),
		ocsql.WithRowsAffected(true),
		ocsql.WithAllowRoot(true),
		ocsql.WithDisableErrSkip(true),
		ocsql.WithDefaultAttributes(
			trace.StringAttribute("db.url", RedactURL(cfg.URL)),
			trace.StringAttribute("db.compatible_type", cfg.CompatibleType.String()),
		),
	)
}

// withQueriesLogging instruments database connector with query logging and stats.
func withQueriesLogging(cfg ModuleConfig, dbConnector driver.Connector, logger ctxd.Logger, statsTracker stats.Tracker) driver.Connector {
	if logger == nil {
		logger = ctxd.NoOpLogger{}
	}

	if statsTracker == nil {
		statsTracker = stats.NoOp{}
	}

	return dbwrap.WrapConnector(dbConnector,
		// Caller name as statement comment enables reverse debugging from DB side.
		dbwrap.WithInterceptor(func(ctx context.Context, _ dbwrap.Operation, statement string, args []driver.NamedValue) (context.Context, string, []driver.NamedValue) {
			return ctx, statement + " -- " + dbwrap.Caller(skipPackages...), args
		}),
		dbwrap.WithOperations(dbwrap.Query, dbwrap.StmtQuery, dbwrap.Exec, dbwrap.StmtExec, dbwrap.RowsClose),
		dbwrap.WithMiddleware(observe(cfg.CompatibleType, logger, statsTracker)),
	)
}

func observe(compatible CompatibleType, logger ctxd.Logger, statsTracker stats.Tracker) dbwrap.Middleware {
	compat := compatible.String()

	return func(
		ctx context.Context,
		operation dbwrap.Operation,
		statement string,
		args []driver.NamedValue,
	) (nCtx context.Context, onFinish func(error)) {
		caller := dbwrap.Caller(skipPackages...)

		if operation == dbwrap.RowsClose {
			statsTracker.Add(ctx, "sql_storage_rows_close", 1, "method", caller, "compatible_type", compat)

			return ctx, nil
		}

		ctx, span := trace.StartSpan(ctx, caller+":"+string(operation))
		span.AddAttributes(
			trace.StringAttribute("stmt", statement),
			trace.StringAttribute("args", fmt.Sprintf("%v", args)),
		)

		statsTracker.Add(ctx, "sql_storage_queries_total", 1, "method", caller, "compatible_type", compat)

		started := time.Now()

		return ctx, func(err error) {
			defer span.End()

			// ErrSkip happens in Exec or Query that is upgraded to prepared statement.
			if errors.Is(err, driver.ErrSkip) {
				return
			}

			res := " complete"

			if err != nil {
				span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()})

				res = " failed"
			}

			statsTracker.Add(ctx, "sql_storage_queries_seconds", time.Since(started).Seconds(),
				"method", caller, "compatible_type", compat)

			logger.Debug(ctx, caller+" "+string(operation)+res,
				"stmt", statement,
				"args", args,
				"elapsed", time.Since(started).String(),
				"err", err,
			)
		}
	}
}
