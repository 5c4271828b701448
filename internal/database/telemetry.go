package database

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/trendcast/internal/logging"
	"github.com/irfndi/trendcast/internal/telemetry"
)

// TracedPool wraps a DatabasePool and opens a span around every statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
	logger *logging.StandardLogger
}

// NewTracedPool wraps pool with the global database tracer. logger may be nil.
func NewTracedPool(pool DatabasePool, logger *logging.StandardLogger) *TracedPool {
	return NewTracedPoolWithTracer(pool, telemetry.GetDatabaseTracer(), logger)
}

// NewTracedPoolWithTracer wraps pool with the given tracer.
func NewTracedPoolWithTracer(pool DatabasePool, tracer trace.Tracer, logger *logging.StandardLogger) *TracedPool {
	return &TracedPool{pool: pool, tracer: tracer, logger: logger}
}

// Query executes a query that returns rows
func (db *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, sql)
	defer span.End()

	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	db.finish(span, sql, start, 0, err)
	return rows, err
}

// QueryRow executes a query that returns a single row; scan errors are not visible here
func (db *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, sql)
	defer span.End()

	start := time.Now()
	row := db.pool.QueryRow(ctx, sql, args...)
	db.finish(span, sql, start, 0, nil)
	return row
}

// Exec executes a statement without returning rows
func (db *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, sql)
	defer span.End()

	start := time.Now()
	tag, err := db.pool.Exec(ctx, sql, args...)
	db.finish(span, sql, start, tag.RowsAffected(), err)
	return tag, err
}

func (db *TracedPool) start(ctx context.Context, sql string) (context.Context, trace.Span) {
	op := operation(sql)
	return db.tracer.Start(ctx, "db."+strings.ToLower(op), trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
	))
}

func (db *TracedPool) finish(span trace.Span, sql string, start time.Time, rowsAffected int64, err error) {
	if err != nil {
		RecordDatabaseError(span, err)
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	if db.logger != nil {
		db.logger.LogDatabaseOperation(operation(sql), table(sql), time.Since(start).Milliseconds(), rowsAffected)
	}
}

// RecordDatabaseError marks the span failed
func RecordDatabaseError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// operation is the leading SQL keyword.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "UNKNOWN"
	}
	return strings.ToUpper(fields[0])
}

// table is the identifier following FROM, INTO, UPDATE or TABLE, when there is one.
func table(sql string) string {
	fields := strings.Fields(sql)
	for i := 0; i < len(fields)-1; i++ {
		switch strings.ToUpper(fields[i]) {
		case "FROM", "INTO", "UPDATE":
			return strings.Trim(fields[i+1], "(),;")
		case "EXISTS":
			if i > 0 && strings.ToUpper(fields[i-1]) == "NOT" {
				return strings.Trim(fields[i+1], "(),;")
			}
		}
	}
	return ""
}
