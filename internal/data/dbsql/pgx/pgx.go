// Package db provides support to access a PostgreSQL database.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rschio/bank/internal/logger"
	"github.com/rschio/bank/internal/web"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Set of error variables for CRUD operations.
var (
	ErrDBNotFound        = sql.ErrNoRows
	ErrDBDuplicatedEntry = errors.New("duplicated entry")
)

// Config is the required properties to use the database.
type Config struct {
	User       string
	Password   string
	Host       string
	Name       string
	DisableTLS bool
}

// ConnString creates a postgres connection string with config values. Both
// the pool and the migrations connect with it.
func ConnString(cfg Config) string {
	sslMode := "require"
	if cfg.DisableTLS {
		sslMode = "disable"
	}

	q := url.Values{
		"sslmode":  {sslMode},
		"timezone": {"utc"},
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Host,
		Path:     cfg.Name,
		RawQuery: q.Encode(),
	}

	return u.String()
}

// Open opens a pool using the configuration.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	return OpenConnString(ctx, ConnString(cfg))
}

// OpenConnString opens a pool on connString, as handed out by test
// containers.
func OpenConnString(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pgCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, pgCfg)
}

// StatusCheck pings the database with a growing pause until it answers or
// ctx is done, then forces one round trip through a query.
func StatusCheck(ctx context.Context, db *pgxpool.Pool) error {
	for attempt := 1; db.Ping(ctx) != nil; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}

	var ok bool
	return db.QueryRow(ctx, `SELECT true`).Scan(&ok)
}

// DB is what the helpers need from a *pgxpool.Pool or a pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NamedExec executes a CUD statement whose @name placeholders are filled
// from the db tags of data.
func NamedExec(ctx context.Context, log *slog.Logger, db DB, query string, data any) error {
	ctx, span, args, err := prepare(ctx, log, "NamedExec", query, data)
	if err != nil {
		return err
	}
	defer span.End()

	if _, err := db.Exec(ctx, query, args); err != nil {
		return mapError(err)
	}
	return nil
}

// NamedQuerySlice runs a query and collects every row into a T by column
// name. No rows is ErrDBNotFound.
func NamedQuerySlice[T any](ctx context.Context, log *slog.Logger, db DB, query string, data any) ([]T, error) {
	ctx, span, args, err := prepare(ctx, log, "NamedQuerySlice", query, data)
	if err != nil {
		return nil, err
	}
	defer span.End()

	rows, err := db.Query(ctx, query, args)
	if err != nil {
		return nil, mapError(err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, mapError(err)
	}
	if len(out) == 0 {
		return nil, ErrDBNotFound
	}

	return out, nil
}

// NamedQueryStruct runs a query that must return exactly one row and
// scans it into a T by column name.
func NamedQueryStruct[T any](ctx context.Context, log *slog.Logger, db DB, query string, data any) (T, error) {
	var zero T

	ctx, span, args, err := prepare(ctx, log, "NamedQueryStruct", query, data)
	if err != nil {
		return zero, err
	}
	defer span.End()

	rows, err := db.Query(ctx, query, args)
	if err != nil {
		return zero, mapError(err)
	}

	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[T])
	if err != nil {
		return zero, mapError(err)
	}

	return out, nil
}

// prepare starts the span of a helper, logs the query with its arguments
// inlined and returns the named arguments. The caller ends the span when err
// is nil.
func prepare(ctx context.Context, log *slog.Logger, helper, query string, data any) (context.Context, trace.Span, pgx.NamedArgs, error) {
	args, err := toNamedArgs(data)
	if err != nil {
		return ctx, nil, nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	ctx, span := web.AddSpan(ctx, "data.dbsql.pgx."+helper)

	q := queryString(query, args)
	logger.InfocCtx(ctx, log, 4, "db."+helper, "query", q)
	span.SetAttributes(attribute.String("query", q))

	return ctx, span, args, nil
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDBNotFound
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == pgerrcode.UniqueViolation {
		return ErrDBDuplicatedEntry
	}

	return err
}

// toNamedArgs maps the exported fields of a struct, or pointer to one, by
// their db tag. Untagged fields use the field name; "-" skips the field.
func toNamedArgs(value any) (pgx.NamedArgs, error) {
	v := reflect.Indirect(reflect.ValueOf(value))
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid struct %T", value)
	}

	args := make(pgx.NamedArgs)
	for _, f := range reflect.VisibleFields(v.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		name := f.Tag.Get("db")
		switch name {
		case "-":
			continue
		case "":
			name = f.Name
		}
		args[name] = v.FieldByIndex(f.Index).Interface()
	}

	return args, nil
}

var reDBQueryArg = regexp.MustCompile(`@\w+`)

// queryString renders query with its arguments for logs, on one line.
func queryString(query string, args map[string]any) string {
	query = reDBQueryArg.ReplaceAllStringFunc(query, func(s string) string {
		val, ok := args[s[1:]]
		if !ok {
			return s
		}
		switch v := val.(type) {
		case []byte, string:
			return fmt.Sprintf("'%s'", v)
		default:
			return fmt.Sprintf("%v", v)
		}
	})

	return strings.Join(strings.Fields(query), " ")
}
