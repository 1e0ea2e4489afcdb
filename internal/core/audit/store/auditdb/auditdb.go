// Package auditdb keeps the audit journal in Postgres.
package auditdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/core/audit"
	db "github.com/rschio/bank/internal/data/dbsql/pgx"
	"github.com/sony/gobreaker"
)

// Set of error variables for the audit store.
var (
	ErrNotFound  = errors.New("audit entry not found")
	ErrDuplicate = errors.New("duplicate audit entry")
)

// Store writes entries through a circuit breaker so a database outage
// turns into fast failures instead of slowing down every bank operation.
type Store struct {
	log *slog.Logger
	db  db.DB
	cb  *gobreaker.CircuitBreaker
}

func NewStore(log *slog.Logger, database db.DB) *Store {
	return &Store{
		log: log,
		db:  database,
		cb:  newBreaker(log, "auditdb"),
	}
}

func newBreaker(log *slog.Logger, name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		// A rejected row says nothing about the health of the database.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, db.ErrDBDuplicatedEntry)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

// Write inserts e.
func (s *Store) Write(ctx context.Context, e audit.Entry) error {
	const q = `
	INSERT INTO audit_entries
		(id, date_created, trace_id, operation, args, result, failed)
	VALUES
		(@id, @date_created, @trace_id, @operation, @args, @result, @failed)`

	_, err := s.cb.Execute(func() (any, error) {
		return nil, db.NamedExec(ctx, s.log, s.db, q, toDBEntry(e))
	})
	if err != nil {
		if errors.Is(err, db.ErrDBDuplicatedEntry) {
			return fmt.Errorf("inserting audit entry %s: %w", e.ID, ErrDuplicate)
		}
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// QueryByID returns the entry with the given id.
func (s *Store) QueryByID(ctx context.Context, id uuid.UUID) (audit.Entry, error) {
	data := struct {
		ID uuid.UUID `db:"id"`
	}{
		ID: id,
	}

	const q = `
	SELECT
		id, date_created, trace_id, operation, args, result, failed
	FROM
		audit_entries
	WHERE
		id = @id`

	e, err := db.NamedQueryStruct[dbEntry](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return audit.Entry{}, ErrNotFound
		}
		return audit.Entry{}, fmt.Errorf("querying audit entry: %w", err)
	}

	return toEntry(e), nil
}

// QueryEntries returns a page of entries, newest first.
func (s *Store) QueryEntries(ctx context.Context, pageNumber, rowsPerPage int) ([]audit.Entry, error) {
	data := struct {
		Offset      int `db:"offset"`
		RowsPerPage int `db:"rows_per_page"`
	}{
		Offset:      (pageNumber - 1) * rowsPerPage,
		RowsPerPage: rowsPerPage,
	}

	const q = `
	SELECT
		id, date_created, trace_id, operation, args, result, failed
	FROM
		audit_entries
	ORDER BY
		date_created DESC
	OFFSET @offset ROWS FETCH NEXT @rows_per_page ROWS ONLY`

	es, err := db.NamedQuerySlice[dbEntry](ctx, s.log, s.db, q, data)
	if err != nil {
		if errors.Is(err, db.ErrDBNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}

	return toEntries(es), nil
}
