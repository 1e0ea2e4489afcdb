// Package audit records every call made to the bank core, with its
// arguments and its result, in a journal kept apart from the ledger.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/web"
)

// Entry describes one call.
type Entry struct {
	ID        uuid.UUID
	Time      time.Time
	TraceID   string
	Operation string
	Args      string
	Result    string
	Failed    bool
}

// Journal stores entries.
type Journal interface {
	Write(ctx context.Context, e Entry) error
}

// Call runs fn and writes an entry describing the call to j. A nil j only
// runs fn. A journal failure is logged and never changes the outcome of fn.
func Call[R any](
	ctx context.Context,
	log *slog.Logger,
	j Journal,
	operation string,
	args any,
	fn func(ctx context.Context) (R, error),
) (R, error) {
	res, err := fn(ctx)
	if j == nil {
		return res, err
	}

	e := Entry{
		ID:        uuid.New(),
		Time:      web.GetTime(ctx),
		TraceID:   web.GetTraceID(ctx),
		Operation: operation,
		Args:      fmt.Sprintf("%+v", args),
		Result:    fmt.Sprintf("%+v", res),
	}
	if err != nil {
		e.Failed = true
		e.Result = err.Error()
	}

	if jerr := j.Write(ctx, e); jerr != nil {
		log.ErrorContext(ctx, "audit: writing entry", "operation", operation, "ERROR", jerr)
	}

	return res, err
}
