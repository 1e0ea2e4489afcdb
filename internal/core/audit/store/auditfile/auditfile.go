// Package auditfile keeps the audit journal as JSON lines in a side file.
package auditfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/rschio/bank/internal/core/audit"
)

// Journal writes one JSON object per entry.
type Journal struct {
	h slog.Handler
}

// New returns a journal writing to w.
func New(w io.Writer) *Journal {
	return &Journal{h: slog.NewJSONHandler(w, nil)}
}

// Open appends to the file at path, creating it if needed. The returned
// function closes the file.
func Open(path string) (*Journal, func() error, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit file: %w", err)
	}
	return New(f), f.Close, nil
}

// Write logs e with the entry's own time as the record time.
func (j *Journal) Write(ctx context.Context, e audit.Entry) error {
	level := slog.LevelInfo
	if e.Failed {
		level = slog.LevelWarn
	}

	r := slog.NewRecord(e.Time, level, e.Operation, 0)
	r.AddAttrs(
		slog.String("id", e.ID.String()),
		slog.String("trace_id", e.TraceID),
		slog.String("args", e.Args),
		slog.String("result", e.Result),
		slog.Bool("failed", e.Failed),
	)

	return j.h.Handle(ctx, r)
}
