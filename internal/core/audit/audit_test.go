package audit_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rschio/bank/internal/core/audit"
	"github.com/rschio/bank/internal/web"
)

type memJournal struct {
	entries []audit.Entry
	err     error
}

func (j *memJournal) Write(_ context.Context, e audit.Entry) error {
	if j.err != nil {
		return j.err
	}
	j.entries = append(j.entries, e)
	return nil
}

func TestCall(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := web.SetValues(context.Background(), &web.Values{TraceID: "t1", Now: now})
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	j := &memJournal{}

	args := struct{ Number int }{Number: 7}
	got, err := audit.Call(ctx, log, j, "Double", args, func(context.Context) (int, error) {
		return 14, nil
	})
	if err != nil || got != 14 {
		t.Fatalf("got %d, %v want 14, nil", got, err)
	}

	errDenied := errors.New("denied")
	_, err = audit.Call(ctx, log, j, "Deny", args, func(context.Context) (int, error) {
		return 0, errDenied
	})
	if !errors.Is(err, errDenied) {
		t.Fatalf("got %v want %v", err, errDenied)
	}

	want := []audit.Entry{
		{Time: now, TraceID: "t1", Operation: "Double", Args: "{Number:7}", Result: "14"},
		{Time: now, TraceID: "t1", Operation: "Deny", Args: "{Number:7}", Result: "denied", Failed: true},
	}
	if diff := cmp.Diff(want, j.entries, cmpopts.IgnoreFields(audit.Entry{}, "ID")); diff != "" {
		t.Fatalf("wrong entries: %s", diff)
	}
}

func TestCallJournalFailure(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	j := &memJournal{err: errors.New("disk full")}

	got, err := audit.Call(context.Background(), log, j, "Op", nil, func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Fatalf("journal failure leaked into the call: %q, %v", got, err)
	}
	if !strings.Contains(buf.String(), "disk full") {
		t.Fatalf("journal failure not logged: %q", buf.String())
	}
}

func TestCallWithoutJournal(t *testing.T) {
	calls := 0
	_, err := audit.Call(context.Background(), nil, nil, "Op", nil, func(context.Context) (int, error) {
		calls++
		return 0, nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("got %d calls, %v", calls, err)
	}
}
