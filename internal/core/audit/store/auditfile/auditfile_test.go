package auditfile

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/core/audit"
)

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf)

	e := audit.Entry{
		ID:        uuid.New(),
		Time:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		TraceID:   "abc",
		Operation: "Submit",
		Args:      "{Number:1}",
		Result:    "insufficient funds",
		Failed:    true,
	}
	if err := j.Write(context.Background(), e); err != nil {
		t.Fatalf("write: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a json line %q: %v", buf.String(), err)
	}

	if line["msg"] != "Submit" || line["level"] != "WARN" || line["id"] != e.ID.String() {
		t.Fatalf("wrong line: %v", line)
	}
	if line["time"] != "2024-03-01T10:00:00Z" {
		t.Fatalf("got time %v, want the entry time", line["time"])
	}
	if line["failed"] != true || line["result"] != "insufficient funds" {
		t.Fatalf("wrong result fields: %v", line)
	}
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")

	for range 2 {
		j, closeFn, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := j.Write(context.Background(), audit.Entry{Operation: "Op"}); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n := bytes.Count(b, []byte("\n")); n != 2 {
		t.Fatalf("got %d lines want %d", n, 2)
	}
}
