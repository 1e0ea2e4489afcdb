package auditdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/core/audit"
)

type dbEntry struct {
	ID        uuid.UUID `db:"id"`
	Time      time.Time `db:"date_created"`
	TraceID   string    `db:"trace_id"`
	Operation string    `db:"operation"`
	Args      string    `db:"args"`
	Result    string    `db:"result"`
	Failed    bool      `db:"failed"`
}

func toDBEntry(e audit.Entry) dbEntry {
	return dbEntry(e)
}

func toEntry(e dbEntry) audit.Entry {
	return audit.Entry(e)
}

func toEntries(es []dbEntry) []audit.Entry {
	slice := make([]audit.Entry, len(es))
	for i, e := range es {
		slice[i] = toEntry(e)
	}
	return slice
}
