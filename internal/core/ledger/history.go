package ledger

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rschio/bank/internal/money"
)

// Kind identifies the operation a Record documents.
type Kind int

const (
	KindDeposit Kind = iota + 1
	KindWithdrawal
)

func (k Kind) String() string {
	switch k {
	case KindDeposit:
		return "Deposit"
	case KindWithdrawal:
		return "Withdrawal"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind parses a kind name, ignoring case.
func ParseKind(s string) (Kind, error) {
	for _, k := range []Kind{KindDeposit, KindWithdrawal} {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	kind, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Record is an accepted operation. Records are only created by a
// successful Transaction and never change afterwards.
type Record struct {
	ID        uuid.UUID    `json:"id"`
	Kind      Kind         `json:"kind"`
	Amount    money.Amount `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

// History is the append-only log of an account's accepted operations.
type History struct {
	log *slog.Logger

	mu      sync.RWMutex
	records []Record
}

func newHistory(log *slog.Logger) *History {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &History{log: log}
}

func (h *History) record(kind Kind, amount money.Amount, at time.Time) Record {
	r := Record{
		ID:        uuid.New(),
		Kind:      kind,
		Amount:    amount,
		Timestamp: at,
	}

	h.mu.Lock()
	h.records = append(h.records, r)
	h.mu.Unlock()

	return r
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// snapshot returns the records present right now. The history only grows
// so the returned prefix is never written again.
func (h *History) snapshot() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.records[:len(h.records):len(h.records)]
}

// All yields every record in insertion order. Each range over the
// returned sequence starts a new traversal.
func (h *History) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, r := range h.snapshot() {
			if !yield(r) {
				return
			}
		}
	}
}

// FilterByKind yields the records whose kind name matches kind,
// ignoring case.
func (h *History) FilterByKind(kind string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for r := range h.All() {
			if !strings.EqualFold(r.Kind.String(), kind) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// OnSameDayAs yields the records made on the calendar date of ref, as seen
// in ref's location.
func (h *History) OnSameDayAs(ref time.Time) iter.Seq[Record] {
	y, m, d := ref.Date()
	loc := ref.Location()

	return func(yield func(Record) bool) {
		for r := range h.All() {
			if r.Timestamp.IsZero() {
				h.log.Warn("history: skipping record without timestamp", "record_id", r.ID)
				continue
			}

			ry, rm, rd := r.Timestamp.In(loc).Date()
			if ry != y || rm != m || rd != d {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

func count(seq iter.Seq[Record], keep func(Record) bool) int {
	n := 0
	for r := range seq {
		if keep(r) {
			n++
		}
	}
	return n
}
