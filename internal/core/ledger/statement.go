package ledger

import (
	"slices"

	"github.com/rschio/bank/internal/money"
)

// Statement is a read only view of an account at one point in time.
type Statement struct {
	Branch  string
	Number  int
	Holder  string
	Balance money.Amount
	Records []Record
}

// StatementOf returns every record committed to a, in commit order, and the
// balance they add up to. Both are read under the account's lock.
func StatementOf(a Account) Statement {
	b := a.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	return Statement{
		Branch:  a.Branch(),
		Number:  a.Number(),
		Holder:  holderName(a),
		Balance: b.balance,
		Records: slices.Collect(a.History().All()),
	}
}

// Summary is the short description of an account used in listings.
type Summary struct {
	Branch  string
	Number  int
	Holder  string
	Balance money.Amount
}

// Summarize returns the listing line of a.
func Summarize(a Account) Summary {
	return Summary{
		Branch:  a.Branch(),
		Number:  a.Number(),
		Holder:  holderName(a),
		Balance: a.Balance(),
	}
}

func holderName(a Account) string {
	if a.Owner() == nil || a.Owner().Identity() == nil {
		return ""
	}
	return a.Owner().Identity().DisplayName()
}
