package ledger

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rschio/bank/internal/money"
)

// Default checking account limits.
const (
	DefaultMaxDailyWithdrawals  = 3
	DefaultMaxDailyTransactions = 10
)

// DefaultOverdraftLimit is the largest single withdrawal a checking account
// accepts unless configured otherwise.
var DefaultOverdraftLimit = money.FromInt(500)

// banknote is the smallest bill the tellers hand out.
var banknote = money.FromInt(5)

// CheckingAccount is an account whose withdrawals are limited per
// operation and per calendar day.
type CheckingAccount struct {
	*BasicAccount

	overdraftLimit       money.Amount
	maxDailyWithdrawals  int
	maxDailyTransactions int
}

// CheckingOption configures a CheckingAccount at creation.
type CheckingOption func(*CheckingAccount)

// WithOverdraftLimit sets the largest amount a single withdrawal may take.
func WithOverdraftLimit(limit money.Amount) CheckingOption {
	return func(c *CheckingAccount) { c.overdraftLimit = limit }
}

// WithMaxDailyWithdrawals sets how many withdrawals are accepted per day.
func WithMaxDailyWithdrawals(n int) CheckingOption {
	return func(c *CheckingAccount) { c.maxDailyWithdrawals = n }
}

// WithMaxDailyTransactions sets how many operations of any kind may be on
// the history for the day before withdrawals are refused.
func WithMaxDailyTransactions(n int) CheckingOption {
	return func(c *CheckingAccount) { c.maxDailyTransactions = n }
}

// NewCheckingAccount returns an empty checking account numbered number and
// owned by owner. It does not add the account to owner.
func NewCheckingAccount(log *slog.Logger, owner *Client, number int, opts ...CheckingOption) *CheckingAccount {
	c := CheckingAccount{
		BasicAccount:         NewBasicAccount(log, owner, number),
		overdraftLimit:       DefaultOverdraftLimit,
		maxDailyWithdrawals:  DefaultMaxDailyWithdrawals,
		maxDailyTransactions: DefaultMaxDailyTransactions,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (c *CheckingAccount) OverdraftLimit() money.Amount { return c.overdraftLimit }
func (c *CheckingAccount) MaxDailyWithdrawals() int     { return c.maxDailyWithdrawals }
func (c *CheckingAccount) MaxDailyTransactions() int    { return c.maxDailyTransactions }

func (c *CheckingAccount) String() string {
	return fmt.Sprintf("<CheckingAccount: %s/%d>", Branch, c.number)
}

// withdraw runs the checking rules in order and stops at the first one
// that fails. The balance checks of the basic account run last.
func (c *CheckingAccount) withdraw(now time.Time, amount money.Amount) error {
	if !amount.IsMultipleOf(banknote) {
		return fmt.Errorf("%w: %s is not a multiple of %s", ErrInvalidDenomination, amount, banknote)
	}

	today := c.history.OnSameDayAs(now)

	all := func(Record) bool { return true }
	if n := count(today, all); n >= c.maxDailyTransactions {
		return fmt.Errorf("%w: %d of %d", ErrDailyTransactionCountExceeded, n, c.maxDailyTransactions)
	}

	if amount.GreaterThan(c.overdraftLimit) {
		return fmt.Errorf("%w: %s over %s", ErrWithdrawalLimitExceeded, amount, c.overdraftLimit)
	}

	withdrawals := func(r Record) bool { return r.Kind == KindWithdrawal }
	if n := count(today, withdrawals); n >= c.maxDailyWithdrawals {
		return fmt.Errorf("%w: %d of %d", ErrDailyWithdrawalCountExceeded, n, c.maxDailyWithdrawals)
	}

	return c.BasicAccount.withdraw(now, amount)
}
