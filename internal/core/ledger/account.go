package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rschio/bank/internal/money"
)

// Branch is the code of the only branch of the bank.
const Branch = "0001"

// Account is the set of operations shared by every account type. The
// balance changing methods are unexported so the only way to move money is
// through a Transaction, which keeps balance and history in step.
type Account interface {
	Number() int
	Branch() string
	Owner() *Client
	Balance() money.Amount
	History() *History

	deposit(amount money.Amount) error
	withdraw(now time.Time, amount money.Amount) error
	base() *BasicAccount
}

// BasicAccount is an account without limits besides its balance.
type BasicAccount struct {
	number  int
	owner   *Client
	history *History

	mu      sync.Mutex
	balance money.Amount
}

// NewBasicAccount returns an empty account numbered number and owned by
// owner. It does not add the account to owner.
func NewBasicAccount(log *slog.Logger, owner *Client, number int) *BasicAccount {
	return &BasicAccount{
		number:  number,
		owner:   owner,
		history: newHistory(log),
	}
}

func (a *BasicAccount) Number() int         { return a.number }
func (a *BasicAccount) Branch() string      { return Branch }
func (a *BasicAccount) Owner() *Client      { return a.owner }
func (a *BasicAccount) History() *History   { return a.history }
func (a *BasicAccount) base() *BasicAccount { return a }

func (a *BasicAccount) String() string {
	return fmt.Sprintf("<BasicAccount: %s/%d>", Branch, a.number)
}

// Balance returns the current balance. It waits for an in flight operation
// on the account to finish.
func (a *BasicAccount) Balance() money.Amount {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

func (a *BasicAccount) deposit(amount money.Amount) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	a.balance = a.balance.Add(amount)
	return nil
}

func (a *BasicAccount) withdraw(_ time.Time, amount money.Amount) error {
	switch {
	case amount.GreaterThan(a.balance):
		return fmt.Errorf("%w: balance %s, requested %s", ErrInsufficientFunds, a.balance, amount)
	case !amount.IsPositive():
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	a.balance = a.balance.Sub(amount)
	return nil
}
