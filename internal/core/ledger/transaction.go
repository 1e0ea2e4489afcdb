package ledger

import (
	"context"
	"fmt"

	"github.com/rschio/bank/internal/money"
	"github.com/rschio/bank/internal/web"
)

// Transaction is a requested operation on an account. The set of
// transactions is closed: Deposit and Withdrawal.
type Transaction interface {
	Kind() Kind
	Amount() money.Amount

	// apply runs with the account's mutex held.
	apply(ctx context.Context, a Account) (Record, error)
}

// NewTransaction returns the transaction of the given kind.
func NewTransaction(kind Kind, amount money.Amount) (Transaction, error) {
	switch kind {
	case KindDeposit:
		return Deposit{amount: amount}, nil
	case KindWithdrawal:
		return Withdrawal{amount: amount}, nil
	}
	return nil, fmt.Errorf("unknown transaction kind %v", kind)
}

// Deposit puts money into an account.
type Deposit struct {
	amount money.Amount
}

func NewDeposit(amount money.Amount) Deposit { return Deposit{amount: amount} }

func (d Deposit) Kind() Kind           { return KindDeposit }
func (d Deposit) Amount() money.Amount { return d.amount }

func (d Deposit) apply(ctx context.Context, a Account) (Record, error) {
	if err := a.deposit(d.amount); err != nil {
		return Record{}, err
	}
	return a.History().record(KindDeposit, d.amount, web.GetTime(ctx)), nil
}

// Withdrawal takes money out of an account. Whether it is allowed depends
// on the account type.
type Withdrawal struct {
	amount money.Amount
}

func NewWithdrawal(amount money.Amount) Withdrawal { return Withdrawal{amount: amount} }

func (w Withdrawal) Kind() Kind           { return KindWithdrawal }
func (w Withdrawal) Amount() money.Amount { return w.amount }

func (w Withdrawal) apply(ctx context.Context, a Account) (Record, error) {
	now := web.GetTime(ctx)
	if err := a.withdraw(now, w.amount); err != nil {
		return Record{}, err
	}
	return a.History().record(KindWithdrawal, w.amount, now), nil
}

// Apply executes tx against a. The check, the balance change and the
// history record happen under the account's lock, so concurrent operations
// on the same account are serialized and a record exists if and only if the
// balance changed.
func Apply(ctx context.Context, a Account, tx Transaction) (Record, error) {
	b := a.base()
	b.mu.Lock()
	defer b.mu.Unlock()

	return tx.apply(ctx, a)
}
