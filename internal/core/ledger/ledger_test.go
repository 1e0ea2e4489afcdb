package ledger_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/money"
	"github.com/rschio/bank/internal/web"
)

var today = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(t time.Time) context.Context {
	return web.SetValues(context.Background(), &web.Values{Now: t})
}

func newClient() *ledger.Client {
	return ledger.NewClient("Rua A, 1 - Centro - Recife/PE", ledger.Person{
		Name:      "Maria",
		BirthDate: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
		TaxID:     "12345678900",
	})
}

func newChecking(t *testing.T, opts ...ledger.CheckingOption) (*ledger.Client, *ledger.CheckingAccount) {
	t.Helper()
	c := newClient()
	a := ledger.NewCheckingAccount(nil, c, 1, opts...)
	if err := c.AddAccount(a); err != nil {
		t.Fatalf("adding account: %v", err)
	}
	return c, a
}

func submit(ctx context.Context, c *ledger.Client, a ledger.Account, kind ledger.Kind, amount int64) error {
	tx, err := ledger.NewTransaction(kind, money.FromInt(amount))
	if err != nil {
		return err
	}
	_, err = c.Submit(ctx, a, tx)
	return err
}

func mustSubmit(t *testing.T, ctx context.Context, c *ledger.Client, a ledger.Account, kind ledger.Kind, amount int64) {
	t.Helper()
	if err := submit(ctx, c, a, kind, amount); err != nil {
		t.Fatalf("%v of %d: %v", kind, amount, err)
	}
}

func assertBalance(t *testing.T, a ledger.Account, want int64) {
	t.Helper()
	if got := a.Balance(); !got.Equal(money.FromInt(want)) {
		t.Fatalf("got balance %s want %s", got, money.FromInt(want))
	}
}

func TestDepositOnNewAccount(t *testing.T) {
	c, a := newChecking(t)

	mustSubmit(t, at(today), c, a, ledger.KindDeposit, 100)

	assertBalance(t, a, 100)
	got := slices.Collect(a.History().All())
	if len(got) != 1 {
		t.Fatalf("got %d records want 1", len(got))
	}
	if got[0].Kind != ledger.KindDeposit || !got[0].Amount.Equal(money.FromInt(100)) || !got[0].Timestamp.Equal(today) {
		t.Fatalf("wrong record: %+v", got[0])
	}
}

func TestWithdrawDenominationAndFullBalance(t *testing.T) {
	c, a := newChecking(t)
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 100)

	if err := submit(ctx, c, a, ledger.KindWithdrawal, 33); !errors.Is(err, ledger.ErrInvalidDenomination) {
		t.Fatalf("got %v want %v", err, ledger.ErrInvalidDenomination)
	}
	assertBalance(t, a, 100)

	mustSubmit(t, ctx, c, a, ledger.KindWithdrawal, 100)
	assertBalance(t, a, 0)
}

func TestDailyWithdrawalCount(t *testing.T) {
	c, a := newChecking(t)
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 1000)

	for range 3 {
		mustSubmit(t, ctx, c, a, ledger.KindWithdrawal, 5)
	}

	if err := submit(ctx, c, a, ledger.KindWithdrawal, 5); !errors.Is(err, ledger.ErrDailyWithdrawalCountExceeded) {
		t.Fatalf("got %v want %v", err, ledger.ErrDailyWithdrawalCountExceeded)
	}
	assertBalance(t, a, 985)

	// The cap holds for the rest of the day, whatever the amount.
	later := at(today.Add(14 * time.Hour))
	for _, amount := range []int64{5, 10, 500} {
		if err := submit(later, c, a, ledger.KindWithdrawal, amount); !errors.Is(err, ledger.ErrDailyWithdrawalCountExceeded) {
			t.Fatalf("withdraw %d: got %v want %v", amount, err, ledger.ErrDailyWithdrawalCountExceeded)
		}
	}

	// And is lifted the next day.
	mustSubmit(t, at(today.Add(24*time.Hour)), c, a, ledger.KindWithdrawal, 5)
	assertBalance(t, a, 980)
}

func TestWithdrawalLimit(t *testing.T) {
	c, a := newChecking(t)
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 1000)

	if err := submit(ctx, c, a, ledger.KindWithdrawal, 600); !errors.Is(err, ledger.ErrWithdrawalLimitExceeded) {
		t.Fatalf("got %v want %v", err, ledger.ErrWithdrawalLimitExceeded)
	}
	assertBalance(t, a, 1000)
	if n := a.History().Len(); n != 1 {
		t.Fatalf("got %d records want 1", n)
	}
}

func TestInvalidDepositAmount(t *testing.T) {
	c := newClient()
	accounts := []ledger.Account{
		ledger.NewBasicAccount(nil, c, 1),
		ledger.NewCheckingAccount(nil, c, 2),
	}

	for _, a := range accounts {
		if err := c.AddAccount(a); err != nil {
			t.Fatalf("adding account: %v", err)
		}
		for _, amount := range []int64{-10, 0} {
			if err := submit(at(today), c, a, ledger.KindDeposit, amount); !errors.Is(err, ledger.ErrInvalidAmount) {
				t.Fatalf("account %d deposit %d: got %v want %v", a.Number(), amount, err, ledger.ErrInvalidAmount)
			}
		}
		assertBalance(t, a, 0)
		if n := a.History().Len(); n != 0 {
			t.Fatalf("got %d records want 0", n)
		}
	}
}

func TestBasicAccountWithdraw(t *testing.T) {
	c := newClient()
	a := ledger.NewBasicAccount(nil, c, 1)
	if err := c.AddAccount(a); err != nil {
		t.Fatalf("adding account: %v", err)
	}
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 50)

	tests := []struct {
		name    string
		amount  int64
		wantErr error
	}{
		{"over balance", 51, ledger.ErrInsufficientFunds},
		{"zero", 0, ledger.ErrInvalidAmount},
		{"negative", -1, ledger.ErrInvalidAmount},
		{"not a multiple of five", 33, nil},
		{"rest", 17, nil},
	}

	for _, tt := range tests {
		err := submit(ctx, c, a, ledger.KindWithdrawal, tt.amount)
		if !errors.Is(err, tt.wantErr) {
			t.Fatalf("%s: got %v want %v", tt.name, err, tt.wantErr)
		}
	}
	assertBalance(t, a, 0)
}

func TestCheckingRulesOrder(t *testing.T) {
	t.Run("denomination before daily transactions", func(t *testing.T) {
		c, a := newChecking(t)
		ctx := at(today)
		for range 10 {
			mustSubmit(t, ctx, c, a, ledger.KindDeposit, 100)
		}
		if err := submit(ctx, c, a, ledger.KindWithdrawal, 33); !errors.Is(err, ledger.ErrInvalidDenomination) {
			t.Fatalf("got %v want %v", err, ledger.ErrInvalidDenomination)
		}
		if err := submit(ctx, c, a, ledger.KindWithdrawal, 600); !errors.Is(err, ledger.ErrDailyTransactionCountExceeded) {
			t.Fatalf("got %v want %v", err, ledger.ErrDailyTransactionCountExceeded)
		}
	})

	t.Run("ceiling before withdrawal count", func(t *testing.T) {
		c, a := newChecking(t)
		ctx := at(today)
		mustSubmit(t, ctx, c, a, ledger.KindDeposit, 1000)
		for range 3 {
			mustSubmit(t, ctx, c, a, ledger.KindWithdrawal, 5)
		}
		if err := submit(ctx, c, a, ledger.KindWithdrawal, 600); !errors.Is(err, ledger.ErrWithdrawalLimitExceeded) {
			t.Fatalf("got %v want %v", err, ledger.ErrWithdrawalLimitExceeded)
		}
	})

	t.Run("limits before funds", func(t *testing.T) {
		c, a := newChecking(t)
		if err := submit(at(today), c, a, ledger.KindWithdrawal, 600); !errors.Is(err, ledger.ErrWithdrawalLimitExceeded) {
			t.Fatalf("got %v want %v", err, ledger.ErrWithdrawalLimitExceeded)
		}
		if err := submit(at(today), c, a, ledger.KindWithdrawal, 5); !errors.Is(err, ledger.ErrInsufficientFunds) {
			t.Fatalf("got %v want %v", err, ledger.ErrInsufficientFunds)
		}
	})
}

func TestDailyTransactionCapCountsDeposits(t *testing.T) {
	c, a := newChecking(t, ledger.WithMaxDailyTransactions(4))
	ctx := at(today)

	for range 4 {
		mustSubmit(t, ctx, c, a, ledger.KindDeposit, 10)
	}
	if err := submit(ctx, c, a, ledger.KindWithdrawal, 5); !errors.Is(err, ledger.ErrDailyTransactionCountExceeded) {
		t.Fatalf("got %v want %v", err, ledger.ErrDailyTransactionCountExceeded)
	}

	// Deposits are not limited.
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 10)
	assertBalance(t, a, 50)
}

func TestCheckingOptions(t *testing.T) {
	_, a := newChecking(t,
		ledger.WithOverdraftLimit(money.FromInt(50)),
		ledger.WithMaxDailyWithdrawals(1),
		ledger.WithMaxDailyTransactions(2),
	)

	if !a.OverdraftLimit().Equal(money.FromInt(50)) || a.MaxDailyWithdrawals() != 1 || a.MaxDailyTransactions() != 2 {
		t.Fatalf("options not applied: %s %d %d", a.OverdraftLimit(), a.MaxDailyWithdrawals(), a.MaxDailyTransactions())
	}

	_, def := newChecking(t)
	if !def.OverdraftLimit().Equal(ledger.DefaultOverdraftLimit) ||
		def.MaxDailyWithdrawals() != ledger.DefaultMaxDailyWithdrawals ||
		def.MaxDailyTransactions() != ledger.DefaultMaxDailyTransactions {
		t.Fatal("defaults not applied")
	}
}

// TestAtomicity runs random operations and checks that each one either
// changed the balance and added exactly one matching record, or changed
// nothing.
func TestAtomicity(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	c, a := newChecking(t, ledger.WithMaxDailyTransactions(1000), ledger.WithMaxDailyWithdrawals(1000))
	ctx := at(today)

	for i := range 500 {
		kind := ledger.KindDeposit
		if r.IntN(2) == 0 {
			kind = ledger.KindWithdrawal
		}
		amount := r.Int64N(700) - 100

		before := a.Balance()
		n := a.History().Len()

		err := submit(ctx, c, a, kind, amount)

		after := a.Balance()
		records := slices.Collect(a.History().All())

		if after.IsNegative() {
			t.Fatalf("step %d: negative balance %s", i, after)
		}

		if err != nil {
			if !ledger.IsRejection(err) {
				t.Fatalf("step %d: unexpected error %v", i, err)
			}
			if !after.Equal(before) || len(records) != n {
				t.Fatalf("step %d: rejected %v of %d changed state", i, kind, amount)
			}
			continue
		}

		if len(records) != n+1 {
			t.Fatalf("step %d: got %d records want %d", i, len(records), n+1)
		}
		last := records[len(records)-1]
		if last.Kind != kind || !last.Amount.Equal(money.FromInt(amount)) {
			t.Fatalf("step %d: record %+v does not match %v of %d", i, last, kind, amount)
		}

		want := before.Add(money.FromInt(amount))
		if kind == ledger.KindWithdrawal {
			want = before.Sub(money.FromInt(amount))
		}
		if !after.Equal(want) {
			t.Fatalf("step %d: got balance %s want %s", i, after, want)
		}
	}
}

func TestDenominationNeverMutates(t *testing.T) {
	c, a := newChecking(t)
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 1000)

	for amount := int64(-21); amount <= 1001; amount++ {
		if amount%5 == 0 {
			continue
		}
		if err := submit(ctx, c, a, ledger.KindWithdrawal, amount); !errors.Is(err, ledger.ErrInvalidDenomination) {
			t.Fatalf("withdraw %d: got %v want %v", amount, err, ledger.ErrInvalidDenomination)
		}
	}
	assertBalance(t, a, 1000)
	if n := a.History().Len(); n != 1 {
		t.Fatalf("got %d records want 1", n)
	}
}

func TestConcurrentWithdrawalsRespectCap(t *testing.T) {
	c, a := newChecking(t)
	ctx := at(today)
	mustSubmit(t, ctx, c, a, ledger.KindDeposit, 1000)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := submit(ctx, c, a, ledger.KindWithdrawal, 5); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != ledger.DefaultMaxDailyWithdrawals {
		t.Fatalf("got %d accepted withdrawals want %d", accepted, ledger.DefaultMaxDailyWithdrawals)
	}
	assertBalance(t, a, 985)
}

func TestStatementCompleteness(t *testing.T) {
	c, a := newChecking(t)

	var want []ledger.Record
	for i, amount := range []int64{100, 50, 7, 33} {
		ctx := at(today.Add(time.Duration(i) * time.Minute))
		kind := ledger.KindDeposit
		if i%2 == 1 {
			kind = ledger.KindWithdrawal
		}

		tx, err := ledger.NewTransaction(kind, money.FromInt(amount))
		if err != nil {
			t.Fatal(err)
		}
		r, err := c.Submit(ctx, a, tx)
		if err != nil {
			// 33 is not a valid withdrawal.
			continue
		}
		want = append(want, r)
	}

	st := ledger.StatementOf(a)
	if diff := cmp.Diff(want, st.Records); diff != "" {
		t.Fatalf("wrong records: %s", diff)
	}
	if !st.Balance.Equal(money.FromInt(57)) {
		t.Fatalf("got balance %s want 57.00", st.Balance)
	}
	if st.Holder != "Maria" || st.Branch != ledger.Branch || st.Number != 1 {
		t.Fatalf("wrong header: %+v", st)
	}
}

func TestClientAccounts(t *testing.T) {
	c := newClient()
	a1 := ledger.NewCheckingAccount(nil, c, 1)
	a2 := ledger.NewCheckingAccount(nil, c, 2)

	for _, a := range []ledger.Account{a1, a2} {
		if err := c.AddAccount(a); err != nil {
			t.Fatalf("adding account %d: %v", a.Number(), err)
		}
	}

	dup := ledger.NewBasicAccount(nil, c, 2)
	if err := c.AddAccount(dup); !errors.Is(err, ledger.ErrDuplicateAccountNumber) {
		t.Fatalf("got %v want %v", err, ledger.ErrDuplicateAccountNumber)
	}

	got := c.Accounts()
	if len(got) != 2 || got[0].Number() != 1 || got[1].Number() != 2 {
		t.Fatalf("wrong accounts: %v", got)
	}

	if _, err := c.Account(3); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("got %v want %v", err, ledger.ErrAccountNotFound)
	}
	a, err := c.Account(2)
	if err != nil || a != ledger.Account(a2) {
		t.Fatalf("got %v, %v want account 2", a, err)
	}
}

func TestSubmitForeignAccount(t *testing.T) {
	c := newClient()
	other := ledger.NewClient("elsewhere", ledger.Person{Name: "João", TaxID: "999"})
	a := ledger.NewCheckingAccount(nil, other, 1)

	if err := submit(at(today), c, a, ledger.KindDeposit, 10); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("got %v want %v", err, ledger.ErrAccountNotFound)
	}
	assertBalance(t, a, 0)

	if _, err := c.Submit(at(today), nil, ledger.NewDeposit(money.FromInt(10))); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("nil account: got %v want %v", err, ledger.ErrAccountNotFound)
	}
}

func TestStatementAmountsAddUpToBalance(t *testing.T) {
	c := newClient()
	a := ledger.NewBasicAccount(nil, c, 1)
	if err := c.AddAccount(a); err != nil {
		t.Fatalf("adding account: %v", err)
	}

	steps := []struct {
		kind   ledger.Kind
		amount string
	}{
		{ledger.KindDeposit, "0.01"},
		{ledger.KindDeposit, "0.01"},
		{ledger.KindDeposit, "10.10"},
		{ledger.KindWithdrawal, "0.99"},
		{ledger.KindDeposit, "1e2"},
	}
	for _, s := range steps {
		tx, err := ledger.NewTransaction(s.kind, money.MustParse(s.amount))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := c.Submit(at(today), a, tx); err != nil {
			t.Fatalf("%v of %s: %v", s.kind, s.amount, err)
		}
	}

	// Add up what a reader of the statement sees.
	st := ledger.StatementOf(a)
	sum := money.Zero
	for _, r := range st.Records {
		shown := money.MustParse(r.Amount.String())
		if r.Kind == ledger.KindWithdrawal {
			sum = sum.Sub(shown)
			continue
		}
		sum = sum.Add(shown)
	}
	if sum.String() != st.Balance.String() || st.Balance.String() != "109.13" {
		t.Fatalf("records add up to %s, balance shown %s, want 109.13", sum, st.Balance)
	}

	if _, err := money.Parse("0.004"); !errors.Is(err, money.ErrOutOfRange) {
		t.Fatalf("sub-cent amounts must not reach an account, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	c, a := newChecking(t)
	mustSubmit(t, at(today), c, a, ledger.KindDeposit, 42)

	want := ledger.Summary{Branch: "0001", Number: 1, Holder: "Maria", Balance: money.FromInt(42)}
	if diff := cmp.Diff(want, ledger.Summarize(a)); diff != "" {
		t.Fatalf("wrong summary: %s", diff)
	}
}
