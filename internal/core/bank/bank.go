// Package bank is the entry point to the ledger: it keeps the registry of
// clients and accounts and exposes the operations callers may run.
package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rschio/bank/internal/core/audit"
	"github.com/rschio/bank/internal/core/ledger"
	"github.com/rschio/bank/internal/metrics"
	"github.com/rschio/bank/internal/money"
	"github.com/rschio/bank/internal/web"
	"go.opentelemetry.io/otel/attribute"
)

// Set of errors for bank API.
var (
	ErrClientNotFound          = errors.New("client not found")
	ErrDuplicateClientIdentity = errors.New("duplicate client identity")
	ErrInvalidArgument         = errors.New("bank invalid argument")
)

// Store keeps the clients and accounts known to the bank.
type Store interface {
	AddClient(ctx context.Context, c *ledger.Client) error
	QueryClient(ctx context.Context, taxID string) (*ledger.Client, error)
	AddAccount(ctx context.Context, a ledger.Account) error
	QueryAccounts(ctx context.Context) ([]ledger.Account, error)

	// NextAccountNumber reserves and returns a number no account of the
	// store has used yet.
	NextAccountNumber(ctx context.Context) (int, error)
}

// Core deals with the bank's business logic.
type Core struct {
	log      *slog.Logger
	store    Store
	journal  audit.Journal
	metrics  *metrics.Metrics
	loc      *time.Location
	checking []ledger.CheckingOption
}

// Option configures a Core.
type Option func(*Core)

// WithJournal records every call to the core in j.
func WithJournal(j audit.Journal) Option {
	return func(c *Core) { c.journal = j }
}

// WithMetrics counts operations in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Core) { c.metrics = m }
}

// WithLocation sets the time zone whose calendar days the daily limits
// are counted in.
func WithLocation(loc *time.Location) Option {
	return func(c *Core) { c.loc = loc }
}

// WithCheckingOptions sets the limits of every checking account opened.
func WithCheckingOptions(opts ...ledger.CheckingOption) Option {
	return func(c *Core) { c.checking = opts }
}

func NewCore(log *slog.Logger, store Store, opts ...Option) *Core {
	c := Core{
		log:   log,
		store: store,
		loc:   time.Local,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// CreateClient registers an individual client.
func (c *Core) CreateClient(ctx context.Context, nc NewClient) (*ledger.Client, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.CreateClient")
	defer span.End()

	return call(ctx, c, "CreateClient", nc, func(ctx context.Context) (*ledger.Client, error) {
		if err := nc.validate(); err != nil {
			return nil, err
		}

		cl := ledger.NewClient(nc.Address, ledger.Person{
			Name:      nc.Name,
			BirthDate: nc.BirthDate,
			TaxID:     nc.TaxID,
		})
		if err := c.store.AddClient(ctx, cl); err != nil {
			return nil, fmt.Errorf("adding client: %w", err)
		}

		return cl, nil
	})
}

// QueryClient returns the client with the given tax id.
func (c *Core) QueryClient(ctx context.Context, taxID string) (*ledger.Client, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.QueryClient")
	defer span.End()

	return c.store.QueryClient(ctx, taxID)
}

// OpenAccount opens an account for the client with the given tax id.
func (c *Core) OpenAccount(ctx context.Context, taxID string, na NewAccount) (ledger.Account, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.OpenAccount", attribute.Int("account", na.Number))
	defer span.End()

	args := struct {
		TaxID string
		NewAccount
	}{taxID, na}

	return call(ctx, c, "OpenAccount", args, func(ctx context.Context) (ledger.Account, error) {
		if err := na.validate(); err != nil {
			return nil, err
		}

		cl, err := c.store.QueryClient(ctx, taxID)
		if err != nil {
			return nil, err
		}

		number := na.Number
		if number == 0 {
			if number, err = c.store.NextAccountNumber(ctx); err != nil {
				return nil, fmt.Errorf("numbering account: %w", err)
			}
		}

		var a ledger.Account
		switch na.Type {
		case AccountBasic:
			a = ledger.NewBasicAccount(c.log, cl, number)
		default:
			a = ledger.NewCheckingAccount(c.log, cl, number, c.checking...)
		}

		if err := c.store.AddAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("adding account: %w", err)
		}
		if err := cl.AddAccount(a); err != nil {
			return nil, err
		}

		return a, nil
	})
}

// Accounts returns the accounts of the client with the given tax id.
func (c *Core) Accounts(ctx context.Context, taxID string) ([]ledger.Account, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.Accounts")
	defer span.End()

	cl, err := c.store.QueryClient(ctx, taxID)
	if err != nil {
		return nil, err
	}
	return cl.Accounts(), nil
}

// ListAccounts describes every account of the bank in opening order.
func (c *Core) ListAccounts(ctx context.Context) ([]ledger.Summary, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.ListAccounts")
	defer span.End()

	as, err := c.store.QueryAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}

	out := make([]ledger.Summary, len(as))
	for i, a := range as {
		out[i] = ledger.Summarize(a)
	}
	return out, nil
}

// Submit deposits into or withdraws from an account of a client. A nil
// error means the operation was accepted and recorded; a rejection leaves
// the account untouched.
func (c *Core) Submit(ctx context.Context, taxID string, number int, nt NewTransaction) (ledger.Record, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.Submit",
		attribute.Int("account", number),
		attribute.String("kind", nt.Kind.String()),
	)
	defer span.End()

	args := struct {
		TaxID  string
		Number int
		Kind   ledger.Kind
		Amount money.Amount
	}{taxID, number, nt.Kind, nt.Amount}

	return call(ctx, c, "Submit", args, func(ctx context.Context) (ledger.Record, error) {
		if err := nt.validate(); err != nil {
			return ledger.Record{}, err
		}

		cl, a, err := c.account(ctx, taxID, number)
		if err != nil {
			return ledger.Record{}, err
		}

		tx, err := ledger.NewTransaction(nt.Kind, nt.Amount)
		if err != nil {
			return ledger.Record{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		ctx = web.WithTime(ctx, web.GetTime(ctx).In(c.loc))
		return cl.Submit(ctx, a, tx)
	})
}

// Statement returns the history and balance of an account of a client.
func (c *Core) Statement(ctx context.Context, taxID string, number int) (ledger.Statement, error) {
	ctx, span := web.AddSpan(ctx, "core.bank.Statement", attribute.Int("account", number))
	defer span.End()

	args := struct {
		TaxID  string
		Number int
	}{taxID, number}

	return call(ctx, c, "Statement", args, func(ctx context.Context) (ledger.Statement, error) {
		_, a, err := c.account(ctx, taxID, number)
		if err != nil {
			return ledger.Statement{}, err
		}
		return ledger.StatementOf(a), nil
	})
}

func (c *Core) account(ctx context.Context, taxID string, number int) (*ledger.Client, ledger.Account, error) {
	cl, err := c.store.QueryClient(ctx, taxID)
	if err != nil {
		return nil, nil, err
	}
	a, err := cl.Account(number)
	if err != nil {
		return nil, nil, err
	}
	return cl, a, nil
}

// call runs fn through the audit journal and the metrics.
func call[R any](ctx context.Context, c *Core, operation string, args any, fn func(ctx context.Context) (R, error)) (R, error) {
	start := time.Now()

	res, err := audit.Call(ctx, c.log, c.journal, operation, args, fn)

	outcome := metrics.OutcomeOK
	switch {
	case err == nil:
	case ledger.IsRejection(err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	c.metrics.Observe(operation, outcome, ledger.Code(err), time.Since(start))

	return res, err
}
