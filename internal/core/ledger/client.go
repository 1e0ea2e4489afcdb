package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Identity is what distinguishes one client from another. Person is the
// only kind today.
type Identity interface {
	// Key is unique among all clients of the bank.
	Key() string
	DisplayName() string
}

// Person is an individual client.
type Person struct {
	Name      string
	BirthDate time.Time
	TaxID     string
}

func (p Person) Key() string         { return p.TaxID }
func (p Person) DisplayName() string { return p.Name }

// Client owns accounts and is the entry point for operations on them.
type Client struct {
	address  string
	identity Identity

	mu       sync.RWMutex
	accounts []Account
}

// NewClient returns a client without accounts.
func NewClient(address string, id Identity) *Client {
	return &Client{
		address:  address,
		identity: id,
	}
}

func (c *Client) Address() string    { return c.address }
func (c *Client) Identity() Identity { return c.identity }

func (c *Client) String() string {
	return fmt.Sprintf("<%T: %q>", c.identity, c.identity.Key())
}

// AddAccount appends a to the client's accounts. It fails if the client
// already owns an account with the same number.
func (c *Client) AddAccount(a Account) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, owned := range c.accounts {
		if owned.Number() == a.Number() {
			return fmt.Errorf("%w: %d", ErrDuplicateAccountNumber, a.Number())
		}
	}
	c.accounts = append(c.accounts, a)

	return nil
}

// Accounts returns the client's accounts in the order they were added.
func (c *Client) Accounts() []Account {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.accounts)
}

// Account returns the client's account numbered number.
func (c *Client) Account(number int) (Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, a := range c.accounts {
		if a.Number() == number {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrAccountNotFound, number)
}

// Submit applies tx to a, which must be one of the client's accounts. The
// outcome of the transaction is returned unchanged.
func (c *Client) Submit(ctx context.Context, a Account, tx Transaction) (Record, error) {
	if a == nil {
		return Record{}, ErrAccountNotFound
	}
	if a.Owner() != c {
		return Record{}, fmt.Errorf("%w: %d", ErrAccountNotFound, a.Number())
	}
	return Apply(ctx, a, tx)
}
