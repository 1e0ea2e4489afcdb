// Package bankmem keeps the bank registry in memory for the lifetime of the
// process.
package bankmem

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rschio/bank/internal/core/bank"
	"github.com/rschio/bank/internal/core/ledger"
)

type Store struct {
	mu       sync.RWMutex
	clients  map[string]*ledger.Client
	accounts []ledger.Account
	seq      int
}

func NewStore() *Store {
	return &Store{
		clients: make(map[string]*ledger.Client),
	}
}

func (s *Store) AddClient(_ context.Context, c *ledger.Client) error {
	key := c.Identity().Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[key]; ok {
		return fmt.Errorf("%w: %s", bank.ErrDuplicateClientIdentity, key)
	}
	s.clients[key] = c

	return nil
}

func (s *Store) QueryClient(_ context.Context, taxID string) (*ledger.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[taxID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", bank.ErrClientNotFound, taxID)
	}
	return c, nil
}

func (s *Store) AddAccount(_ context.Context, a ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, known := range s.accounts {
		if known.Number() == a.Number() {
			return fmt.Errorf("%w: %d", ledger.ErrDuplicateAccountNumber, a.Number())
		}
	}
	s.accounts = append(s.accounts, a)
	s.seq = max(s.seq, a.Number())

	return nil
}

func (s *Store) QueryAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts), nil
}

func (s *Store) NextAccountNumber(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	return s.seq, nil
}
