// Package memory provides an in-process Store for tests and single-node use.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/supply"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps the supply and balances in maps guarded by one mutex.
// Records are copied on the way in and out so callers never share memory
// with the store.
type Store struct {
	mu sync.RWMutex

	supply   *supply.Supply
	accounts map[account.ID]*account.Account
	closed   bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		accounts: make(map[account.ID]*account.Account),
	}
}

// ==================== Supply Store ====================

func (s *Store) CreateSupply(_ context.Context, sup *supply.Supply, holder *account.Account) error {
	if err := sup.CheckGenesis(holder); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	if s.supply != nil {
		return tally.ErrAlreadyInitialized
	}

	cp := *sup
	s.supply = &cp
	s.accounts[holder.ID] = cloneAccount(holder)
	return nil
}

func (s *Store) GetSupply(_ context.Context) (*supply.Supply, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	if s.supply == nil {
		return nil, tally.ErrNotInitialized
	}

	cp := *s.supply
	return &cp, nil
}

// ==================== Account Store ====================

func (s *Store) GetAccount(_ context.Context, accountID account.ID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", tally.ErrAccountNotFound, accountID)
	}
	return cloneAccount(a), nil
}

func (s *Store) PutAccounts(_ context.Context, accounts ...*account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	for _, a := range accounts {
		s.accounts[a.ID] = cloneAccount(a)
	}
	return nil
}

func (s *Store) ListAccounts(_ context.Context, opts account.ListOpts) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, tally.ErrStoreClosed
	}

	result := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		result = append(result, cloneAccount(a))
	}
	slices.SortFunc(result, func(a, b *account.Account) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	// Apply limit/offset. Non-positive values mean no offset and no limit,
	// as on the SQL backends.
	start := min(max(opts.Offset, 0), len(result))
	end := len(result)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(result))
	}

	return result[start:end], nil
}

// ==================== Lifecycle ====================

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return tally.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. Later calls fail with tally.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func cloneAccount(a *account.Account) *account.Account {
	cp := *a
	return &cp
}
