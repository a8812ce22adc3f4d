package store

import (
	"context"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/supply"
)

// Store is the unified storage interface for all Tally records.
// Methods are declared explicitly rather than embedding account.Store and
// supply.Store so each backend's method set reads in one place.
type Store interface {
	// Supply methods
	CreateSupply(ctx context.Context, s *supply.Supply, holder *account.Account) error
	GetSupply(ctx context.Context) (*supply.Supply, error)

	// Account methods
	GetAccount(ctx context.Context, accountID account.ID) (*account.Account, error)
	PutAccounts(ctx context.Context, accounts ...*account.Account) error
	ListAccounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// compile-time checks that the unified interface covers the domain stores.
var (
	_ account.Store = (Store)(nil)
	_ supply.Store  = (Store)(nil)
)
