package account

import "context"

// Store persists account balances.
type Store interface {
	// GetAccount returns the stored account or an error wrapping
	// tally.ErrAccountNotFound when none exists.
	GetAccount(ctx context.Context, accountID ID) (*Account, error)
	// PutAccounts upserts all accounts in one all-or-nothing write.
	PutAccounts(ctx context.Context, accounts ...*Account) error
	// ListAccounts returns accounts ordered by ascending ID.
	ListAccounts(ctx context.Context, opts ListOpts) ([]*Account, error)
}

// ListOpts pages through accounts.
type ListOpts struct {
	Limit  int
	Offset int
}
