package supply

import (
	"context"

	"github.com/xraph/tally/account"
)

// Store persists the supply record.
type Store interface {
	// CreateSupply records s and credits holder with the full supply in a
	// single atomic step. It fails with tally.ErrAlreadyInitialized if a
	// supply already exists.
	CreateSupply(ctx context.Context, s *Supply, holder *account.Account) error
	// GetSupply returns the supply or an error wrapping tally.ErrNotInitialized.
	GetSupply(ctx context.Context) (*Supply, error)
}
