// Package supply defines the fixed token supply recorded at initialization.
package supply

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// ErrGenesisMismatch is returned when the genesis holder record does not
// carry exactly the supply.
var ErrGenesisMismatch = errors.New("supply: genesis holder does not match supply")

// Supply is the genesis record of a ledger. It is written exactly once and
// never changes afterwards.
type Supply struct {
	types.Entity
	ID            id.SupplyID   `json:"id"`
	Total         types.Balance `json:"total"`
	InitialHolder account.ID    `json:"initial_holder"`
}

// CheckGenesis verifies that holder is the initial holder credited with the
// whole supply.
func (s *Supply) CheckGenesis(holder *account.Account) error {
	if holder == nil {
		return fmt.Errorf("%w: no holder", ErrGenesisMismatch)
	}
	if holder.ID != s.InitialHolder || !holder.Balance.Equal(s.Total) {
		return fmt.Errorf("%w: %s holds %s, supply is %s to %s",
			ErrGenesisMismatch, holder.ID, holder.Balance, s.Total, s.InitialHolder)
	}
	return nil
}
