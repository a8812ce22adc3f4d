// Package account defines token holders and their balances.
package account

import (
	"github.com/xraph/tally/types"
)

// ID identifies a holder. It is opaque to the ledger: the host validates its
// syntax before it reaches the core, and the ledger only compares it for
// equality and uses it as a map key.
type ID string

// String returns the identifier as a plain string.
func (i ID) String() string { return string(i) }

// IsEmpty reports whether the identifier is the empty string.
func (i ID) IsEmpty() bool { return i == "" }

// Account is a holder's stored balance. An account without a stored record
// has an implicit balance of zero.
type Account struct {
	types.Entity
	ID      ID            `json:"id"`
	Balance types.Balance `json:"balance"`
}

// New creates an Account with fresh timestamps.
func New(accountID ID, balance types.Balance) *Account {
	return &Account{
		Entity:  types.NewEntity(),
		ID:      accountID,
		Balance: balance,
	}
}
