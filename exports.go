package tally

import (
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Balance is re-exported from types package.
type Balance = types.Balance

// Entity is re-exported from types package.
type Entity = types.Entity

// AccountID is re-exported from account package.
type AccountID = account.ID

// Re-export Balance constructors
var (
	NewBalance       = types.NewBalance
	ParseBalance     = types.ParseBalance
	MustParseBalance = types.MustParseBalance
	MaxBalance       = types.MaxBalance
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
