package tally

import (
	"errors"
	"fmt"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/types"
)

// Sentinel errors for common failure scenarios.
var (
	// Transfer errors
	ErrInsufficientFunds  = errors.New("tally: insufficient funds")
	ErrArithmeticOverflow = errors.New("tally: arithmetic overflow")

	// Lifecycle errors
	ErrNotInitialized     = errors.New("tally: ledger not initialized")
	ErrAlreadyInitialized = errors.New("tally: ledger already initialized")

	// Invariant errors
	ErrConservationViolated = errors.New("tally: sum of balances does not equal total supply")

	// Identity errors
	ErrInvalidAccount = errors.New("tally: invalid account id")
	ErrMissingCaller  = errors.New("tally: no caller identity in context")

	// Store errors
	ErrAccountNotFound = errors.New("tally: account not found")
	ErrStoreClosed     = errors.New("tally: store is closed")
)

// InsufficientFundsError details a rejected transfer. It matches
// ErrInsufficientFunds with errors.Is.
type InsufficientFundsError struct {
	Account   account.ID
	Balance   types.Balance
	Requested types.Balance
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("tally: insufficient funds: account %q holds %s, requested %s",
		e.Account, e.Balance, e.Requested)
}

// Is reports whether target is ErrInsufficientFunds.
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// IsInsufficientFunds returns true if the error is an insufficient funds rejection.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsContractViolation returns true if the error means a ledger invariant was
// broken. Such errors are not recoverable by retrying.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrArithmeticOverflow) ||
		errors.Is(err, ErrConservationViolated)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrNotInitialized)
}
