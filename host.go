package tally

import (
	"context"
	"fmt"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/types"
)

// DefaultTotalSupply is the supply minted by Host.Initialize unless
// WithTotalSupply overrides it.
const DefaultTotalSupply uint64 = 100

// AccountValidator checks that an account identifier is acceptable to the
// hosting environment.
type AccountValidator func(account.ID) error

// Host exposes the ledger the way an execution environment invokes it: the
// caller identity is read from the context, never from the arguments.
type Host struct {
	ledger      *Ledger
	totalSupply types.Balance
	validate    AccountValidator
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithTotalSupply sets the supply minted by Initialize.
func WithTotalSupply(total types.Balance) HostOption {
	return func(h *Host) {
		h.totalSupply = total
	}
}

// WithAccountValidator sets the validator applied to every account identifier
// the host receives, including the caller identity.
func WithAccountValidator(fn AccountValidator) HostOption {
	return func(h *Host) {
		h.validate = fn
	}
}

// NewHost wraps l in a caller-aware entry point.
func NewHost(l *Ledger, opts ...HostOption) *Host {
	h := &Host{
		ledger:      l,
		totalSupply: types.NewBalance(DefaultTotalSupply),
		validate:    requireAccount,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Ledger returns the wrapped ledger.
func (h *Host) Ledger() *Ledger { return h.ledger }

// Initialize creates the ledger with the configured supply, credited in full
// to the caller.
func (h *Host) Initialize(ctx context.Context) error {
	caller, err := h.caller(ctx)
	if err != nil {
		return err
	}

	_, err = h.ledger.Initialize(ctx, caller, h.totalSupply)
	return err
}

// GetTotalSupply returns the fixed total supply.
func (h *Host) GetTotalSupply(ctx context.Context) (types.Balance, error) {
	return h.ledger.TotalSupply(ctx)
}

// GetBalanceOf returns the balance of accountID. Unknown accounts hold zero.
func (h *Host) GetBalanceOf(ctx context.Context, accountID string) (types.Balance, error) {
	a := account.ID(accountID)
	if err := h.validate(a); err != nil {
		return types.Balance{}, err
	}
	return h.ledger.BalanceOf(ctx, a)
}

// Transfer moves tokens from the caller to receiverID.
func (h *Host) Transfer(ctx context.Context, receiverID string, tokens types.Balance) error {
	caller, err := h.caller(ctx)
	if err != nil {
		return err
	}

	receiver := account.ID(receiverID)
	if err := h.validate(receiver); err != nil {
		return err
	}

	_, err = h.ledger.Transfer(ctx, caller, receiver, tokens)
	return err
}

func (h *Host) caller(ctx context.Context) (account.ID, error) {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return "", ErrMissingCaller
	}
	if err := h.validate(caller); err != nil {
		return "", err
	}
	return caller, nil
}

func requireAccount(a account.ID) error {
	if a.IsEmpty() {
		return fmt.Errorf("%w: empty account id", ErrInvalidAccount)
	}
	return nil
}
