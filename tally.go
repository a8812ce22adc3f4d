package tally

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// auditPageSize is the number of accounts read per page by Audit.
const auditPageSize = 500

// Ledger is a fixed-supply token ledger.
//
// Operations on one Ledger are serialized: a transfer's balance check and its
// writes complete before any other operation on the same instance begins.
// Plugin hooks are dispatched after the lock is released.
type Ledger struct {
	mu      sync.RWMutex
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	skipMigrate bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook invocation.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithDisableMigrate makes Start skip store migrations.
func WithDisableMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("tally started",
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Initialization
// ──────────────────────────────────────────────────

// Initialize creates the ledger, crediting totalSupply to initialHolder.
//
// It runs once per ledger. Calling it again returns ErrAlreadyInitialized and
// leaves all balances untouched.
func (l *Ledger) Initialize(ctx context.Context, initialHolder account.ID, totalSupply types.Balance) (*supply.Supply, error) {
	if initialHolder.IsEmpty() {
		return nil, fmt.Errorf("%w: empty initial holder", ErrInvalidAccount)
	}

	s := &supply.Supply{
		Entity:        types.NewEntity(),
		ID:            id.NewSupplyID(),
		Total:         totalSupply,
		InitialHolder: initialHolder,
	}

	if err := l.createSupply(ctx, s); err != nil {
		return nil, err
	}

	l.logger.Info("ledger initialized",
		"supply_id", s.ID.String(),
		"initial_holder", initialHolder.String(),
		"total_supply", totalSupply.String(),
	)

	// Hooks run after the lock is released so they may read the ledger.
	l.plugins.EmitLedgerInitialized(ctx, s)
	return s, nil
}

func (l *Ledger) createSupply(ctx context.Context, s *supply.Supply) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.store.CreateSupply(ctx, s, account.New(s.InitialHolder, s.Total))
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// TotalSupply returns the fixed total supply.
func (l *Ledger) TotalSupply(ctx context.Context) (types.Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, err := l.store.GetSupply(ctx)
	if err != nil {
		return types.Balance{}, err
	}
	return s.Total, nil
}

// Supply returns the genesis record.
func (l *Ledger) Supply(ctx context.Context) (*supply.Supply, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.store.GetSupply(ctx)
}

// BalanceOf returns the balance held by accountID. Accounts that were never
// credited hold zero.
func (l *Ledger) BalanceOf(ctx context.Context, accountID account.ID) (types.Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a, err := l.loadAccount(ctx, accountID)
	if err != nil {
		return types.Balance{}, err
	}
	return a.Balance, nil
}

// Accounts lists stored accounts in ascending ID order.
func (l *Ledger) Accounts(ctx context.Context, opts account.ListOpts) ([]*account.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.store.ListAccounts(ctx, opts)
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Transfer moves amount units from caller to receiver.
//
// caller is the identity performing the transfer and must be supplied by the
// execution context, never by the request payload. The transfer fails with
// ErrInsufficientFunds when caller holds less than amount, in which case no
// balance changes. A zero amount or a transfer to oneself succeeds without
// writing anything.
func (l *Ledger) Transfer(ctx context.Context, caller, receiver account.ID, amount types.Balance) (*transfer.Receipt, error) {
	if caller.IsEmpty() || receiver.IsEmpty() {
		return nil, fmt.Errorf("%w: caller and receiver are required", ErrInvalidAccount)
	}

	receipt, rejection, err := l.applyTransfer(ctx, caller, receiver, amount)
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		l.reject(ctx, caller, receiver, amount, rejection)
		return nil, rejection
	}

	l.logger.Debug("transfer completed",
		"transfer_id", receipt.ID.String(),
		"caller", caller.String(),
		"receiver", receiver.String(),
		"amount", amount.String(),
	)

	l.plugins.EmitTransferCompleted(ctx, receipt)
	return receipt, nil
}

// applyTransfer checks and writes a transfer while holding the ledger lock.
// A transfer refused by Settle is returned as rejection; err reports a
// failure to read or write the store.
func (l *Ledger) applyTransfer(ctx context.Context, caller, receiver account.ID, amount types.Balance) (receipt *transfer.Receipt, rejection, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.GetSupply(ctx); err != nil {
		return nil, nil, err
	}

	from, err := l.loadAccount(ctx, caller)
	if err != nil {
		return nil, nil, err
	}
	to := from
	if receiver != caller {
		to, err = l.loadAccount(ctx, receiver)
		if err != nil {
			return nil, nil, err
		}
	}

	fromBalance, toBalance, rejection := Settle(caller, receiver, from.Balance, to.Balance, amount)
	if rejection != nil {
		return nil, rejection, nil
	}

	if !amount.IsZero() && caller != receiver {
		from.Balance = fromBalance
		from.Touch()
		to.Balance = toBalance
		to.Touch()

		if err := l.store.PutAccounts(ctx, from, to); err != nil {
			return nil, nil, fmt.Errorf("tally: write transfer: %w", err)
		}
	}

	return &transfer.Receipt{
		ID:              id.NewTransferID(),
		Sender:          caller,
		Receiver:        receiver,
		Amount:          amount,
		SenderBalance:   fromBalance,
		ReceiverBalance: toBalance,
		CreatedAt:       time.Now().UTC(),
	}, nil, nil
}

// Settle computes the balances of sender and receiver after moving amount.
// It is a pure function: nothing is read or written.
//
// When sender and receiver are the same holder the returned balances both
// equal senderBalance, provided it covers amount.
func Settle(sender, receiver account.ID, senderBalance, receiverBalance, amount types.Balance) (types.Balance, types.Balance, error) {
	if senderBalance.LessThan(amount) {
		return types.Balance{}, types.Balance{}, &InsufficientFundsError{
			Account:   sender,
			Balance:   senderBalance,
			Requested: amount,
		}
	}

	if sender == receiver {
		return senderBalance, senderBalance, nil
	}

	debited, err := senderBalance.Sub(amount)
	if err != nil {
		return types.Balance{}, types.Balance{}, &InsufficientFundsError{
			Account:   sender,
			Balance:   senderBalance,
			Requested: amount,
		}
	}

	credited, err := receiverBalance.Add(amount)
	if err != nil {
		return types.Balance{}, types.Balance{}, fmt.Errorf("%w: crediting %q: %w", ErrArithmeticOverflow, receiver, err)
	}

	return debited, credited, nil
}

func (l *Ledger) reject(ctx context.Context, caller, receiver account.ID, amount types.Balance, reason error) {
	if IsContractViolation(reason) {
		l.logger.Error("transfer violated ledger invariant",
			"caller", caller.String(),
			"receiver", receiver.String(),
			"amount", amount.String(),
			"error", reason,
		)
	} else {
		l.logger.Debug("transfer rejected",
			"caller", caller.String(),
			"receiver", receiver.String(),
			"amount", amount.String(),
			"error", reason,
		)
	}

	l.plugins.EmitTransferRejected(ctx, caller, receiver, amount, reason)
}

// loadAccount returns the stored account or a fresh zero-balance account.
func (l *Ledger) loadAccount(ctx context.Context, accountID account.ID) (*account.Account, error) {
	a, err := l.store.GetAccount(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return account.New(accountID, types.Balance{}), nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// AuditReport compares the stored balances against the total supply.
type AuditReport struct {
	Total    types.Balance `json:"total"`
	Sum      *big.Int      `json:"sum"`
	Accounts int           `json:"accounts"`
	Balanced bool          `json:"balanced"`
}

// Audit sums every stored balance and checks it against the total supply.
// An unbalanced ledger returns the report together with
// ErrConservationViolated.
func (l *Ledger) Audit(ctx context.Context) (*AuditReport, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, err := l.store.GetSupply(ctx)
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Total: s.Total,
		Sum:   new(big.Int),
	}

	for offset := 0; ; offset += auditPageSize {
		page, err := l.store.ListAccounts(ctx, account.ListOpts{Limit: auditPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("tally: audit accounts: %w", err)
		}
		for _, a := range page {
			report.Sum.Add(report.Sum, a.Balance.Big())
		}
		report.Accounts += len(page)
		if len(page) < auditPageSize {
			break
		}
	}

	report.Balanced = report.Sum.Cmp(s.Total.Big()) == 0
	if !report.Balanced {
		l.logger.Error("ledger audit failed",
			"total_supply", s.Total.String(),
			"sum", report.Sum.String(),
			"accounts", report.Accounts,
		)
		return report, fmt.Errorf("%w: supply %s, balances sum to %s", ErrConservationViolated, s.Total, report.Sum)
	}

	return report, nil
}
