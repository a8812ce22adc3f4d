// Package plugin provides an extensible plugin system for Tally.
// Plugins can hook into ledger lifecycle events to extend functionality.
// Hooks run after the ledger state has changed and can never undo or fail
// the operation that triggered them.
package plugin

import (
	"context"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnLedgerInitialized is called once the supply has been credited to the
// initial holder.
type OnLedgerInitialized interface {
	Plugin
	OnLedgerInitialized(ctx context.Context, s *supply.Supply) error
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransferCompleted is called after a transfer has been written.
type OnTransferCompleted interface {
	Plugin
	OnTransferCompleted(ctx context.Context, r *transfer.Receipt) error
}

// OnTransferRejected is called when a transfer fails validation.
type OnTransferRejected interface {
	Plugin
	OnTransferRejected(ctx context.Context, caller, receiver account.ID, amount types.Balance, reason error) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnPluginError is called when another plugin's hook fails or times out.
// It runs inline and must not block.
type OnPluginError interface {
	Plugin
	OnPluginError(ctx context.Context, pluginName, hook string, err error)
}
