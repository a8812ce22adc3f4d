package extension

import (
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
)

// Option configures the Tally Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a tally.Option through to the underlying engine.
func WithLedgerOption(opt tally.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithHostOption passes a tally.HostOption through to the provided Host.
func WithHostOption(opt tally.HostOption) Option {
	return func(e *Extension) {
		e.hostOpts = append(e.hostOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, tally.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithTotalSupply sets the decimal supply minted at initialization.
func WithTotalSupply(total string) Option {
	return func(e *Extension) { e.config.TotalSupply = total }
}

// WithAutoInitialize initializes the ledger on start, crediting holder.
func WithAutoInitialize(holder string) Option {
	return func(e *Extension) {
		e.config.AutoInitialize = true
		e.config.InitialHolder = holder
	}
}

// WithPluginTimeout bounds each plugin hook invocation.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
