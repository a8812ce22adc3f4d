// Package extension provides the Forge extension adapter for Tally.
//
// It implements the forge.Extension interface to integrate Tally
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tally" or "tally" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tally"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fixed-supply fungible token ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tally as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	totalSupply types.Balance
	engine      *tally.Ledger
	host        *tally.Host
	store       store.Store
	ledgerOpts  []tally.Option
	hostOpts    []tally.HostOption
}

// New creates a new Tally Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *tally.Ledger { return e.engine }

// Host returns the caller-aware entry point.
// This is nil until Register is called.
func (e *Extension) Host() *tally.Host { return e.host }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = tally.New(e.store, e.buildLedgerOpts()...)
	e.host = tally.NewHost(e.engine, e.buildHostOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*tally.Ledger, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}
	return vessel.Provide(fapp.Container(), func() (*tally.Host, error) {
		return e.host, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tally: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if e.config.AutoInitialize {
		if err := e.autoInitialize(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tally: store not initialized")
	}
	return e.store.Ping(ctx)
}

// autoInitialize mints the configured supply. A ledger initialized by an
// earlier run is not an error.
func (e *Extension) autoInitialize(ctx context.Context) error {
	holder := account.ID(e.config.InitialHolder)
	_, err := e.engine.Initialize(ctx, holder, e.totalSupply)
	if errors.Is(err, tally.ErrAlreadyInitialized) {
		e.Logger().Debug("tally: ledger already initialized",
			forge.F("initial_holder", e.config.InitialHolder),
		)
		return nil
	}
	return err
}

// buildLedgerOpts constructs tally.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []tally.Option {
	opts := make([]tally.Option, 0, len(e.ledgerOpts)+2)

	if e.config.DisableMigrate {
		opts = append(opts, tally.WithDisableMigrate())
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, tally.WithPluginTimeout(e.config.PluginTimeout))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// buildHostOpts constructs tally.HostOption values from the resolved config.
func (e *Extension) buildHostOpts() []tally.HostOption {
	opts := make([]tally.HostOption, 0, len(e.hostOpts)+1)
	opts = append(opts, tally.WithTotalSupply(e.totalSupply))
	return append(opts, e.hostOpts...)
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tally: configuration is required but not found in config files; " +
				"ensure 'extensions.tally' or 'tally' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	total, err := validateConfig(e.config)
	if err != nil {
		return err
	}
	e.totalSupply = total

	e.Logger().Debug("tally: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("total_supply", e.config.TotalSupply),
		forge.F("initial_holder", e.config.InitialHolder),
		forge.F("auto_initialize", e.config.AutoInitialize),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tally" first (namespaced pattern).
	if cm.IsSet("extensions.tally") {
		if err := cm.Bind("extensions.tally", &cfg); err == nil {
			e.Logger().Debug("tally: loaded config from file",
				forge.F("key", "extensions.tally"),
			)
			return cfg, true
		}
		e.Logger().Warn("tally: failed to bind extensions.tally config",
			forge.F("error", "bind failed"),
		)
	}

	// Try top-level "tally" key.
	if cm.IsSet("tally") {
		if err := cm.Bind("tally", &cfg); err == nil {
			e.Logger().Debug("tally: loaded config from file",
				forge.F("key", "tally"),
			)
			return cfg, true
		}
		e.Logger().Warn("tally: failed to bind tally config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// validateConfig parses the supply and checks that auto-initialization has
// a holder.
func validateConfig(cfg Config) (types.Balance, error) {
	total, err := types.ParseBalance(cfg.TotalSupply)
	if err != nil {
		return types.Balance{}, fmt.Errorf("tally: total_supply: %w", err)
	}
	if cfg.AutoInitialize && cfg.InitialHolder == "" {
		return types.Balance{}, errors.New("tally: auto_initialize requires initial_holder")
	}
	return total, nil
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.TotalSupply == "" {
		cfg.TotalSupply = defaults.TotalSupply
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.AutoInitialize {
		yamlConfig.AutoInitialize = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.TotalSupply == "" && programmaticConfig.TotalSupply != "" {
		yamlConfig.TotalSupply = programmaticConfig.TotalSupply
	}
	if yamlConfig.InitialHolder == "" && programmaticConfig.InitialHolder != "" {
		yamlConfig.InitialHolder = programmaticConfig.InitialHolder
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
