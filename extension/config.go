package extension

import "time"

// Config holds the Tally extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tally" or "tally" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// TotalSupply is the decimal token supply minted at initialization
	// (default: "100").
	TotalSupply string `json:"total_supply" mapstructure:"total_supply" yaml:"total_supply"`

	// InitialHolder is the account credited with the whole supply when
	// AutoInitialize is set.
	InitialHolder string `json:"initial_holder" mapstructure:"initial_holder" yaml:"initial_holder"`

	// AutoInitialize initializes the ledger on start. A ledger that is
	// already initialized is left as is.
	AutoInitialize bool `json:"auto_initialize" mapstructure:"auto_initialize" yaml:"auto_initialize"`

	// PluginTimeout bounds each plugin hook invocation (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		TotalSupply:   "100",
		PluginTimeout: 5 * time.Second,
	}
}
