package extension

import (
	"testing"
	"time"

	"github.com/xraph/tally/types"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{InitialHolder: "alice"})

	if cfg.TotalSupply != "100" {
		t.Errorf("TotalSupply = %q, want 100", cfg.TotalSupply)
	}
	if cfg.PluginTimeout != 5*time.Second {
		t.Errorf("PluginTimeout = %v, want 5s", cfg.PluginTimeout)
	}
	if cfg.InitialHolder != "alice" {
		t.Errorf("InitialHolder = %q, want alice", cfg.InitialHolder)
	}
}

func TestMergeConfigurations(t *testing.T) {
	tests := []struct {
		name         string
		yaml         Config
		programmatic Config
		want         Config
	}{
		{
			name:         "yaml wins for strings",
			yaml:         Config{TotalSupply: "1000", InitialHolder: "treasury"},
			programmatic: Config{TotalSupply: "5", InitialHolder: "alice"},
			want:         Config{TotalSupply: "1000", InitialHolder: "treasury", PluginTimeout: 5 * time.Second},
		},
		{
			name:         "programmatic fills gaps",
			yaml:         Config{},
			programmatic: Config{InitialHolder: "alice", PluginTimeout: time.Second},
			want:         Config{TotalSupply: "100", InitialHolder: "alice", PluginTimeout: time.Second},
		},
		{
			name:         "programmatic flags override",
			yaml:         Config{InitialHolder: "alice"},
			programmatic: Config{DisableMigrate: true, AutoInitialize: true},
			want: Config{
				DisableMigrate: true, AutoInitialize: true,
				TotalSupply: "100", InitialHolder: "alice", PluginTimeout: 5 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mergeConfigurations(tt.yaml, tt.programmatic)
			if got != tt.want {
				t.Errorf("mergeConfigurations() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    types.Balance
		wantErr bool
	}{
		{"default supply", DefaultConfig(), types.NewBalance(100), false},
		{"max supply", Config{TotalSupply: "340282366920938463463374607431768211455"}, types.MaxBalance(), false},
		{"over 128 bits", Config{TotalSupply: "340282366920938463463374607431768211456"}, types.Balance{}, true},
		{"negative", Config{TotalSupply: "-1"}, types.Balance{}, true},
		{"auto init without holder", Config{TotalSupply: "1", AutoInitialize: true}, types.Balance{}, true},
		{"auto init with holder", Config{TotalSupply: "1", AutoInitialize: true, InitialHolder: "alice"}, types.NewBalance(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateConfig() err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("validateConfig() = %s, want %s", got, tt.want)
			}
		})
	}
}
