package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// DefaultTimeout bounds a single hook invocation.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onLedgerInitialized []OnLedgerInitialized
	onTransferCompleted []OnTransferCompleted
	onTransferRejected  []OnTransferRejected
	onPluginError       []OnPluginError
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	r.timeout = d
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnLedgerInitialized); ok {
		r.onLedgerInitialized = append(r.onLedgerInitialized, v)
	}
	if v, ok := p.(OnTransferCompleted); ok {
		r.onTransferCompleted = append(r.onTransferCompleted, v)
	}
	if v, ok := p.(OnTransferRejected); ok {
		r.onTransferRejected = append(r.onTransferRejected, v)
	}
	if v, ok := p.(OnPluginError); ok {
		r.onPluginError = append(r.onPluginError, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

// implementedInterfaces returns the hook interfaces implemented by p.
func implementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnLedgerInitialized)(nil)).Elem(), "OnLedgerInitialized")
	checkInterface(reflect.TypeOf((*OnTransferCompleted)(nil)).Elem(), "OnTransferCompleted")
	checkInterface(reflect.TypeOf((*OnTransferRejected)(nil)).Elem(), "OnTransferRejected")
	checkInterface(reflect.TypeOf((*OnPluginError)(nil)).Elem(), "OnPluginError")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, l)
		}); err != nil {
			r.failed(ctx, p.Name(), "OnInit", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.failed(ctx, p.Name(), "OnShutdown", err)
		}
	}
}

// EmitLedgerInitialized emits a ledger initialized event.
func (r *Registry) EmitLedgerInitialized(ctx context.Context, s *supply.Supply) {
	r.mu.RLock()
	plugins := r.onLedgerInitialized
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLedgerInitialized(ctx, s)
		}); err != nil {
			r.failed(ctx, p.Name(), "OnLedgerInitialized", err)
		}
	}
}

// EmitTransferCompleted emits a transfer completed event.
func (r *Registry) EmitTransferCompleted(ctx context.Context, receipt *transfer.Receipt) {
	r.mu.RLock()
	plugins := r.onTransferCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferCompleted(ctx, receipt)
		}); err != nil {
			r.failed(ctx, p.Name(), "OnTransferCompleted", err)
		}
	}
}

// EmitTransferRejected emits a transfer rejected event.
func (r *Registry) EmitTransferRejected(ctx context.Context, caller, receiver account.ID, amount types.Balance, reason error) {
	r.mu.RLock()
	plugins := r.onTransferRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransferRejected(ctx, caller, receiver, amount, reason)
		}); err != nil {
			r.failed(ctx, p.Name(), "OnTransferRejected", err)
		}
	}
}

// failed logs a hook failure and reports it to OnPluginError plugins other
// than the one that failed.
func (r *Registry) failed(ctx context.Context, pluginName, hook string, err error) {
	r.logger.Warn("plugin "+hook+" failed",
		"plugin", pluginName,
		"error", err,
	)

	r.mu.RLock()
	observers := r.onPluginError
	r.mu.RUnlock()

	for _, o := range observers {
		if o.Name() == pluginName {
			continue
		}
		o.OnPluginError(ctx, pluginName, hook, err)
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the ledger.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
