// Package observability provides a metrics extension for Tally that records
// ledger event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnLedgerInitialized = (*MetricsExtension)(nil)
	_ plugin.OnTransferCompleted = (*MetricsExtension)(nil)
	_ plugin.OnTransferRejected  = (*MetricsExtension)(nil)
	_ plugin.OnPluginError       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger metrics.
// Register it as a Tally plugin to automatically track transfers.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	LedgerInitialized Counter

	// Transfer metrics
	TransferCompleted         Counter
	TransferRejected          Counter
	TransferInsufficientFunds Counter
	TransferAmount            Histogram

	// Error metrics
	ContractViolations Counter
	PluginErrors       Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		LedgerInitialized: factory.Counter("tally.ledger.initialized"),

		TransferCompleted:         factory.Counter("tally.transfer.completed"),
		TransferRejected:          factory.Counter("tally.transfer.rejected"),
		TransferInsufficientFunds: factory.Counter("tally.transfer.insufficient_funds"),
		TransferAmount:            factory.Histogram("tally.transfer.amount"),

		ContractViolations: factory.Counter("tally.transfer.contract_violations"),
		PluginErrors:       factory.Counter("tally.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnLedgerInitialized implements plugin.OnLedgerInitialized.
func (m *MetricsExtension) OnLedgerInitialized(_ context.Context, _ *supply.Supply) error {
	m.LedgerInitialized.Inc()
	return nil
}

// OnTransferCompleted implements plugin.OnTransferCompleted.
func (m *MetricsExtension) OnTransferCompleted(_ context.Context, r *transfer.Receipt) error {
	m.TransferCompleted.Inc()
	// Float64 loses precision above 2^53, which is fine for a distribution.
	m.TransferAmount.Observe(r.Amount.Float64())
	return nil
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (m *MetricsExtension) OnTransferRejected(_ context.Context, _, _ account.ID, _ types.Balance, reason error) error {
	m.TransferRejected.Inc()
	switch {
	case tally.IsInsufficientFunds(reason):
		m.TransferInsufficientFunds.Inc()
	case tally.IsContractViolation(reason):
		m.ContractViolations.Inc()
	}
	return nil
}

// OnPluginError implements plugin.OnPluginError.
func (m *MetricsExtension) OnPluginError(_ context.Context, _, _ string, _ error) {
	m.PluginErrors.Inc()
}
