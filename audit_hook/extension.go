// Package audithook bridges Tally ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnLedgerInitialized = (*Extension)(nil)
	_ plugin.OnTransferCompleted = (*Extension)(nil)
	_ plugin.OnTransferRejected  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnLedgerInitialized implements plugin.OnLedgerInitialized.
func (e *Extension) OnLedgerInitialized(ctx context.Context, s *supply.Supply) error {
	return e.record(ctx, ActionLedgerInitialized, SeverityInfo, OutcomeSuccess,
		ResourceSupply, s.ID.String(), CategoryLedger, nil,
		"initial_holder", s.InitialHolder.String(),
		"total_supply", s.Total.String(),
	)
}

// OnTransferCompleted implements plugin.OnTransferCompleted.
func (e *Extension) OnTransferCompleted(ctx context.Context, r *transfer.Receipt) error {
	return e.record(ctx, ActionTransferCompleted, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, r.ID.String(), CategoryTransfer, nil,
		"sender", r.Sender.String(),
		"receiver", r.Receiver.String(),
		"amount", r.Amount.String(),
		"sender_balance", r.SenderBalance.String(),
		"receiver_balance", r.ReceiverBalance.String(),
	)
}

// OnTransferRejected implements plugin.OnTransferRejected. Broken ledger
// invariants are recorded as critical.
func (e *Extension) OnTransferRejected(ctx context.Context, caller, receiver account.ID, amount types.Balance, reason error) error {
	severity := SeverityWarning
	if tally.IsContractViolation(reason) {
		severity = SeverityCritical
	}

	return e.record(ctx, ActionTransferRejected, severity, OutcomeFailure,
		ResourceTransfer, "", CategoryTransfer, reason,
		"sender", caller.String(),
		"receiver", receiver.String(),
		"amount", amount.String(),
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
