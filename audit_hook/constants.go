package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionLedgerInitialized = "ledger.initialized"

	// Transfer actions
	ActionTransferCompleted = "transfer.completed"
	ActionTransferRejected  = "transfer.rejected"
)

// Resource constants for audit events.
const (
	ResourceSupply   = "supply"
	ResourceTransfer = "transfer"
)

// Category constants for audit events.
const (
	CategoryLedger   = "ledger"
	CategoryTransfer = "transfer"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
