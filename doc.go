// Package tally provides a fixed-supply fungible token ledger for Go applications.
//
// Tally is designed as a library, not a service. A ledger is minted once with a
// total supply credited to a single holder, after which tokens only move
// between accounts. It provides:
//
//   - Unsigned 128-bit balances with checked arithmetic
//   - Atomic genesis and transfers on memory, SQLite, PostgreSQL and MongoDB
//   - A conservation audit that sums every balance against the supply
//   - Lifecycle hooks for metrics and audit trails
//   - A Forge extension for dependency injection and configuration
//
// # Quick Start
//
// Create a ledger instance with your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/memory"
//	)
//
//	l := tally.New(memory.New())
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if _, err := l.Initialize(ctx, "alice", tally.NewBalance(100)); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transfers
//
// The caller of a transfer is the identity performing it. Library users pass
// it directly:
//
//	receipt, err := l.Transfer(ctx, "alice", "bob", tally.NewBalance(10))
//	if tally.IsInsufficientFunds(err) {
//	    // nothing changed
//	}
//
// Execution environments that authenticate callers use Host, which reads the
// caller from the context set by WithCaller:
//
//	h := tally.NewHost(l)
//	ctx = tally.WithCaller(ctx, "alice")
//	err := h.Transfer(ctx, "bob", tally.NewBalance(10))
//
// # Invariants
//
// The sum of all balances always equals the total supply. Transfers of zero
// and transfers to oneself succeed without writing. A credit that would
// overflow 128 bits returns ErrArithmeticOverflow, which IsContractViolation
// reports as a broken invariant.
//
// # TypeID
//
// Supply and transfer records use TypeID identifiers:
//
//	sup_01h2xcejqtf2nbrexx3vqjhp41   // Supply ID
//	xfer_01h455vb4pex5vsknk084sn02q  // Transfer ID
//
// Account identifiers are opaque strings owned by the hosting environment.
package tally
