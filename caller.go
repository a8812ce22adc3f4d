package tally

import (
	"context"

	"github.com/xraph/tally/account"
)

type callerKey struct{}

// WithCaller returns a context carrying the identity of the party invoking
// a ledger entry point. Hosts set it once per request after authenticating
// the caller.
func WithCaller(ctx context.Context, caller account.ID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom returns the caller identity stored by WithCaller.
func CallerFrom(ctx context.Context) (account.ID, bool) {
	caller, ok := ctx.Value(callerKey{}).(account.ID)
	if !ok || caller.IsEmpty() {
		return "", false
	}
	return caller, true
}
