// Package auth carries the treasurer capability through context.
//
// There is no ambient "current user": every mutating service call asks the
// context for the capability explicitly and fails with core.ErrForbidden
// before touching any data when it is absent.
package auth

import (
	"context"
	"strings"

	"kas/internal/core"
)

type ctxKey struct{}

// Capability proves the caller may mutate treasury data. Actor is the
// identifier recorded as created_by on ledger rows.
type Capability struct {
	Actor string
}

// WithTreasurer returns a context carrying the treasurer capability.
func WithTreasurer(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ctxKey{}, Capability{Actor: strings.TrimSpace(actor)})
}

// Treasurer returns the acting treasurer, or core.ErrForbidden when the
// context carries no capability.
func Treasurer(ctx context.Context) (Capability, error) {
	cap, ok := ctx.Value(ctxKey{}).(Capability)
	if !ok || cap.Actor == "" {
		return Capability{}, core.ErrForbidden
	}
	return cap, nil
}
