// Package auth is the identity layer that sits in front of the tenant
// context filter. It extracts a bearer token from the request, hands it to a
// Verifier and stores the resulting Principal in the request context.
//
// Signature verification itself is delegated to the verifiers in
// validate/jwx and validate/jwtgo.
package auth

import (
	"context"
	"fmt"
)

// Principal is an authenticated caller.
type Principal struct {
	// Subject is the "sub" claim.
	Subject string

	// Claims holds every claim of the verified token.
	Claims map[string]any

	// Token is the raw token the principal was built from.
	Token string
}

// ClaimString returns claim name as a string. Non-string values are
// formatted with fmt.Sprint. A missing or null claim reports false.
func (p *Principal) ClaimString(name string) (string, bool) {
	if p == nil {
		return "", false
	}

	v, ok := p.Claims[name]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Verifier checks a raw token and returns the principal it identifies.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(ctx context.Context, token string) (*Principal, error)

// Verify calls f.
func (f VerifierFunc) Verify(ctx context.Context, token string) (*Principal, error) {
	return f(ctx, token)
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	principalKey contextKey = iota
	binderKey
)

// Binder is told about the principal of a request once it is authenticated.
// The tenant filter installs itself as the Binder of every request it
// populates, so that a store built before authentication still learns the
// user and tenant.
type Binder interface {
	BindPrincipal(ctx context.Context, p *Principal)
}

// WithBinder returns a copy of ctx carrying b.
func WithBinder(ctx context.Context, b Binder) context.Context {
	return context.WithValue(ctx, binderKey, b)
}

func binderFromContext(ctx context.Context) (Binder, bool) {
	b, ok := ctx.Value(binderKey).(Binder)
	return b, ok && b != nil
}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal stored by the authenticator.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
