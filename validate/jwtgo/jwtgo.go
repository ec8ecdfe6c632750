// Package jwtgo verifies tokens with github.com/golang-jwt/jwt/v5 and turns
// them into auth principals.
package jwtgo

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/omnipulse/go-shared-kernel/auth"
)

// Option configures a Verifier.
type Option func(*Verifier) error

// WithIssuer requires the "iss" claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		v.parserOpts = append(v.parserOpts, jwt.WithIssuer(issuer))
		return nil
	}
}

// WithAudience requires the "aud" claim to contain audience.
func WithAudience(audience string) Option {
	return func(v *Verifier) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.parserOpts = append(v.parserOpts, jwt.WithAudience(audience))
		return nil
	}
}

// WithLeeway tolerates clock skew when checking exp, nbf and iat.
func WithLeeway(d time.Duration) Option {
	return func(v *Verifier) error {
		if d < 0 {
			return errors.New("leeway cannot be negative")
		}
		v.parserOpts = append(v.parserOpts, jwt.WithLeeway(d))
		return nil
	}
}

// WithExpirationRequired rejects tokens without an "exp" claim.
func WithExpirationRequired() Option {
	return func(v *Verifier) error {
		v.parserOpts = append(v.parserOpts, jwt.WithExpirationRequired())
		return nil
	}
}

// Verifier implements auth.Verifier.
type Verifier struct {
	keyFunc    jwt.Keyfunc
	parserOpts []jwt.ParserOption
}

// New builds a Verifier that resolves signing keys with keyFunc and only
// accepts the given signature algorithm, e.g. "HS256" or "RS256".
func New(keyFunc jwt.Keyfunc, signatureAlgorithm string, opts ...Option) (*Verifier, error) {
	if keyFunc == nil {
		return nil, errors.New("keyFunc is required but was nil")
	}
	if signatureAlgorithm == "" {
		return nil, errors.New("signature algorithm is required")
	}

	v := &Verifier{
		keyFunc:    keyFunc,
		parserOpts: []jwt.ParserOption{jwt.WithValidMethods([]string{signatureAlgorithm})},
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// HMACKey returns a key func for a shared secret.
func HMACKey(secret []byte) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		return secret, nil
	}
}

// Verify parses and validates token.
func (v *Verifier) Verify(_ context.Context, token string) (*auth.Principal, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(v.parserOpts...)

	if _, err := parser.ParseWithClaims(token, claims, v.keyFunc); err != nil {
		return nil, fmt.Errorf("could not parse the token: %w", err)
	}

	subject, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("could not read subject: %w", err)
	}

	return &auth.Principal{
		Subject: subject,
		Claims:  maps.Clone(map[string]any(claims)),
	}, nil
}
