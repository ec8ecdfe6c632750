// Package jwx verifies tokens with github.com/lestrrat-go/jwx/v2 and turns
// them into auth principals. Keys come from a static key, a key set, or a
// remote JWKS endpoint that is cached and refreshed in the background.
package jwx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/omnipulse/go-shared-kernel/auth"
)

var (
	ErrKeyNotConfigured = errors.New("a key, key set or JWKS URL is required")
	ErrKeyAlreadySet    = errors.New("key source already configured")
)

// Option configures a Verifier.
type Option func(*Verifier) error

// WithKey verifies signatures with a single key.
func WithKey(alg jwa.SignatureAlgorithm, key any) Option {
	return func(v *Verifier) error {
		if key == nil {
			return errors.New("key cannot be nil")
		}
		return v.setKey(jwt.WithKey(alg, key))
	}
}

// WithKeySet verifies signatures with the key of the set whose "kid" matches
// the token header.
func WithKeySet(set jwk.Set) Option {
	return func(v *Verifier) error {
		if set == nil {
			return errors.New("key set cannot be nil")
		}
		return v.setKey(jwt.WithKeySet(set))
	}
}

// WithJWKSURL fetches the key set from url and keeps it refreshed for the
// lifetime of ctx. The first fetch happens here so that a bad URL fails
// construction.
func WithJWKSURL(ctx context.Context, url string, minRefresh time.Duration, client *http.Client) Option {
	return func(v *Verifier) error {
		if url == "" {
			return errors.New("JWKS URL cannot be empty")
		}
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}

		cache := jwk.NewCache(ctx)
		if err := cache.Register(url, jwk.WithMinRefreshInterval(minRefresh), jwk.WithHTTPClient(client)); err != nil {
			return fmt.Errorf("could not register JWKS URL: %w", err)
		}
		if _, err := cache.Refresh(ctx, url); err != nil {
			return fmt.Errorf("could not fetch JWKS: %w", err)
		}

		return v.setKey(jwt.WithKeySet(jwk.NewCachedSet(cache, url)))
	}
}

// WithIssuer requires the "iss" claim to equal issuer.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		v.validate = append(v.validate, jwt.WithIssuer(issuer))
		return nil
	}
}

// WithAudience requires the "aud" claim to contain audience.
func WithAudience(audience string) Option {
	return func(v *Verifier) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.validate = append(v.validate, jwt.WithAudience(audience))
		return nil
	}
}

// WithAcceptableSkew tolerates clock skew when checking time claims.
func WithAcceptableSkew(d time.Duration) Option {
	return func(v *Verifier) error {
		if d < 0 {
			return errors.New("skew cannot be negative")
		}
		v.validate = append(v.validate, jwt.WithAcceptableSkew(d))
		return nil
	}
}

// Verifier implements auth.Verifier.
type Verifier struct {
	key      jwt.ParseOption
	validate []jwt.ParseOption
}

// New builds a Verifier. Exactly one of WithKey, WithKeySet or WithJWKSURL
// must be given.
func New(opts ...Option) (*Verifier, error) {
	v := &Verifier{}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if v.key == nil {
		return nil, ErrKeyNotConfigured
	}
	return v, nil
}

func (v *Verifier) setKey(opt jwt.ParseOption) error {
	if v.key != nil {
		return ErrKeyAlreadySet
	}
	v.key = opt
	return nil
}

// Verify parses, verifies and validates token.
func (v *Verifier) Verify(ctx context.Context, token string) (*auth.Principal, error) {
	opts := make([]jwt.ParseOption, 0, len(v.validate)+3)
	opts = append(opts, v.key, jwt.WithValidate(true), jwt.WithContext(ctx))
	opts = append(opts, v.validate...)

	tok, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, fmt.Errorf("could not parse the token: %w", err)
	}

	claims, err := tok.AsMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read claims: %w", err)
	}

	return &auth.Principal{
		Subject: tok.Subject(),
		Claims:  claims,
	}, nil
}
