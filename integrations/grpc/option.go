package kernelgrpc

import (
	"errors"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/auth"
)

var (
	ErrFilterNil         = errors.New("tenant filter cannot be nil")
	ErrVerifierNil       = errors.New("verifier cannot be nil")
	ErrTokenExtractorNil = errors.New("token extractor cannot be nil")
	ErrLoggerNil         = errors.New("logger cannot be nil")
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// WithVerifier enables authentication. Without a verifier no principal is
// bound and calls are not authenticated.
func WithVerifier(v auth.Verifier) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return ErrVerifierNil
		}
		i.verifier = v
		return nil
	}
}

// WithTokenExtractor sets how the token is read from the call.
//
// Default: MetadataTokenExtractor
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return ErrTokenExtractorNil
		}
		i.extractor = extractor
		return nil
	}
}

// WithCredentialsOptional lets calls without a token through unauthenticated.
//
// Default: false
func WithCredentialsOptional(value bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = value
		return nil
	}
}

// WithExcludedMethods skips authentication for the given full method names,
// e.g. "/grpc.health.v1.Health/Check". The request context is still
// populated.
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, m := range methods {
			i.excluded[m] = true
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l sharedkernel.Logger) Option {
	return func(i *Interceptor) error {
		if l == nil {
			return ErrLoggerNil
		}
		i.logger = l
		return nil
	}
}
