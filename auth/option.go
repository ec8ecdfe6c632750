package auth

import (
	"errors"
	"net/http"
	"strings"
)

var (
	ErrVerifierNil       = errors.New("verifier cannot be nil")
	ErrTokenExtractorNil = errors.New("token extractor cannot be nil")
	ErrErrorHandlerNil   = errors.New("error handler cannot be nil")
	ErrLoggerNil         = errors.New("logger cannot be nil")
	ErrExcludedPathEmpty = errors.New("excluded path cannot be empty")
)

// Option configures an Authenticator.
type Option func(*Authenticator) error

// WithVerifier sets the token verifier (REQUIRED).
func WithVerifier(v Verifier) Option {
	return func(a *Authenticator) error {
		if v == nil {
			return ErrVerifierNil
		}
		a.verifier = v
		return nil
	}
}

// WithTokenExtractor sets how the token is read from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(a *Authenticator) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		a.extractor = e
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through
// unauthenticated. A token that is present must still verify.
//
// Default: false
func WithCredentialsOptional(value bool) Option {
	return func(a *Authenticator) error {
		a.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authenticated.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(a *Authenticator) error {
		a.validateOnOptions = value
		return nil
	}
}

// WithExcludedPaths skips authentication for requests whose path equals one
// of prefixes or lies below it, e.g. "/health" or "/swagger-ui/".
func WithExcludedPaths(prefixes ...string) Option {
	return func(a *Authenticator) error {
		for _, p := range prefixes {
			if strings.TrimSpace(p) == "" {
				return ErrExcludedPathEmpty
			}
		}
		a.excluded = append(a.excluded, prefixes...)
		return nil
	}
}

// WithErrorHandler sets the handler that writes authentication failures.
//
// Default: a JSON envelope with status 401.
func WithErrorHandler(h func(w http.ResponseWriter, r *http.Request, err error)) Option {
	return func(a *Authenticator) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		a.errorHandler = h
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(l Logger) Option {
	return func(a *Authenticator) error {
		if l == nil {
			return ErrLoggerNil
		}
		a.logger = l
		return nil
	}
}
