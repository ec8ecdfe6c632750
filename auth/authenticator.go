package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/errcode"
	"github.com/omnipulse/go-shared-kernel/response"
)

var (
	// ErrTokenMissing is the cause of the error returned for a request
	// without credentials.
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid is the cause of the error returned when verification
	// fails.
	ErrTokenInvalid = errors.New("token invalid")
)

// Logger is compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator verifies bearer tokens and attaches the Principal to the
// request context.
type Authenticator struct {
	verifier            Verifier
	extractor           TokenExtractor
	credentialsOptional bool
	validateOnOptions   bool
	excluded            []string
	errorHandler        func(w http.ResponseWriter, r *http.Request, err error)
	logger              Logger
}

// New builds an Authenticator.
//
//	a, err := auth.New(
//	    auth.WithVerifier(verifier),
//	    auth.WithExcludedPaths("/health", "/swagger-ui/"),
//	)
func New(opts ...Option) (*Authenticator, error) {
	a := &Authenticator{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if a.verifier == nil {
		return nil, fmt.Errorf("invalid authenticator configuration: %w", ErrVerifierNil)
	}
	if a.extractor == nil {
		a.extractor = AuthHeaderTokenExtractor
	}
	if a.errorHandler == nil {
		a.errorHandler = writeUnauthorized
	}

	return a, nil
}

// Authenticate verifies the request's token. On success it returns r with the
// Principal in its context. Requests that are excluded, or that carry no
// token while credentials are optional, are returned unchanged. Failures are
// *apperr.Error values of kind KindUnauthorized.
func (a *Authenticator) Authenticate(r *http.Request) (*http.Request, error) {
	if a.isExcluded(r.URL.Path) {
		a.debug("skipping authentication for excluded path", "method", r.Method, "path", r.URL.Path)
		return r, nil
	}
	if !a.validateOnOptions && r.Method == http.MethodOptions {
		return r, nil
	}

	token, err := a.extractor(r)
	if err != nil {
		a.warn("failed to extract token", "error", err, "path", r.URL.Path)
		return r, apperr.Unauthorized("", err)
	}

	if token == "" {
		if a.credentialsOptional {
			return r, nil
		}
		a.warn("no token found in request", "path", r.URL.Path)
		return r, apperr.Unauthorized("", ErrTokenMissing)
	}

	p, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		a.warn("token verification failed", "error", err, "path", r.URL.Path)
		return r, apperr.Unauthorized("", fmt.Errorf("%w: %w", ErrTokenInvalid, err))
	}
	if p == nil {
		return r, apperr.Unauthorized("", ErrTokenInvalid)
	}

	p.Token = token
	a.debug("token verified", "subject", p.Subject)

	ctx := NewContext(r.Context(), p)
	if b, ok := binderFromContext(ctx); ok {
		b.BindPrincipal(ctx, p)
	}
	return r.WithContext(ctx), nil
}

// Handler authenticates each request before calling next.
func (a *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, err := a.Authenticate(r)
		if err != nil {
			a.errorHandler(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) isExcluded(path string) bool {
	for _, prefix := range a.excluded {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

func (a *Authenticator) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

func (a *Authenticator) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}

func writeUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	message := errcode.Unauthorized.Description()
	if e, ok := apperr.As(err); ok {
		message = e.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(response.Error[any](message, errcode.Unauthorized.String()))
}
