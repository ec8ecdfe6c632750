package sharedkernel

import (
	"errors"
	"net/http"

	"github.com/omnipulse/go-shared-kernel/auth"
)

var (
	ErrCorrelationHeaderEmpty = errors.New("correlation header cannot be empty")
	ErrIDGeneratorNil         = errors.New("id generator cannot be nil")
	ErrPrincipalExtractorNil  = errors.New("principal extractor cannot be nil")
	ErrTenantClaimEmpty       = errors.New("tenant claim cannot be empty")
	ErrLoggerNil              = errors.New("logger cannot be nil")
	ErrMetricsNil             = errors.New("metrics cannot be nil")
)

// FilterOption configures a TenantFilter.
type FilterOption func(*TenantFilter) error

// PrincipalExtractor returns the authenticated principal of a request.
type PrincipalExtractor func(r *http.Request) (*auth.Principal, bool)

// WithCorrelationHeader sets the header the correlation id is read from.
//
// Default: "X-Correlation-ID"
func WithCorrelationHeader(name string) FilterOption {
	return func(f *TenantFilter) error {
		if name == "" {
			return ErrCorrelationHeaderEmpty
		}
		f.correlationHeader = name
		return nil
	}
}

// WithEchoCorrelationHeader writes the correlation id back on the response.
//
// Default: false
func WithEchoCorrelationHeader(value bool) FilterOption {
	return func(f *TenantFilter) error {
		f.echoCorrelation = value
		return nil
	}
}

// WithIDGenerator sets how a correlation id is created for requests that do
// not send one.
//
// Default: uuid.NewString
func WithIDGenerator(gen func() string) FilterOption {
	return func(f *TenantFilter) error {
		if gen == nil {
			return ErrIDGeneratorNil
		}
		f.newID = gen
		return nil
	}
}

// WithPrincipalExtractor sets where the authenticated principal is found.
//
// Default: auth.FromContext on the request context
func WithPrincipalExtractor(e PrincipalExtractor) FilterOption {
	return func(f *TenantFilter) error {
		if e == nil {
			return ErrPrincipalExtractorNil
		}
		f.principal = e
		return nil
	}
}

// WithTenantClaim sets the claim holding the tenant id.
//
// Default: "tenant_id"
func WithTenantClaim(name string) FilterOption {
	return func(f *TenantFilter) error {
		if name == "" {
			return ErrTenantClaimEmpty
		}
		f.tenantClaim = name
		return nil
	}
}

// WithFilterLogger sets an optional logger.
func WithFilterLogger(l Logger) FilterOption {
	return func(f *TenantFilter) error {
		if l == nil {
			return ErrLoggerNil
		}
		f.logger = l
		return nil
	}
}

// TranslatorOption configures an ErrorTranslator.
type TranslatorOption func(*ErrorTranslator) error

// WithTranslatorLogger sets the logger translated errors are reported to.
func WithTranslatorLogger(l Logger) TranslatorOption {
	return func(t *ErrorTranslator) error {
		if l == nil {
			return ErrLoggerNil
		}
		t.logger = l
		return nil
	}
}

// WithTranslatorMetrics counts translated errors by code and status.
//
// Default: NoopMetrics
func WithTranslatorMetrics(m Metrics) TranslatorOption {
	return func(t *ErrorTranslator) error {
		if m == nil {
			return ErrMetricsNil
		}
		t.metrics = m
		return nil
	}
}

// WithFieldMessage overrides the message used for a validation tag, e.g.
// WithFieldMessage("required", "must not be blank").
func WithFieldMessage(tag, message string) TranslatorOption {
	return func(t *ErrorTranslator) error {
		if tag == "" || message == "" {
			return errors.New("field message tag and text cannot be empty")
		}
		t.fieldMessages[tag] = message
		return nil
	}
}
