// Package kernelecho adapts the kernel's request context, authentication and
// error translation to echo.
//
//	e := echo.New()
//	e.HTTPErrorHandler = kernelecho.HTTPErrorHandler(translator)
//	e.Validator = kernelecho.NewValidator()
//	e.Use(
//	    kernelecho.TenantContext(filter),
//	    middleware.Recover(),
//	    kernelecho.Authenticate(authenticator),
//	)
package kernelecho

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// DefaultPrincipalKey is the echo context key of the authenticated principal.
var DefaultPrincipalKey = "principal"

type authConfig struct {
	contextKey string
}

// TenantContext populates the request context store around the rest of the
// chain. Errors returned by later handlers are passed to the echo error
// handler here, while the store is still populated, so that their log lines
// carry the request ids.
func TenantContext(f *sharedkernel.TenantFilter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r, store := f.Populate(c.Request())
			defer f.Release(store)

			c.SetRequest(r)
			if id, ok := store.Correlation(); ok {
				c.Set(reqctx.CorrelationKey, id)
			}
			f.WriteCorrelationHeader(c.Response().Header(), store)

			if err := next(c); err != nil {
				c.Error(err)
			}
			return nil
		}
	}
}

// Authenticate verifies the request's token. Failures are returned to the
// error handler.
func Authenticate(a *auth.Authenticator, opts ...Option) echo.MiddlewareFunc {
	config := &authConfig{contextKey: DefaultPrincipalKey}
	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r, err := a.Authenticate(c.Request())
			if err != nil {
				return err
			}

			c.SetRequest(r)
			if p, ok := auth.FromContext(r.Context()); ok {
				c.Set(config.contextKey, p)
			}
			return next(c)
		}
	}
}

// GetPrincipal returns the principal stored by Authenticate.
func GetPrincipal(c echo.Context, contextKey string) (*auth.Principal, bool) {
	p, ok := c.Get(contextKey).(*auth.Principal)
	return p, ok
}

// HTTPErrorHandler returns an echo.HTTPErrorHandler writing the failure
// envelope produced by t. Echo's own routing and binding errors are mapped to
// their kernel equivalents first.
func HTTPErrorHandler(t *sharedkernel.ErrorTranslator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := t.Translate(c.Request(), fromEcho(err, c.Request()))
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func fromEcho(err error, r *http.Request) error {
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return err
	}

	switch he.Code {
	case http.StatusNotFound:
		return apperr.RouteNotFound(r.Method, r.URL.Path)
	case http.StatusMethodNotAllowed:
		return apperr.MethodNotAllowed(r.Method, r.URL.Path)
	case http.StatusUnauthorized:
		return apperr.Unauthorized("", he)
	case http.StatusBadRequest:
		if he.Internal != nil {
			return apperr.MalformedInput(he.Internal)
		}
		return apperr.BusinessRule(http.StatusText(http.StatusBadRequest))
	}
	return err
}

// Validator implements echo.Validator with go-playground/validator.
type Validator struct {
	validate *validator.Validate
}

// NewValidator returns a Validator reporting fields by their JSON name.
func NewValidator() *Validator {
	return &Validator{validate: sharedkernel.NewValidator()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	return v.validate.Struct(i)
}
