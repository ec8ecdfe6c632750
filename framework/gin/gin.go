// Package kernelgin adapts the kernel's request context, authentication and
// error translation to gin.
//
//	engine := gin.New()
//	kernelgin.Register(engine, translator)
//	engine.Use(
//	    kernelgin.TenantContext(filter),
//	    kernelgin.ErrorHandler(translator),
//	    kernelgin.Authenticate(authenticator, translator),
//	)
package kernelgin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// DefaultPrincipalKey is the gin context key of the authenticated principal.
const DefaultPrincipalKey = "principal"

var (
	ErrMissingPrincipal = errors.New("no principal found in context")
	ErrInvalidPrincipal = errors.New("invalid principal type")
)

type authConfig struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
}

// TenantContext populates the request context store before the rest of the
// chain runs and clears it afterwards, including when a later handler
// panics. The correlation id is also available as c.GetString("correlationId").
func TenantContext(f *sharedkernel.TenantFilter) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, store := f.Populate(c.Request)
		defer f.Release(store)

		c.Request = r
		if id, ok := store.Correlation(); ok {
			c.Set(reqctx.CorrelationKey, id)
		}
		f.WriteCorrelationHeader(c.Writer.Header(), store)

		c.Next()
	}
}

// ErrorHandler translates errors attached with c.Error and panics raised by
// later handlers into the failure envelope. Nothing is written when a
// handler already wrote a response.
func ErrorHandler(t *sharedkernel.ErrorTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			abortWithError(c, t, fmt.Errorf("panic recovered: %w", err))
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			abortWithError(c, t, c.Errors.Last().Err)
		}
	}
}

// Register routes unknown paths and methods through t and turns on gin's
// method-not-allowed handling.
func Register(engine *gin.Engine, t *sharedkernel.ErrorTranslator) {
	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		abortWithError(c, t, apperr.RouteNotFound(c.Request.Method, c.Request.URL.Path))
	})
	engine.NoMethod(func(c *gin.Context) {
		abortWithError(c, t, apperr.MethodNotAllowed(c.Request.Method, c.Request.URL.Path))
	})
}

// Authenticate verifies the request's token with a and stores the principal
// both in the request context and under the gin context key.
func Authenticate(a *auth.Authenticator, t *sharedkernel.ErrorTranslator, opts ...Option) gin.HandlerFunc {
	config := &authConfig{
		errorHandler: func(c *gin.Context, err error) { abortWithError(c, t, err) },
		contextKey:   DefaultPrincipalKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		r, err := a.Authenticate(c.Request)
		if err != nil {
			config.errorHandler(c, err)
			c.Abort()
			return
		}

		c.Request = r
		if p, ok := auth.FromContext(r.Context()); ok {
			c.Set(config.contextKey, p)
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by Authenticate.
func GetPrincipal(c *gin.Context, contextKey string) (*auth.Principal, error) {
	if contextKey == "" {
		contextKey = DefaultPrincipalKey
	}
	v, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingPrincipal
	}

	p, ok := v.(*auth.Principal)
	if !ok {
		return nil, ErrInvalidPrincipal
	}
	return p, nil
}

// UseJSONFieldNames makes gin's validator report fields by their JSON name.
func UseJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(sharedkernel.JSONTagName)
	}
}

func abortWithError(c *gin.Context, t *sharedkernel.ErrorTranslator, err error) {
	status, body := t.Translate(c.Request, err)
	c.AbortWithStatusJSON(status, body)
}
