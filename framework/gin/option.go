package kernelgin

import (
	"github.com/gin-gonic/gin"
)

// Option configures Authenticate.
type Option func(*authConfig)

// WithErrorHandler sets the handler for authentication failures. It must
// abort the context.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *authConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the gin context key the principal is stored under.
func WithContextKey(key string) Option {
	return func(config *authConfig) {
		config.contextKey = key
	}
}
