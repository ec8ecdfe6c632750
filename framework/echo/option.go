package kernelecho

// Option configures Authenticate.
type Option func(*authConfig)

// WithContextKey sets the echo context key the principal is stored under.
func WithContextKey(key string) Option {
	return func(config *authConfig) {
		config.contextKey = key
	}
}
