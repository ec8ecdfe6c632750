package kernelgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// Interceptor populates the request context of gRPC calls and translates
// their errors.
type Interceptor struct {
	filter              *sharedkernel.TenantFilter
	translator          *sharedkernel.ErrorTranslator
	verifier            auth.Verifier
	extractor           TokenExtractor
	credentialsOptional bool
	excluded            map[string]bool
	logger              sharedkernel.Logger
}

// New creates an Interceptor. filter builds the request context and
// translator classifies errors; both are required.
func New(filter *sharedkernel.TenantFilter, translator *sharedkernel.ErrorTranslator, opts ...Option) (*Interceptor, error) {
	if filter == nil {
		return nil, ErrFilterNil
	}
	if translator == nil {
		var err error
		if translator, err = sharedkernel.NewErrorTranslator(); err != nil {
			return nil, err
		}
	}

	i := &Interceptor{
		filter:     filter,
		translator: translator,
		extractor:  MetadataTokenExtractor,
		excluded:   make(map[string]bool),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return i, nil
}

// UnaryServerInterceptor returns the unary interceptor.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		p, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, i.ToStatus(ctx, info.FullMethod, err)
		}

		ctx, store := i.filter.Bind(withPrincipal(ctx, p), correlationFromMetadata(ctx), p)
		defer i.filter.Release(store)
		defer i.recoverTo(ctx, info.FullMethod, &err)

		resp, err = handler(ctx, req)
		if err != nil {
			return resp, i.ToStatus(ctx, info.FullMethod, err)
		}
		return resp, nil
	}
}

// StreamServerInterceptor returns the stream interceptor.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		ctx := ss.Context()
		p, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return i.ToStatus(ctx, info.FullMethod, err)
		}

		ctx, store := i.filter.Bind(withPrincipal(ctx, p), correlationFromMetadata(ctx), p)
		defer i.filter.Release(store)
		defer i.recoverTo(ctx, info.FullMethod, &err)

		if err := handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx}); err != nil {
			return i.ToStatus(ctx, info.FullMethod, err)
		}
		return nil
	}
}

// ToStatus converts err raised by method to a gRPC status error. Statuses and
// context errors pass through unchanged; everything else goes through the
// error translator so that the status carries the same code and message an
// HTTP client would see. The translator logs with the request ids found in
// ctx.
func (i *Interceptor) ToStatus(ctx context.Context, method string, err error) error {
	if err == nil {
		return nil
	}
	if st, ok := passthrough(err); ok {
		return st
	}

	httpStatus, env := i.translator.TranslateContext(ctx, method, err)
	return StatusFromEnvelope(httpStatus, env).Err()
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (*auth.Principal, error) {
	if i.verifier == nil {
		return nil, nil
	}
	if i.excluded[method] {
		i.debug("skipping authentication for excluded method", "method", method)
		return nil, nil
	}

	token, err := i.extractor(ctx)
	if err != nil {
		i.warn("failed to extract token from gRPC metadata", "method", method, "error", err)
		return nil, apperr.Unauthorized("", err)
	}
	if token == "" {
		if i.credentialsOptional {
			return nil, nil
		}
		i.warn("no token found in gRPC metadata", "method", method)
		return nil, apperr.Unauthorized("", auth.ErrTokenMissing)
	}

	p, err := i.verifier.Verify(ctx, token)
	if err != nil {
		i.warn("token verification failed", "method", method, "error", err)
		return nil, apperr.Unauthorized("", fmt.Errorf("%w: %w", auth.ErrTokenInvalid, err))
	}
	if p == nil {
		return nil, apperr.Unauthorized("", auth.ErrTokenInvalid)
	}

	p.Token = token
	return p, nil
}

// recoverTo turns a panic of the handler into an Internal status stored in
// err.
func (i *Interceptor) recoverTo(ctx context.Context, method string, err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	cause, ok := rec.(error)
	if !ok {
		cause = fmt.Errorf("%v", rec)
	}
	*err = i.ToStatus(ctx, method, fmt.Errorf("panic recovered: %w", cause))
}

func withPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	if p == nil {
		return ctx
	}
	return auth.NewContext(ctx, p)
}

func (i *Interceptor) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}

func (i *Interceptor) warn(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}

// wrappedServerStream overrides the context of a stream.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the context carrying the request store.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// StoreFromStream returns the request store of a stream handled by the
// interceptor.
func StoreFromStream(ss grpc.ServerStream) (*reqctx.Store, bool) {
	return reqctx.FromContext(ss.Context())
}
