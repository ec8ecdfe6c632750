package kernelgrpc

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/reqctx"
	"github.com/omnipulse/go-shared-kernel/response"
)

const method = "/omnipulse.users.v1.UserService/GetUser"

var verifier = auth.VerifierFunc(func(_ context.Context, token string) (*auth.Principal, error) {
	if token != "good" {
		return nil, errors.New("signature mismatch")
	}
	return &auth.Principal{Subject: "user-1", Claims: map[string]any{"tenant_id": "acme"}}, nil
})

func newInterceptor(t *testing.T, opts ...Option) *Interceptor {
	t.Helper()
	filter, err := sharedkernel.NewTenantFilter(sharedkernel.WithIDGenerator(func() string { return "generated" }))
	require.NoError(t, err)
	i, err := New(filter, nil, append([]Option{WithVerifier(verifier)}, opts...)...)
	require.NoError(t, err)
	return i
}

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

type idsSeen struct {
	user, tenant, correlation string
	store                     *reqctx.Store
}

func capture(ctx context.Context) idsSeen {
	var s idsSeen
	s.user, _ = reqctx.UserID(ctx)
	s.tenant, _ = reqctx.TenantID(ctx)
	s.correlation, _ = reqctx.CorrelationID(ctx)
	s.store, _ = reqctx.FromContext(ctx)
	return s
}

func TestNew(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrFilterNil)

	filter, err := sharedkernel.NewTenantFilter()
	require.NoError(t, err)

	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{name: "nil verifier", opt: WithVerifier(nil), want: ErrVerifierNil},
		{name: "nil extractor", opt: WithTokenExtractor(nil), want: ErrTokenExtractorNil},
		{name: "nil logger", opt: WithLogger(nil), want: ErrLoggerNil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(filter, nil, tt.opt)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUnaryPopulatesAndClears(t *testing.T) {
	i := newInterceptor(t)

	var seen idsSeen
	resp, err := i.UnaryServerInterceptor()(
		incoming("authorization", "Bearer good", CorrelationMetadataKey, "corr-5"),
		nil,
		&grpc.UnaryServerInfo{FullMethod: method},
		func(ctx context.Context, _ any) (any, error) {
			seen = capture(ctx)
			p, ok := auth.FromContext(ctx)
			require.True(t, ok)
			assert.Equal(t, "good", p.Token)
			return "ok", nil
		},
	)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, "user-1", seen.user)
	assert.Equal(t, "acme", seen.tenant)
	assert.Equal(t, "corr-5", seen.correlation)
	require.NotNil(t, seen.store)
	assert.Empty(t, seen.store.Fields())
}

func TestUnaryErrors(t *testing.T) {
	tests := []struct {
		name       string
		ctx        context.Context
		handlerErr error
		panicWith  any
		wantCode   codes.Code
		wantMsg    string
		wantReason string
	}{
		{
			name:       "missing token",
			ctx:        context.Background(),
			wantCode:   codes.Unauthenticated,
			wantMsg:    "Unauthorized access",
			wantReason: "4003",
		},
		{
			name:       "malformed authorization",
			ctx:        incoming("authorization", "Basic abc"),
			wantCode:   codes.Unauthenticated,
			wantMsg:    "Unauthorized access",
			wantReason: "4003",
		},
		{
			name:       "not found",
			ctx:        incoming("authorization", "Bearer good"),
			handlerErr: apperr.NotFound("User", "id", 3),
			wantCode:   codes.NotFound,
			wantMsg:    "User not found with id: '3'",
			wantReason: "4004",
		},
		{
			name:       "duplicate",
			ctx:        incoming("authorization", "Bearer good"),
			handlerErr: apperr.Duplicate("User", "email", "a@b.com"),
			wantCode:   codes.AlreadyExists,
			wantMsg:    "User already exists with email: 'a@b.com'",
			wantReason: "4009",
		},
		{
			name:       "unexpected",
			ctx:        incoming("authorization", "Bearer good"),
			handlerErr: errors.New("pq: relation does not exist"),
			wantCode:   codes.Internal,
			wantMsg:    "An unexpected internal error occurred",
			wantReason: "5000",
		},
		{
			name:       "panic",
			ctx:        incoming("authorization", "Bearer good"),
			panicWith:  "index out of range",
			wantCode:   codes.Internal,
			wantMsg:    "An unexpected internal error occurred",
			wantReason: "5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := newInterceptor(t)

			var seen idsSeen
			_, err := i.UnaryServerInterceptor()(tt.ctx, nil, &grpc.UnaryServerInfo{FullMethod: method},
				func(ctx context.Context, _ any) (any, error) {
					seen = capture(ctx)
					if tt.panicWith != nil {
						panic(tt.panicWith)
					}
					return nil, tt.handlerErr
				})

			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			assert.Equal(t, tt.wantMsg, st.Message())

			require.NotEmpty(t, st.Details())
			info, ok := st.Details()[0].(*errdetails.ErrorInfo)
			require.True(t, ok)
			assert.Equal(t, tt.wantReason, info.GetReason())
			assert.Equal(t, ErrorDomain, info.GetDomain())

			if seen.store != nil {
				assert.Empty(t, seen.store.Fields(), "store must be cleared")
			}
		})
	}
}

func TestUnaryExcludedAndOptional(t *testing.T) {
	t.Run("excluded method", func(t *testing.T) {
		i := newInterceptor(t, WithExcludedMethods("/grpc.health.v1.Health/Check"))

		var seen idsSeen
		_, err := i.UnaryServerInterceptor()(context.Background(), nil,
			&grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"},
			func(ctx context.Context, _ any) (any, error) {
				seen = capture(ctx)
				return nil, nil
			})

		require.NoError(t, err)
		assert.Equal(t, "generated", seen.correlation)
		assert.Empty(t, seen.user)
	})

	t.Run("credentials optional", func(t *testing.T) {
		i := newInterceptor(t, WithCredentialsOptional(true))

		_, err := i.UnaryServerInterceptor()(context.Background(), nil,
			&grpc.UnaryServerInfo{FullMethod: method},
			func(ctx context.Context, _ any) (any, error) {
				_, ok := auth.FromContext(ctx)
				assert.False(t, ok)
				return nil, nil
			})
		require.NoError(t, err)
	})
}

func TestErrorLogsCarryRequestIDs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	translator, err := sharedkernel.NewErrorTranslator(
		sharedkernel.WithTranslatorLogger(sharedkernel.NewLogrusLogger(logger)),
	)
	require.NoError(t, err)
	filter, err := sharedkernel.NewTenantFilter()
	require.NoError(t, err)
	i, err := New(filter, translator, WithVerifier(verifier))
	require.NoError(t, err)

	tests := []struct {
		name      string
		handler   grpc.UnaryHandler
		wantLevel logrus.Level
	}{
		{
			name: "application error",
			handler: func(context.Context, any) (any, error) {
				return nil, apperr.NotFound("User", "id", 1)
			},
			wantLevel: logrus.WarnLevel,
		},
		{
			name: "panic",
			handler: func(context.Context, any) (any, error) {
				panic("boom")
			},
			wantLevel: logrus.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()

			_, err := i.UnaryServerInterceptor()(
				incoming("authorization", "Bearer good", CorrelationMetadataKey, "corr-42"),
				nil,
				&grpc.UnaryServerInfo{FullMethod: method},
				tt.handler,
			)
			require.Error(t, err)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.wantLevel, entry.Level)
			assert.Equal(t, "corr-42", entry.Data[reqctx.CorrelationKey])
			assert.Equal(t, "user-1", entry.Data[reqctx.UserKey])
			assert.Equal(t, "acme", entry.Data[reqctx.TenantKey])
			assert.Equal(t, method, entry.Data["path"])
		})
	}
}

func TestStreamServerInterceptor(t *testing.T) {
	i := newInterceptor(t)
	ss := &mockServerStream{ctx: incoming("authorization", "Bearer good", CorrelationMetadataKey, "corr-s")}

	var seen idsSeen
	err := i.StreamServerInterceptor()(nil, ss, &grpc.StreamServerInfo{FullMethod: method},
		func(_ any, stream grpc.ServerStream) error {
			seen = capture(stream.Context())
			store, ok := StoreFromStream(stream)
			assert.True(t, ok)
			assert.Same(t, seen.store, store)
			return apperr.BusinessRule("stream closed by policy")
		})

	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, st.Code())
	assert.Equal(t, "stream closed by policy", st.Message())
	assert.Equal(t, "corr-s", seen.correlation)
	assert.Equal(t, "user-1", seen.user)
	assert.Empty(t, seen.store.Fields())
}

func TestStreamRejectsBadToken(t *testing.T) {
	i := newInterceptor(t)
	ss := &mockServerStream{ctx: incoming("authorization", "Bearer forged")}

	err := i.StreamServerInterceptor()(nil, ss, &grpc.StreamServerInfo{FullMethod: method},
		func(any, grpc.ServerStream) error {
			t.Fatal("handler should not be called")
			return nil
		})

	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestToStatus(t *testing.T) {
	i := newInterceptor(t)

	ctx := context.Background()
	assert.NoError(t, i.ToStatus(ctx, method, nil))

	existing := status.Error(codes.ResourceExhausted, "slow down")
	assert.Equal(t, existing.Error(), i.ToStatus(ctx, method, existing).Error())

	assert.Equal(t, codes.DeadlineExceeded, status.Code(i.ToStatus(ctx, method, context.DeadlineExceeded)))
	assert.Equal(t, codes.Canceled, status.Code(i.ToStatus(ctx, method, context.Canceled)))

	st := status.Convert(i.ToStatus(ctx, method, apperr.Validation(
		response.FieldError{Field: "email", Message: "must not be null"},
	)))
	assert.Equal(t, codes.InvalidArgument, st.Code())
	require.Len(t, st.Details(), 2)
	br, ok := st.Details()[1].(*errdetails.BadRequest)
	require.True(t, ok)
	require.Len(t, br.GetFieldViolations(), 1)
	assert.Equal(t, "email", br.GetFieldViolations()[0].GetField())
	assert.Equal(t, "must not be null", br.GetFieldViolations()[0].GetDescription())
}

func TestCodeForHTTPStatus(t *testing.T) {
	tests := map[int]codes.Code{
		200: codes.OK,
		400: codes.InvalidArgument,
		401: codes.Unauthenticated,
		403: codes.PermissionDenied,
		404: codes.NotFound,
		405: codes.Unimplemented,
		409: codes.AlreadyExists,
		418: codes.FailedPrecondition,
		429: codes.ResourceExhausted,
		500: codes.Internal,
		503: codes.Unavailable,
		504: codes.DeadlineExceeded,
	}
	for httpStatus, want := range tests {
		assert.Equal(t, want, CodeForHTTPStatus(httpStatus), "status %d", httpStatus)
	}
}

// mockServerStream implements grpc.ServerStream for testing.
type mockServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (m *mockServerStream) Context() context.Context {
	return m.ctx
}
