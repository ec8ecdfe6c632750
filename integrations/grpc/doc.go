// Package kernelgrpc provides gRPC server interceptors that give every call
// the same request context an HTTP request gets from the tenant filter: a
// correlation id read from the "x-correlation-id" metadata or generated, the
// authenticated user and tenant, and a store that is cleared when the call
// returns.
//
// Errors returned by handlers are converted to gRPC statuses with ToStatus,
// so application errors keep their code and message while anything
// unexpected becomes a generic Internal status.
//
//	interceptor, err := kernelgrpc.New(filter, translator,
//	    kernelgrpc.WithVerifier(verifier),
//	    kernelgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Handlers read the ids with the reqctx helpers:
//
//	func (s *server) GetUser(ctx context.Context, req *pb.GetUserRequest) (*pb.User, error) {
//	    tenant, _ := reqctx.TenantID(ctx)
//	    ...
//	}
package kernelgrpc
