// Package server assembles the demo HTTP and gRPC servers from the kernel
// components.
package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apidocs"
	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/errcode"
	kernelgin "github.com/omnipulse/go-shared-kernel/framework/gin"
	kernelgrpc "github.com/omnipulse/go-shared-kernel/integrations/grpc"
	"github.com/omnipulse/go-shared-kernel/internal/demo/users"
	"github.com/omnipulse/go-shared-kernel/response"
)

// Paths served without authentication.
const (
	HealthPath  = "/health"
	DocsPath    = "/v3/api-docs"
	MetricsPath = "/metrics"
	UsersPath   = "/api/v1/users"
)

// Options are the parts New wires together. Filter, Translator,
// Authenticator and Users are required.
type Options struct {
	Filter        *sharedkernel.TenantFilter
	Translator    *sharedkernel.ErrorTranslator
	Authenticator *auth.Authenticator
	Users         *users.Handler

	Logger   sharedkernel.Logger
	Metrics  sharedkernel.Metrics
	Gatherer prometheus.Gatherer
	Docs     *apidocs.Document

	// Health reports whether the service dependencies are reachable.
	Health func(context.Context) error
}

// New returns the HTTP handler of the demo service. The tenant filter is
// the outermost stage so that request log lines carry the request ids;
// authentication runs inside gin and binds the principal into the store the
// filter created.
func New(o Options) http.Handler {
	engine := gin.New()
	kernelgin.UseJSONFieldNames()
	kernelgin.Register(engine, o.Translator)
	engine.Use(
		kernelgin.ErrorHandler(o.Translator),
		kernelgin.Authenticate(o.Authenticator, o.Translator),
	)

	engine.GET(HealthPath, healthHandler(o.Health))
	if o.Docs != nil {
		engine.GET(DocsPath, func(c *gin.Context) { c.JSON(http.StatusOK, o.Docs) })
	}
	if o.Gatherer != nil {
		engine.GET(MetricsPath, gin.WrapH(promhttp.HandlerFor(o.Gatherer, promhttp.HandlerOpts{})))
	}
	o.Users.Mount(engine.Group(UsersPath))

	return sharedkernel.Chain(
		o.Filter.Handler,
		sharedkernel.RequestLogging(o.Logger, o.Metrics),
	)(engine)
}

func healthHandler(check func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				_ = c.Error(apperr.Wrap(err, errcode.ServiceUnavailable.Description(), errcode.ServiceUnavailable))
				return
			}
		}
		c.JSON(http.StatusOK, response.Success(map[string]string{"status": "UP"}, "Service is healthy"))
	}
}

// NewGRPC returns a gRPC server running the kernel interceptors with the
// standard health service registered.
func NewGRPC(i *kernelgrpc.Interceptor) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(i.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(i.StreamServerInterceptor()),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
