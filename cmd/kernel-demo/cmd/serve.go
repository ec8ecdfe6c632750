package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	sharedkernel "github.com/omnipulse/go-shared-kernel"
	"github.com/omnipulse/go-shared-kernel/apidocs"
	"github.com/omnipulse/go-shared-kernel/auth"
	"github.com/omnipulse/go-shared-kernel/config"
	kernelgrpc "github.com/omnipulse/go-shared-kernel/integrations/grpc"
	"github.com/omnipulse/go-shared-kernel/internal/demo/server"
	"github.com/omnipulse/go-shared-kernel/internal/demo/users"
	"github.com/omnipulse/go-shared-kernel/internal/oidc"
	"github.com/omnipulse/go-shared-kernel/logging"
	"github.com/omnipulse/go-shared-kernel/validate/jwtgo"
	"github.com/omnipulse/go-shared-kernel/validate/jwx"
)

const (
	metricsNamespace = "omnipulse"
	jwksMinRefresh   = 15 * time.Minute
	pingTimeout      = 3 * time.Second
	discoveryTimeout = 10 * time.Second
)

var grpcHealthMethods = []string{
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/Watch",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and, when configured, the gRPC server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("build token verifier: %w", err)
	}

	kernelLogger := sharedkernel.NewLogrusLogger(logger)
	metrics := sharedkernel.NewPrometheusMetrics(prometheus.DefaultRegisterer, metricsNamespace)

	filter, err := sharedkernel.NewTenantFilter(
		sharedkernel.WithCorrelationHeader(cfg.Server.CorrelationHeader),
		sharedkernel.WithEchoCorrelationHeader(cfg.Server.EchoCorrelation),
		sharedkernel.WithTenantClaim(cfg.Auth.TenantClaim),
		sharedkernel.WithFilterLogger(kernelLogger),
	)
	if err != nil {
		return err
	}
	translator, err := sharedkernel.NewErrorTranslator(
		sharedkernel.WithTranslatorLogger(kernelLogger),
		sharedkernel.WithTranslatorMetrics(metrics),
	)
	if err != nil {
		return err
	}
	authenticator, err := auth.New(
		auth.WithVerifier(verifier),
		auth.WithCredentialsOptional(cfg.Auth.CredentialsOptional),
		auth.WithExcludedPaths(append(cfg.Auth.ExcludedPaths, server.MetricsPath)...),
		auth.WithLogger(kernelLogger),
	)
	if err != nil {
		return err
	}
	aspect, err := logging.NewAspect(logger)
	if err != nil {
		return err
	}

	svc := users.NewService(users.Repository{DB: db}, aspect)
	httpSrv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Options{
			Filter:        filter,
			Translator:    translator,
			Authenticator: authenticator,
			Users:         users.NewHandler(svc),
			Logger:        kernelLogger,
			Metrics:       metrics,
			Gatherer:      prometheus.DefaultGatherer,
			Docs:          apidocs.New(cfg.APIDocs),
			Health:        db.PingContext,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.WithField("addr", httpSrv.Addr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCAddr != "" {
		interceptor, err := kernelgrpc.New(filter, translator,
			kernelgrpc.WithVerifier(verifier),
			kernelgrpc.WithCredentialsOptional(cfg.Auth.CredentialsOptional),
			kernelgrpc.WithExcludedMethods(grpcHealthMethods...),
			kernelgrpc.WithLogger(kernelLogger),
		)
		if err != nil {
			return err
		}
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}

		var hs *health.Server
		grpcSrv, hs = server.NewGRPC(interceptor)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

		go func() {
			logger.WithField("addr", cfg.Server.GRPCAddr).Info("gRPC server listening")
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
		stop()
		shutdown(logger, httpSrv, grpcSrv, cfg.Server.ShutdownTimeout)
		return err
	}

	shutdown(logger, httpSrv, grpcSrv, cfg.Server.ShutdownTimeout)
	return nil
}

func shutdown(logger *logrus.Logger, httpSrv *http.Server, grpcSrv *grpc.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	if grpcSrv == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		grpcSrv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		grpcSrv.Stop()
	}
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// newVerifier verifies against the shared HMAC secret when one is
// configured and against a JWKS endpoint otherwise. Without an explicit
// JWKS URL the endpoint is discovered from the issuer.
func newVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	jwksURL := cfg.JWKSURL
	if jwksURL == "" && cfg.HMACSecret == "" && cfg.Issuer != "" {
		md, err := oidc.Discover(ctx, &http.Client{Timeout: discoveryTimeout}, cfg.Issuer)
		if err != nil {
			return nil, err
		}
		jwksURL = md.JWKSURI
	}

	if jwksURL != "" {
		opts := []jwx.Option{
			jwx.WithJWKSURL(ctx, jwksURL, jwksMinRefresh, nil),
			jwx.WithAcceptableSkew(cfg.Leeway),
		}
		if cfg.Issuer != "" {
			opts = append(opts, jwx.WithIssuer(cfg.Issuer))
		}
		if cfg.Audience != "" {
			opts = append(opts, jwx.WithAudience(cfg.Audience))
		}
		return jwx.New(opts...)
	}

	if cfg.HMACSecret == "" {
		return nil, errors.New("no key source configured")
	}
	opts := []jwtgo.Option{jwtgo.WithLeeway(cfg.Leeway), jwtgo.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwtgo.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtgo.WithAudience(cfg.Audience))
	}
	return jwtgo.New(jwtgo.HMACKey([]byte(cfg.HMACSecret)), jwt.SigningMethodHS256.Alg(), opts...)
}
