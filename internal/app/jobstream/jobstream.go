//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package jobstream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	_ "google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	grpcmiddlewares "github.com/hitesh22rana/logterminal/internal/pkg/grpc/middlewares"
	jobstreamrpc "github.com/hitesh22rana/logterminal/internal/pkg/grpc/jobstream"
	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/logterminal/internal/pkg/svc"
)

// Service provides job stream related operations.
type Service interface {
	GetJobStream(ctx context.Context, req *joblogsmodel.GetJobStreamRequest, send func(*joblogsmodel.GetJobStreamResponse) error) error
}

// TLSConfig holds the TLS configuration for gRPC server.
type TLSConfig struct {
	Enabled  bool
	CAFile   string
	CertFile string
	KeyFile  string
}

// Config represents the jobstream-service configuration.
type Config struct {
	Environment string
	TLSConfig   *TLSConfig
}

// JobStream represents the jobstream-service.
type JobStream struct {
	jobstreamrpc.UnimplementedJobServiceServer
	tp  trace.Tracer
	cfg *Config
	svc Service
}

// isProduction checks if the environment is production.
func isProduction(environment string) bool {
	return strings.EqualFold(environment, "production")
}

// New creates a new jobstream server.
func New(ctx context.Context, cfg *Config, svc Service) *grpc.Server {
	jobStream := &JobStream{
		tp:  otel.Tracer(svcpkg.Info().GetName()),
		cfg: cfg,
		svc: svc,
	}

	logger := loggerpkg.FromContext(ctx)

	var serverOpts []grpc.ServerOption
	if cfg.TLSConfig != nil && cfg.TLSConfig.Enabled {
		// Load CA certificate
		caCert, err := os.ReadFile(cfg.TLSConfig.CAFile)
		if err != nil {
			logger.Fatal(
				"failed to read CA certificate file",
				zap.Error(err),
				zap.String("ca_file", cfg.TLSConfig.CAFile),
			)
			return nil
		}

		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
			logger.Fatal(
				"failed to append CA certificate to pool",
				zap.String("ca_file", cfg.TLSConfig.CAFile),
			)
			return nil
		}

		// Server certificate and private key
		serverCert, err := tls.LoadX509KeyPair(cfg.TLSConfig.CertFile, cfg.TLSConfig.KeyFile)
		if err != nil {
			logger.Fatal(
				"failed to load server certificate and key",
				zap.Error(err),
				zap.String("cert_file", cfg.TLSConfig.CertFile),
				zap.String("key_file", cfg.TLSConfig.KeyFile),
			)
			return nil
		}

		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(&tls.Config{
			Certificates: []tls.Certificate{serverCert},
			ClientAuth:   tls.RequireAndVerifyClientCert,
			ClientCAs:    caCertPool,
			MinVersion:   tls.VersionTLS12,
		})))
	}

	serverOpts = append(serverOpts,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcmiddlewares.UnaryLoggingInterceptor(logger),
		),
		grpc.ChainStreamInterceptor(
			grpcmiddlewares.StreamContextLoggerInterceptor(logger),
			grpcmiddlewares.StreamLoggingInterceptor(logger),
		),
	)

	server := grpc.NewServer(serverOpts...)
	jobstreamrpc.RegisterJobServiceServer(server, jobStream)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(
		svcpkg.Info().GetName(),
		grpc_health_v1.HealthCheckResponse_SERVING,
	)

	// Register the health server.
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// Only register reflection for non-production environments.
	if !isProduction(cfg.Environment) {
		reflection.Register(server)
	}
	return server
}

// GetJobStream streams the state and terminal output of a job.
// The stream lives until the job finishes or the client goes away, so no deadline is applied.
func (j *JobStream) GetJobStream(
	req *joblogsmodel.GetJobStreamRequest,
	stream grpc.ServerStreamingServer[joblogsmodel.GetJobStreamResponse],
) (err error) {
	ctx, span := j.tp.Start(
		stream.Context(),
		"App.GetJobStream",
		trace.WithAttributes(
			attribute.String("job_id", req.GetJobID()),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	return j.svc.GetJobStream(ctx, req, stream.Send)
}
