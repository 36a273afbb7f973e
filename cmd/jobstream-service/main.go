package main

import (
	"fmt"
	"net"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hitesh22rana/logterminal/internal/app/jobstream"
	"github.com/hitesh22rana/logterminal/internal/config"
	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	"github.com/hitesh22rana/logterminal/internal/pkg/redis"
	svcpkg "github.com/hitesh22rana/logterminal/internal/pkg/svc"
	jobstreamrepo "github.com/hitesh22rana/logterminal/internal/repository/jobstream"
	jobstreamsvc "github.com/hitesh22rana/logterminal/internal/service/jobstream"
)

const (
	// ExitOk and ExitError are the exit codes.
	ExitOk = iota
	// ExitError is the exit code for errors.
	ExitError
)

const (
	defaultName         = "jobstream-service"
	shutdownGracePeriod = 10 * time.Second
)

var (
	// version is the service version.
	version string

	// name is the name of the service.
	name string
)

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize the service information
	initSvcInfo()

	// Load the jobstream service configuration
	cfg, err := config.InitJobStreamServiceConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// Initialize the service with all necessary components
	ctx, cancel := svcpkg.Init(
		svcpkg.WithEnvironment(cfg.Environment.Env),
		svcpkg.WithTelemetry(cfg.Telemetry.Enabled),
	)
	defer cancel()

	logger := loggerpkg.FromContext(ctx)

	// Initialize the redis store
	rdb, err := redis.New(ctx, &redis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Error("failed to initialize redis", zap.Error(err))
		return ExitError
	}
	defer rdb.Close()

	// Initialize the jobstream repository
	repo := jobstreamrepo.New(&jobstreamrepo.Config{
		BufferSize: cfg.JobStreamService.SubscriptionBufferSize,
	}, rdb)

	// Initialize the jobstream service
	svc := jobstreamsvc.New(validator.New(), repo)

	// Initialize the jobstream application
	server := jobstream.New(ctx, &jobstream.Config{
		Environment: cfg.Environment.Env,
		TLSConfig: &jobstream.TLSConfig{
			Enabled:  cfg.ServerTLS.Enabled,
			CAFile:   cfg.ServerTLS.CAFile,
			CertFile: cfg.ServerTLS.CertFile,
			KeyFile:  cfg.ServerTLS.KeyFile,
		},
	}, svc)

	// Create a TCP listener
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Grpc.Port))
	if err != nil {
		logger.Error("failed to create listener", zap.Error(err))
		return ExitError
	}

	logger.Info(
		"starting service",
		zap.String("name", svcpkg.Info().GetName()),
		zap.String("version", svcpkg.Info().GetVersion()),
		zap.String("address", listener.Addr().String()),
		zap.String("environment", cfg.Environment.Env),
		zap.Bool("tls_enabled", cfg.ServerTLS.Enabled),
		zap.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return server.Serve(listener)
	})
	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down service")

		// Open log streams only end with their jobs, so graceful stop is bounded.
		stopped := make(chan struct{})
		go func() {
			server.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(shutdownGracePeriod):
			server.Stop()
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		logger.Error("failed to serve", zap.Error(err))
		return ExitError
	}

	return ExitOk
}

// initSvcInfo initializes the service information.
func initSvcInfo() {
	if name == "" {
		name = defaultName
	}

	svcpkg.SetVersion(version)
	svcpkg.SetName(name)
}
