package svc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	otelpkg "github.com/hitesh22rana/logterminal/internal/pkg/otel"
)

const shutdownTimeout = 5 * time.Second

// Svc contains the service information.
type Svc struct {
	// Version is the service version.
	Version string

	// Name is the name of the service.
	Name string
}

// Svc represents the service.
var svc Svc

// GetVersion returns the service version.
func (s Svc) GetVersion() string {
	return s.Version
}

// GetName returns the service name.
func (s Svc) GetName() string {
	return s.Name
}

// SetVersion sets the service version.
func SetVersion(version string) {
	if svc.Version != "" {
		return
	}
	svc.Version = version
}

// SetName sets the service name.
func SetName(name string) {
	if svc.Name != "" {
		return
	}
	svc.Name = name
}

// Info returns the service information.
func Info() Svc {
	return svc
}

type options struct {
	logOutput   zapcore.WriteSyncer
	telemetry   bool
	environment string
}

// Option configures Init.
type Option func(*options)

// WithLogOutput sets where the JSON logs are written. Defaults to stdout.
func WithLogOutput(w zapcore.WriteSyncer) Option {
	return func(o *options) {
		o.logOutput = w
	}
}

// WithTelemetry enables or disables the OTLP trace, metric and log exporters.
func WithTelemetry(enabled bool) Option {
	return func(o *options) {
		o.telemetry = enabled
	}
}

// WithEnvironment sets the deployment environment reported with telemetry.
func WithEnvironment(environment string) Option {
	return func(o *options) {
		o.environment = environment
	}
}

// Init initializes the service with signal handling, telemetry and the logger.
// The returned context is cancelled on SIGINT or SIGTERM and carries the logger.
// Calling the cancel function flushes and shuts down everything Init started.
func Init(opts ...Option) (context.Context, context.CancelFunc) {
	o := &options{
		logOutput: zapcore.Lock(os.Stdout),
		telemetry: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var (
		lp        *sdklog.LoggerProvider
		shutdowns []func(context.Context) error
	)
	if o.telemetry {
		var err error
		lp, shutdowns, err = initTelemetry(ctx, o.environment)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		}
	}

	ctx, logger := loggerpkg.Init(ctx, svc.GetName(), lp, o.logOutput)

	cancel := func() {
		stop()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		var errs []error
		for _, shutdown := range shutdowns {
			errs = append(errs, shutdown(shutdownCtx))
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn("failed to shut down telemetry", zap.Error(err))
		}

		//nolint:errcheck // Sync fails on non-file outputs such as terminals.
		logger.Sync()
	}

	return ctx, cancel
}

// initTelemetry starts the OTLP providers and returns their shutdown functions.
func initTelemetry(ctx context.Context, environment string) (*sdklog.LoggerProvider, []func(context.Context) error, error) {
	res, err := otelpkg.InitResource(ctx, svc.GetName(), svc.GetVersion(), environment)
	if err != nil {
		return nil, nil, err
	}

	tp, err := otelpkg.InitTracerProvider(ctx, res)
	if err != nil {
		return nil, nil, err
	}

	mp, err := otelpkg.InitMeterProvider(ctx, res)
	if err != nil {
		return nil, []func(context.Context) error{tp.Shutdown}, err
	}

	lp, err := otelpkg.InitLogProvider(ctx, res)
	if err != nil {
		return nil, []func(context.Context) error{tp.Shutdown, mp.Shutdown}, err
	}

	return lp, []func(context.Context) error{tp.Shutdown, mp.Shutdown, lp.Shutdown}, nil
}
