package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/codes"

	"github.com/hitesh22rana/logterminal/internal/app/logterminal"
	"github.com/hitesh22rana/logterminal/internal/config"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/client"
	jobstreamrpc "github.com/hitesh22rana/logterminal/internal/pkg/grpc/jobstream"
	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	svcpkg "github.com/hitesh22rana/logterminal/internal/pkg/svc"
	"github.com/hitesh22rana/logterminal/internal/pkg/terminal"
)

const (
	// ExitOk and ExitError are the exit codes.
	ExitOk = iota
	// ExitError is the exit code for errors.
	ExitError
)

const defaultName = "log-terminal"

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

	// Load the log terminal configuration
	cfg, err := config.InitLogTerminalConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	if err := parseFlags(os.Args[1:], &cfg.LogTerminal); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return ExitOk
		}
		fmt.Fprintln(os.Stderr, err)
		return ExitError
	}

	// Logs go to stderr so they never interleave with the rendered output on stdout.
	ctx, cancel := svcpkg.Init(
		svcpkg.WithLogOutput(zapcore.Lock(os.Stderr)),
		svcpkg.WithEnvironment(cfg.Environment.Env),
		svcpkg.WithTelemetry(cfg.LogTerminal.TelemetryEnabled),
	)
	defer cancel()

	logger := loggerpkg.FromContext(ctx)

	// Connect to the jobstream service
	conn, err := client.NewClient(
		&client.ServiceConfig{
			Host: cfg.JobStreamClient.Host,
			Port: cfg.JobStreamClient.Port,
			TLS: &client.TLSConfig{
				Enabled:        cfg.ClientTLS.Enabled,
				CAFile:         cfg.ClientTLS.CAFile,
				ClientCertFile: cfg.ClientTLS.ClientCertFile,
				ClientKeyFile:  cfg.ClientTLS.ClientKeyFile,
			},
		},
		client.DefaultCircuitBreakerConfig(),
		&client.RetryConfig{
			MaxRetries:         cfg.LogTerminal.MaxRetries,
			BackoffExponential: cfg.LogTerminal.RetryBackoff,
			RetryableCodes: []codes.Code{
				codes.Unavailable,
				codes.ResourceExhausted,
				codes.Aborted,
			},
		},
	)
	if err != nil {
		logger.Error("failed to connect to jobstream service", zap.Error(err))
		return ExitError
	}
	defer conn.Close()

	consumer := logterminal.New(jobstreamrpc.NewJobServiceClient(conn), &logterminal.Config{
		Greeting: cfg.LogTerminal.Greeting,
	})
	defer func() {
		if err := consumer.Teardown(); err != nil {
			logger.Warn("failed to tear down log terminal", zap.Error(err))
		}
	}()

	var termOpts []terminal.Option
	if cfg.LogTerminal.ResetOnExit {
		termOpts = append(termOpts, terminal.WithResetOnDispose())
	}

	if err := consumer.Attach(terminal.New(termOpts...), os.Stdout); err != nil {
		logger.Error("failed to attach terminal", zap.Error(err))
		return ExitError
	}

	// The stream outlives the signal context and is closed by Teardown.
	if err := consumer.Start(context.WithoutCancel(ctx), cfg.LogTerminal.JobID); err != nil {
		logger.Error("failed to start log stream", zap.Error(err))
		return ExitError
	}

	select {
	case <-consumer.Done():
	case <-ctx.Done():
		logger.Info("interrupted, closing log stream", zap.String("job_id", consumer.JobID()))
	}

	return ExitOk
}

// parseFlags applies command line overrides on top of the environment configuration.
func parseFlags(args []string, cfg *config.LogTerminal) error {
	fs := pflag.NewFlagSet(svcpkg.Info().GetName(), pflag.ContinueOnError)
	fs.StringVar(&cfg.JobID, "job-id", cfg.JobID, "ID of the job whose logs are streamed")
	fs.StringVar(&cfg.Greeting, "greeting", cfg.Greeting, "first line written to the terminal")
	fs.BoolVar(&cfg.ResetOnExit, "reset", cfg.ResetOnExit, "reset terminal attributes on exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.JobID == "" {
		return errors.New("a job ID is required: set --job-id or LOG_TERMINAL_JOB_ID")
	}

	return nil
}

// initSvcInfo initializes the service information.
func initSvcInfo() {
	if name == "" {
		name = defaultName
	}

	svcpkg.SetVersion(version)
	svcpkg.SetName(name)
}
