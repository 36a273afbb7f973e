package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/status"
)

// TLSConfig describes how the client authenticates the server and, optionally, itself.
// Without a client certificate pair the connection is server-authenticated TLS only.
type TLSConfig struct {
	Enabled        bool
	CAFile         string
	ClientCertFile string
	ClientKeyFile  string
}

// ServiceConfig is the address and transport security of a remote service.
type ServiceConfig struct {
	Host string
	Port int
	TLS  *TLSConfig
}

func (c *ServiceConfig) target() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CircuitBreakerConfig tunes the breaker shared by all calls on a connection.
type CircuitBreakerConfig struct {
	// ErrorThreshold failures in a row open the breaker.
	ErrorThreshold int
	// SuccessThreshold probes must pass before it closes again.
	SuccessThreshold int
	// Timeout is how long the breaker rejects calls once open.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns the breaker settings used when none are given.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		ErrorThreshold:   10,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// RetryConfig controls retries of failed calls.
// For server streams only establishing the stream is retried.
type RetryConfig struct {
	MaxRetries         uint
	BackoffExponential time.Duration
	RetryableCodes     []codes.Code
	// PerRetryTimeout bounds each attempt. Zero disables it, which long-lived streams require.
	PerRetryTimeout time.Duration
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:         3,
		BackoffExponential: 100 * time.Millisecond,
		RetryableCodes: []codes.Code{
			codes.Unavailable,
			codes.ResourceExhausted,
			codes.Aborted,
		},
	}
}

// NewClient dials the service lazily with tracing, a circuit breaker, retries and gzip.
// Nil breaker or retry configs fall back to the defaults.
func NewClient(svcCfg *ServiceConfig, cbCfg *CircuitBreakerConfig, retryCfg *RetryConfig) (*grpc.ClientConn, error) {
	creds, err := transportCredentials(svcCfg.TLS)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to load TLS credentials: %v", err)
	}

	if cbCfg == nil {
		cbCfg = DefaultCircuitBreakerConfig()
	}
	if retryCfg == nil {
		retryCfg = DefaultRetryConfig()
	}

	cb := breaker.New(cbCfg.ErrorThreshold, cbCfg.SuccessThreshold, cbCfg.Timeout)
	retryOpts := retryOptions(retryCfg)

	// The breaker sits outside the retries so one exhausted call counts once.
	conn, err := grpc.NewClient(
		svcCfg.target(),
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"round_robin"}`),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(
			circuitBreakerUnaryInterceptor(cb),
			retry.UnaryClientInterceptor(retryOpts...),
		),
		grpc.WithChainStreamInterceptor(
			circuitBreakerStreamInterceptor(cb),
			retry.StreamClientInterceptor(retryOpts...),
		),
		grpc.WithDefaultCallOptions(grpc.UseCompressor(gzip.Name)),
	)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create client for %s: %v", svcCfg.target(), err)
	}

	return conn, nil
}

func retryOptions(cfg *RetryConfig) []retry.CallOption {
	opts := []retry.CallOption{
		retry.WithCodes(cfg.RetryableCodes...),
		retry.WithMax(cfg.MaxRetries),
		retry.WithBackoff(retry.BackoffExponential(cfg.BackoffExponential)),
	}
	if cfg.PerRetryTimeout > 0 {
		opts = append(opts, retry.WithPerRetryTimeout(cfg.PerRetryTimeout))
	}
	return opts
}

func transportCredentials(cfg *TLSConfig) (credentials.TransportCredentials, error) {
	if cfg == nil || !cfg.Enabled {
		return insecure.NewCredentials(), nil
	}

	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
	}

	tlsCfg := &tls.Config{
		RootCAs:    roots,
		MinVersion: tls.VersionTLS12,
	}

	switch {
	case cfg.ClientCertFile != "" && cfg.ClientKeyFile != "":
		pair, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client key pair: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{pair}
	case cfg.ClientCertFile != "" || cfg.ClientKeyFile != "":
		return nil, errors.New("client certificate and key must be set together")
	}

	return credentials.NewTLS(tlsCfg), nil
}
