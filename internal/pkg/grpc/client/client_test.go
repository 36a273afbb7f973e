package client_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eapache/go-resiliency/breaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/client"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsCircuitBreakerError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "wrapped context canceled", err: fmt.Errorf("stream: %w", context.Canceled), want: false},
		{name: "context deadline", err: context.DeadlineExceeded, want: true},
		{name: "status canceled", err: status.Error(codes.Canceled, "consumer closed"), want: false},
		{name: "status unavailable", err: status.Error(codes.Unavailable, "connection refused"), want: true},
		{name: "status internal", err: status.Error(codes.Internal, "internal"), want: true},
		{name: "status not found", err: status.Error(codes.NotFound, "job not found"), want: false},
		{name: "status invalid argument", err: status.Error(codes.InvalidArgument, "job ID is required"), want: false},
		{name: "network timeout", err: timeoutError{}, want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.IsCircuitBreakerError(tt.err))
		})
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name  string
		cfg   *client.ServiceConfig
		isErr bool
	}{
		{
			name: "insecure",
			cfg:  &client.ServiceConfig{Host: "localhost", Port: 50061},
		},
		{
			name: "tls disabled",
			cfg: &client.ServiceConfig{
				Host: "localhost",
				Port: 50061,
				TLS:  &client.TLSConfig{Enabled: false},
			},
		},
		{
			name: "error: CA file without certificates",
			cfg: &client.ServiceConfig{
				Host: "localhost",
				Port: 50061,
				TLS:  &client.TLSConfig{Enabled: true, CAFile: emptyCAFile(t)},
			},
			isErr: true,
		},
		{
			name: "error: missing CA file",
			cfg: &client.ServiceConfig{
				Host: "localhost",
				Port: 50061,
				TLS:  &client.TLSConfig{Enabled: true, CAFile: "/nonexistent/ca.pem"},
			},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := client.NewClient(tt.cfg, nil, nil)
			if tt.isErr {
				assert.Equal(t, codes.Internal, status.Code(err))
				return
			}

			require.NoError(t, err)
			assert.NoError(t, conn.Close())
		})
	}
}

func TestBreakerError(t *testing.T) {
	assert.Equal(t, codes.Unavailable, status.Code(client.BreakerError(breaker.ErrBreakerOpen)))

	other := errors.New("boom")
	assert.Same(t, other, client.BreakerError(other))
}

func emptyCAFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))
	return path
}

func caFile(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "jobstream-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	return path
}

func TestTransportCredentials(t *testing.T) {
	ca := caFile(t)

	tests := []struct {
		name         string
		cfg          *client.TLSConfig
		wantProtocol string
		isErr        bool
	}{
		{
			name:         "nil config is insecure",
			cfg:          nil,
			wantProtocol: "insecure",
		},
		{
			name:         "disabled is insecure",
			cfg:          &client.TLSConfig{CAFile: "/nonexistent/ca.pem"},
			wantProtocol: "insecure",
		},
		{
			name:         "server-authenticated TLS without client certificate",
			cfg:          &client.TLSConfig{Enabled: true, CAFile: ca},
			wantProtocol: "tls",
		},
		{
			name: "error: certificate without key",
			cfg: &client.TLSConfig{
				Enabled:        true,
				CAFile:         ca,
				ClientCertFile: "client.pem",
			},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := client.TransportCredentials(tt.cfg)
			if tt.isErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantProtocol, creds.Info().SecurityProtocol)
		})
	}
}

func TestRetryOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  *client.RetryConfig
		want int
	}{
		{
			name: "no per-attempt timeout for streams",
			cfg:  client.DefaultRetryConfig(),
			want: 3,
		},
		{
			name: "per-attempt timeout",
			cfg: &client.RetryConfig{
				MaxRetries:         1,
				BackoffExponential: time.Millisecond,
				RetryableCodes:     []codes.Code{codes.Unavailable},
				PerRetryTimeout:    time.Second,
			},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, client.RetryOptions(tt.cfg), tt.want)
		})
	}
}
