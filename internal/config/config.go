package config

import "time"

const envPrefix = ""

// Environment holds the deployment environment.
type Environment struct {
	Env string `envconfig:"ENV" default:"development"`
}

// Telemetry holds the OpenTelemetry export configuration.
// Exporter endpoints are read by the exporters from the OTEL_* variables.
type Telemetry struct {
	Enabled bool `envconfig:"TELEMETRY_ENABLED" default:"true"`
}

// Grpc holds the gRPC server configuration.
type Grpc struct {
	Port int `envconfig:"GRPC_PORT" default:"50061"`
}

// ServerTLS holds the TLS configuration of the gRPC server.
type ServerTLS struct {
	Enabled  bool   `envconfig:"GRPC_TLS_ENABLED" default:"false"`
	CAFile   string `envconfig:"GRPC_TLS_CA_FILE" default:""`
	CertFile string `envconfig:"GRPC_TLS_CERT_FILE" default:""`
	KeyFile  string `envconfig:"GRPC_TLS_KEY_FILE" default:""`
}

// ClientTLS holds the TLS configuration of gRPC clients.
type ClientTLS struct {
	Enabled        bool   `envconfig:"CLIENT_TLS_ENABLED" default:"false"`
	CAFile         string `envconfig:"CLIENT_TLS_CA_FILE" default:""`
	ClientCertFile string `envconfig:"CLIENT_TLS_CERT_FILE" default:""`
	ClientKeyFile  string `envconfig:"CLIENT_TLS_KEY_FILE" default:""`
}

// Redis holds the Redis configuration.
type Redis struct {
	Host         string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port         int           `envconfig:"REDIS_PORT" default:"6379"`
	Password     string        `envconfig:"REDIS_PASSWORD" default:""`
	DB           int           `envconfig:"REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"5"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"5s"`
}
