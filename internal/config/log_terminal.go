package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// LogTerminalConfig holds the log terminal configuration.
type LogTerminalConfig struct {
	Environment

	ClientTLS
	JobStreamClient
	LogTerminal
}

// JobStreamClient holds the address of the jobstream service.
type JobStreamClient struct {
	Host string `envconfig:"JOBSTREAM_SERVICE_HOST" default:"localhost"`
	Port int    `envconfig:"JOBSTREAM_SERVICE_PORT" default:"50061"`
}

// LogTerminal holds the configuration for the log terminal.
type LogTerminal struct {
	JobID            string        `envconfig:"LOG_TERMINAL_JOB_ID" default:""`
	Greeting         string        `envconfig:"LOG_TERMINAL_GREETING" default:"Welcome to Waypoint..."`
	ResetOnExit      bool          `envconfig:"LOG_TERMINAL_RESET_ON_EXIT" default:"true"`
	TelemetryEnabled bool          `envconfig:"LOG_TERMINAL_TELEMETRY_ENABLED" default:"false"`
	MaxRetries       uint          `envconfig:"LOG_TERMINAL_MAX_RETRIES" default:"3"`
	RetryBackoff     time.Duration `envconfig:"LOG_TERMINAL_RETRY_BACKOFF" default:"100ms"`
}

// InitLogTerminalConfig initializes the log terminal configuration.
func InitLogTerminalConfig() (*LogTerminalConfig, error) {
	var cfg LogTerminalConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
