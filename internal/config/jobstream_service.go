package config

import "github.com/kelseyhightower/envconfig"

// JobStreamServiceConfig holds the jobstream service configuration.
type JobStreamServiceConfig struct {
	Environment
	Telemetry

	Grpc
	ServerTLS
	Redis
	JobStreamService
}

// JobStreamService holds the configuration for the jobstream service.
type JobStreamService struct {
	SubscriptionBufferSize int `envconfig:"JOBSTREAM_SUBSCRIPTION_BUFFER_SIZE" default:"256"`
}

// InitJobStreamServiceConfig initializes the jobstream service configuration.
func InitJobStreamServiceConfig() (*JobStreamServiceConfig, error) {
	var cfg JobStreamServiceConfig
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
