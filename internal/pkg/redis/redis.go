package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

const (
	// MaxHealthCheckRetries is the maximum number of retries for the health check
	MaxHealthCheckRetries = 3
)

// ErrKeyNotFound is returned when the requested key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Config is the configuration for the Redis store
type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore is a Redis store
type RedisStore struct {
	client *redis.Client
}

// healthCheck is used to check the health of the Redis connection
func healthCheck(ctx context.Context, client *redis.Client) error {
	var err error

	backoff := 100 * time.Millisecond
	for i := 1; i <= MaxHealthCheckRetries; i++ {
		if err = client.Ping(ctx).Err(); err == nil {
			break
		}
		if i < MaxHealthCheckRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	return err
}

// New creates a new Redis store instance
func New(ctx context.Context, cfg *Config) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(client); err != nil {
		return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
	}

	if err := healthCheck(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis store
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// Get retrieves a value by key
func (rs *RedisStore) Get(ctx context.Context, key string, dest any) error {
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return fmt.Errorf("failed to get value from redis: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Subscribe subscribes to the channels and waits for the subscription to be confirmed.
func (rs *RedisStore) Subscribe(ctx context.Context, channels ...string) (*redis.PubSub, error) {
	pubsub := rs.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channels: %w", err)
	}

	return pubsub, nil
}
