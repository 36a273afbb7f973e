package jobstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	"github.com/hitesh22rana/logterminal/internal/pkg/redis"
	svcpkg "github.com/hitesh22rana/logterminal/internal/pkg/svc"
)

// Config represents the repository constants configuration.
type Config struct {
	// BufferSize is the number of records buffered per subscription.
	BufferSize int
}

// Repository provides job stream repository.
type Repository struct {
	tp  trace.Tracer
	cfg *Config
	rdb *redis.RedisStore
}

// New creates a new job stream repository.
func New(cfg *Config, rdb *redis.RedisStore) *Repository {
	return &Repository{
		tp:  otel.Tracer(svcpkg.Info().GetName()),
		cfg: cfg,
		rdb: rdb,
	}
}

// GetJobStatus returns the last known status of the job.
func (r *Repository) GetJobStatus(ctx context.Context, jobID string) (jobStatus string, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.GetJobStatus")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	var state joblogsmodel.JobStateEvent
	if err = r.rdb.Get(ctx, redis.GetJobStatusKey(jobID), &state); err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			err = status.Errorf(codes.NotFound, "job status not found: %s", jobID)
			return "", err
		}

		err = status.Errorf(codes.Internal, "failed to get job status: %v", err)
		return "", err
	}

	return state.Status, nil
}

// Subscribe subscribes to the live log and state channels of the job.
// The returned channel is closed when the subscription ends or ctx is done.
func (r *Repository) Subscribe(
	ctx context.Context,
	jobID string,
) (records <-chan *joblogsmodel.JobStreamRecord, closeFn func() error, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.Subscribe")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	pubsub, err := r.rdb.Subscribe(ctx, redis.GetJobLogsChannel(jobID), redis.GetJobStateChannel(jobID))
	if err != nil {
		err = status.Errorf(codes.Unavailable, "failed to subscribe to job %s: %v", jobID, err)
		return nil, nil, err
	}

	logger := loggerpkg.FromContext(ctx).With(zap.String("job_id", jobID))
	out := make(chan *joblogsmodel.JobStreamRecord, r.cfg.BufferSize)

	go func() {
		defer close(out)

		messages := pubsub.Channel(goredis.WithChannelSize(r.cfg.BufferSize))
		for {
			var msg *goredis.Message
			select {
			case <-ctx.Done():
				return
			case m, ok := <-messages:
				if !ok {
					return
				}
				msg = m
			}

			record, err := decodeMessage(msg.Channel, msg.Payload)
			if err != nil {
				logger.Warn("skipping malformed job stream message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- record:
			}
		}
	}()

	var once sync.Once
	closeFn = func() error {
		var closeErr error
		once.Do(func() {
			closeErr = pubsub.Close()
		})
		return closeErr
	}

	return out, closeFn, nil
}

// decodeMessage decodes a published message based on the channel it arrived on.
func decodeMessage(channel, payload string) (*joblogsmodel.JobStreamRecord, error) {
	switch {
	case strings.HasPrefix(channel, redis.ChannelJobLogsPrefix):
		var event joblogsmodel.JobLogEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log event: %w", err)
		}
		return &joblogsmodel.JobStreamRecord{Log: &event}, nil
	case strings.HasPrefix(channel, redis.ChannelJobStatePrefix):
		var event joblogsmodel.JobStateEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state event: %w", err)
		}
		return &joblogsmodel.JobStreamRecord{State: &event}, nil
	default:
		return nil, fmt.Errorf("unexpected channel: %s", channel)
	}
}
