//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package jobstream

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/svc"
)

// Repository provides job stream related operations.
type Repository interface {
	GetJobStatus(ctx context.Context, jobID string) (string, error)
	Subscribe(ctx context.Context, jobID string) (<-chan *joblogsmodel.JobStreamRecord, func() error, error)
}

// Service provides job stream related operations.
type Service struct {
	validator *validator.Validate
	tp        trace.Tracer
	repo      Repository
}

// New creates a new job stream service.
func New(validator *validator.Validate, repo Repository) *Service {
	return &Service{
		validator: validator,
		tp:        otel.Tracer(svc.Info().GetName()),
		repo:      repo,
	}
}

// GetJobStreamRequest holds the request parameters for streaming a job.
type GetJobStreamRequest struct {
	JobID string `validate:"required"`
}

// GetJobStream sends the state and live terminal output of the job until the job reaches
// a terminal state or ctx is done.
func (s *Service) GetJobStream(ctx context.Context, req *joblogsmodel.GetJobStreamRequest, send func(*joblogsmodel.GetJobStreamResponse) error) (err error) {
	ctx, span := s.tp.Start(
		ctx,
		"Service.GetJobStream",
		trace.WithAttributes(attribute.String("job_id", req.GetJobID())),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	// Validate the request
	err = s.validator.Struct(&GetJobStreamRequest{
		JobID: req.GetJobID(),
	})
	if err != nil {
		err = status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
		return err
	}

	// Subscribe before reading the status so no transition is missed in between.
	records, closeFn, err := s.repo.Subscribe(ctx, req.GetJobID())
	if err != nil {
		return err
	}
	//nolint:errcheck // The subscription is released on every return path.
	defer closeFn()

	current, err := s.repo.GetJobStatus(ctx, req.GetJobID())
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return s.send(send, unavailableEvent())
		}
		return err
	}

	if err = s.send(send, stateEvent("", current)); err != nil {
		return err
	}
	if joblogsmodel.IsTerminalJobStatus(current) {
		return s.send(send, unavailableEvent())
	}

	for {
		select {
		case <-ctx.Done():
			err = status.FromContextError(ctx.Err()).Err()
			return err
		case record, ok := <-records:
			if !ok {
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = status.FromContextError(ctxErr).Err()
					return err
				}
				err = status.Error(codes.Unavailable, "job subscription closed")
				return err
			}

			switch {
			case record.Log != nil:
				if err = s.send(send, terminalEvent(record.Log)); err != nil {
					return err
				}
			case record.State != nil:
				if err = s.send(send, stateEvent(record.State.PreviousStatus, record.State.Status)); err != nil {
					return err
				}
				if joblogsmodel.IsTerminalJobStatus(record.State.Status) {
					return nil
				}
			}
		}
	}
}

func (s *Service) send(send func(*joblogsmodel.GetJobStreamResponse) error, res *joblogsmodel.GetJobStreamResponse) error {
	if err := send(res); err != nil {
		if _, ok := status.FromError(err); ok {
			return err
		}
		return status.Errorf(codes.Unavailable, "failed to send event: %v", err)
	}
	return nil
}

func unavailableEvent() *joblogsmodel.GetJobStreamResponse {
	return &joblogsmodel.GetJobStreamResponse{Terminal: &joblogsmodel.TerminalEvent{}}
}

func stateEvent(previous, current string) *joblogsmodel.GetJobStreamResponse {
	return &joblogsmodel.GetJobStreamResponse{
		State: &joblogsmodel.StateEvent{Previous: previous, Current: current},
	}
}

// terminalEvent renders a log record as one terminal entry.
// Raw output bytes are forwarded as a step, plain messages as a line.
func terminalEvent(event *joblogsmodel.JobLogEvent) *joblogsmodel.GetJobStreamResponse {
	entry := &joblogsmodel.TerminalLine{}
	if len(event.Output) > 0 {
		entry.Step = &joblogsmodel.Step{
			ID:     event.SequenceNum,
			Msg:    event.Message,
			Output: event.Output,
		}
	} else {
		entry.Line = &joblogsmodel.Line{Msg: event.Message}
	}

	return &joblogsmodel.GetJobStreamResponse{
		Terminal: &joblogsmodel.TerminalEvent{
			Terminal: &joblogsmodel.Terminal{Events: []*joblogsmodel.TerminalLine{entry}},
		},
	}
}
