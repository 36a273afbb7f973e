// Package logterminal renders the log stream of a job into a terminal sink.
package logterminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/jobstream"
	"github.com/hitesh22rana/logterminal/internal/pkg/joblogs"
	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
	"github.com/hitesh22rana/logterminal/internal/pkg/terminal"
)

// DefaultGreeting is the first line written to an attached sink.
const DefaultGreeting = "Welcome to Waypoint..."

var (
	// ErrAlreadyStarted is returned when starting a consumer twice.
	ErrAlreadyStarted = errors.New("log terminal already started")
	// ErrAlreadyAttached is returned when attaching a second sink.
	ErrAlreadyAttached = errors.New("log terminal already attached")
	// ErrTornDown is returned when using a consumer after teardown.
	ErrTornDown = errors.New("log terminal torn down")
)

// Sink is the append-only surface the consumer renders into.
type Sink interface {
	Open(surface io.Writer) error
	WriteLine(text string) error
	WriteBytes(data []byte) error
	Dispose() error
}

// Config represents the log terminal configuration.
type Config struct {
	Greeting     string
	PrefixMarker []byte
}

// Consumer streams the logs of one job into a sink.
type Consumer struct {
	client jobstream.JobServiceClient
	cfg    *Config
	logger *zap.Logger

	mu      sync.Mutex
	sink    Sink
	pending []joblogs.Instruction
	session *joblogs.Session
	closed  bool

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a new consumer.
func New(client jobstream.JobServiceClient, cfg *Config) *Consumer {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.PrefixMarker == nil {
		cfg.PrefixMarker = terminal.ColorMarker(terminal.UIGray400)
	}

	return &Consumer{
		client: client,
		cfg:    cfg,
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
}

// Start opens the log stream of the job.
func (c *Consumer) Start(ctx context.Context, jobID string) error {
	if jobID == "" {
		return status.Error(codes.InvalidArgument, "job ID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrTornDown
	}
	if c.session != nil {
		return ErrAlreadyStarted
	}

	c.logger = loggerpkg.FromContext(ctx).With(zap.String("job_id", jobID))
	c.session = joblogs.Open(
		ctx,
		c.client,
		jobID,
		joblogs.WithEventHandler(c.onEvent),
		joblogs.WithStatusHandler(c.onStatus),
	)

	go func(session *joblogs.Session) {
		<-session.Done()
		c.markDone()
	}(c.session)

	c.logger.Info("log stream opened")
	return nil
}

// Attach opens the sink on the surface and writes the greeting.
// Output received before Attach is written right after the greeting.
func (c *Consumer) Attach(sink Sink, surface io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrTornDown
	}
	if c.sink != nil {
		return ErrAlreadyAttached
	}

	if err := sink.Open(surface); err != nil {
		return fmt.Errorf("failed to open sink: %w", err)
	}
	c.sink = sink

	if err := sink.WriteBytes(c.cfg.PrefixMarker); err != nil {
		return fmt.Errorf("failed to write prefix marker: %w", err)
	}
	if err := sink.WriteLine(c.cfg.Greeting); err != nil {
		return fmt.Errorf("failed to write greeting: %w", err)
	}

	pending := c.pending
	c.pending = nil
	c.writeLocked(pending)

	return nil
}

// JobID returns the ID of the streamed job, empty before Start.
func (c *Consumer) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ""
	}
	return c.session.JobID()
}

// Done is closed when the stream has ended or the consumer was torn down.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

// Teardown closes the stream and disposes the sink.
// It is safe to call before Start and more than once.
func (c *Consumer) Teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.pending = nil

	var errs []error
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close log stream: %w", err))
		}
	}
	if c.sink != nil {
		if err := c.sink.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("failed to dispose sink: %w", err))
		}
	}

	c.markDone()
	c.logger.Info("log terminal torn down")

	return errors.Join(errs...)
}

func (c *Consumer) onEvent(frame *joblogsmodel.Frame) {
	instructions, err := joblogs.DecodeFrame(frame)
	if err != nil {
		c.logger.Warn("skipping malformed log stream frame", zap.Int("size", len(frame.Data)), zap.Error(err))
		return
	}

	c.apply(instructions)
}

func (c *Consumer) onStatus(st *status.Status) {
	switch st.Code() {
	case codes.OK:
		c.logger.Info("log stream ended")
		return
	case codes.Canceled:
		// The owner cancelled the stream context, e.g. on process shutdown.
		c.logger.Info("log stream cancelled")
		return
	}

	c.logger.Error(
		"log stream failed",
		zap.String("code", st.Code().String()),
		zap.String("message", st.Message()),
	)
	c.apply([]joblogs.Instruction{
		joblogs.WriteStatusLine(fmt.Sprintf("Log stream failed: %s: %s", st.Code(), st.Message())),
	})
}

func (c *Consumer) apply(instructions []joblogs.Instruction) {
	if len(instructions) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.sink == nil {
		c.pending = append(c.pending, instructions...)
		return
	}

	c.writeLocked(instructions)
}

func (c *Consumer) writeLocked(instructions []joblogs.Instruction) {
	for _, in := range instructions {
		var err error
		switch in.Kind {
		case joblogs.KindLine, joblogs.KindStatus:
			err = c.sink.WriteLine(in.Text)
		case joblogs.KindBytes:
			err = c.sink.WriteBytes(in.Data)
		}

		if err != nil {
			c.logger.Error("failed to write to sink", zap.Stringer("kind", in.Kind), zap.Error(err))
		}
	}
}

func (c *Consumer) markDone() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}
