package joblogs

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/jobstream"
)

// EventHandler receives every frame of the stream, in receive order.
type EventHandler func(frame *joblogsmodel.Frame)

// StatusHandler receives the final status of the stream.
type StatusHandler func(st *status.Status)

// Option configures a Session.
type Option func(*Session)

// WithEventHandler sets the handler receiving stream frames.
func WithEventHandler(h EventHandler) Option {
	return func(s *Session) {
		s.onEvent = h
	}
}

// WithStatusHandler sets the handler receiving the final stream status.
func WithStatusHandler(h StatusHandler) Option {
	return func(s *Session) {
		s.onStatus = h
	}
}

// Session is a single open job stream.
//
// Frames and the final status are delivered from one goroutine, so handlers
// observe them in exactly the order the server sent them. At most one status
// is delivered and nothing is delivered after it or after Close.
type Session struct {
	jobID string

	mu       sync.Mutex
	onEvent  EventHandler
	onStatus StatusHandler

	closed    atomic.Bool
	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Open starts streaming the events of the job and returns immediately.
// Handlers passed as options are installed before the first receive.
func Open(ctx context.Context, client jobstream.JobServiceClient, jobID string, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		jobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run(ctx, client)

	return s
}

// JobID returns the ID of the streamed job.
func (s *Session) JobID() string {
	return s.jobID
}

// OnEvent replaces the event handler. The last registration wins.
func (s *Session) OnEvent(h EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvent = h
}

// OnStatus replaces the status handler. The last registration wins.
func (s *Session) OnStatus(h StatusHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = h
}

// Done is closed once the stream has terminated and no more callbacks will fire.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close cancels the stream. It is safe to call multiple times and before any event arrived.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
	return nil
}

func (s *Session) run(ctx context.Context, client jobstream.JobServiceClient) {
	defer close(s.done)
	defer s.cancel()

	stream, err := client.GetJobStream(ctx, &joblogsmodel.GetJobStreamRequest{JobID: s.jobID})
	if err != nil {
		s.deliverStatus(status.Convert(err))
		return
	}

	for {
		frame, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.deliverStatus(status.New(codes.OK, "stream ended"))
				return
			}

			s.deliverStatus(status.Convert(err))
			return
		}

		s.deliverEvent(frame)
	}
}

func (s *Session) deliverEvent(frame *joblogsmodel.Frame) {
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	h := s.onEvent
	s.mu.Unlock()

	if h != nil {
		h(frame)
	}
}

func (s *Session) deliverStatus(st *status.Status) {
	// A closed session cancelled its own stream, the resulting status carries no information.
	if s.closed.Load() {
		return
	}

	s.mu.Lock()
	h := s.onStatus
	s.mu.Unlock()

	if h != nil {
		h(st)
	}
}
