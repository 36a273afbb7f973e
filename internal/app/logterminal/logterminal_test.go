package logterminal_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/logterminal/internal/app/logterminal"
	joblogsmodel "github.com/hitesh22rana/logterminal/internal/model/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/grpc/codec"
	"github.com/hitesh22rana/logterminal/internal/pkg/joblogs"
	"github.com/hitesh22rana/logterminal/internal/pkg/terminal"
)

type recvResult struct {
	frame *joblogsmodel.Frame
	err   error
}

// fakeStream keeps delivering scripted results even after its context is
// cancelled, like a transport that does not stop callbacks on close.
type fakeStream struct {
	grpc.ClientStream
	results chan recvResult
}

func (s *fakeStream) Recv() (*joblogsmodel.Frame, error) {
	r := <-s.results
	return r.frame, r.err
}

type fakeClient struct {
	results chan recvResult
}

func newFakeClient() *fakeClient {
	return &fakeClient{results: make(chan recvResult, 32)}
}

func (c *fakeClient) GetJobStream(
	context.Context,
	*joblogsmodel.GetJobStreamRequest,
	...grpc.CallOption,
) (grpc.ServerStreamingClient[joblogsmodel.Frame], error) {
	return &fakeStream{results: c.results}, nil
}

func (c *fakeClient) send(t *testing.T, res *joblogsmodel.GetJobStreamResponse) {
	t.Helper()

	data, err := codec.Marshal(res)
	require.NoError(t, err)
	c.results <- recvResult{frame: &joblogsmodel.Frame{Data: data}}
}

func (c *fakeClient) sendRaw(data []byte) {
	c.results <- recvResult{frame: &joblogsmodel.Frame{Data: data}}
}

func (c *fakeClient) end(err error) {
	c.results <- recvResult{err: err}
}

type op struct {
	kind string
	text string
	data []byte
}

type recordingSink struct {
	mu       sync.Mutex
	ops      []op
	openErr  error
	disposed int
}

func (s *recordingSink) Open(io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openErr != nil {
		return s.openErr
	}
	s.ops = append(s.ops, op{kind: "open"})
	return nil
}

func (s *recordingSink) WriteLine(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op{kind: "line", text: text})
	return nil
}

func (s *recordingSink) WriteBytes(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op{kind: "bytes", data: append([]byte(nil), data...)})
	return nil
}

func (s *recordingSink) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed++
	return nil
}

func (s *recordingSink) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, o := range s.ops {
		if o.kind == "line" {
			out = append(out, o.text)
		}
	}
	return out
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ops)
}

func (s *recordingSink) snapshot() []op {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]op(nil), s.ops...)
}

func terminalEvent(lines ...*joblogsmodel.TerminalLine) *joblogsmodel.GetJobStreamResponse {
	return &joblogsmodel.GetJobStreamResponse{
		Terminal: &joblogsmodel.TerminalEvent{Terminal: &joblogsmodel.Terminal{Events: lines}},
	}
}

func unavailable() *joblogsmodel.GetJobStreamResponse {
	return &joblogsmodel.GetJobStreamResponse{Terminal: &joblogsmodel.TerminalEvent{}}
}

func line(msg string) *joblogsmodel.TerminalLine {
	return &joblogsmodel.TerminalLine{Line: &joblogsmodel.Line{Msg: msg}}
}

func step(output ...byte) *joblogsmodel.TerminalLine {
	return &joblogsmodel.TerminalLine{Step: &joblogsmodel.Step{Output: output}}
}

func waitDone(t *testing.T, c *logterminal.Consumer) {
	t.Helper()

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not finish")
	}
}

func TestConsumer_UnavailableScenario(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	c := logterminal.New(client, nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, unavailable())
	client.end(io.EOF)
	waitDone(t, c)

	assert.Equal(t, []string{
		"Welcome to Waypoint...",
		"Logs are no longer available for this operation",
	}, sink.lines())

	require.NoError(t, c.Teardown())
	assert.Equal(t, 1, sink.disposed)
}

func TestConsumer_WritesInArrivalOrder(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	c := logterminal.New(client, nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, terminalEvent(line("building"), step('a', 'b')))
	client.send(t, &joblogsmodel.GetJobStreamResponse{State: &joblogsmodel.StateEvent{Current: "RUNNING"}})
	client.sendRaw([]byte{0xff, 0xff})
	client.send(t, terminalEvent(step(0xE2, 0x9C)))
	client.send(t, terminalEvent(step(0x93), line(""), line("build succeeded")))
	client.end(io.EOF)
	waitDone(t, c)

	assert.Equal(t, []op{
		{kind: "open"},
		{kind: "bytes", data: terminal.ColorMarker(terminal.UIGray400)},
		{kind: "line", text: logterminal.DefaultGreeting},
		{kind: "line", text: "building"},
		{kind: "bytes", data: []byte("ab")},
		{kind: "bytes", data: []byte{0xE2, 0x9C}},
		{kind: "bytes", data: []byte{0x93}},
		{kind: "line", text: "build succeeded"},
	}, sink.snapshot())
}

func TestConsumer_OutputBeforeAttachFollowsGreeting(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	c := logterminal.New(client, &logterminal.Config{Greeting: "hello", PrefixMarker: []byte{}})
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, terminalEvent(line("early")))
	client.send(t, unavailable())
	client.end(io.EOF)
	waitDone(t, c)

	require.NoError(t, c.Attach(sink, io.Discard))
	assert.Equal(t, []string{"hello", "early", joblogs.UnavailableMessage}, sink.lines())
}

func TestConsumer_TransportError(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	c := logterminal.New(client, nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, terminalEvent(line("partial")))
	client.end(status.Error(codes.Unavailable, "connection reset"))
	waitDone(t, c)

	assert.Equal(t, []string{
		logterminal.DefaultGreeting,
		"partial",
		"Log stream failed: Unavailable: connection reset",
	}, sink.lines())
}

func TestConsumer_ParentContextCancelled(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(t.Context())
	c := logterminal.New(client, nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Start(ctx, "job-123"))

	client.send(t, terminalEvent(line("building")))
	cancel()
	client.end(status.FromContextError(ctx.Err()).Err())
	waitDone(t, c)

	require.NoError(t, c.Teardown())
	assert.Equal(t, []string{logterminal.DefaultGreeting, "building"}, sink.lines())
	assert.Equal(t, 1, sink.disposed)
}

func TestConsumer_JobID(t *testing.T) {
	c := logterminal.New(newFakeClient(), nil)
	defer c.Teardown()

	assert.Empty(t, c.JobID())
	require.NoError(t, c.Start(t.Context(), "job-123"))
	assert.Equal(t, "job-123", c.JobID())
}

func TestConsumer_NoWritesAfterTeardown(t *testing.T) {
	client := newFakeClient()
	sink := &recordingSink{}

	c := logterminal.New(client, nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, terminalEvent(line("before")))
	require.Eventually(t, func() bool {
		return len(sink.lines()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Teardown())
	waitDone(t, c)
	written := sink.count()

	client.send(t, terminalEvent(line("after")))
	client.end(status.Error(codes.Internal, "late failure"))

	assert.Never(t, func() bool {
		return sink.count() != written
	}, 200*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, c.Teardown())
	assert.Equal(t, 1, sink.disposed)
	assert.Equal(t, written, sink.count())
}

func TestConsumer_Lifecycle(t *testing.T) {
	tests := []struct {
		name  string
		run   func(c *logterminal.Consumer, sink *recordingSink) error
		isErr error
		code  codes.Code
	}{
		{
			name: "teardown before start",
			run: func(c *logterminal.Consumer, _ *recordingSink) error {
				if err := c.Teardown(); err != nil {
					return err
				}
				return c.Teardown()
			},
		},
		{
			name: "start after teardown",
			run: func(c *logterminal.Consumer, _ *recordingSink) error {
				if err := c.Teardown(); err != nil {
					return err
				}
				return c.Start(t.Context(), "job-123")
			},
			isErr: logterminal.ErrTornDown,
		},
		{
			name: "attach after teardown",
			run: func(c *logterminal.Consumer, sink *recordingSink) error {
				if err := c.Teardown(); err != nil {
					return err
				}
				return c.Attach(sink, io.Discard)
			},
			isErr: logterminal.ErrTornDown,
		},
		{
			name: "start twice",
			run: func(c *logterminal.Consumer, _ *recordingSink) error {
				if err := c.Start(t.Context(), "job-123"); err != nil {
					return err
				}
				return c.Start(t.Context(), "job-123")
			},
			isErr: logterminal.ErrAlreadyStarted,
		},
		{
			name: "attach twice",
			run: func(c *logterminal.Consumer, sink *recordingSink) error {
				if err := c.Attach(sink, io.Discard); err != nil {
					return err
				}
				return c.Attach(&recordingSink{}, io.Discard)
			},
			isErr: logterminal.ErrAlreadyAttached,
		},
		{
			name: "empty job ID",
			run: func(c *logterminal.Consumer, _ *recordingSink) error {
				return c.Start(t.Context(), "")
			},
			code: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := logterminal.New(newFakeClient(), nil)
			defer c.Teardown()

			err := tt.run(c, &recordingSink{})
			switch {
			case tt.isErr != nil:
				assert.ErrorIs(t, err, tt.isErr)
			case tt.code != codes.OK:
				assert.Equal(t, tt.code, status.Code(err))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestConsumer_TeardownWithoutStartDisposesSink(t *testing.T) {
	sink := &recordingSink{}

	c := logterminal.New(newFakeClient(), nil)
	require.NoError(t, c.Attach(sink, io.Discard))
	require.NoError(t, c.Teardown())
	require.NoError(t, c.Teardown())

	assert.Equal(t, 1, sink.disposed)
	waitDone(t, c)
}

func TestConsumer_SinkOpenFailure(t *testing.T) {
	openErr := errors.New("no surface")
	sink := &recordingSink{openErr: openErr}

	c := logterminal.New(newFakeClient(), nil)
	err := c.Attach(sink, io.Discard)
	require.ErrorIs(t, err, openErr)

	require.NoError(t, c.Teardown())
	assert.Zero(t, sink.disposed)
}

func TestConsumer_TerminalSink(t *testing.T) {
	client := newFakeClient()

	var buf bytes.Buffer
	c := logterminal.New(client, &logterminal.Config{PrefixMarker: []byte{}})
	require.NoError(t, c.Attach(terminal.New(), &buf))
	require.NoError(t, c.Start(t.Context(), "job-123"))

	client.send(t, terminalEvent(line("checking"), step(0xE2, 0x9C)))
	client.send(t, terminalEvent(step(0x93, '\r', '\n')))
	client.end(io.EOF)
	waitDone(t, c)
	require.NoError(t, c.Teardown())

	assert.Equal(t, "Welcome to Waypoint...\r\nchecking\r\n✓\r\n", buf.String())
}
