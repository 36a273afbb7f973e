package client

import (
	"context"
	"errors"
	"net"

	"github.com/eapache/go-resiliency/breaker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func circuitBreakerUnaryInterceptor(cb *breaker.Breaker) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		var rpcErr error

		cbErr := cb.Run(func() error {
			rpcErr = invoker(ctx, method, req, reply, cc, opts...)
			if isCircuitBreakerError(rpcErr) {
				return rpcErr
			}
			return nil
		})

		// The RPC error takes precedence over the breaker's own error.
		if cbErr != nil && rpcErr == nil {
			return breakerError(cbErr)
		}

		return rpcErr
	}
}

func circuitBreakerStreamInterceptor(cb *breaker.Breaker) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		var (
			stream    grpc.ClientStream
			streamErr error
		)

		cbErr := cb.Run(func() error {
			stream, streamErr = streamer(ctx, desc, cc, method, opts...)
			if isCircuitBreakerError(streamErr) {
				return streamErr
			}
			return nil
		})

		// Without an RPC error, a breaker error means the breaker is open and the call never ran.
		if cbErr != nil && streamErr == nil {
			return nil, breakerError(cbErr)
		}

		return stream, streamErr
	}
}

// breakerError converts an open breaker into a retryable gRPC status.
func breakerError(err error) error {
	if errors.Is(err, breaker.ErrBreakerOpen) {
		return status.Error(codes.Unavailable, "circuit breaker is open")
	}
	return err
}

// isCircuitBreakerError reports whether an error counts against the circuit breaker:
// server faults, deadlines and network timeouts. Cancellation is caller-initiated,
// as when a consumer stops watching a job, and is never counted.
func isCircuitBreakerError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	//nolint:exhaustive // Only treating some codes as circuit-breaker errors
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded,
			codes.ResourceExhausted,
			codes.Aborted,
			codes.Unimplemented,
			codes.Internal,
			codes.Unavailable,
			codes.DataLoss:
			return true
		default:
			return false
		}
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
