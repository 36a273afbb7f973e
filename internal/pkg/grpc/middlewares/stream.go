package middlewares

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	loggerpkg "github.com/hitesh22rana/logterminal/internal/pkg/logger"
)

// WrappedServerStream implements grpc.ServerStream and wraps the original stream to provide a custom context.
//
//nolint:containedctx // WrappedServerStream is a wrapper around grpc.ServerStream that allows us to modify the context.
type WrappedServerStream struct {
	grpc.ServerStream
	Ctx context.Context
}

// Context returns the context of the wrapped server stream.
func (w *WrappedServerStream) Context() context.Context {
	return w.Ctx
}

// StreamContextLoggerInterceptor stores the logger in the stream context,
// tagged with the method being served.
func StreamContextLoggerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		return handler(srv, &WrappedServerStream{
			ServerStream: stream,
			Ctx:          loggerpkg.WithLogger(stream.Context(), logger.With(zap.String("method", info.FullMethod))),
		})
	}
}

// StreamLoggingInterceptor returns a gRPC stream interceptor that logs the requests and responses.
// It uses zap logger to log the messages.
func StreamLoggingInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return logging.StreamServerInterceptor(
		loggingInterceptor(logger),
		[]logging.Option{
			// Log based on status code
			logging.WithLevels(serverCodeToLevel),

			// Only log when a call starts and finishes
			logging.WithLogOnEvents(
				logging.StartCall,
				logging.FinishCall,
			),

			logging.WithFieldsFromContext(fieldsFromContext),
		}...,
	)
}

// UnaryLoggingInterceptor returns a gRPC unary interceptor that logs the requests and responses.
func UnaryLoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return logging.UnaryServerInterceptor(
		loggingInterceptor(logger),
		[]logging.Option{
			logging.WithLevels(serverCodeToLevel),
			logging.WithLogOnEvents(
				logging.FinishCall,
			),
			logging.WithFieldsFromContext(fieldsFromContext),
		}...,
	)
}

// fieldsFromContext adds the trace and span IDs so logs can be correlated with traces.
func fieldsFromContext(ctx context.Context) logging.Fields {
	fields := logging.Fields{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		fields = append(fields,
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
		)
	}

	if method, ok := grpc.Method(ctx); ok {
		if parts := strings.Split(method, "/"); len(parts) > 1 {
			fields = append(fields, "service", parts[1])
		}
	}

	return fields
}
