package middlewares

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// loggingInterceptor adapts the zap logger to the go-grpc-middleware logging interface.
//
//nolint:errcheck,forcetypeassert // Keys are always strings in go-grpc-middleware fields.
func loggingInterceptor(l *zap.Logger) logging.Logger {
	return logging.LoggerFunc(func(ctx context.Context, lvl logging.Level, _ string, fields ...any) {
		method, _ := grpc.Method(ctx)

		// Health probes are too frequent to be useful in the logs.
		if strings.HasPrefix(method, "/"+grpc_health_v1.Health_ServiceDesc.ServiceName+"/") {
			return
		}

		f := make([]zap.Field, 0, len(fields)/2)
		for i := 0; i+1 < len(fields); i += 2 {
			key := fields[i].(string)

			switch v := fields[i+1].(type) {
			case string:
				f = append(f, zap.String(key, v))
			case int:
				f = append(f, zap.Int(key, v))
			case bool:
				f = append(f, zap.Bool(key, v))
			case error:
				f = append(f, zap.NamedError(key, v))
			default:
				f = append(f, zap.Any(key, v))
			}
		}

		logger := l.WithOptions(zap.AddCallerSkip(1)).With(f...)

		msg := "unknown method"
		if splits := strings.Split(method, "/"); len(splits) == 3 {
			msg = splits[2]
		}

		switch lvl {
		case logging.LevelDebug:
			logger.Debug(msg)
		case logging.LevelWarn:
			logger.Warn(msg)
		case logging.LevelError:
			logger.Error(msg)
		default:
			logger.Info(msg)
		}
	})
}

// serverCodeToLevel maps gRPC status codes to logging levels.
// Streams are routinely cancelled by consumers that stop watching a job, so Canceled is not an error.
func serverCodeToLevel(code codes.Code) logging.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return logging.LevelInfo

	// Client errors
	case codes.InvalidArgument,
		codes.NotFound,
		codes.AlreadyExists,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.FailedPrecondition,
		codes.OutOfRange:
		return logging.LevelWarn

	// Server errors
	case codes.Unknown,
		codes.DeadlineExceeded,
		codes.ResourceExhausted,
		codes.Aborted,
		codes.Unimplemented,
		codes.Internal,
		codes.Unavailable,
		codes.DataLoss:
		return logging.LevelError

	default:
		return logging.LevelInfo
	}
}
