package logger

import (
	"context"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// loggerKey is the key for the logger in the context.
type loggerKey struct{}

// Init initializes a new logger writing JSON to out and, when lp is set, to the OTLP log exporter.
// The logger is stored in the returned context.
func Init(ctx context.Context, serviceInfo string, lp *sdklog.LoggerProvider, out zapcore.WriteSyncer) (context.Context, *zap.Logger) {
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), out, zapcore.InfoLevel),
	}
	if lp != nil {
		cores = append(cores, otelzap.NewCore(serviceInfo, otelzap.WithLoggerProvider(lp)))
	}

	logger := zap.New(zapcore.NewTee(cores...))

	return WithLogger(ctx, logger), logger
}

// WithLogger returns a copy of ctx carrying the logger.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context.
func FromContext(ctx context.Context) *zap.Logger {
	value := ctx.Value(loggerKey{})
	if value == nil {
		return zap.NewNop()
	}

	logger, ok := value.(*zap.Logger)
	if !ok {
		return zap.NewNop()
	}

	return logger
}
