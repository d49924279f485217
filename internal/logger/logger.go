package logger

import (
	"context"

	"go.elastic.co/ecszap"
	"go.uber.org/zap"
)

var baseLogger = zap.NewNop()

// Init builds the process logger.  Production environments get the JSON
// production config; anything else uses the development config.  Both are
// wrapped with the ECS encoder so logs can be shipped to Elastic as-is.
// The returned func flushes buffered entries and belongs in a defer in main.
func Init(env string) (func() error, error) {
	config := zap.NewDevelopmentConfig()
	if env == "prod" || env == "production" {
		config = zap.NewProductionConfig()
	}
	config.EncoderConfig = ecszap.ECSCompatibleEncoderConfig(config.EncoderConfig)

	l, err := config.Build(ecszap.WrapCoreOption())
	if err != nil {
		return nil, err
	}
	baseLogger = l

	return func() error {
		return baseLogger.Sync()
	}, nil
}

// Log returns the process logger, a no-op logger until Init succeeds.
func Log() *zap.Logger {
	return baseLogger
}

// With returns a child of the process logger carrying fields.
func With(fields ...zap.Field) *zap.Logger {
	return baseLogger.With(fields...)
}

type loggerKey struct{}

// NewContext returns a copy of parent that carries logger, typically one
// already tagged with the request id.
func NewContext(parent context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(parent, loggerKey{}, logger)
}

// FromContext returns the logger stored by NewContext, or the process
// logger when ctx carries none.
func FromContext(ctx context.Context) *zap.Logger {
	log, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if ok {
		return log
	}
	return baseLogger
}
