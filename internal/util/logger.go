// Package util holds the process-wide logger and small helpers shared by
// every layer: structured logging, secret redaction, input sanitizing.
package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.Logger
	once         sync.Once
)

// Init builds the process logger once. Production gets sampled JSON without
// stacktraces; development gets colored console output. Later calls return
// the logger built by the first.
func Init(environment, level, format string) *zap.Logger {
	once.Do(func() {
		var cfg zap.Config
		if environment == "production" {
			cfg = zap.NewProductionConfig()
			cfg.DisableStacktrace = true
			cfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
			cfg.EncoderConfig.TimeKey = "timestamp"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		cfg.Level = zap.NewAtomicLevelAt(parseLogLevel(level))
		if format == "json" {
			cfg.Encoding = "json"
		} else {
			cfg.Encoding = "console"
		}
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		cfg.InitialFields = map[string]interface{}{"service": "admin-auth-service"}

		logger, err := cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
		if err != nil {
			panic("failed to initialize logger: " + err.Error())
		}

		globalLogger = logger
		zap.ReplaceGlobals(globalLogger)
	})
	return globalLogger
}

// Get returns the process logger, initializing a production-safe default if
// Init was never called (library use, tests).
func Get() *zap.Logger {
	if globalLogger == nil {
		return Init("production", "info", "json")
	}
	return globalLogger
}

// Sync flushes buffered entries. Called once on shutdown.
func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func parseLogLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	case "panic":
		return zapcore.PanicLevel
	default:
		return zapcore.InfoLevel
	}
}

func Debug(msg string, fields ...zap.Field) {
	Get().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Get().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Get().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Get().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Get().Fatal(msg, fields...)
}

// Field helpers so callers don't need a zap import for the common cases.

func String(key, value string) zap.Field {
	return zap.String(key, value)
}

func Bool(key string, value bool) zap.Field {
	return zap.Bool(key, value)
}

func Int(key string, value int) zap.Field {
	return zap.Int(key, value)
}

func Duration(key string, value time.Duration) zap.Field {
	return zap.Duration(key, value)
}

// ErrorField wraps an error as a field; named to avoid clashing with Error.
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}
