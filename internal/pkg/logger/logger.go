package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var globalLogger *slog.Logger

// ParseLevel maps a config level string onto slog levels. Unknown values read as INFO.
func ParseLevel(levelStr string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level <= slog.LevelDebug:
		return zapcore.DebugLevel
	case level <= slog.LevelInfo:
		return zapcore.InfoLevel
	case level <= slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// InitZap builds a zap logger for the given level and installs it behind the global slog logger.
// The returned zap logger must be synced by the caller on shutdown.
func InitZap(levelStr string, production bool) (*zap.Logger, error) {
	level, ok := ParseLevel(levelStr)

	var zapCfg zap.Config
	if production {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel(level))

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	handler := slogzap.Option{Level: level, Logger: zapLogger}.NewZapHandler()
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	if !ok {
		globalLogger.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
	return zapLogger, nil
}

// InitSlog initializes the global slog logger with a JSON handler on stdout.
// Used before the configuration is loaded and by tools that don't need zap.
func InitSlog(levelStr string) {
	level, ok := ParseLevel(levelStr)
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
	if !ok {
		globalLogger.Warn("Invalid log level string, defaulting to INFO", "input", levelStr)
	}
}

func ensureInitialized() {
	if globalLogger == nil {
		InitSlog("INFO")
	}
}

func log(level slog.Level, msg string, args ...any) {
	ensureInitialized()
	ctx := context.Background()
	if globalLogger.Enabled(ctx, level) {
		globalLogger.Log(ctx, level, msg, args...)
	}
}

// Debug logs a message at DebugLevel.
func Debug(msg string, args ...any) { log(slog.LevelDebug, msg, args...) }

// Info logs a message at InfoLevel.
func Info(msg string, args ...any) { log(slog.LevelInfo, msg, args...) }

// Warn logs a message at WarnLevel.
func Warn(msg string, args ...any) { log(slog.LevelWarn, msg, args...) }

// Error logs a message at ErrorLevel.
func Error(msg string, args ...any) { log(slog.LevelError, msg, args...) }

// Fatal logs a message at ErrorLevel then exits.
func Fatal(msg string, args ...any) {
	ensureInitialized()
	globalLogger.Error(msg, args...)
	os.Exit(1)
}
