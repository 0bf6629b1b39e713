package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// statusPrefix marks a pipeline stage in the build output.
	statusPrefix = "-----> "
	// tipPrefix marks an advisory that never fails the build.
	tipPrefix = statusPrefix + "PRO TIP: "
)

var (
	// global is the shared logger instance used throughout the application.
	//nolint:gochecknoglobals // Logger is used all over the project, so it's okay.
	global *zap.SugaredLogger
	// defaultLevel is the minimum log level for messages to be processed.
	//nolint:gochecknoglobals // If the logging level is not set, the build will have no output.
	defaultLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
)

func init() { //nolint:gochecknoinits // If the logging level is not set, the build will have no output.
	SetLogger(New(os.Stdout, defaultLevel))
}

// New creates a *zap.SugaredLogger writing plain console lines to w.
// Colors are left out because build output usually ends up in a log file.
// Status and Tip lines are written bare, so the arrow starts the line.
func New(w io.Writer, level zapcore.LevelEnabler, options ...zap.Option) *zap.SugaredLogger {
	if level == nil {
		level = defaultLevel
	}

	if w == nil {
		w = os.Stdout
	}

	//nolint:exhaustruct // Default encoder configuration values are fine.
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		NameKey:          "logger",
		TimeKey:          "time",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: " ",
	})

	//nolint:exhaustruct // Only the message is printed.
	outputEncoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey: "message",
		LineEnding: zapcore.DefaultLineEnding,
	})

	sink := zapcore.Lock(zapcore.AddSync(w))
	core := &outputCore{
		zapcore.NewCore(encoder, sink, level),
		zapcore.NewCore(outputEncoder, sink, level),
	}

	return zap.New(core, options...).Sugar()
}

// ParseLogLevel converts string input to zap log level.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// SetLogger sets the global logger.
// This function is not thread-safe.
func SetLogger(l *zap.SugaredLogger) {
	global = l
}

// SetLevel sets the log level for the global logger.
func SetLevel(level zapcore.Level) {
	//nolint:errcheck // Sync errors on stdout are not actionable.
	defer global.Sync()

	defaultLevel.SetLevel(level)
}

// Status announces a pipeline stage ("-----> Installing dependencies").
func Status(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Infof(statusPrefix+format, args...)
}

// Tip logs an advisory. Tips never fail the build.
func Tip(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warnf(tipPrefix+format, args...)
}

// Debug writes a debug level message using the logger from the context.
func Debug(ctx context.Context, args ...any) {
	FromContext(ctx).Debug(args...)
}

// DebugKV writes a message and key-value pairs
// at the debug level using the logger from the context.
func DebugKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Debugw(message, kvs...)
}

// InfoKV writes a message and key-value pairs
// at the information level using the logger from the context.
func InfoKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Infow(message, kvs...)
}

// WarnKV writes a message and key-value pairs
// at the warning level using the logger from the context.
func WarnKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Warnw(message, kvs...)
}

// ErrorKV writes a message and key-value pairs
// at the error level using the logger from the context.
func ErrorKV(ctx context.Context, message string, kvs ...any) {
	FromContext(ctx).Errorw(message, kvs...)
}
