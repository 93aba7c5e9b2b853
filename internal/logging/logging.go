// Package logging provides structured logging with Sentry integration and
// GitHub Actions annotations.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config holds logging configuration.
type Config struct {
	Level     slog.Level
	SentryDSN string
	Env       string // "development", "production", "ci"
	Version   string
	LogFile   string    // mirrored alongside Output when set
	Output    io.Writer // defaults to stderr

	// Annotations receives GitHub Actions workflow commands for warnings and
	// errors. Nil outside of Actions.
	Annotations io.Writer
}

// Logger wraps slog.Logger with Sentry integration.
type Logger struct {
	*slog.Logger
	sentryEnabled bool
	logFile       *os.File // nil if not logging to a file
}

var defaultLogger *Logger

// Init initializes the global logger with the given config.
func Init(cfg Config) error {
	sentryEnabled := false
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Env,
			Release:     "releasebridge@" + cfg.Version,
		})
		if err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		sentryEnabled = true
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	var logFile *os.File

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log dir: %w", err)
		}

		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		// The file gets a copy; the console keeps its output.
		output = io.MultiWriter(output, f)
		logFile = f
	}

	handler := &reportingHandler{
		Handler: slog.NewTextHandler(output, &slog.HandlerOptions{
			Level: cfg.Level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// CI logs are compared across runners, so stamp in UTC
				if a.Key == slog.TimeKey {
					if t, ok := a.Value.Any().(time.Time); ok {
						a.Value = slog.StringValue(t.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
					}
				}
				return a
			},
		}),
		sentryEnabled: sentryEnabled,
		annotations:   cfg.Annotations,
	}

	defaultLogger = &Logger{
		Logger:        slog.New(handler),
		sentryEnabled: sentryEnabled,
		logFile:       logFile,
	}

	slog.SetDefault(defaultLogger.Logger)

	return nil
}

// SetRunID tags every subsequent log line and Sentry event with the run id.
func SetRunID(runID string) {
	l := Default()
	defaultLogger = &Logger{
		Logger:        l.Logger.With("run_id", runID),
		sentryEnabled: l.sentryEnabled,
		logFile:       l.logFile,
	}
	if defaultLogger.sentryEnabled {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTag("run_id", runID)
		})
	}
}

// Flush flushes any buffered events to Sentry and closes the log file. Call before exit.
func Flush(timeout time.Duration) {
	if defaultLogger == nil {
		return
	}
	if defaultLogger.sentryEnabled {
		sentry.Flush(timeout)
	}
	if defaultLogger.logFile != nil {
		defaultLogger.logFile.Sync()
		defaultLogger.logFile.Close()
		defaultLogger.logFile = nil
	}
}

// Default returns the default logger.
func Default() *Logger {
	if defaultLogger == nil {
		// Not initialized: plain slog, nothing forwarded
		return &Logger{Logger: slog.Default()}
	}
	return defaultLogger
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reportingHandler wraps an slog.Handler, forwarding errors to Sentry and
// warnings and errors to the Actions annotation stream.
type reportingHandler struct {
	slog.Handler
	sentryEnabled bool
	annotations   io.Writer
}

func (h *reportingHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always log via the underlying handler
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}

	if h.annotations != nil && r.Level >= slog.LevelWarn {
		writeAnnotation(h.annotations, r)
	}
	if h.sentryEnabled && r.Level >= slog.LevelError && ctx.Value(skipSentryKey{}) == nil {
		h.sendToSentry(r)
	}

	return nil
}

func (h *reportingHandler) sendToSentry(r slog.Record) {
	event := sentry.NewEvent()
	event.Level = slogLevelToSentry(r.Level)
	event.Message = r.Message
	event.Timestamp = r.Time

	// Identifiers become tags so runs and tasks are searchable
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "task", "item", "range", "board_id":
			event.Tags[a.Key] = a.Value.String()
		default:
			event.Extra[a.Key] = a.Value.Any()
		}
		return true
	})

	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		event.Exception = []sentry.Exception{{
			Type:  "LogError",
			Value: r.Message,
			Stacktrace: &sentry.Stacktrace{
				Frames: []sentry.Frame{{
					Filename: frame.File,
					Function: frame.Function,
					Lineno:   frame.Line,
				}},
			},
		}}
	}

	sentry.CaptureEvent(event)
}

func (h *reportingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &reportingHandler{
		Handler:       h.Handler.WithAttrs(attrs),
		sentryEnabled: h.sentryEnabled,
		annotations:   h.annotations,
	}
}

func (h *reportingHandler) WithGroup(name string) slog.Handler {
	return &reportingHandler{
		Handler:       h.Handler.WithGroup(name),
		sentryEnabled: h.sentryEnabled,
		annotations:   h.annotations,
	}
}

func slogLevelToSentry(level slog.Level) sentry.Level {
	switch {
	case level >= slog.LevelError:
		return sentry.LevelError
	case level >= slog.LevelWarn:
		return sentry.LevelWarning
	case level >= slog.LevelInfo:
		return sentry.LevelInfo
	default:
		return sentry.LevelDebug
	}
}

// Convenience functions that use the default logger

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Default().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Default().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Default().Warn(msg, args...)
}

// Error logs at error level and sends to Sentry.
func Error(msg string, args ...any) {
	Default().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return Default().With(args...)
}

// CaptureError reports the error that ends a run.
func CaptureError(err error, ctx ...any) {
	if defaultLogger != nil && defaultLogger.sentryEnabled {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("outcome", "fatal")
			setExtras(scope, ctx)
			sentry.CaptureException(err)
		})
	}
	args := append([]any{"error", err}, ctx...)
	logWithoutSentry(slog.LevelError, "run failed", args...)
}

// CapturePanic captures a panic value and sends it to Sentry.
// It should be called from a recover() handler.
func CapturePanic(panicValue any, ctx ...any) any {
	if panicValue == nil {
		return nil
	}

	msg := fmt.Sprintf("panic: %v", panicValue)

	args := append([]any{"panic", panicValue}, ctx...)
	logWithoutSentry(slog.LevelError, msg, args...)

	if defaultLogger != nil && defaultLogger.sentryEnabled {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(sentry.LevelFatal)
			scope.SetTag("type", "panic")
			setExtras(scope, ctx)

			if err, ok := panicValue.(error); ok {
				sentry.CaptureException(err)
			} else {
				sentry.CaptureMessage(msg)
			}
		})

		// Flush immediately since the process exits next
		sentry.Flush(2 * time.Second)
	}

	return panicValue
}

// skipSentryKey marks records whose error was already captured directly.
type skipSentryKey struct{}

func logWithoutSentry(level slog.Level, msg string, args ...any) {
	ctx := context.WithValue(context.Background(), skipSentryKey{}, true)
	Default().Log(ctx, level, msg, args...)
}

func setExtras(scope *sentry.Scope, ctx []any) {
	for i := 0; i < len(ctx)-1; i += 2 {
		if key, ok := ctx[i].(string); ok {
			scope.SetExtra(key, ctx[i+1])
		}
	}
}
