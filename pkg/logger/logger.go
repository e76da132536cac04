package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
)

const (
	LevelDebug string = "DEBUG"
	LevelInfo  string = "INFO"
	LevelWarn  string = "WARN"
	LevelError string = "ERROR"
)

type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, err error, args ...any)
	GetSlogLogger() *slog.Logger
}

type logger struct {
	slog *slog.Logger
}

// InitLogger initializes a JSON logger writing to stdout with service name and log level.
func InitLogger(serviceName, logLevel string) Logger {
	return New(os.Stdout, serviceName, logLevel)
}

// New builds a logger writing to w. Tests pass io.Discard.
func New(w io.Writer, serviceName, logLevel string) Logger {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	handler := &contextHandler{
		handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: parseLevel(logLevel),
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// только верхний уровень, вложенные группы (error.msg) не трогаем
				if len(groups) > 0 {
					return a
				}
				if a.Key == slog.MessageKey {
					return slog.Attr{Key: "message", Value: a.Value}
				}
				// ISO 8601
				if a.Key == slog.TimeKey {
					if t, ok := a.Value.Any().(time.Time); ok {
						return slog.Attr{Key: "timestamp", Value: slog.StringValue(t.Format(time.RFC3339))}
					}
				}
				return a
			},
		}),
	}

	base := slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("hostname", hostname),
	)

	return &logger{
		slog: base,
	}
}

func parseLevel(lvl string) *slog.LevelVar {
	level := new(slog.LevelVar)
	switch lvl {
	case LevelInfo:
		level.Set(slog.LevelInfo)
	case LevelWarn:
		level.Set(slog.LevelWarn)
	case LevelError:
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelDebug)
	}
	return level
}

// contextHandler injects LogCtx values stored in the context into every record.
type contextHandler struct {
	handler slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.handler.Enabled(ctx, lvl)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if c, ok := ctx.Value(wrap.LogCtxKey).(wrap.LogCtx); ok {
		for _, attr := range []struct{ key, val string }{
			{"action", c.Action},
			{"user_id", c.UserID},
			{"request_id", c.RequestID},
			{"ride_id", c.RideID},
			{"driver_id", c.DriverID},
			{"wallet_id", c.WalletID},
			{"trace_id", c.TraceID},
		} {
			if attr.val != "" {
				r.AddAttrs(slog.String(attr.key, attr.val))
			}
		}
	}

	return h.handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{handler: h.handler.WithGroup(name)}
}

func (l *logger) Debug(ctx context.Context, msg string, args ...any) {
	l.slog.DebugContext(ctx, msg, args...)
}

func (l *logger) Info(ctx context.Context, msg string, args ...any) {
	l.slog.InfoContext(ctx, msg, args...)
}

func (l *logger) Warn(ctx context.Context, msg string, args ...any) {
	l.slog.WarnContext(ctx, msg, args...)
}

func (l *logger) Error(ctx context.Context, msg string, err error, args ...any) {
	errMsg := "<nil>"
	if err != nil {
		errMsg = err.Error()
	}
	attrs := []any{
		"error", slog.GroupValue(
			slog.String("msg", errMsg),
		),
	}
	attrs = append(attrs, args...)
	l.slog.ErrorContext(ctx, msg, attrs...)
}

func (l *logger) GetSlogLogger() *slog.Logger {
	return l.slog
}

// ValidateLogLevel validates if the given string is valid logger level(DEBUG, INFO, WARN, ERROR).
func ValidateLogLevel(lvl string) bool {
	switch lvl {
	case LevelDebug, LevelError, LevelWarn, LevelInfo:
		return true
	default:
		return false
	}
}
