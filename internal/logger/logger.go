// Package logger builds the process logger and reports request events to it.
package logger

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/socialgraph/internal/eventbus"
	"github.com/hanpama/socialgraph/internal/events"
	"github.com/hanpama/socialgraph/internal/reqid"
)

// New returns a production zap logger. format is "json" or "text"; level
// "none" yields a no-op logger.
func New(format, level string) (*zap.Logger, error) {
	if level == "none" {
		return zap.NewNop(), nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.CallerKey = ""
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "json":
	case "text":
		cfg.Encoding = "console"
		cfg.DisableCaller = true
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return cfg.Build()
}

// MustNew is New that panics on a bad format or level.
func MustNew(format, level string) *zap.Logger {
	l, err := New(format, level)
	if err != nil {
		panic(err)
	}
	return l
}

func requestField(ctx context.Context) zap.Field {
	rid, _ := reqid.FromContext(ctx)
	return zap.String("request_id", rid)
}

// Subscribe logs request events published on the global bus.
func Subscribe(l *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			l.Info("http request",
				zap.String("request_id", e.RequestID),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				requestField(ctx),
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Int64("viewer", e.ViewerID),
				zap.Int("flushes", e.Flushes),
				zap.Duration("duration", e.Duration),
			}
			if len(e.Errors) > 0 {
				fields = append(fields, zap.Errors("errors", e.Errors))
				l.Warn("graphql operation failed", fields...)
				return
			}
			l.Info("graphql operation", fields...)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.LoaderFlush) {
			l.Debug("loader flush",
				requestField(ctx),
				zap.String("kind", e.Kind),
				zap.Int64s("ids", e.IDs),
				zap.Int("found", e.Found),
				zap.Error(e.Err),
				zap.Duration("duration", e.Duration),
			)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ConnectionFetch) {
			l.Debug("connection fetch",
				requestField(ctx),
				zap.String("relation", e.Relation),
				zap.Int64("source", e.SourceID),
				zap.Bool("backward", e.Backward),
				zap.Int("limit", e.Limit),
				zap.Int("rows", e.Rows),
				zap.Error(e.Err),
				zap.Duration("duration", e.Duration),
			)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.MutationApplied) {
			l.Info("mutation applied",
				requestField(ctx),
				zap.String("mutation", e.Name),
				zap.String("kind", e.Kind),
				zap.Int64("id", e.ID),
				zap.Int64("viewer", e.ViewerID),
			)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
