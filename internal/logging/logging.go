// Package logging builds the process logger and logs runtime events.
// Library packages never log; they publish events that Subscribe turns
// into log lines.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hanpama/graphrt/internal/eventbus"
	"github.com/hanpama/graphrt/internal/events"
	"github.com/hanpama/graphrt/internal/reqid"
)

// New builds a logger at level. Development selects the console encoder.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func requestField(ctx context.Context) zap.Field {
	if rid, ok := reqid.FromContext(ctx); ok {
		return zap.String("request_id", rid)
	}
	return zap.Skip()
}

// Subscribe logs events from the global bus with logger.
func Subscribe(logger *zap.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLStart) {
			logger.Debug("operation started",
				requestField(ctx),
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
			)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			fields := []zap.Field{
				requestField(ctx),
				zap.String("operation", e.OperationName),
				zap.String("type", e.OperationType),
				zap.Duration("duration", e.Duration),
				zap.Int("errors", len(e.Errors)),
			}
			if e.Aborted {
				logger.Error("operation aborted", append(fields, zap.Errors("causes", e.Errors))...)
				return
			}
			logger.Info("operation finished", fields...)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
			if e.Err != nil {
				logger.Warn("resolver failed",
					requestField(ctx),
					zap.String("coordinate", e.Coordinate),
					zap.String("kind", e.Kind),
					zap.Error(e.Err),
				)
				return
			}
			if e.Items > 1 {
				logger.Debug("batch flushed",
					requestField(ctx),
					zap.String("coordinate", e.Coordinate),
					zap.Int("size", e.Items),
					zap.Int("failed", e.Failed),
					zap.Duration("duration", e.Duration),
				)
			}
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.GRPCClientFinish) {
			logger.Debug("remote call",
				requestField(ctx),
				zap.String("method", e.Method),
				zap.String("target", e.Target),
				zap.String("coordinate", e.Coordinate),
				zap.Stringer("code", e.Code),
				zap.Duration("duration", e.Duration),
			)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.Bootstrap) {
			logger.Info("service bootstrapped",
				zap.Int("modules", e.Modules),
				zap.Int("bindings", e.Bindings),
				zap.Int("checkers", e.Checkers),
				zap.Int("requirements", e.Requirements),
				zap.Duration("duration", e.Duration),
			)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
