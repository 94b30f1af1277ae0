package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"thoughtgraph/application/ports"
	"thoughtgraph/domain/events"
	pkgerrors "thoughtgraph/pkg/errors"
)

// DefaultCallTimeout bounds a single store call when none is configured
const DefaultCallTimeout = 5 * time.Second

var tracer = otel.Tracer("thoughtgraph/application/services")

// callStore runs one store call under its own deadline derived from ctx.
// A call that fails because that deadline passed is reported as a timeout.
func callStore[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()
	result, err := fn(callCtx)
	return result, timedOut(ctx, callCtx, err)
}

// execStore is callStore for calls without a result
func execStore(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	callCtx, cancel := withCallTimeout(ctx, timeout)
	defer cancel()
	return timedOut(ctx, callCtx, fn(callCtx))
}

// timedOut maps a failure caused by the per-call deadline to a TimeoutError.
// Failures after the caller's own context ended are returned unchanged.
func timedOut(ctx, callCtx context.Context, err error) error {
	if err == nil || ctx.Err() != nil || !errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return err
	}
	operation := "store_call"
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		if op, ok := appErr.Details["operation"].(string); ok {
			operation = op
		}
	}
	return pkgerrors.NewTimeoutError(operation).WithCause(err)
}

func withCallTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// publish sends events after a successful mutation. Failures are logged and
// never surface to the caller.
func publish(ctx context.Context, publisher ports.EventPublisher, logger *zap.Logger, evts ...events.DomainEvent) {
	if publisher == nil || len(evts) == 0 {
		return
	}
	if err := publisher.PublishBatch(ctx, evts); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Error(err),
			zap.Int("eventCount", len(evts)),
			zap.String("eventType", evts[0].GetEventType()),
		)
	}
}
