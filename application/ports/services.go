package ports

import (
	"context"
	"time"

	"thoughtgraph/domain/events"
)

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// MetricsRecorder records protocol level metrics. Implementations must not
// fail the operation being measured.
type MetricsRecorder interface {
	// RecordOperation records duration and outcome of a named operation
	RecordOperation(ctx context.Context, operation string, duration time.Duration, err error)

	// RecordCount records a counter such as compensations or cascade warnings
	RecordCount(ctx context.Context, metric string, value float64, dimensions map[string]string)
}

// NoopMetrics discards everything
type NoopMetrics struct{}

func (NoopMetrics) RecordOperation(context.Context, string, time.Duration, error)   {}
func (NoopMetrics) RecordCount(context.Context, string, float64, map[string]string) {}

// NoopPublisher discards every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, events.DomainEvent) error        { return nil }
func (NoopPublisher) PublishBatch(context.Context, []events.DomainEvent) error { return nil }
