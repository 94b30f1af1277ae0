package observability

import (
	"context"
	"time"

	"thoughtgraph/application/ports"
)

// Recorders fans every measurement out to each recorder in order
type Recorders []ports.MetricsRecorder

func (rs Recorders) RecordOperation(ctx context.Context, operation string, duration time.Duration, err error) {
	for _, r := range rs {
		r.RecordOperation(ctx, operation, duration, err)
	}
}

func (rs Recorders) RecordCount(ctx context.Context, metric string, value float64, dimensions map[string]string) {
	for _, r := range rs {
		r.RecordCount(ctx, metric, value, dimensions)
	}
}
