package finalstream

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// metrics publishes the acceptance counters and the adaptive cadence through
// the global meter provider. The otel API hands back usable instruments even
// when creation fails, so errors here are safe to discard.
type metrics struct {
	accepted   metric.Int64Counter
	duplicated metric.Int64Counter
	gaps       metric.Int64Counter
	interval   metric.Int64Gauge
}

func newMetrics() metrics {
	meter := otel.Meter("github.com/gabapcia/chainhead/internal/finalstream")

	var m metrics
	m.accepted, _ = meter.Int64Counter("finalized_blocks_accepted_total",
		metric.WithDescription("Finalized blocks accepted and yielded downstream"),
	)
	m.duplicated, _ = meter.Int64Counter("finalized_blocks_duplicated_total",
		metric.WithDescription("Polls that returned the best finalized block again"),
	)
	m.gaps, _ = meter.Int64Counter("finalized_blocks_gaps_total",
		metric.WithDescription("Polls that skipped ahead of the expected finalized number"),
	)
	m.interval, _ = meter.Int64Gauge("finalized_polling_interval_ms",
		metric.WithDescription("Current adaptive finalized polling cadence in milliseconds"),
	)
	return m
}

func (m metrics) record(ctx context.Context, result outcome, interval time.Duration) {
	switch result {
	case outcomeFirst, outcomeNew:
		m.accepted.Add(ctx, 1)
	case outcomeDuplicate:
		m.duplicated.Add(ctx, 1)
	case outcomeGap:
		m.accepted.Add(ctx, 1)
		m.gaps.Add(ctx, 1)
	}
	m.interval.Record(ctx, interval.Milliseconds())
}
