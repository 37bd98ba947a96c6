package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MessagingMetrics struct {
	published          metric.Int64Counter
	consumed           metric.Int64Counter
	errors             metric.Int64Counter
	publishDuration    metric.Float64Histogram
	processingDuration metric.Float64Histogram
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}
	var err error

	if mm.published, err = meter.Int64Counter("messaging.messages.published",
		metric.WithDescription("Messages published"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}
	if mm.consumed, err = meter.Int64Counter("messaging.messages.consumed",
		metric.WithDescription("Messages consumed"),
		metric.WithUnit("{message}"),
	); err != nil {
		return nil, err
	}
	if mm.errors, err = meter.Int64Counter("messaging.errors",
		metric.WithDescription("Publish or processing failures"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if mm.publishDuration, err = meter.Float64Histogram("messaging.publish.duration",
		metric.WithDescription("Time spent publishing a message"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if mm.processingDuration, err = meter.Float64Histogram("messaging.processing.duration",
		metric.WithDescription("Time spent processing a consumed message"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	return mm, nil
}

// RecordPublish records one publish on transport ("nats" or "kafka") to
// destination (subject or topic).
func (mm *MessagingMetrics) RecordPublish(ctx context.Context, transport, destination string, duration time.Duration, err error) {
	if mm == nil || mm.published == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("destination", destination),
	)
	mm.published.Add(ctx, 1, attrs)
	mm.publishDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		mm.errors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("stage", "publish")))
	}
}

func (mm *MessagingMetrics) RecordConsume(ctx context.Context, transport, destination string, duration time.Duration, err error) {
	if mm == nil || mm.consumed == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("destination", destination),
	)
	mm.consumed.Add(ctx, 1, attrs)
	mm.processingDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		mm.errors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("stage", "consume")))
	}
}
