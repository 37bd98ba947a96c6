package metrics

import (
	"context"
	"database/sql"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type DatabaseMetrics struct {
	connectionsOpen  metric.Int64ObservableGauge
	connectionsIdle  metric.Int64ObservableGauge
	connectionsInUse metric.Int64ObservableGauge
	waitCount        metric.Int64ObservableCounter
	queryDuration    metric.Float64Histogram
	queryErrors      metric.Int64Counter
}

func NewDatabaseMetrics(meter metric.Meter) (*DatabaseMetrics, error) {
	dm := &DatabaseMetrics{}
	var err error

	if dm.connectionsOpen, err = meter.Int64ObservableGauge("db.connections.open",
		metric.WithDescription("Open database connections"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}
	if dm.connectionsIdle, err = meter.Int64ObservableGauge("db.connections.idle",
		metric.WithDescription("Idle database connections"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}
	if dm.connectionsInUse, err = meter.Int64ObservableGauge("db.connections.in_use",
		metric.WithDescription("Database connections currently in use"),
		metric.WithUnit("{connection}"),
	); err != nil {
		return nil, err
	}
	if dm.waitCount, err = meter.Int64ObservableCounter("db.connections.wait_count",
		metric.WithDescription("Total number of connections waited for"),
		metric.WithUnit("{wait}"),
	); err != nil {
		return nil, err
	}
	if dm.queryDuration, err = meter.Float64Histogram("db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if dm.queryErrors, err = meter.Int64Counter("db.query.errors",
		metric.WithDescription("Database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}

	return dm, nil
}

// RegisterDB observes pool statistics of db on every collection.
func (dm *DatabaseMetrics) RegisterDB(db *sql.DB, meter metric.Meter) error {
	if dm == nil || meter == nil || dm.connectionsOpen == nil {
		return nil
	}
	_, err := meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			stats := db.Stats()
			o.ObserveInt64(dm.connectionsOpen, int64(stats.OpenConnections))
			o.ObserveInt64(dm.connectionsIdle, int64(stats.Idle))
			o.ObserveInt64(dm.connectionsInUse, int64(stats.InUse))
			o.ObserveInt64(dm.waitCount, stats.WaitCount)
			return nil
		},
		dm.connectionsOpen, dm.connectionsIdle, dm.connectionsInUse, dm.waitCount,
	)
	return err
}

// RecordQuery records one statement against table. sql.ErrNoRows is not
// counted as an error.
func (dm *DatabaseMetrics) RecordQuery(ctx context.Context, operation string, table string, duration time.Duration, err error) {
	if dm == nil || dm.queryDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("table", table),
	}
	dm.queryDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if err != nil && err != sql.ErrNoRows && dm.queryErrors != nil {
		dm.queryErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
