package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HealthMetrics tracks dependency availability (database, broker) as seen
// by the background health checker.
type HealthMetrics struct {
	dependencyUp           metric.Int64ObservableGauge
	dependencyResponseTime metric.Float64Histogram
	serviceInfo            metric.Int64ObservableGauge

	mu     sync.RWMutex
	status map[string]bool
}

func NewHealthMetrics(meter metric.Meter) (*HealthMetrics, error) {
	hm := &HealthMetrics{status: make(map[string]bool)}
	var err error

	if hm.dependencyUp, err = meter.Int64ObservableGauge("dependency.up",
		metric.WithDescription("Dependency availability (1=up, 0=down)"),
		metric.WithUnit("{status}"),
	); err != nil {
		return nil, err
	}
	if hm.dependencyResponseTime, err = meter.Float64Histogram("dependency.response_time",
		metric.WithDescription("Dependency health check response time"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if hm.serviceInfo, err = meter.Int64ObservableGauge("service.info",
		metric.WithDescription("Service metadata, always 1"),
		metric.WithUnit("{info}"),
	); err != nil {
		return nil, err
	}

	return hm, nil
}

func (hm *HealthMetrics) RegisterServiceInfo(meter metric.Meter, serviceName, version, env string) error {
	if hm == nil || meter == nil || hm.serviceInfo == nil {
		return nil
	}
	attrs := metric.WithAttributes(
		attribute.String("service_name", serviceName),
		attribute.String("version", version),
		attribute.String("environment", env),
	)
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(hm.serviceInfo, 1, attrs)
		return nil
	}, hm.serviceInfo)
	return err
}

// RegisterDependencies starts observing the named dependencies, all down
// until their first successful check.
func (hm *HealthMetrics) RegisterDependencies(meter metric.Meter, dependencies []string) error {
	if hm == nil {
		return nil
	}
	hm.mu.Lock()
	if hm.status == nil {
		hm.status = make(map[string]bool)
	}
	for _, dep := range dependencies {
		hm.status[dep] = false
	}
	hm.mu.Unlock()

	if meter == nil || hm.dependencyUp == nil {
		return nil
	}
	_, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		hm.mu.RLock()
		defer hm.mu.RUnlock()
		for name, up := range hm.status {
			var v int64
			if up {
				v = 1
			}
			o.ObserveInt64(hm.dependencyUp, v, metric.WithAttributes(attribute.String("dependency", name)))
		}
		return nil
	}, hm.dependencyUp)
	return err
}

func (hm *HealthMetrics) RecordDependencyCheck(ctx context.Context, dependency string, duration time.Duration, err error) {
	if hm == nil {
		return
	}
	if hm.dependencyResponseTime != nil {
		hm.dependencyResponseTime.Record(ctx, duration.Seconds(),
			metric.WithAttributes(attribute.String("dependency", dependency)))
	}
	hm.mu.Lock()
	if hm.status == nil {
		hm.status = make(map[string]bool)
	}
	hm.status[dependency] = err == nil
	hm.mu.Unlock()
}

// Available reports the last observed state of dependency.
func (hm *HealthMetrics) Available(dependency string) bool {
	if hm == nil {
		return false
	}
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	return hm.status[dependency]
}
