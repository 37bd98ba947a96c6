package metrics

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapAlloc  metric.Int64ObservableGauge
	gcCount    metric.Int64ObservableCounter
	uptime     metric.Float64ObservableCounter
	startTime  time.Time
}

func NewRuntimeMetrics(_ context.Context, meter metric.Meter) (*RuntimeMetrics, error) {
	rm := &RuntimeMetrics{startTime: time.Now()}
	var err error

	if rm.goroutines, err = meter.Int64ObservableGauge("runtime.go.goroutines",
		metric.WithDescription("Number of goroutines"),
		metric.WithUnit("{goroutine}"),
	); err != nil {
		return nil, err
	}
	if rm.heapAlloc, err = meter.Int64ObservableGauge("runtime.go.mem.heap_alloc",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if rm.gcCount, err = meter.Int64ObservableCounter("runtime.go.gc.count",
		metric.WithDescription("Completed GC cycles"),
		metric.WithUnit("{gc}"),
	); err != nil {
		return nil, err
	}
	if rm.uptime, err = meter.Float64ObservableCounter("runtime.uptime",
		metric.WithDescription("Seconds since process start"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		o.ObserveInt64(rm.goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(rm.heapAlloc, int64(ms.HeapAlloc))
		o.ObserveInt64(rm.gcCount, int64(ms.NumGC))
		o.ObserveFloat64(rm.uptime, time.Since(rm.startTime).Seconds())
		return nil
	}, rm.goroutines, rm.heapAlloc, rm.gcCount, rm.uptime)
	if err != nil {
		return nil, err
	}

	return rm, nil
}

// Uptime is zero for mocks.
func (rm *RuntimeMetrics) Uptime() time.Duration {
	if rm == nil || rm.startTime.IsZero() {
		return 0
	}
	return time.Since(rm.startTime)
}
