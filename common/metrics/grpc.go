package metrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type GrpcMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	errorsTotal     metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

func NewGrpcMetrics(meter metric.Meter) (*GrpcMetrics, error) {
	gm := &GrpcMetrics{}
	var err error

	if gm.requestDuration, err = meter.Float64Histogram("grpc.server.request.duration",
		metric.WithDescription("gRPC request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if gm.requestsTotal, err = meter.Int64Counter("grpc.server.requests",
		metric.WithDescription("gRPC requests handled"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if gm.errorsTotal, err = meter.Int64Counter("grpc.server.errors",
		metric.WithDescription("gRPC requests finished with a non-OK code"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if gm.activeRequests, err = meter.Int64UpDownCounter("grpc.server.active_requests",
		metric.WithDescription("gRPC requests in flight"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	return gm, nil
}

func (gm *GrpcMetrics) RecordRequest(ctx context.Context, service, method string, duration time.Duration, code codes.Code) {
	if gm == nil || gm.requestDuration == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("grpc_service", service),
		attribute.String("grpc_method", method),
		attribute.String("grpc_code", code.String()),
	)
	gm.requestDuration.Record(ctx, duration.Seconds(), attrs)
	gm.requestsTotal.Add(ctx, 1, attrs)
	if code != codes.OK {
		gm.errorsTotal.Add(ctx, 1, attrs)
	}
}

func (gm *GrpcMetrics) inFlight(ctx context.Context, service, method string, delta int64) {
	if gm == nil || gm.activeRequests == nil {
		return
	}
	gm.activeRequests.Add(ctx, delta, metric.WithAttributes(
		attribute.String("grpc_service", service),
		attribute.String("grpc_method", method),
	))
}

// UnaryServerInterceptor records latency, traffic, errors and saturation
// for every unary call.
func (gm *GrpcMetrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if gm == nil {
			return handler(ctx, req)
		}
		service, method := splitMethodName(info.FullMethod)

		gm.inFlight(ctx, service, method, 1)
		defer gm.inFlight(ctx, service, method, -1)

		start := time.Now()
		resp, err := handler(ctx, req)

		gm.RecordRequest(ctx, service, method, time.Since(start), status.Code(err))
		return resp, err
	}
}

// splitMethodName turns "/pkg.Service/Method" into ("pkg.Service", "Method").
func splitMethodName(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	if i := strings.LastIndex(fullMethod, "/"); i >= 0 {
		return fullMethod[:i], fullMethod[i+1:]
	}
	return "unknown", fullMethod
}
