package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gradebook/common/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const defaultEndpoint = "localhost:4317"

type Options struct {
	ServiceName    string
	ServiceVersion string
	Env            string
	// Enabled switches the OTLP exporter on. When false the provider keeps
	// instruments alive but nothing leaves the process.
	Enabled  bool
	Endpoint string
	Interval time.Duration
	// Reader overrides the exporter, e.g. a ManualReader in tests.
	Reader sdkmetric.Reader
}

type Telemetry struct {
	MeterProvider *sdkmetric.MeterProvider
	Metrics       *metrics.Metrics
}

func InitMeterProvider(ctx context.Context, opts Options, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(opts.ServiceVersion),
			semconv.DeploymentEnvironment(opts.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providerOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	switch {
	case opts.Reader != nil:
		providerOpts = append(providerOpts, sdkmetric.WithReader(opts.Reader))
	case opts.Enabled:
		endpoint := opts.Endpoint
		if endpoint == "" {
			endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		interval := opts.Interval
		if interval <= 0 {
			interval = 10 * time.Second
		}

		logger.Info("initializing OTel metrics", "endpoint", endpoint)
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)),
		))
	default:
		logger.Info("OTel export disabled")
	}

	mp := sdkmetric.NewMeterProvider(providerOpts...)
	otel.SetMeterProvider(mp)
	return mp, nil
}

func Init(ctx context.Context, opts Options, logger *slog.Logger) (*Telemetry, error) {
	mp, err := InitMeterProvider(ctx, opts, logger)
	if err != nil {
		return nil, err
	}

	m, err := metrics.New(ctx, opts.ServiceName, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := m.Health.RegisterServiceInfo(m.Meter(), opts.ServiceName, opts.ServiceVersion, opts.Env); err != nil {
		logger.Warn("failed to register service info", "error", err)
	}

	return &Telemetry{MeterProvider: mp, Metrics: m}, nil
}

func (t *Telemetry) Shutdown(ctx context.Context, logger *slog.Logger) error {
	if t == nil || t.MeterProvider == nil {
		return nil
	}
	logger.Info("shutting down OTel meter provider")
	if err := t.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
