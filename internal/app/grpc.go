package app

import (
	"gradebook/internal/report"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func (a *App) newGrpcServer(reportService *report.Service) *grpc.Server {
	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(a.telemetry.Metrics.Grpc.UnaryServerInterceptor()),
	)

	report.RegisterAnalyticsServer(server, report.NewGrpcServer(reportService, a.logger))

	// Register gRPC health check
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(report.AnalyticsServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	if a.config.GRPC.Reflection {
		reflection.Register(server)
	}

	return server
}
