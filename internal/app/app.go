package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"gradebook/common/logger"
	"gradebook/common/telemetry"
	"gradebook/internal/config"
	"gradebook/internal/db"
	"gradebook/internal/events"
	"gradebook/internal/health"
	"gradebook/internal/mark"
	"gradebook/internal/metrics"
	"gradebook/internal/middleware"
	"gradebook/internal/report"
	"gradebook/internal/store"
	"gradebook/internal/student"
	"gradebook/internal/subject"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"google.golang.org/grpc"
)

// healthInterval is how often dependency gauges are refreshed.
const healthInterval = 15 * time.Second

// consumer is an ingest transport running until its context ends.
type consumer interface {
	Start(ctx context.Context) error
	Close() error
}

type App struct {
	config     *config.Config
	router     chi.Router
	server     *http.Server
	grpcServer *grpc.Server
	db         *bun.DB
	publisher  events.Publisher
	consumers  []consumer
	health     *health.Handler
	telemetry  *telemetry.Telemetry
	logger     *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New loads configuration from the environment and builds the application.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	slogLogger := logger.NewWithOptions(logger.Options{
		Env:    cfg.Env,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}).With(
		slog.String("service", ServiceName),
		slog.String("version", Version),
		slog.String("environment", cfg.Env),
	)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	tel, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:    ServiceName,
		ServiceVersion: Version,
		Env:            cfg.Env,
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.Endpoint,
		Interval:       time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second,
	}, slogLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	infra := tel.Metrics

	counters, err := metrics.New(infra.Meter())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize service metrics: %w", err)
	}

	database, err := db.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := infra.Database.RegisterDB(database.DB, infra.Meter()); err != nil {
		slogLogger.Warn("failed to register database pool metrics", "error", err)
	}
	if err := store.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &App{
		config:    cfg,
		router:    chi.NewRouter(),
		db:        database,
		telemetry: tel,
		logger:    slogLogger,
	}

	app.health = health.NewHandler(slogLogger, infra.Health)
	app.health.Register("database", database.PingContext)

	app.publisher = app.newPublisher()

	studentRepo := student.NewRepository(database, infra)
	subjectRepo := subject.NewRepository(database, infra)
	markRepo := mark.NewRepository(database, infra)

	studentService := student.NewService(studentRepo)
	subjectService := subject.NewService(subjectRepo)
	markService := mark.NewService(markRepo, studentService, subjectService, app.publisher, slogLogger)
	reportService := report.NewService(store.New(studentRepo, subjectRepo, markRepo), cfg.Grading.Policy(), slogLogger)

	if err := app.newConsumers(markService, counters); err != nil {
		app.closeResources()
		return nil, err
	}

	if err := infra.Health.RegisterDependencies(infra.Meter(), app.health.Dependencies()); err != nil {
		slogLogger.Warn("failed to register dependency metrics", "error", err)
	}

	app.router.Use(chimw.RequestID)
	app.router.Use(chimw.RealIP)
	app.router.Use(middleware.RequestLogger(slogLogger))
	app.router.Use(chimw.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Health endpoints
	app.health.RegisterRoutes(app.router)

	app.router.Route("/api", func(r chi.Router) {
		student.NewHandler(studentService, slogLogger, counters).RegisterRoutes(r)
		subject.NewHandler(subjectService, slogLogger, counters).RegisterRoutes(r)
		mark.NewHandler(markService, slogLogger, counters).RegisterRoutes(r)
		report.NewHandler(reportService, slogLogger, counters).RegisterRoutes(r)
	})

	app.grpcServer = app.newGrpcServer(reportService)

	slogLogger.Info("application initialized successfully",
		"database", cfg.Database.Driver,
		"events", cfg.Events.Driver,
		"pass_threshold", cfg.Grading.PassThreshold,
	)

	return app, nil
}

// Handler exposes the HTTP router, e.g. for httptest.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts the consumers and the gRPC server in the background and serves
// HTTP until Shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	for _, c := range a.consumers {
		a.wg.Add(1)
		go func(c consumer) {
			defer a.wg.Done()
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("consumer stopped", "error", err)
			}
		}(c)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.config.GRPC.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	go func() {
		a.logger.Info("gRPC server starting", "port", a.config.GRPC.Port)
		if err := a.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			a.logger.Error("gRPC server error", "error", err)
		}
	}()

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  time.Duration(a.config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(a.config.Server.IdleTimeout) * time.Second,
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartHealthChecks refreshes dependency gauges until ctx is cancelled.
func (a *App) StartHealthChecks(ctx context.Context) {
	a.health.StartChecks(ctx, healthInterval)
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down servers")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}

	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	a.closeResources()

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// closeResources releases brokers and the database.
func (a *App) closeResources() {
	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("consumer close error", "error", err)
		}
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Error("publisher close error", "error", err)
		}
	}
	db.Close(a.db)
}
