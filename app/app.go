package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"

	"github.com/clubpulse/pulse-bot/api"
	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
	dashboardhandlers "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/handlers"
	dashboardpublisher "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/publisher"
	dashboarddb "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories"
	dashboardrouter "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/router"
	"github.com/clubpulse/pulse-bot/config"
	"github.com/clubpulse/pulse-bot/eventbus"
	"github.com/clubpulse/pulse-bot/observability"
)

// activityStream is the JetStream stream carrying the module's subjects.
const activityStream = "dashboard"

// App owns the wired application: config, storage, messaging, the dashboard
// module, and the read-side HTTP server.
type App struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Service  *dashboardservice.DashboardService
	EventBus eventbus.EventBus
	Router   *message.Router

	db         *bun.DB
	httpServer *http.Server
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, configFile string) (*App, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.Environment)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewPrometheusMetrics(registry)
	tracer := otel.Tracer("pulse-bot")

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}

	if err := bus.EnsureStream(ctx, activityStream, []string{
		dashboardevents.ActivityRecordedV1,
		dashboardevents.DashboardRefreshedV1,
		dashboardevents.DashboardRefreshFailedV1,
	}); err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	snapshotPublisher, err := dashboardpublisher.NewKVSnapshotPublisher(ctx, bus.JetStream(), cfg.Dashboard.SnapshotBucket, logger)
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to initialize snapshot publisher: %w", err)
	}

	service := dashboardservice.NewDashboardService(
		dashboarddb.NewRepository(db),
		dashboardservice.NewChartRenderer(dashboardservice.DefaultPalette),
		snapshotPublisher,
		bus,
		logger,
		metrics,
		tracer,
		dashboardservice.Options{
			Weights:               cfg.Dashboard.Weights,
			MinMessagesForScoring: cfg.Dashboard.MinMessagesForScoring,
			MinTenureDaysAtRisk:   cfg.Dashboard.MinTenureDaysAtRisk,
			TopN:                  cfg.Dashboard.TopN,
			AtRiskN:               cfg.Dashboard.AtRiskN,
			IdleGap:               cfg.Dashboard.IdleGap(),
			MaxInterval:           cfg.Dashboard.MaxInterval(),
			MaxEntitySpots:        cfg.Dashboard.MaxEntitySpots,
		},
	)

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to create watermill router: %w", err)
	}

	moduleRouter := dashboardrouter.NewDashboardRouter(logger, router, bus.Subscriber())
	if err := moduleRouter.Configure(dashboardhandlers.NewDashboardHandlers(service, logger)); err != nil {
		bus.Close()
		db.Close()
		return nil, fmt.Errorf("failed to configure dashboard router: %w", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: api.NewServer(service, logger, registry, cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst).Handler(),
	}

	return &App{
		Cfg:        cfg,
		Logger:     logger,
		Service:    service,
		EventBus:   bus,
		Router:     router,
		db:         db,
		httpServer: httpServer,
	}, nil
}

// Run serves HTTP and runs the watermill router until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.Logger.Info("HTTP server listening", slog.String("address", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	return a.Router.Run(ctx)
}

// Close shuts everything down in dependency order.
func (a *App) Close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}

	if err := a.EventBus.Close(); err != nil {
		a.Logger.Error("Event bus close failed", slog.Any("error", err))
	}

	if err := a.db.Close(); err != nil {
		a.Logger.Error("Database close failed", slog.Any("error", err))
	}
}
