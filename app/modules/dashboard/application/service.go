package dashboardservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboarddb "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories"
	"github.com/clubpulse/pulse-bot/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options carries the dashboard module's tunables, already validated by the
// config layer.
type Options struct {
	Weights               dashboardtypes.EngagementWeights
	MinMessagesForScoring int64
	MinTenureDaysAtRisk   int64
	TopN                  int
	AtRiskN               int
	HistoryDays           int
	IdleGap               time.Duration
	MaxInterval           time.Duration
	MaxEntitySpots        int
}

// DashboardService implements the Service interface.
type DashboardService struct {
	repo      dashboarddb.Repository
	renderer  Renderer
	publisher SnapshotPublisher
	events    EventPublisher
	logger    *slog.Logger
	metrics   observability.DashboardMetrics
	tracer    trace.Tracer

	scoring   *ScoringEngine
	coalescer *RefreshCoalescer
	opts      Options

	// latest holds the last published snapshot per entity. The pointer is
	// replaced wholesale on publish, never mutated, so readers always see a
	// complete snapshot.
	mu     sync.RWMutex
	latest map[dashboardtypes.EntityID]*dashboardtypes.Snapshot

	now func() time.Time
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(
	repo dashboarddb.Repository,
	renderer Renderer,
	publisher SnapshotPublisher,
	events EventPublisher,
	logger *slog.Logger,
	metrics observability.DashboardMetrics,
	tracer trace.Tracer,
	opts Options,
) *DashboardService {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 60
	}
	s := &DashboardService{
		repo:      repo,
		renderer:  renderer,
		publisher: publisher,
		events:    events,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		scoring:   NewScoringEngine(opts.Weights),
		opts:      opts,
		latest:    make(map[dashboardtypes.EntityID]*dashboardtypes.Snapshot),
		now:       time.Now,
	}
	s.coalescer = NewRefreshCoalescer(
		opts.IdleGap,
		opts.MaxInterval,
		opts.MaxEntitySpots,
		func(ctx context.Context, entityID dashboardtypes.EntityID) error {
			_, err := s.Refresh(ctx, entityID)
			return err
		},
		logger,
		metrics,
	)
	return s
}

// withTelemetry wraps a service operation with tracing, metrics, and panic
// recovery, standardizing observability across all service methods.
func (s *DashboardService) withTelemetry(
	ctx context.Context,
	operationName string,
	entityID dashboardtypes.EntityID,
	op func(ctx context.Context) error,
) (err error) {
	ctx, span := s.tracer.Start(ctx, operationName, trace.WithAttributes(
		attribute.String("operation", operationName),
		attribute.String("entity_id", string(entityID)),
	))
	defer span.End()

	s.metrics.RecordOperationAttempt(ctx, operationName, string(entityID))

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, string(entityID), time.Since(startTime))
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("operation", operationName),
				slog.String("entity_id", string(entityID)),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, string(entityID))
			span.RecordError(err)
		}
	}()

	if err = op(ctx); err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed",
			slog.String("operation", operationName),
			slog.String("entity_id", string(entityID)),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, string(entityID))
		span.RecordError(wrappedErr)
		return wrappedErr
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, string(entityID))
	return nil
}

// LatestSnapshot returns the last published snapshot for an entity.
func (s *DashboardService) LatestSnapshot(entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, exists := s.latest[entityID]
	return snapshot, exists
}

// RecentActivity returns the entity's buffered recent events.
func (s *DashboardService) RecentActivity(entityID dashboardtypes.EntityID) []ActivityNote {
	return s.coalescer.RecentActivity(entityID)
}

func (s *DashboardService) storeSnapshot(snapshot *dashboardtypes.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[snapshot.EntityID] = snapshot
}
