package dashboardservice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/clubpulse/pulse-bot/observability"
)

// Configuration floors. Anything lower would let an adversarial event rate
// turn every event into a refresh.
const (
	MinIdleGap     = 30 * time.Second
	MinMaxInterval = 60 * time.Second

	// recentActivityCapacity bounds each entity's recent-event buffer.
	recentActivityCapacity = 10
)

// RefreshFunc runs the full refresh pipeline (aggregate, score, render,
// publish) for one entity. It is invoked while the entity's lock is held.
type RefreshFunc func(ctx context.Context, entityID dashboardtypes.EntityID) error

// entityState is the per-community refresh bookkeeping. It is created lazily
// on the first event for an entity and lives for the process lifetime; the
// registry never evicts, which is acceptable while the number of communities
// stays small and is guarded by the maxEntitySpots cap.
type entityState struct {
	mu          sync.Mutex
	recent      *activityRing
	lastEvent   time.Time // zero until the first event
	lastRefresh time.Time
	hasSnapshot bool
}

// RefreshCoalescer decides, on each incoming activity event, whether to run a
// refresh now or absorb the event into the pending buffer. All decisions are
// made at event-arrival time; there is no background timer. Each entity has
// its own lock, so a slow refresh for one community only delays that
// community's events.
type RefreshCoalescer struct {
	idleGap        time.Duration
	maxInterval    time.Duration
	maxEntitySpots int
	refresh        RefreshFunc
	logger         *slog.Logger
	metrics        observability.DashboardMetrics

	mu       sync.Mutex // guards entities only, never held during a refresh
	entities map[dashboardtypes.EntityID]*entityState

	now func() time.Time
}

// NewRefreshCoalescer builds a coalescer. idleGap and maxInterval are clamped
// to their floors; maxEntitySpots <= 0 means unlimited.
func NewRefreshCoalescer(
	idleGap time.Duration,
	maxInterval time.Duration,
	maxEntitySpots int,
	refresh RefreshFunc,
	logger *slog.Logger,
	metrics observability.DashboardMetrics,
) *RefreshCoalescer {
	if idleGap < MinIdleGap {
		idleGap = MinIdleGap
	}
	if maxInterval < MinMaxInterval {
		maxInterval = MinMaxInterval
	}
	return &RefreshCoalescer{
		idleGap:        idleGap,
		maxInterval:    maxInterval,
		maxEntitySpots: maxEntitySpots,
		refresh:        refresh,
		logger:         logger,
		metrics:        metrics,
		entities:       make(map[dashboardtypes.EntityID]*entityState),
		now:            time.Now,
	}
}

// OnActivityEvent records one activity unit for an entity and runs a refresh
// when one is due. It reports whether a refresh was attempted. Refresh errors
// never propagate to the event producer: the attempt is logged, the refresh
// timestamp is left untouched, and the next qualifying event retries.
func (c *RefreshCoalescer) OnActivityEvent(ctx context.Context, entityID dashboardtypes.EntityID, note ActivityNote) bool {
	state, ok := c.entityFor(entityID)
	if !ok {
		c.logger.WarnContext(ctx, "Entity registry full, dropping activity event",
			slog.String("entity_id", string(entityID)),
			slog.Int("max_entity_spots", c.maxEntitySpots),
		)
		c.metrics.RecordEntityDropped(ctx, string(entityID))
		return false
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	state.recent.Push(note)

	now := c.now()
	idleBreak := state.lastEvent.IsZero() || now.Sub(state.lastEvent) >= c.idleGap
	intervalDue := !state.lastRefresh.IsZero() && now.Sub(state.lastRefresh) >= c.maxInterval
	state.lastEvent = now

	var reason string
	switch {
	case !state.hasSnapshot:
		reason = "no_snapshot"
	case idleBreak:
		reason = "idle_gap"
	case intervalDue:
		reason = "max_interval"
	default:
		c.metrics.RecordRefreshCoalesced(ctx, string(entityID))
		return false
	}

	c.metrics.RecordRefreshTriggered(ctx, string(entityID), reason)
	c.logger.DebugContext(ctx, "Dashboard refresh triggered",
		slog.String("entity_id", string(entityID)),
		slog.String("reason", reason),
	)

	// The refresh runs synchronously under the entity lock. That is what
	// guarantees at most one in-flight refresh per entity; do not turn this
	// into a fire-and-forget call.
	if err := c.refresh(ctx, entityID); err != nil {
		c.logger.ErrorContext(ctx, "Dashboard refresh failed, will retry on next qualifying event",
			slog.String("entity_id", string(entityID)),
			slog.String("reason", reason),
			slog.Any("error", err),
		)
		c.metrics.RecordRefreshFailure(ctx, string(entityID))
		return true
	}

	state.lastRefresh = now
	state.hasSnapshot = true
	return true
}

// RecentActivity returns the most-recent-first buffered notes for an entity,
// or nil when the entity is unknown.
func (c *RefreshCoalescer) RecentActivity(entityID dashboardtypes.EntityID) []ActivityNote {
	c.mu.Lock()
	state, exists := c.entities[entityID]
	c.mu.Unlock()
	if !exists {
		return nil
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.recent.Recent()
}

// EntityCount reports how many communities the registry tracks.
func (c *RefreshCoalescer) EntityCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entities)
}

// entityFor returns the entity's state, creating it lazily. The second return
// is false when the registry is at capacity and the entity is new.
func (c *RefreshCoalescer) entityFor(entityID dashboardtypes.EntityID) (*entityState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, exists := c.entities[entityID]; exists {
		return state, true
	}
	if c.maxEntitySpots > 0 && len(c.entities) >= c.maxEntitySpots {
		return nil, false
	}
	state := &entityState{recent: newActivityRing(recentActivityCapacity)}
	c.entities[entityID] = state
	c.metrics.SetEntityRegistrySize(len(c.entities))
	return state, true
}
