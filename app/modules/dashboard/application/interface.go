package dashboardservice

import (
	"context"
	"errors"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
)

// Service is the dashboard module's application interface.
type Service interface {
	// HandleActivity ingests one activity unit: it records the event in the
	// aggregation store and lets the coalescer decide whether a refresh runs.
	HandleActivity(ctx context.Context, payload dashboardevents.ActivityRecordedPayloadV1) error

	// Refresh runs the full scoring/rendering/publish pipeline for an entity.
	// Whether to call this is the coalescer's decision, not the caller's.
	Refresh(ctx context.Context, entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, error)

	// LatestSnapshot returns the last published snapshot for an entity.
	LatestSnapshot(entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, bool)

	// RecentActivity returns the entity's buffered recent events,
	// most-recent-first.
	RecentActivity(entityID dashboardtypes.EntityID) []ActivityNote

	// ExportStandings builds an xlsx standings workbook from the latest
	// snapshot.
	ExportStandings(ctx context.Context, entityID dashboardtypes.EntityID) ([]byte, error)
}

// Renderer turns a snapshot into a visual artifact. Render failures are
// non-fatal to a refresh; the snapshot publishes without artwork.
type Renderer interface {
	Render(ctx context.Context, snapshot *dashboardtypes.Snapshot) ([]byte, error)
}

// ErrSnapshotNotFound is returned by SnapshotPublisher.Update when no
// previously published target exists (deleted, expired, or never created;
// the pipeline treats those identically and recreates).
var ErrSnapshotNotFound = errors.New("published snapshot not found")

// SnapshotPublisher owns the externally visible dashboard target. Update
// edits the existing target in place and must return ErrSnapshotNotFound
// (possibly wrapped) when there is none; Create makes and pins a new one.
// Both are idempotent per entity.
type SnapshotPublisher interface {
	Update(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error
	Create(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error
}

// EventPublisher is the slice of the event bus the service needs.
type EventPublisher interface {
	PublishJSON(ctx context.Context, topic string, payload any) error
}
