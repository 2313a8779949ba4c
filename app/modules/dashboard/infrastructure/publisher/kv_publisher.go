package dashboardpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the KV bucket holding pinned dashboards.
const DefaultBucket = "dashboards"

// publishedDashboard is the stored envelope: the rendered artifact, its
// textual companion, and the snapshot it was built from.
type publishedDashboard struct {
	EntityID    dashboardtypes.EntityID  `json:"entity_id"`
	Summary     string                   `json:"summary"`
	Artifact    []byte                   `json:"artifact,omitempty"`
	Snapshot    *dashboardtypes.Snapshot `json:"snapshot"`
	PublishedAt time.Time                `json:"published_at"`
}

// KVSnapshotPublisher pins one dashboard per entity in a JetStream KV bucket.
// Update edits the current revision in place; Create (re)pins from scratch.
// Writing a whole value per revision is what keeps concurrent readers from
// ever observing a partial dashboard.
type KVSnapshotPublisher struct {
	kv     jetstream.KeyValue
	logger *slog.Logger
}

// NewKVSnapshotPublisher binds to the bucket, creating it on first use.
func NewKVSnapshotPublisher(ctx context.Context, js jetstream.JetStream, bucket string, logger *slog.Logger) (*KVSnapshotPublisher, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Pinned engagement dashboards, one per community",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open dashboard bucket %q: %w", bucket, err)
	}
	return &KVSnapshotPublisher{kv: kv, logger: logger}, nil
}

// Update edits the entity's published dashboard in place. It returns
// ErrSnapshotNotFound when nothing was ever published (or someone deleted
// it; the two are indistinguishable and treated the same).
func (p *KVSnapshotPublisher) Update(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error {
	data, err := p.envelope(entityID, snapshot, artifact, summary)
	if err != nil {
		return err
	}

	entry, err := p.kv.Get(ctx, string(entityID))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("no dashboard pinned for %s: %w", entityID, dashboardservice.ErrSnapshotNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up pinned dashboard: %w", err)
	}

	if _, err := p.kv.Update(ctx, string(entityID), data, entry.Revision()); err != nil {
		return fmt.Errorf("failed to update pinned dashboard: %w", err)
	}

	p.logger.DebugContext(ctx, "Pinned dashboard updated",
		slog.String("entity_id", string(entityID)),
	)
	return nil
}

// Create pins a fresh dashboard for the entity, replacing any racing write.
func (p *KVSnapshotPublisher) Create(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error {
	data, err := p.envelope(entityID, snapshot, artifact, summary)
	if err != nil {
		return err
	}

	_, err = p.kv.Create(ctx, string(entityID), data)
	if errors.Is(err, jetstream.ErrKeyExists) {
		// Lost a create race; a plain put keeps the newest value.
		_, err = p.kv.Put(ctx, string(entityID), data)
	}
	if err != nil {
		return fmt.Errorf("failed to pin dashboard: %w", err)
	}

	p.logger.InfoContext(ctx, "Pinned new dashboard",
		slog.String("entity_id", string(entityID)),
	)
	return nil
}

func (p *KVSnapshotPublisher) envelope(entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) ([]byte, error) {
	data, err := json.Marshal(publishedDashboard{
		EntityID:    entityID,
		Summary:     summary,
		Artifact:    artifact,
		Snapshot:    snapshot,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dashboard envelope: %w", err)
	}
	return data, nil
}
