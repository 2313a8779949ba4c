package dashboardservice

import (
	"context"
	"io"
	"log/slog"
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboarddb "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories"
)

// FakeRepository is a hand-rolled Repository test double. Unset funcs fall
// back to empty results.
type FakeRepository struct {
	UpsertMemberFunc       func(ctx context.Context, entityID dashboardtypes.EntityID, memberID dashboardtypes.MemberID, joinedAt *time.Time) error
	RecordActivityFunc     func(ctx context.Context, event *dashboarddb.ActivityEvent) error
	GetMemberCountersFunc  func(ctx context.Context, entityID dashboardtypes.EntityID) ([]dashboardtypes.MemberCounters, error)
	GetDailyHistoryFunc    func(ctx context.Context, entityID dashboardtypes.EntityID, days int) (map[string]int64, error)
	GetHourlyHistogramFunc func(ctx context.Context, entityID dashboardtypes.EntityID) (map[int]int64, error)

	RecordedEvents []*dashboarddb.ActivityEvent
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{}
}

func (f *FakeRepository) UpsertMember(ctx context.Context, entityID dashboardtypes.EntityID, memberID dashboardtypes.MemberID, joinedAt *time.Time) error {
	if f.UpsertMemberFunc != nil {
		return f.UpsertMemberFunc(ctx, entityID, memberID, joinedAt)
	}
	return nil
}

func (f *FakeRepository) RecordActivity(ctx context.Context, event *dashboarddb.ActivityEvent) error {
	f.RecordedEvents = append(f.RecordedEvents, event)
	if f.RecordActivityFunc != nil {
		return f.RecordActivityFunc(ctx, event)
	}
	return nil
}

func (f *FakeRepository) GetMemberCounters(ctx context.Context, entityID dashboardtypes.EntityID) ([]dashboardtypes.MemberCounters, error) {
	if f.GetMemberCountersFunc != nil {
		return f.GetMemberCountersFunc(ctx, entityID)
	}
	return []dashboardtypes.MemberCounters{}, nil
}

func (f *FakeRepository) GetDailyHistory(ctx context.Context, entityID dashboardtypes.EntityID, days int) (map[string]int64, error) {
	if f.GetDailyHistoryFunc != nil {
		return f.GetDailyHistoryFunc(ctx, entityID, days)
	}
	return map[string]int64{}, nil
}

func (f *FakeRepository) GetHourlyHistogram(ctx context.Context, entityID dashboardtypes.EntityID) (map[int]int64, error) {
	if f.GetHourlyHistogramFunc != nil {
		return f.GetHourlyHistogramFunc(ctx, entityID)
	}
	return map[int]int64{}, nil
}

// FakeRenderer is a Renderer test double.
type FakeRenderer struct {
	RenderFunc  func(ctx context.Context, snapshot *dashboardtypes.Snapshot) ([]byte, error)
	RenderCalls int
}

func (f *FakeRenderer) Render(ctx context.Context, snapshot *dashboardtypes.Snapshot) ([]byte, error) {
	f.RenderCalls++
	if f.RenderFunc != nil {
		return f.RenderFunc(ctx, snapshot)
	}
	return []byte("png"), nil
}

// FakePublisher is a SnapshotPublisher test double.
type FakePublisher struct {
	UpdateFunc func(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error
	CreateFunc func(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error

	UpdateCalls  int
	CreateCalls  int
	LastArtifact []byte
	LastSummary  string
}

func (f *FakePublisher) Update(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error {
	f.UpdateCalls++
	f.LastArtifact = artifact
	f.LastSummary = summary
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, entityID, snapshot, artifact, summary)
	}
	return nil
}

func (f *FakePublisher) Create(ctx context.Context, entityID dashboardtypes.EntityID, snapshot *dashboardtypes.Snapshot, artifact []byte, summary string) error {
	f.CreateCalls++
	f.LastArtifact = artifact
	f.LastSummary = summary
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, entityID, snapshot, artifact, summary)
	}
	return nil
}

// FakeEventBus is an EventPublisher test double.
type FakeEventBus struct {
	PublishJSONFunc func(ctx context.Context, topic string, payload any) error
	Published       []string
}

func (f *FakeEventBus) PublishJSON(ctx context.Context, topic string, payload any) error {
	f.Published = append(f.Published, topic)
	if f.PublishJSONFunc != nil {
		return f.PublishJSONFunc(ctx, topic, payload)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
