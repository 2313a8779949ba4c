package dashboardservice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/clubpulse/pulse-bot/observability"
)

// fakeClock drives the coalescer's notion of "now" from test code.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2023, 10, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// refreshRecorder counts refresh invocations and can be told to fail.
type refreshRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *refreshRecorder) refresh(context.Context, dashboardtypes.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *refreshRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func newTestCoalescer(t *testing.T, refresh RefreshFunc, maxSpots int) (*RefreshCoalescer, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	c := NewRefreshCoalescer(30*time.Second, 60*time.Second, maxSpots, refresh, testLogger(), observability.NoOpMetrics{})
	c.now = clock.Now
	return c, clock
}

func note() ActivityNote {
	return ActivityNote{MemberID: "member", ChannelID: "general"}
}

func TestFirstEventRefreshesImmediately(t *testing.T) {
	rec := &refreshRecorder{}
	c, _ := newTestCoalescer(t, rec.refresh, 0)

	refreshed := c.OnActivityEvent(context.Background(), "guild-1", note())

	assert.True(t, refreshed)
	assert.Equal(t, 1, rec.count())
}

func TestBurstCoalescesToSingleRefresh(t *testing.T) {
	rec := &refreshRecorder{}
	c, clock := newTestCoalescer(t, rec.refresh, 0)
	ctx := context.Background()

	// Seed the snapshot.
	c.OnActivityEvent(ctx, "guild-1", note())
	require.Equal(t, 1, rec.count())

	// A burst of 20 events, 1s apart: every gap is under the idle gap and
	// the span stays under the max interval. None of them refresh.
	for i := 0; i < 20; i++ {
		clock.Advance(1 * time.Second)
		refreshed := c.OnActivityEvent(ctx, "guild-1", note())
		assert.False(t, refreshed)
	}
	assert.Equal(t, 1, rec.count())

	// The first event after the burst's idle gap flushes exactly once.
	clock.Advance(31 * time.Second)
	refreshed := c.OnActivityEvent(ctx, "guild-1", note())
	assert.True(t, refreshed)
	assert.Equal(t, 2, rec.count())
}

func TestMaxIntervalBoundsStalenessDuringContinuousActivity(t *testing.T) {
	rec := &refreshRecorder{}
	c, clock := newTestCoalescer(t, rec.refresh, 0)
	ctx := context.Background()

	// First event refreshes (no snapshot yet).
	c.OnActivityEvent(ctx, "guild-1", note())
	require.Equal(t, 1, rec.count())

	// Events every 10s keep every idle gap under the threshold, but the
	// max-interval rule still forces a refresh within 60s.
	refreshesBefore := rec.count()
	elapsed := time.Duration(0)
	for elapsed < 70*time.Second {
		clock.Advance(10 * time.Second)
		elapsed += 10 * time.Second
		c.OnActivityEvent(ctx, "guild-1", note())
	}

	assert.Greater(t, rec.count(), refreshesBefore, "expected at least one refresh within maxInterval")
}

func TestFailedRefreshRetriesOnNextEvent(t *testing.T) {
	rec := &refreshRecorder{err: errors.New("publish failed")}
	c, clock := newTestCoalescer(t, rec.refresh, 0)
	ctx := context.Background()

	// Refresh attempt fails; no error reaches the producer.
	refreshed := c.OnActivityEvent(ctx, "guild-1", note())
	assert.True(t, refreshed)
	assert.Equal(t, 1, rec.count())

	// Because the failure did not advance the refresh timestamp (and no
	// snapshot exists), the very next event retries.
	rec.err = nil
	clock.Advance(1 * time.Second)
	refreshed = c.OnActivityEvent(ctx, "guild-1", note())
	assert.True(t, refreshed)
	assert.Equal(t, 2, rec.count())

	// With a snapshot in place, the debounce behaves normally again.
	clock.Advance(1 * time.Second)
	refreshed = c.OnActivityEvent(ctx, "guild-1", note())
	assert.False(t, refreshed)
}

func TestClampsThresholdFloors(t *testing.T) {
	c := NewRefreshCoalescer(1*time.Second, 2*time.Second, 0, func(context.Context, dashboardtypes.EntityID) error { return nil }, testLogger(), observability.NoOpMetrics{})

	assert.Equal(t, MinIdleGap, c.idleGap)
	assert.Equal(t, MinMaxInterval, c.maxInterval)
}

func TestEntityRegistryCap(t *testing.T) {
	rec := &refreshRecorder{}
	c, _ := newTestCoalescer(t, rec.refresh, 2)
	ctx := context.Background()

	assert.True(t, c.OnActivityEvent(ctx, "guild-1", note()))
	assert.True(t, c.OnActivityEvent(ctx, "guild-2", note()))
	// Registry full: the third community's event is dropped.
	assert.False(t, c.OnActivityEvent(ctx, "guild-3", note()))
	assert.Equal(t, 2, c.EntityCount())

	// Known entities keep working.
	assert.Nil(t, c.RecentActivity("guild-3"))
	assert.NotEmpty(t, c.RecentActivity("guild-1"))
}

func TestEntitiesRefreshIndependently(t *testing.T) {
	blockA := make(chan struct{})
	started := make(chan struct{})

	refresh := func(_ context.Context, entityID dashboardtypes.EntityID) error {
		if entityID == "guild-a" {
			close(started)
			<-blockA
		}
		return nil
	}
	c, _ := newTestCoalescer(t, refresh, 0)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.OnActivityEvent(ctx, "guild-a", note())
	}()

	<-started

	// guild-a's refresh is stuck holding its own lock; guild-b must not
	// be delayed by it.
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		c.OnActivityEvent(ctx, "guild-b", note())
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("guild-b event blocked behind guild-a's in-flight refresh")
	}

	close(blockA)
	<-done
}

func TestRecentActivityBufferIsBounded(t *testing.T) {
	rec := &refreshRecorder{}
	c, clock := newTestCoalescer(t, rec.refresh, 0)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		clock.Advance(1 * time.Second)
		c.OnActivityEvent(ctx, "guild-1", note())
	}

	assert.Len(t, c.RecentActivity("guild-1"), recentActivityCapacity)
}
