package dashboardhandlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
)

// fakeService is a hand-rolled Service double for handler tests.
type fakeService struct {
	HandleActivityFunc func(ctx context.Context, payload dashboardevents.ActivityRecordedPayloadV1) error
	handled            []dashboardevents.ActivityRecordedPayloadV1
}

func (f *fakeService) HandleActivity(ctx context.Context, payload dashboardevents.ActivityRecordedPayloadV1) error {
	f.handled = append(f.handled, payload)
	if f.HandleActivityFunc != nil {
		return f.HandleActivityFunc(ctx, payload)
	}
	return nil
}

func (f *fakeService) Refresh(context.Context, dashboardtypes.EntityID) (*dashboardtypes.Snapshot, error) {
	return nil, nil
}

func (f *fakeService) LatestSnapshot(dashboardtypes.EntityID) (*dashboardtypes.Snapshot, bool) {
	return nil, false
}

func (f *fakeService) RecentActivity(dashboardtypes.EntityID) []dashboardservice.ActivityNote {
	return nil
}

func (f *fakeService) ExportStandings(context.Context, dashboardtypes.EntityID) ([]byte, error) {
	return nil, nil
}

func newTestHandlers(service dashboardservice.Service) *DashboardHandlers {
	return NewDashboardHandlers(service, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandleActivityRecorded(t *testing.T) {
	service := &fakeService{}
	handlers := newTestHandlers(service)

	payload := []byte(`{"entity_id":"guild-1","member_id":"member-a","channel_id":"general","kind":"message"}`)
	msg := message.NewMessage(watermill.NewUUID(), payload)

	err := handlers.HandleActivityRecorded(msg)

	require.NoError(t, err)
	require.Len(t, service.handled, 1)
	assert.Equal(t, dashboardtypes.EntityID("guild-1"), service.handled[0].EntityID)
	assert.Equal(t, dashboardevents.ActivityMessage, service.handled[0].Kind)
}

func TestHandleActivityRecordedDropsMalformedPayload(t *testing.T) {
	service := &fakeService{}
	handlers := newTestHandlers(service)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{not json`))

	err := handlers.HandleActivityRecorded(msg)

	// Returning nil acks the message; redelivery cannot fix a bad payload.
	require.NoError(t, err)
	assert.Empty(t, service.handled)
}

func TestHandleActivityRecordedDropsMissingIDs(t *testing.T) {
	service := &fakeService{}
	handlers := newTestHandlers(service)

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"entity_id":"guild-1"}`))

	err := handlers.HandleActivityRecorded(msg)

	require.NoError(t, err)
	assert.Empty(t, service.handled)
}

func TestHandleActivityRecordedPropagatesServiceError(t *testing.T) {
	service := &fakeService{
		HandleActivityFunc: func(context.Context, dashboardevents.ActivityRecordedPayloadV1) error {
			return errors.New("store unavailable")
		},
	}
	handlers := newTestHandlers(service)

	payload := []byte(`{"entity_id":"guild-1","member_id":"member-a","kind":"message"}`)
	msg := message.NewMessage(watermill.NewUUID(), payload)

	err := handlers.HandleActivityRecorded(msg)

	// The error nacks the message so the broker redelivers it.
	require.Error(t, err)
}
