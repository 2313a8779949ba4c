package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
)

// fakeService is a hand-rolled Service double for HTTP tests.
type fakeService struct {
	snapshots map[dashboardtypes.EntityID]*dashboardtypes.Snapshot
	workbook  []byte
	recent    []dashboardservice.ActivityNote
}

func (f *fakeService) HandleActivity(context.Context, dashboardevents.ActivityRecordedPayloadV1) error {
	return nil
}

func (f *fakeService) Refresh(context.Context, dashboardtypes.EntityID) (*dashboardtypes.Snapshot, error) {
	return nil, nil
}

func (f *fakeService) LatestSnapshot(entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, bool) {
	snapshot, exists := f.snapshots[entityID]
	return snapshot, exists
}

func (f *fakeService) RecentActivity(dashboardtypes.EntityID) []dashboardservice.ActivityNote {
	return f.recent
}

func (f *fakeService) ExportStandings(_ context.Context, entityID dashboardtypes.EntityID) ([]byte, error) {
	if f.workbook == nil {
		return nil, errors.New("no snapshot")
	}
	return f.workbook, nil
}

func newTestServer(service *fakeService) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(service, logger, prometheus.NewRegistry(), 100, 100)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&fakeService{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestSnapshotEndpoint(t *testing.T) {
	service := &fakeService{
		snapshots: map[dashboardtypes.EntityID]*dashboardtypes.Snapshot{
			"guild-1": {
				EntityID:    "guild-1",
				GeneratedAt: time.Date(2023, 10, 3, 12, 0, 0, 0, time.UTC),
				Board: []dashboardtypes.RankedEntry{
					{Rank: 1, ScoreRecord: dashboardtypes.ScoreRecord{MemberID: "member-a", CompositeScore: 80}},
				},
			},
		},
	}
	server := newTestServer(service)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/guild-1/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snapshot dashboardtypes.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, dashboardtypes.EntityID("guild-1"), snapshot.EntityID)
	require.Len(t, snapshot.Board, 1)
	assert.Equal(t, 80.0, snapshot.Board[0].CompositeScore)
}

func TestSnapshotEndpointNotFound(t *testing.T) {
	server := newTestServer(&fakeService{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/unknown/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStandingsExportEndpoint(t *testing.T) {
	server := newTestServer(&fakeService{workbook: []byte("xlsx-bytes")})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/guild-1/standings.xlsx", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "xlsx-bytes", rec.Body.String())
}

func TestStandingsExportNotFound(t *testing.T) {
	server := newTestServer(&fakeService{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/guild-1/standings.xlsx", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentActivityEndpoint(t *testing.T) {
	service := &fakeService{
		recent: []dashboardservice.ActivityNote{
			{MemberID: "member-a", ChannelID: "general", At: time.Date(2023, 10, 3, 12, 0, 0, 0, time.UTC)},
		},
	}
	server := newTestServer(service)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboards/guild-1/recent", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var notes []dashboardservice.ActivityNote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notes))
	require.Len(t, notes, 1)
	assert.Equal(t, dashboardtypes.MemberID("member-a"), notes[0].MemberID)
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(&fakeService{})

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitRejectsFloods(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := NewServer(&fakeService{}, logger, prometheus.NewRegistry(), 1, 2)

	var limited bool
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		server.Handler().ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}

	assert.True(t, limited, "expected the flood to trip the rate limiter")
}
