package dashboardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
	dashboarddb "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/repositories"
	"github.com/google/uuid"
)

// HandleActivity ingests one activity unit. The event is persisted first so
// its effect is never lost; the coalescer then decides whether a refresh runs
// now or later. A failed refresh never surfaces here.
func (s *DashboardService) HandleActivity(ctx context.Context, payload dashboardevents.ActivityRecordedPayloadV1) error {
	if payload.EntityID == "" || payload.MemberID == "" {
		return fmt.Errorf("activity event missing entity or member id")
	}

	return s.withTelemetry(ctx, "HandleActivity", payload.EntityID, func(ctx context.Context) error {
		s.metrics.RecordActivityEvent(ctx, string(payload.EntityID), string(payload.Kind))

		occurredAt := payload.OccurredAt
		if occurredAt.IsZero() {
			occurredAt = s.now()
		}

		if err := s.repo.UpsertMember(ctx, payload.EntityID, payload.MemberID, payload.JoinedAt); err != nil {
			return fmt.Errorf("failed to upsert member: %w", err)
		}

		event := &dashboarddb.ActivityEvent{
			EventUUID:    uuid.New().String(),
			EntityID:     string(payload.EntityID),
			MemberID:     string(payload.MemberID),
			ChannelID:    payload.ChannelID,
			Kind:         string(payload.Kind),
			VoiceSeconds: payload.VoiceSeconds,
			OccurredAt:   occurredAt,
		}
		if err := s.repo.RecordActivity(ctx, event); err != nil {
			return fmt.Errorf("failed to record activity: %w", err)
		}

		s.coalescer.OnActivityEvent(ctx, payload.EntityID, ActivityNote{
			MemberID:  payload.MemberID,
			ChannelID: payload.ChannelID,
			At:        occurredAt,
		})
		return nil
	})
}

// Refresh runs the full dashboard pipeline for one entity: pull counters,
// score, rank, compute trends, render, publish.
func (s *DashboardService) Refresh(ctx context.Context, entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, error) {
	var snapshot *dashboardtypes.Snapshot
	err := s.withTelemetry(ctx, "RefreshDashboard", entityID, func(ctx context.Context) error {
		var err error
		snapshot, err = s.refresh(ctx, entityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *DashboardService) refresh(ctx context.Context, entityID dashboardtypes.EntityID) (*dashboardtypes.Snapshot, error) {
	counters, err := s.repo.GetMemberCounters(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member counters: %w", err)
	}

	eligible := make([]dashboardtypes.MemberCounters, 0, len(counters))
	for _, c := range counters {
		if c.MessageCount < s.opts.MinMessagesForScoring {
			continue
		}
		eligible = append(eligible, c)
	}

	records, skipped := s.scoring.Score(eligible)
	full := RankScores(records, 0)

	board := full
	if s.opts.TopN > 0 && len(board) > s.opts.TopN {
		board = board[:s.opts.TopN]
	}

	atRisk := s.atRiskView(full, eligible)

	daily, err := s.repo.GetDailyHistory(ctx, entityID, s.opts.HistoryDays)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily history: %w", err)
	}
	day, week, month := CalculateTrends(daily, s.now())

	hourly, err := s.repo.GetHourlyHistogram(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly histogram: %w", err)
	}

	snapshot := &dashboardtypes.Snapshot{
		EntityID:       entityID,
		GeneratedAt:    s.now(),
		Board:          board,
		AtRisk:         atRisk,
		SkippedMembers: skipped,
		Statistics:     Summarize(records),
		DayTrend:       day,
		WeekTrend:      week,
		MonthTrend:     month,
		PeakHours:      peakHours(hourly, 3),
		DailyActivity:  daily,
	}

	artifact, renderErr := s.renderer.Render(ctx, snapshot)
	if renderErr != nil {
		// Non-fatal: the snapshot publishes without artwork.
		s.logger.WarnContext(ctx, "Dashboard chart render failed, publishing without artwork",
			slog.String("entity_id", string(entityID)),
			slog.Any("error", renderErr),
		)
		s.metrics.RecordRenderFailure(ctx, string(entityID))
		artifact = nil
	}

	summary := BuildSummary(snapshot)

	recreated := false
	publishErr := s.publisher.Update(ctx, entityID, snapshot, artifact, summary)
	if errors.Is(publishErr, ErrSnapshotNotFound) {
		recreated = true
		publishErr = s.publisher.Create(ctx, entityID, snapshot, artifact, summary)
	}
	if publishErr != nil {
		s.announce(ctx, dashboardevents.DashboardRefreshFailedV1, dashboardevents.DashboardRefreshFailedPayloadV1{
			EntityID: entityID,
			Reason:   publishErr.Error(),
		})
		return nil, fmt.Errorf("failed to publish snapshot: %w", publishErr)
	}
	s.metrics.RecordSnapshotPublished(ctx, string(entityID), recreated)

	s.storeSnapshot(snapshot)

	s.announce(ctx, dashboardevents.DashboardRefreshedV1, dashboardevents.DashboardRefreshedPayloadV1{
		EntityID:       entityID,
		GeneratedAt:    snapshot.GeneratedAt,
		BoardSize:      len(board),
		SkippedMembers: skipped,
	})

	return snapshot, nil
}

// announce publishes a module event best-effort; a bus hiccup must not fail
// a refresh that already published its snapshot.
func (s *DashboardService) announce(ctx context.Context, topic string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to announce dashboard event",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
	}
}

// atRiskView picks the lowest-scoring members, worst first, skipping members
// below the tenure floor so newcomers aren't flagged before they settle in.
func (s *DashboardService) atRiskView(full []dashboardtypes.RankedEntry, counters []dashboardtypes.MemberCounters) []dashboardtypes.RankedEntry {
	if s.opts.AtRiskN <= 0 {
		return []dashboardtypes.RankedEntry{}
	}

	tenureByMember := make(map[dashboardtypes.MemberID]int64, len(counters))
	for _, c := range counters {
		tenureByMember[c.MemberID] = c.TenureDays
	}

	atRisk := make([]dashboardtypes.RankedEntry, 0, s.opts.AtRiskN)
	for i := len(full) - 1; i >= 0 && len(atRisk) < s.opts.AtRiskN; i-- {
		if tenureByMember[full[i].MemberID] < s.opts.MinTenureDaysAtRisk {
			continue
		}
		atRisk = append(atRisk, full[i])
	}
	return atRisk
}

// peakHours returns the busiest n hours, busiest first. Empty hours are
// ignored; ties break toward the earlier hour.
func peakHours(histogram map[int]int64, n int) []dashboardtypes.HourCount {
	hours := make([]dashboardtypes.HourCount, 0, len(histogram))
	for hour, count := range histogram {
		if count <= 0 {
			continue
		}
		hours = append(hours, dashboardtypes.HourCount{Hour: hour, Count: count})
	}
	sort.Slice(hours, func(i, j int) bool {
		if hours[i].Count == hours[j].Count {
			return hours[i].Hour < hours[j].Hour
		}
		return hours[i].Count > hours[j].Count
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// BuildSummary renders the textual companion to the dashboard artifact.
func BuildSummary(snapshot *dashboardtypes.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Engagement dashboard — %s\n", snapshot.GeneratedAt.Format("2006-01-02 15:04 MST"))

	if len(snapshot.Board) == 0 {
		b.WriteString("No scorable members yet.\n")
	} else {
		for _, entry := range snapshot.Board {
			fmt.Fprintf(&b, "%d. %s — %.2f\n", entry.Rank, entry.MemberID, entry.CompositeScore)
		}
	}

	fmt.Fprintf(&b, "\nActivity: day %s %+.1f%% | week %s %+.1f%% | month %s %+.1f%%\n",
		snapshot.DayTrend.Direction.Symbol(), snapshot.DayTrend.PercentDelta,
		snapshot.WeekTrend.Direction.Symbol(), snapshot.WeekTrend.PercentDelta,
		snapshot.MonthTrend.Direction.Symbol(), snapshot.MonthTrend.PercentDelta,
	)

	if len(snapshot.AtRisk) > 0 {
		b.WriteString("\nAt risk:\n")
		for _, entry := range snapshot.AtRisk {
			fmt.Fprintf(&b, "- %s (%.2f)\n", entry.MemberID, entry.CompositeScore)
		}
	}

	if len(snapshot.PeakHours) > 0 {
		b.WriteString("\nPeak hours (UTC):")
		for _, h := range snapshot.PeakHours {
			fmt.Fprintf(&b, " %02d:00", h.Hour)
		}
		b.WriteString("\n")
	}

	if snapshot.SkippedMembers > 0 {
		fmt.Fprintf(&b, "\n%d member(s) not scored (unknown join date).\n", snapshot.SkippedMembers)
	}

	return b.String()
}
