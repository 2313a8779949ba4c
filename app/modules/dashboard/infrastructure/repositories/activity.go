package dashboarddb

import (
	"context"
	"fmt"
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
	"github.com/uptrace/bun"
)

// Repository is the dashboard module's aggregation store. Missing members,
// days, and hours simply don't appear in results; callers treat absence as 0.
type Repository interface {
	UpsertMember(ctx context.Context, entityID dashboardtypes.EntityID, memberID dashboardtypes.MemberID, joinedAt *time.Time) error
	RecordActivity(ctx context.Context, event *ActivityEvent) error
	GetMemberCounters(ctx context.Context, entityID dashboardtypes.EntityID) ([]dashboardtypes.MemberCounters, error)
	GetDailyHistory(ctx context.Context, entityID dashboardtypes.EntityID, days int) (map[string]int64, error)
	GetHourlyHistogram(ctx context.Context, entityID dashboardtypes.EntityID) (map[int]int64, error)
}

// RepositoryImpl implements Repository on Postgres via bun.
type RepositoryImpl struct {
	DB *bun.DB
}

// NewRepository creates a new RepositoryImpl.
func NewRepository(db *bun.DB) *RepositoryImpl {
	return &RepositoryImpl{DB: db}
}

// UpsertMember ensures a member row exists, refreshing the join timestamp
// when the adapter supplies one. A nil joinedAt never clears a stored value.
func (r *RepositoryImpl) UpsertMember(ctx context.Context, entityID dashboardtypes.EntityID, memberID dashboardtypes.MemberID, joinedAt *time.Time) error {
	member := &Member{
		EntityID:  string(entityID),
		MemberID:  string(memberID),
		JoinedAt:  joinedAt,
		UpdatedAt: time.Now().UTC(),
	}

	query := r.DB.NewInsert().
		Model(member).
		On("CONFLICT (entity_id, member_id) DO UPDATE").
		Set("updated_at = EXCLUDED.updated_at")
	if joinedAt != nil {
		query = query.Set("joined_at = EXCLUDED.joined_at")
	}

	if _, err := query.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// RecordActivity appends one activity event.
func (r *RepositoryImpl) RecordActivity(ctx context.Context, event *ActivityEvent) error {
	if _, err := r.DB.NewInsert().Model(event).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

// memberCountersRow is the aggregate scan target for GetMemberCounters.
type memberCountersRow struct {
	MemberID     string     `bun:"member_id"`
	JoinedAt     *time.Time `bun:"joined_at"`
	MessageCount int64      `bun:"message_count"`
	VoiceSeconds int64      `bun:"voice_seconds"`
}

// GetMemberCounters aggregates per-member counters for one community. Tenure
// is derived from the stored join timestamp at read time.
func (r *RepositoryImpl) GetMemberCounters(ctx context.Context, entityID dashboardtypes.EntityID) ([]dashboardtypes.MemberCounters, error) {
	var rows []memberCountersRow

	err := r.DB.NewSelect().
		Model((*Member)(nil)).
		Column("m.member_id", "m.joined_at").
		ColumnExpr("COUNT(ae.id) FILTER (WHERE ae.kind = 'message') AS message_count").
		ColumnExpr("COALESCE(SUM(ae.voice_seconds) FILTER (WHERE ae.kind = 'voice'), 0) AS voice_seconds").
		Join("LEFT JOIN activity_events AS ae ON ae.entity_id = m.entity_id AND ae.member_id = m.member_id").
		Where("m.entity_id = ?", string(entityID)).
		GroupExpr("m.member_id, m.joined_at").
		OrderExpr("m.member_id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate member counters: %w", err)
	}

	now := time.Now().UTC()
	counters := make([]dashboardtypes.MemberCounters, 0, len(rows))
	for _, row := range rows {
		c := dashboardtypes.MemberCounters{
			MemberID:     dashboardtypes.MemberID(row.MemberID),
			JoinedAt:     row.JoinedAt,
			MessageCount: row.MessageCount,
			VoiceSeconds: row.VoiceSeconds,
		}
		if row.JoinedAt != nil {
			days := int64(now.Sub(*row.JoinedAt).Hours() / 24)
			if days < 0 {
				days = 0
			}
			c.TenureDays = days
		}
		counters = append(counters, c)
	}
	return counters, nil
}

// GetDailyHistory returns message counts bucketed by day for the trailing
// `days` days. Days with no activity are absent from the map.
func (r *RepositoryImpl) GetDailyHistory(ctx context.Context, entityID dashboardtypes.EntityID, days int) (map[string]int64, error) {
	var rows []struct {
		Day   string `bun:"day"`
		Count int64  `bun:"count"`
	}

	err := r.DB.NewSelect().
		Model((*ActivityEvent)(nil)).
		ColumnExpr("to_char(ae.occurred_at::date, 'YYYY-MM-DD') AS day").
		ColumnExpr("COUNT(*) AS count").
		Where("ae.entity_id = ?", string(entityID)).
		Where("ae.occurred_at >= ?", time.Now().UTC().AddDate(0, 0, -days)).
		GroupExpr("ae.occurred_at::date").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily history: %w", err)
	}

	history := make(map[string]int64, len(rows))
	for _, row := range rows {
		history[row.Day] = row.Count
	}
	return history, nil
}

// GetHourlyHistogram returns event counts per UTC hour of day (0-23) over the
// whole retained history.
func (r *RepositoryImpl) GetHourlyHistogram(ctx context.Context, entityID dashboardtypes.EntityID) (map[int]int64, error) {
	var rows []struct {
		Hour  int   `bun:"hour"`
		Count int64 `bun:"count"`
	}

	err := r.DB.NewSelect().
		Model((*ActivityEvent)(nil)).
		ColumnExpr("EXTRACT(HOUR FROM ae.occurred_at AT TIME ZONE 'UTC')::int AS hour").
		ColumnExpr("COUNT(*) AS count").
		Where("ae.entity_id = ?", string(entityID)).
		GroupExpr("EXTRACT(HOUR FROM ae.occurred_at AT TIME ZONE 'UTC')").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to load hourly histogram: %w", err)
	}

	histogram := make(map[int]int64, len(rows))
	for _, row := range rows {
		histogram[row.Hour] = row.Count
	}
	return histogram, nil
}
