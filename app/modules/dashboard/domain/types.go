package dashboardtypes

import (
	"time"
)

// EntityID identifies an independent community tenant.
type EntityID string

// MemberID identifies a member within a community.
type MemberID string

// MemberCounters is an immutable per-member counter snapshot pulled from the
// aggregation store for one scoring pass.
type MemberCounters struct {
	MemberID     MemberID   `json:"member_id"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"` // nil means tenure is unknown; scoring skips the member
	TenureDays   int64      `json:"tenure_days"`
	MessageCount int64      `json:"message_count"`
	VoiceSeconds int64      `json:"voice_seconds"`
}

// EngagementWeights holds the blend used to compute composite scores.
// Weights are expected to sum to 1.0; Normalize corrects them when they don't.
type EngagementWeights struct {
	Tenure  float64 `json:"tenure" yaml:"tenure"`
	Message float64 `json:"message" yaml:"message"`
	Voice   float64 `json:"voice" yaml:"voice"`
}

// Sum returns the raw weight sum.
func (w EngagementWeights) Sum() float64 {
	return w.Tenure + w.Message + w.Voice
}

// Normalize returns weights scaled so they sum to 1.0. Idempotent: normalizing
// already-normalized weights returns them unchanged (within the 0.01 tolerance).
// Returns true when a correction was applied.
func (w EngagementWeights) Normalize() (EngagementWeights, bool) {
	sum := w.Sum()
	if sum <= 0 {
		// Degenerate configuration; fall back to an even blend.
		return EngagementWeights{Tenure: 1.0 / 3, Message: 1.0 / 3, Voice: 1.0 / 3}, true
	}
	if diff := sum - 1.0; diff < 0.01 && diff > -0.01 {
		return w, false
	}
	return EngagementWeights{
		Tenure:  w.Tenure / sum,
		Message: w.Message / sum,
		Voice:   w.Voice / sum,
	}, true
}

// ScoreRecord carries the normalized sub-scores and the weighted composite for
// one member. All values are in [0,100], rounded to 2 decimals.
type ScoreRecord struct {
	MemberID       MemberID `json:"member_id"`
	TenureScore    float64  `json:"tenure_score"`
	MessageScore   float64  `json:"message_score"`
	VoiceScore     float64  `json:"voice_score"`
	CompositeScore float64  `json:"composite_score"`
}

// RankedEntry is a ScoreRecord with its dense 1-based rank.
type RankedEntry struct {
	Rank int `json:"rank"`
	ScoreRecord
}

// RankNotFound is returned by rank lookups for members that were skipped by
// scoring or truncated out of the board.
const RankNotFound = -1

// MetricSummary holds avg/min/max for one score column.
type MetricSummary struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScoreStatistics summarizes a score set. All-zero on empty input.
type ScoreStatistics struct {
	Count     int           `json:"count"`
	Composite MetricSummary `json:"composite"`
	Tenure    MetricSummary `json:"tenure"`
	Message   MetricSummary `json:"message"`
	Voice     MetricSummary `json:"voice"`
}

// TrendDirection flags which way a trend window moved.
type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Symbol returns the display glyph for the direction.
func (d TrendDirection) Symbol() string {
	switch d {
	case TrendUp:
		return "📈"
	case TrendDown:
		return "📉"
	default:
		return "➖"
	}
}

// TrendWindow compares a counter window against the adjacent prior window.
// When PriorSum is 0, PercentDelta stays 0 regardless of CurrentSum; the
// direction alone signals growth from nothing.
type TrendWindow struct {
	Label        string         `json:"label"`
	CurrentSum   int64          `json:"current_sum"`
	PriorSum     int64          `json:"prior_sum"`
	PercentDelta float64        `json:"percent_delta"`
	Direction    TrendDirection `json:"direction"`
}

// HourCount is one bucket of the hourly activity histogram.
type HourCount struct {
	Hour  int   `json:"hour"`
	Count int64 `json:"count"`
}

// Snapshot is the fully assembled dashboard state handed to the renderer and
// publisher. It is a value object; the orchestrator builds a fresh one per
// refresh and never mutates a published snapshot.
type Snapshot struct {
	EntityID       EntityID        `json:"entity_id"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Board          []RankedEntry   `json:"board"`
	AtRisk         []RankedEntry   `json:"at_risk"`
	SkippedMembers int             `json:"skipped_members"`
	Statistics     ScoreStatistics `json:"statistics"`
	DayTrend       TrendWindow     `json:"day_trend"`
	WeekTrend      TrendWindow     `json:"week_trend"`
	MonthTrend     TrendWindow     `json:"month_trend"`
	PeakHours      []HourCount     `json:"peak_hours"`
	DailyActivity  map[string]int64 `json:"daily_activity"`
}
