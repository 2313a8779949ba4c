package dashboardevents

import (
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// Topics consumed and produced by the dashboard module.
const (
	// ActivityRecordedV1 is published once per observed activity unit
	// (a message sent, a voice session closed).
	ActivityRecordedV1 = "activity.recorded.v1"

	// DashboardRefreshedV1 announces that a community's dashboard was
	// re-rendered and published.
	DashboardRefreshedV1 = "dashboard.refreshed.v1"

	// DashboardRefreshFailedV1 announces a refresh attempt that was
	// abandoned. The next qualifying activity event retries.
	DashboardRefreshFailedV1 = "dashboard.refresh.failed.v1"
)

// ActivityKind distinguishes the activity units we count.
type ActivityKind string

const (
	ActivityMessage ActivityKind = "message"
	ActivityVoice   ActivityKind = "voice"
)

// ActivityRecordedPayloadV1 is the wire payload for ActivityRecordedV1.
type ActivityRecordedPayloadV1 struct {
	EntityID     dashboardtypes.EntityID `json:"entity_id"`
	MemberID     dashboardtypes.MemberID `json:"member_id"`
	ChannelID    string                  `json:"channel_id"`
	Kind         ActivityKind            `json:"kind"`
	VoiceSeconds int64                   `json:"voice_seconds,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
	// JoinedAt is the member's join timestamp when the platform adapter
	// knows it; nil leaves any stored value untouched.
	JoinedAt *time.Time `json:"joined_at,omitempty"`
}

// DashboardRefreshedPayloadV1 is the wire payload for DashboardRefreshedV1.
type DashboardRefreshedPayloadV1 struct {
	EntityID       dashboardtypes.EntityID `json:"entity_id"`
	GeneratedAt    time.Time               `json:"generated_at"`
	BoardSize      int                     `json:"board_size"`
	SkippedMembers int                     `json:"skipped_members"`
}

// DashboardRefreshFailedPayloadV1 is the wire payload for DashboardRefreshFailedV1.
type DashboardRefreshFailedPayloadV1 struct {
	EntityID dashboardtypes.EntityID `json:"entity_id"`
	Reason   string                  `json:"reason"`
}
