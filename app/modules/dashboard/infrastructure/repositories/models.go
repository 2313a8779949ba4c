package dashboarddb

import (
	"time"

	"github.com/uptrace/bun"
)

// Member is one known community member. JoinedAt may be null when the
// platform adapter has never reported a join timestamp; such members are
// excluded from scoring.
type Member struct {
	bun.BaseModel `bun:"table:members,alias:m"`

	ID        int64      `bun:"id,pk,autoincrement"`
	EntityID  string     `bun:"entity_id,notnull"`
	MemberID  string     `bun:"member_id,notnull"`
	JoinedAt  *time.Time `bun:"joined_at,nullzero"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

// ActivityEvent is one observed activity unit (a message, a closed voice
// session). Counters are derived by aggregating this table, never stored.
type ActivityEvent struct {
	bun.BaseModel `bun:"table:activity_events,alias:ae"`

	ID           int64     `bun:"id,pk,autoincrement"`
	EventUUID    string    `bun:"event_uuid,notnull,unique"`
	EntityID     string    `bun:"entity_id,notnull"`
	MemberID     string    `bun:"member_id,notnull"`
	ChannelID    string    `bun:"channel_id"`
	Kind         string    `bun:"kind,notnull"`
	VoiceSeconds int64     `bun:"voice_seconds,notnull,default:0"`
	OccurredAt   time.Time `bun:"occurred_at,notnull"`
}
