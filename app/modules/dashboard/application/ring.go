package dashboardservice

import (
	"time"

	dashboardtypes "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain"
)

// ActivityNote is one remembered activity unit in an entity's recent buffer.
type ActivityNote struct {
	MemberID  dashboardtypes.MemberID `json:"member_id"`
	ChannelID string                  `json:"channel_id"`
	At        time.Time               `json:"at"`
}

// activityRing is a fixed-capacity buffer of the most recent activity notes.
// Pushing past capacity overwrites the oldest entry. Not safe for concurrent
// use; callers hold the owning entity's lock.
type activityRing struct {
	buf  []ActivityNote
	next int
	size int
}

func newActivityRing(capacity int) *activityRing {
	if capacity < 1 {
		capacity = 1
	}
	return &activityRing{buf: make([]ActivityNote, capacity)}
}

func (r *activityRing) Push(note ActivityNote) {
	r.buf[r.next] = note
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Recent returns a most-recent-first copy of the buffered notes.
func (r *activityRing) Recent() []ActivityNote {
	notes := make([]ActivityNote, 0, r.size)
	for i := 1; i <= r.size; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		notes = append(notes, r.buf[idx])
	}
	return notes
}
