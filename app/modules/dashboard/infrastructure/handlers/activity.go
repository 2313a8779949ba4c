package dashboardhandlers

import (
	"encoding/json"
	"log/slog"

	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
	"github.com/ThreeDotsLabs/watermill/message"
)

// HandleActivityRecorded ingests one activity.recorded.v1 message.
//
// Malformed payloads are logged and dropped: redelivering them can never
// succeed. Store failures are returned so the message is nacked and
// redelivered. Refresh failures never reach this handler; the coalescer
// swallows them and retries on the next qualifying event.
func (h *DashboardHandlers) HandleActivityRecorded(msg *message.Message) error {
	var payload dashboardevents.ActivityRecordedPayloadV1
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.logger.Error("Dropping malformed activity event",
			slog.String("message_uuid", msg.UUID),
			slog.Any("error", err),
		)
		return nil
	}

	if payload.EntityID == "" || payload.MemberID == "" {
		h.logger.Error("Dropping activity event with missing ids",
			slog.String("message_uuid", msg.UUID),
			slog.String("entity_id", string(payload.EntityID)),
			slog.String("member_id", string(payload.MemberID)),
		)
		return nil
	}

	return h.service.HandleActivity(msg.Context(), payload)
}
