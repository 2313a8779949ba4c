package dashboardhandlers

import (
	"log/slog"

	dashboardservice "github.com/clubpulse/pulse-bot/app/modules/dashboard/application"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers is the dashboard module's message handler surface.
type Handlers interface {
	HandleActivityRecorded(msg *message.Message) error
}

// DashboardHandlers implements Handlers for dashboard events.
type DashboardHandlers struct {
	service dashboardservice.Service
	logger  *slog.Logger
}

// NewDashboardHandlers creates a new DashboardHandlers instance.
func NewDashboardHandlers(service dashboardservice.Service, logger *slog.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		service: service,
		logger:  logger,
	}
}
