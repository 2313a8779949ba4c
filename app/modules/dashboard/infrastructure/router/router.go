package dashboardrouter

import (
	"fmt"
	"log/slog"

	dashboardevents "github.com/clubpulse/pulse-bot/app/modules/dashboard/domain/events"
	dashboardhandlers "github.com/clubpulse/pulse-bot/app/modules/dashboard/infrastructure/handlers"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// DashboardRouter wires dashboard module handlers into the watermill router.
type DashboardRouter struct {
	logger     *slog.Logger
	router     *message.Router
	subscriber message.Subscriber
}

// NewDashboardRouter creates a new DashboardRouter.
func NewDashboardRouter(logger *slog.Logger, router *message.Router, subscriber message.Subscriber) *DashboardRouter {
	return &DashboardRouter{
		logger:     logger,
		router:     router,
		subscriber: subscriber,
	}
}

// Configure registers middleware and the module's handlers.
func (r *DashboardRouter) Configure(handlers dashboardhandlers.Handlers) error {
	r.router.AddMiddleware(
		middleware.CorrelationID,
		middleware.Recoverer,
	)

	if err := r.registerHandlers(handlers); err != nil {
		return fmt.Errorf("failed to register dashboard handlers: %w", err)
	}
	return nil
}

func (r *DashboardRouter) registerHandlers(handlers dashboardhandlers.Handlers) error {
	r.router.AddNoPublisherHandler(
		"dashboard.activity.recorded",
		dashboardevents.ActivityRecordedV1,
		r.subscriber,
		handlers.HandleActivityRecorded,
	)

	r.logger.Info("Dashboard handlers registered",
		slog.String("topic", dashboardevents.ActivityRecordedV1),
	)
	return nil
}
