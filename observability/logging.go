package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide structured logger. Production gets JSON at
// info level; anything else gets text at debug level for local readability.
func NewLogger(environment string) *slog.Logger {
	var handler slog.Handler
	if environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.New(handler).With(slog.String("service", "pulse-bot"))
}
