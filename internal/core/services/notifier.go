package services

import (
	"context"
	"log/slog"

	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/middleware"
)

// logNotifier announces period lifecycle transitions on the structured log.
// It is the default Notifier; deployments with an upstream cache or static
// page regeneration swap in their own implementation.
type logNotifier struct{}

// NewLogNotifier creates a Notifier that writes transitions to the request log.
func NewLogNotifier() portssvc.Notifier {
	return logNotifier{}
}

var _ portssvc.Notifier = logNotifier{}

func (logNotifier) PeriodChanged(ctx context.Context, roomID, periodID string, event portssvc.PeriodEvent) {
	middleware.GetLoggerFromCtx(ctx).Info("Period lifecycle event",
		slog.String("event", string(event)),
		slog.String("room_id", roomID),
		slog.String("period_id", periodID))
}
