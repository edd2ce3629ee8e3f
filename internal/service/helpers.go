package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/itsm-service/internal/events"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func lookupError(resource, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// publishEvent hands the event to the dispatcher. Handler failures are logged
// and never fail the calling operation.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("work_item_id", event.WorkItemID),
			zap.Error(err))
	}
}

func actorFor(userID string) events.Actor {
	if userID == "" {
		return events.SystemActor
	}
	return events.UserActor(userID)
}
