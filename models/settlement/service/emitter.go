package service

import (
	"context"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/internal/events"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/services"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// eventEmitter publishes domain events off the request path. Failures are
// logged and never reach the caller.
type eventEmitter struct {
	publisher types.EventPublisher
	pool      JobSubmitter
	log       *zap.SugaredLogger
}

func newEventEmitter(publisher types.EventPublisher, pool JobSubmitter) *eventEmitter {
	return &eventEmitter{
		publisher: publisher,
		pool:      pool,
		log:       logger.GetLogger().Named("events"),
	}
}

func (e *eventEmitter) emit(eventType types.DomainEventType, eventID, userID string, payload interface{}) {
	if e == nil || e.publisher == nil {
		return
	}

	event, err := events.NewDomainEvent(eventType, eventID, userID, payload)
	if err != nil {
		e.log.Warnw("Failed to build domain event", "type", eventType, "eventID", eventID, "error", err)
		return
	}

	publish := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return e.publisher.Publish(ctx, eventID, event)
	}

	if e.pool == nil {
		if err := publish(context.Background()); err != nil {
			e.log.Warnw("Failed to publish domain event", "type", eventType, "eventID", eventID, "error", err)
		}
		return
	}

	if !e.pool.Submit(services.Job{Name: "publish " + string(eventType), Execute: publish}) {
		e.log.Warnw("Domain event dropped, worker pool unavailable", "type", eventType, "eventID", eventID)
	}
}

// emitStatusChange publishes EVENT_STATUS_UPDATED when the status moved.
func (e *eventEmitter) emitStatusChange(before, after *types.Event, userID string) {
	if before == nil || after == nil || before.Status == after.Status {
		return
	}
	e.emit(types.EventTypeEventStatusUpdated, after.ID, userID, types.StatusChangedPayload{
		OldStatus: before.Status,
		NewStatus: after.Status,
	})
}
