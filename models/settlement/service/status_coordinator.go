package service

import (
	"context"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"go.uber.org/zap"
)

// StatusCoordinator answers whether an event may be edited and records the
// edits that invalidate a plan under review.
type StatusCoordinator struct {
	events  store.EventStore
	emitter *eventEmitter
	metrics *settlementMetrics
	log     *zap.SugaredLogger
}

func NewStatusCoordinator(events store.EventStore, publisher types.EventPublisher, pool JobSubmitter) *StatusCoordinator {
	return &StatusCoordinator{
		events:  events,
		emitter: newEventEmitter(publisher, pool),
		metrics: newSettlementMetrics(),
		log:     logger.GetLogger().Named("event-status"),
	}
}

var _ StatusCoordinatorInterface = (*StatusCoordinator)(nil)

// lockReasons holds the message returned for each locked status.
var lockReasons = map[types.LockStatus]string{
	types.LockStatusPayment: "Payments are in progress.",
	types.LockStatusSettled: "The event is settled.",
	types.LockStatusClosed:  "The event is closed.",
}

// LockStatusOf returns the lock implied by an event status. Review is not locked.
func LockStatusOf(status types.EventStatus) types.LockStatus {
	switch status {
	case types.EventStatusPayment:
		return types.LockStatusPayment
	case types.EventStatusSettled:
		return types.LockStatusSettled
	case types.EventStatusClosed:
		return types.LockStatusClosed
	default:
		return types.LockStatusNone
	}
}

func (c *StatusCoordinator) GetEventLockStatus(ctx context.Context, eventID string) (types.LockStatus, error) {
	event, err := c.events.GetEvent(ctx, eventID)
	if err != nil {
		return types.LockStatusNone, translateStoreError(err, "Event", eventID)
	}
	return LockStatusOf(event.Status), nil
}

// RequireEditableEvent returns Forbidden while expenses and groups are locked.
func (c *StatusCoordinator) RequireEditableEvent(ctx context.Context, eventID string) error {
	lock, err := c.GetEventLockStatus(ctx, eventID)
	if err != nil {
		return err
	}
	if lock == types.LockStatusNone {
		return nil
	}
	return apperrors.Forbidden(lockReasons[lock], "event status is "+string(lock))
}

// RequireActiveEvent is the old name of RequireEditableEvent.
//
// Deprecated: use RequireEditableEvent.
func (c *StatusCoordinator) RequireActiveEvent(ctx context.Context, eventID string) error {
	return c.RequireEditableEvent(ctx, eventID)
}

// MarkStaleIfInReview flags the plan stale after an expense or group edit during review.
func (c *StatusCoordinator) MarkStaleIfInReview(ctx context.Context, eventID string) error {
	before, after, err := updateEventState(ctx, c.events, c.metrics, "mark-stale", eventID, func(event *types.Event) (*types.EventStateUpdate, error) {
		if event.Status != types.EventStatusReview || event.SettlementStale {
			return nil, nil
		}
		update := types.StateOf(event)
		update.SettlementStale = true
		return &update, nil
	})
	if err != nil {
		return err
	}
	if !before.SettlementStale && after.SettlementStale {
		c.log.Infow("Settlement plan marked stale", "eventID", eventID)
		c.emitter.emit(types.EventTypeEventMarkedStale, eventID, "", types.StatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
		})
	}
	return nil
}

// CloseEvent archives a settled event.
func (c *StatusCoordinator) CloseEvent(ctx context.Context, eventID, userID string) (*types.Event, error) {
	before, after, err := updateEventState(ctx, c.events, c.metrics, "close", eventID, func(event *types.Event) (*types.EventStateUpdate, error) {
		if !event.IsAdmin(userID) {
			return nil, apperrors.Forbidden("not allowed to close event", "only the event creator or an admin can close the event")
		}
		if event.Status != types.EventStatusSettled {
			return nil, apperrors.InvalidStatusTransition(string(event.Status), string(types.EventStatusClosed))
		}
		update := types.StateOf(event)
		update.Status = types.EventStatusClosed
		return &update, nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Infow("Event closed", "eventID", eventID, "userID", userID)
	c.emitter.emitStatusChange(before, after, userID)
	return after, nil
}
