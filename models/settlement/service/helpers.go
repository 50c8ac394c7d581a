package service

import (
	"context"
	"errors"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/types"
)

// maxStateAttempts bounds optimistic read-modify-write retries.
const maxStateAttempts = 3

// translateStoreError maps store sentinels onto AppErrors.
func translateStoreError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(entity, id)
	case errors.Is(err, store.ErrConflict):
		return apperrors.NewConflictError("concurrent update", err.Error())
	case errors.Is(err, store.ErrForbidden):
		return apperrors.Forbidden("access denied", err.Error())
	default:
		return apperrors.NewDatabaseError(err)
	}
}

// stateMutation inspects a freshly read event and returns the state to write,
// or nil when nothing needs to change.
type stateMutation func(event *types.Event) (*types.EventStateUpdate, error)

// updateEventState applies mutate under optimistic versioning, rereading the
// event after each lost race. It returns the event before and after the write.
func updateEventState(ctx context.Context, events store.EventStore, metrics *settlementMetrics, op, eventID string, mutate stateMutation) (before, after *types.Event, err error) {
	for attempt := 1; attempt <= maxStateAttempts; attempt++ {
		event, err := events.GetEvent(ctx, eventID)
		if err != nil {
			return nil, nil, translateStoreError(err, "Event", eventID)
		}

		update, err := mutate(event)
		if err != nil {
			return event, nil, err
		}
		if update == nil {
			return event, event, nil
		}
		if update.Status != event.Status && !event.Status.IsValidTransition(update.Status) {
			return event, nil, apperrors.InvalidStatusTransition(string(event.Status), string(update.Status))
		}

		updated, err := events.UpdateSettlementState(ctx, eventID, event.Version, *update)
		if err == nil {
			return event, updated, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return event, nil, translateStoreError(err, "Event", eventID)
		}
		metrics.conflicts.WithLabelValues(op).Inc()
	}
	return nil, nil, apperrors.NewConflictError(
		"event was modified concurrently",
		"please retry the request",
	)
}
