package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Ensure EventStore implements store.EventStore.
var _ store.EventStore = (*EventStore)(nil)

const eventColumns = `id, name, created_by, admins, currency, COALESCE(settlement_currency, ''),
	fx_mode, predefined_rates, status, settlement_approvals, settlement_stale, version,
	created_at, updated_at`

// EventStore implements store.EventStore using PostgreSQL.
type EventStore struct {
	pool Pool
}

// NewEventStore creates a new EventStore instance.
func NewEventStore(pool Pool) *EventStore {
	return &EventStore{pool: pool}
}

// GetEvent retrieves an event by its ID.
func (s *EventStore) GetEvent(ctx context.Context, id string) (*types.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	event, err := scanEvent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError(err, "get event")
	}
	return event, nil
}

// UpdateSettlementState writes the settlement fields when the version matches.
func (s *EventStore) UpdateSettlementState(ctx context.Context, id string, expectedVersion int64, update types.EventStateUpdate) (*types.Event, error) {
	return updateEventState(ctx, s.pool, id, expectedVersion, update)
}

// updateEventState is shared with CommitSettlementPlan so the event write can join a transaction.
func updateEventState(ctx context.Context, q querier, id string, expectedVersion int64, update types.EventStateUpdate) (*types.Event, error) {
	approvals := update.SettlementApprovals
	if approvals == nil {
		approvals = types.Approvals{}
	}
	approvalsJSON, err := json.Marshal(approvals)
	if err != nil {
		return nil, fmt.Errorf("marshal settlement approvals: %w", err)
	}

	query := `
		UPDATE events
		SET status = $3, settlement_approvals = $4, settlement_stale = $5,
		    version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING ` + eventColumns

	event, err := scanEvent(q.QueryRow(ctx, query,
		id,
		expectedVersion,
		string(update.Status),
		approvalsJSON,
		update.SettlementStale,
	))
	if err == nil {
		return event, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, mapError(err, "update event settlement state")
	}

	// Zero rows: either the event is gone or another writer bumped the version.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, mapError(err, "check event exists")
	}
	if !exists {
		return nil, fmt.Errorf("update event settlement state: %w", store.ErrNotFound)
	}
	return nil, fmt.Errorf("update event settlement state: version %d is stale: %w", expectedVersion, store.ErrConflict)
}

func scanEvent(row pgx.Row) (*types.Event, error) {
	var (
		event         types.Event
		fxMode        string
		status        string
		ratesJSON     []byte
		approvalsJSON []byte
	)
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.CreatedBy,
		&event.Admins,
		&event.Currency,
		&event.SettlementCurrency,
		&fxMode,
		&ratesJSON,
		&status,
		&approvalsJSON,
		&event.SettlementStale,
		&event.Version,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.FXMode = types.FXMode(fxMode)
	event.Status = types.EventStatus(status)

	event.PredefinedRates = map[string]decimal.Decimal{}
	if len(ratesJSON) > 0 {
		if err := json.Unmarshal(ratesJSON, &event.PredefinedRates); err != nil {
			return nil, fmt.Errorf("decode predefined rates: %w", err)
		}
	}
	event.SettlementApprovals = types.Approvals{}
	if len(approvalsJSON) > 0 {
		if err := json.Unmarshal(approvalsJSON, &event.SettlementApprovals); err != nil {
			return nil, fmt.Errorf("decode settlement approvals: %w", err)
		}
	}
	return &event, nil
}
