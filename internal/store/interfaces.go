package store

import (
	"context"

	"github.com/NomadCrew/nomad-crew-settlement/types"
)

// Store groups every data source the settlement engine reads or writes.
type Store interface {
	Events() EventStore
	Settlements() SettlementStore
	Expenses() ExpenseStore
	Directory() DirectoryStore
}

// EventStore reads events and applies settlement state writes under optimistic versioning.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (*types.Event, error)
	// UpdateSettlementState writes status, approvals and staleness only if the
	// stored version equals expectedVersion. It returns ErrConflict otherwise.
	UpdateSettlementState(ctx context.Context, id string, expectedVersion int64, update types.EventStateUpdate) (*types.Event, error)
}

// SettlementStore owns settlement transaction rows.
type SettlementStore interface {
	// CommitSettlementPlan atomically replaces every settlement of the event and
	// writes the event state. A version mismatch returns ErrConflict and changes nothing.
	CommitSettlementPlan(ctx context.Context, eventID string, expectedVersion int64, settlements []*types.Settlement, update types.EventStateUpdate) (*types.Event, error)
	ListEventSettlements(ctx context.Context, eventID string) ([]*types.Settlement, error)
	GetSettlement(ctx context.Context, id string) (*types.Settlement, error)
	// UpdateSettlement persists s only if the stored status still equals expected.
	UpdateSettlement(ctx context.Context, s *types.Settlement, expected types.SettlementStatus) error
}

// ExpenseStore is the read side of expense records.
type ExpenseStore interface {
	ListEventExpenses(ctx context.Context, eventID string) ([]*types.Expense, error)
}

// DirectoryStore is the read side of groups and participants.
type DirectoryStore interface {
	GetEventGroups(ctx context.Context, eventID string) ([]*types.Group, error)
	GetParticipants(ctx context.Context, eventID string) ([]*types.Participant, error)
}
