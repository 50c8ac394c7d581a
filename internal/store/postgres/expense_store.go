package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
)

var (
	_ store.ExpenseStore   = (*ExpenseStore)(nil)
	_ store.DirectoryStore = (*DirectoryStore)(nil)
)

// ExpenseStore reads expenses recorded by the expense service.
type ExpenseStore struct {
	pool Pool
}

func NewExpenseStore(pool Pool) *ExpenseStore {
	return &ExpenseStore{pool: pool}
}

// ListEventExpenses returns every expense of the event, private ones included.
func (s *ExpenseStore) ListEventExpenses(ctx context.Context, eventID string) ([]*types.Expense, error) {
	query := `
		SELECT id, event_id, paid_by, description, amount_cents, currency, is_private,
		       split_type, splits, paid_on_behalf_of, created_at
		FROM expenses
		WHERE event_id = $1
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, mapError(err, "list expenses")
	}
	defer rows.Close()

	expenses := make([]*types.Expense, 0)
	for rows.Next() {
		var (
			e            types.Expense
			amount       int64
			splitType    string
			splitsJSON   []byte
			onBehalfJSON []byte
		)
		if err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.PaidBy,
			&e.Description,
			&amount,
			&e.Currency,
			&e.IsPrivate,
			&splitType,
			&splitsJSON,
			&onBehalfJSON,
			&e.CreatedAt,
		); err != nil {
			return nil, mapError(err, "scan expense")
		}
		e.Amount = valueobjects.Amount(amount)
		e.SplitType = types.SplitType(splitType)
		if len(splitsJSON) > 0 {
			if err := json.Unmarshal(splitsJSON, &e.Splits); err != nil {
				return nil, fmt.Errorf("decode splits of expense %s: %w", e.ID, err)
			}
		}
		if len(onBehalfJSON) > 0 {
			if err := json.Unmarshal(onBehalfJSON, &e.PaidOnBehalfOf); err != nil {
				return nil, fmt.Errorf("decode paidOnBehalfOf of expense %s: %w", e.ID, err)
			}
		}
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list expenses")
	}
	return expenses, nil
}

// DirectoryStore reads groups and participants.
type DirectoryStore struct {
	pool Pool
}

func NewDirectoryStore(pool Pool) *DirectoryStore {
	return &DirectoryStore{pool: pool}
}

// GetEventGroups returns the event's groups ordered by id.
func (s *DirectoryStore) GetEventGroups(ctx context.Context, eventID string) ([]*types.Group, error) {
	query := `
		SELECT id, event_id, name, members, payer_user_id, representative
		FROM event_groups
		WHERE event_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, mapError(err, "list groups")
	}
	defer rows.Close()

	groups := make([]*types.Group, 0)
	for rows.Next() {
		var g types.Group
		if err := rows.Scan(&g.ID, &g.EventID, &g.Name, &g.Members, &g.PayerUserID, &g.Representative); err != nil {
			return nil, mapError(err, "scan group")
		}
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list groups")
	}
	return groups, nil
}

// GetParticipants returns every participant of the event regardless of status.
func (s *DirectoryStore) GetParticipants(ctx context.Context, eventID string) ([]*types.Participant, error) {
	query := `
		SELECT user_id, display_name, status
		FROM event_participants
		WHERE event_id = $1
		ORDER BY user_id`

	rows, err := s.pool.Query(ctx, query, eventID)
	if err != nil {
		return nil, mapError(err, "list participants")
	}
	defer rows.Close()

	participants := make([]*types.Participant, 0)
	for rows.Next() {
		var (
			p      types.Participant
			status string
		)
		if err := rows.Scan(&p.UserID, &p.DisplayName, &status); err != nil {
			return nil, mapError(err, "scan participant")
		}
		p.Status = types.ParticipantStatus(status)
		participants = append(participants, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list participants")
	}
	return participants, nil
}
