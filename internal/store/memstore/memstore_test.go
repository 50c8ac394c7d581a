package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EventVersioning(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutEvent(&types.Event{ID: "e1", CreatedBy: "admin", Currency: "USD"})

	event, err := s.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.Version)
	assert.Equal(t, types.EventStatusActive, event.Status)

	updated, err := s.UpdateSettlementState(ctx, "e1", 1, types.EventStateUpdate{
		Status:              types.EventStatusReview,
		SettlementApprovals: types.Approvals{"u1": {EntityType: types.EntityTypeUser}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	_, err = s.UpdateSettlementState(ctx, "e1", 1, types.EventStateUpdate{Status: types.EventStatusPayment})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.UpdateSettlementState(ctx, "missing", 1, types.EventStateUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Returned values do not alias stored state.
	updated.SettlementApprovals["u1"] = types.SettlementApproval{Approved: true}
	event, err = s.GetEvent(ctx, "e1")
	require.NoError(t, err)
	assert.False(t, event.SettlementApprovals["u1"].Approved)
}

func TestStore_CommitSettlementPlanReplacesRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutEvent(&types.Event{ID: "e1", CreatedBy: "admin", Currency: "USD"})
	s.PutEvent(&types.Event{ID: "e2", CreatedBy: "admin", Currency: "USD"})

	now := time.Now()
	rows := func(eventID string, ids ...string) []*types.Settlement {
		out := make([]*types.Settlement, 0, len(ids))
		for i, id := range ids {
			out = append(out, &types.Settlement{ID: id, EventID: eventID, Amount: 100, CreatedAt: now.Add(time.Duration(i) * time.Second)})
		}
		return out
	}

	_, err := s.CommitSettlementPlan(ctx, "e2", 1, rows("e2", "other"), types.EventStateUpdate{Status: types.EventStatusReview})
	require.NoError(t, err)
	_, err = s.CommitSettlementPlan(ctx, "e1", 1, rows("e1", "a", "b"), types.EventStateUpdate{Status: types.EventStatusReview})
	require.NoError(t, err)
	_, err = s.CommitSettlementPlan(ctx, "e1", 2, rows("e1", "c"), types.EventStateUpdate{Status: types.EventStatusReview})
	require.NoError(t, err)

	list, err := s.ListEventSettlements(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c", list[0].ID)

	// Stale version leaves rows untouched.
	_, err = s.CommitSettlementPlan(ctx, "e1", 2, rows("e1", "d"), types.EventStateUpdate{Status: types.EventStatusReview})
	assert.ErrorIs(t, err, store.ErrConflict)
	list, err = s.ListEventSettlements(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "c", list[0].ID)

	other, err := s.ListEventSettlements(ctx, "e2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestStore_UpdateSettlementCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutEvent(&types.Event{ID: "e1"})
	_, err := s.CommitSettlementPlan(ctx, "e1", 1, []*types.Settlement{
		{ID: "s1", EventID: "e1", Status: types.SettlementStatusPending},
	}, types.EventStateUpdate{Status: types.EventStatusReview})
	require.NoError(t, err)

	st, err := s.GetSettlement(ctx, "s1")
	require.NoError(t, err)
	st.Status = types.SettlementStatusInitiated
	require.NoError(t, s.UpdateSettlement(ctx, st, types.SettlementStatusPending))

	err = s.UpdateSettlement(ctx, st, types.SettlementStatusPending)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.GetSettlement(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_ReadSide(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.AddGroup(&types.Group{ID: "g1", EventID: "e1", Members: []string{"u1", "u2"}, PayerUserID: "u1"})
	s.AddParticipant("e1", &types.Participant{UserID: "u3", Status: types.ParticipantStatusAccepted})
	s.AddExpense(&types.Expense{ID: "x1", EventID: "e1", PaidBy: "u1", Amount: 100})
	s.ReplaceExpenses("e1", []*types.Expense{{ID: "x2", PaidBy: "u3", Amount: 200}})

	groups, err := s.GetEventGroups(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	groups[0].Members[0] = "mutated"

	groups, err = s.GetEventGroups(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "u1", groups[0].Members[0])

	participants, err := s.GetParticipants(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, participants, 1)

	expenses, err := s.ListEventExpenses(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "x2", expenses[0].ID)
	assert.Equal(t, "e1", expenses[0].EventID)
}
