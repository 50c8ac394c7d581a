package service

import (
	"sort"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type position struct {
	ref       types.EntityRef
	remaining valueobjects.Amount
}

// sortPositions orders largest remaining first, ties by entity id.
func sortPositions(ps []position) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].remaining != ps[j].remaining {
			return ps[i].remaining > ps[j].remaining
		}
		return ps[i].ref.EntityID < ps[j].ref.EntityID
	})
}

// PlanSettlements pairs debtors with creditors largest-first until every
// balance is consumed. This greedy pairing is a heuristic: it never produces
// more than debtors+creditors-1 transactions but is not a proven minimum.
func PlanSettlements(eventID string, balances []types.Balance, currency string, groups []*types.Group, now time.Time) *types.SettlementPlan {
	groupsByID := make(map[string]*types.Group, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	var creditors, debtors []position
	for _, b := range balances {
		ref := types.EntityRef{EntityType: b.EntityType, EntityID: b.EntityID}
		switch {
		case b.Amount > 0:
			creditors = append(creditors, position{ref: ref, remaining: b.Amount})
		case b.Amount < 0:
			debtors = append(debtors, position{ref: ref, remaining: -b.Amount})
		}
	}
	sortPositions(creditors)
	sortPositions(debtors)

	plan := &types.SettlementPlan{
		EventID:     eventID,
		Settlements: make([]*types.Settlement, 0),
		Currency:    currency,
	}

	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := &debtors[i], &creditors[j]
		amount := valueobjects.Min(debtor.remaining, creditor.remaining)

		if amount > 0 {
			// Offset creation times so rows list back in plan order.
			createdAt := now.Add(time.Duration(len(plan.Settlements)) * time.Microsecond)
			plan.Settlements = append(plan.Settlements, &types.Settlement{
				ID:             uuid.NewString(),
				EventID:        eventID,
				FromEntityID:   debtor.ref.EntityID,
				FromEntityType: debtor.ref.EntityType,
				ToEntityID:     creditor.ref.EntityID,
				ToEntityType:   creditor.ref.EntityType,
				FromUserID:     payingUser(debtor.ref, groupsByID),
				ToUserID:       payingUser(creditor.ref, groupsByID),
				Amount:         amount,
				Currency:       currency,
				Status:         types.SettlementStatusPending,
				CreatedAt:      createdAt,
				UpdatedAt:      createdAt,
			})
			plan.TotalAmount += amount
		}

		debtor.remaining -= amount
		creditor.remaining -= amount
		if debtor.remaining <= 0 {
			i++
		}
		if creditor.remaining <= 0 {
			j++
		}
	}

	plan.TotalTransactions = len(plan.Settlements)
	return plan
}

// payingUser is the human who sends or receives money for an entity.
func payingUser(ref types.EntityRef, groupsByID map[string]*types.Group) string {
	if ref.EntityType == types.EntityTypeGroup {
		if g, ok := groupsByID[ref.EntityID]; ok {
			return g.PayingUser()
		}
	}
	return ref.EntityID
}

// applyFX fills the converted amount on every transaction of the plan.
func applyFX(plan *types.SettlementPlan, settlementCurrency string, rate decimal.Decimal, convert func(valueobjects.Amount, decimal.Decimal) valueobjects.Amount) {
	for _, s := range plan.Settlements {
		converted := convert(s.Amount, rate)
		r := rate
		s.SettlementAmount = &converted
		s.SettlementCurrency = settlementCurrency
		s.FXRate = &r
	}
}

// entityNets returns each entity's incoming minus outgoing amount across settlements.
func entityNets(settlements []*types.Settlement) map[types.EntityRef]valueobjects.Amount {
	nets := make(map[types.EntityRef]valueobjects.Amount)
	for _, s := range settlements {
		nets[types.EntityRef{EntityType: s.ToEntityType, EntityID: s.ToEntityID}] += s.Amount
		nets[types.EntityRef{EntityType: s.FromEntityType, EntityID: s.FromEntityID}] -= s.Amount
	}
	return nets
}

// affectedEntities lists the ids of entities whose net position differs between
// two plans, including entities that appear in only one of them.
func affectedEntities(before, after map[types.EntityRef]valueobjects.Amount) map[string]bool {
	affected := make(map[string]bool)
	for ref, amount := range before {
		if other, ok := after[ref]; !ok || other != amount {
			affected[ref.EntityID] = true
		}
	}
	for ref := range after {
		if _, ok := before[ref]; !ok {
			affected[ref.EntityID] = true
		}
	}
	return affected
}
