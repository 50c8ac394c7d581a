package service

import (
	"fmt"
	"sort"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
)

// membershipIndex maps each user to the one group it belongs to. A user listed
// in two groups is rejected instead of letting one of them win.
func membershipIndex(groups []*types.Group) (map[string]string, error) {
	userToGroup := make(map[string]string)
	for _, g := range groups {
		for _, member := range g.Members {
			if other, ok := userToGroup[member]; ok && other != g.ID {
				return nil, apperrors.ValidationFailed(
					"overlapping group membership",
					fmt.Sprintf("user %s belongs to groups %s and %s", member, other, g.ID),
				)
			}
			userToGroup[member] = g.ID
		}
	}
	return userToGroup, nil
}

// resolveEntity returns the financial entity that carries a user's or group's balance.
func resolveEntity(userToGroup map[string]string, entityType types.EntityType, entityID string) types.EntityRef {
	if entityType == types.EntityTypeUser || entityType == "" {
		if groupID, ok := userToGroup[entityID]; ok {
			return types.EntityRef{EntityType: types.EntityTypeGroup, EntityID: groupID}
		}
		return types.EntityRef{EntityType: types.EntityTypeUser, EntityID: entityID}
	}
	return types.EntityRef{EntityType: entityType, EntityID: entityID}
}

// checkExpenseCurrency rejects an expense booked in a currency other than the
// event's. Either side may be unset.
func checkExpenseCurrency(e *types.Expense, eventCurrency valueobjects.Currency) error {
	if eventCurrency == "" || e.Currency == "" {
		return nil
	}
	c, err := valueobjects.ParseCurrency(e.Currency)
	if err != nil {
		return err
	}
	if c != eventCurrency {
		return apperrors.ValidationFailed(
			valueobjects.ErrCurrencyMismatch,
			fmt.Sprintf("expense %s is in %s, event currency is %s", e.ID, c, eventCurrency),
		)
	}
	return nil
}

// CalculateBalances nets every shared expense into per-entity balances.
// Zero balances are omitted and the result is ordered by entity id.
//
// An expense paid on behalf of others gives the payer's own entity no share: a
// split left in for it is dropped from both sides, so the payer is credited the
// total minus that split. Entity ids must be unique across users and groups,
// since approvals and settlements refer to entities by id alone.
func CalculateBalances(currency string, expenses []*types.Expense, groups []*types.Group) ([]types.Balance, error) {
	userToGroup, err := membershipIndex(groups)
	if err != nil {
		return nil, err
	}

	var eventCurrency valueobjects.Currency
	if currency != "" {
		if eventCurrency, err = valueobjects.ParseCurrency(currency); err != nil {
			return nil, err
		}
	}

	net := make(map[types.EntityRef]valueobjects.Amount)
	for _, e := range expenses {
		if e.IsPrivate {
			continue
		}
		if err := ValidateExpense(e); err != nil {
			return nil, err
		}
		if err := checkExpenseCurrency(e, eventCurrency); err != nil {
			return nil, err
		}

		payer := resolveEntity(userToGroup, types.EntityTypeUser, e.PaidBy)
		credit := e.Amount

		onBehalf := len(e.PaidOnBehalfOf) > 0
		for _, split := range e.Splits {
			debtor := resolveEntity(userToGroup, split.EntityType, split.EntityID)
			if onBehalf && debtor == payer {
				credit -= split.Amount
				continue
			}
			net[debtor] -= split.Amount
		}
		net[payer] += credit
	}

	kinds := make(map[string]types.EntityType, len(net)+len(groups))
	for _, g := range groups {
		kinds[g.ID] = types.EntityTypeGroup
	}
	balances := make([]types.Balance, 0, len(net))
	for ref, amount := range net {
		if kind, ok := kinds[ref.EntityID]; ok && kind != ref.EntityType {
			return nil, apperrors.ValidationFailed(
				"ambiguous entity id",
				fmt.Sprintf("%s is used by both a %s and a %s", ref.EntityID, kind, ref.EntityType),
			)
		}
		kinds[ref.EntityID] = ref.EntityType
		if amount.IsZero() {
			continue
		}
		balances = append(balances, types.Balance{EntityID: ref.EntityID, EntityType: ref.EntityType, Amount: amount})
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].EntityID < balances[j].EntityID
	})
	return balances, nil
}
