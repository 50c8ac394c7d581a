package service

import (
	"fmt"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/shopspring/decimal"
)

// CalculateSplits divides total among shares according to splitType.
func CalculateSplits(splitType types.SplitType, total valueobjects.Amount, shares []types.SplitInput) ([]types.Split, error) {
	if !splitType.IsValid() {
		return nil, apperrors.ValidationFailed("invalid split type", fmt.Sprintf("unknown split type %q", splitType))
	}
	if total <= 0 {
		return nil, apperrors.ValidationFailed("invalid split", "amount must be greater than zero")
	}
	if len(shares) == 0 {
		return nil, apperrors.ValidationFailed("invalid split", "at least one share is required")
	}
	if err := validateShareEntities(shares); err != nil {
		return nil, err
	}

	var amounts []valueobjects.Amount
	var err error
	switch splitType {
	case types.SplitTypeEqual:
		amounts, err = valueobjects.SplitEqual(total, len(shares))
	case types.SplitTypeRatio:
		ratios := make([]decimal.Decimal, len(shares))
		for i, share := range shares {
			if share.Ratio == nil {
				return nil, apperrors.ValidationFailed("invalid split", fmt.Sprintf("share for %s has no ratio", share.EntityID))
			}
			ratios[i] = *share.Ratio
		}
		amounts, err = valueobjects.SplitByRatio(total, ratios)
	case types.SplitTypeCustom:
		amounts = make([]valueobjects.Amount, len(shares))
		for i, share := range shares {
			if share.Amount == nil {
				return nil, apperrors.ValidationFailed("invalid split", fmt.Sprintf("share for %s has no amount", share.EntityID))
			}
			if *share.Amount < 0 {
				return nil, apperrors.ValidationFailed("invalid split", fmt.Sprintf("share for %s is negative", share.EntityID))
			}
			amounts[i] = *share.Amount
		}
		if sum := valueobjects.Sum(amounts...); sum != total {
			return nil, apperrors.ValidationFailed(
				"split amounts do not match total",
				fmt.Sprintf("splits sum to %s, expense total is %s", sum, total),
			)
		}
	}
	if err != nil {
		return nil, err
	}

	splits := make([]types.Split, len(shares))
	for i, share := range shares {
		splits[i] = types.Split{
			EntityType: share.EntityType,
			EntityID:   share.EntityID,
			Amount:     amounts[i],
			Ratio:      share.Ratio,
		}
	}
	return splits, nil
}

func validateShareEntities(shares []types.SplitInput) error {
	seen := make(map[string]bool, len(shares))
	for _, share := range shares {
		if share.EntityID == "" {
			return apperrors.ValidationFailed("invalid split", "entity id is required")
		}
		if !share.EntityType.IsValid() {
			return apperrors.ValidationFailed("invalid split", fmt.Sprintf("unknown entity type %q", share.EntityType))
		}
		if seen[share.EntityID] {
			return apperrors.ValidationFailed("invalid split", fmt.Sprintf("entity %s appears twice", share.EntityID))
		}
		seen[share.EntityID] = true
	}
	return nil
}

// ValidateExpense checks that a shared expense is fully allocated.
// Private expenses never enter settlement and are not checked.
func ValidateExpense(e *types.Expense) error {
	if e.IsPrivate {
		return nil
	}
	if e.Amount <= 0 {
		return apperrors.ValidationFailed("invalid expense", fmt.Sprintf("expense %s amount must be greater than zero", e.ID))
	}
	if e.PaidBy == "" {
		return apperrors.ValidationFailed("invalid expense", fmt.Sprintf("expense %s has no payer", e.ID))
	}
	if len(e.Splits) == 0 {
		return apperrors.ValidationFailed("invalid expense", fmt.Sprintf("expense %s has no splits", e.ID))
	}

	var sum valueobjects.Amount
	for _, split := range e.Splits {
		if split.EntityID == "" {
			return apperrors.ValidationFailed("invalid expense", fmt.Sprintf("expense %s has a split without entity", e.ID))
		}
		sum += split.Amount
	}
	if sum != e.Amount {
		return apperrors.ValidationFailed(
			"split amounts do not match total",
			fmt.Sprintf("expense %s splits sum to %s, amount is %s", e.ID, sum, e.Amount),
		)
	}
	return nil
}
