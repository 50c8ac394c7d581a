package types

import (
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/shopspring/decimal"
)

// EntityType distinguishes individual users from groups acting as one financial unit.
type EntityType string

const (
	EntityTypeUser  EntityType = "user"
	EntityTypeGroup EntityType = "group"
)

func (t EntityType) IsValid() bool {
	return t == EntityTypeUser || t == EntityTypeGroup
}

// EntityRef identifies a financial entity.
type EntityRef struct {
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
}

// SplitType is how an expense was divided.
type SplitType string

const (
	SplitTypeEqual  SplitType = "equal"
	SplitTypeRatio  SplitType = "ratio"
	SplitTypeCustom SplitType = "custom"
)

func (t SplitType) IsValid() bool {
	switch t {
	case SplitTypeEqual, SplitTypeRatio, SplitTypeCustom:
		return true
	default:
		return false
	}
}

// Split is one entity's share of an expense.
type Split struct {
	EntityType EntityType          `json:"entityType"`
	EntityID   string              `json:"entityId"`
	Amount     valueobjects.Amount `json:"amount"`
	Ratio      *decimal.Decimal    `json:"ratio,omitempty"`
}

// Expense is a shared expense recorded for an event.
type Expense struct {
	ID             string              `json:"id"`
	EventID        string              `json:"eventId"`
	PaidBy         string              `json:"paidBy"`
	Description    string              `json:"description,omitempty"`
	Amount         valueobjects.Amount `json:"amount"`
	Currency       string              `json:"currency"`
	IsPrivate      bool                `json:"isPrivate"`
	SplitType      SplitType           `json:"splitType"`
	Splits         []Split             `json:"splits"`
	PaidOnBehalfOf []EntityRef         `json:"paidOnBehalfOf,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// SplitInput describes one participant of a split before amounts are computed.
type SplitInput struct {
	EntityType EntityType           `json:"entityType" binding:"required"`
	EntityID   string               `json:"entityId" binding:"required"`
	Ratio      *decimal.Decimal     `json:"ratio,omitempty"`
	Amount     *valueobjects.Amount `json:"amount,omitempty"`
}

// SplitPreviewRequest is the body of the split preview endpoint.
type SplitPreviewRequest struct {
	SplitType SplitType           `json:"splitType" binding:"required"`
	Amount    valueobjects.Amount `json:"amount"`
	Shares    []SplitInput        `json:"shares" binding:"required,min=1,dive"`
}
