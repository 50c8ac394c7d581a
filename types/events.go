package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/errors"
)

type DomainEventType string

const (
	CategorySettlement = "SETTLEMENT"
	CategoryPayment    = "PAYMENT"
	CategoryEvent      = "EVENT"
)

const (
	// Settlement plan events
	EventTypeSettlementGenerated   DomainEventType = CategorySettlement + "_GENERATED"
	EventTypeSettlementRegenerated DomainEventType = CategorySettlement + "_REGENERATED"
	EventTypeSettlementApproved    DomainEventType = CategorySettlement + "_APPROVED"

	// Event lifecycle
	EventTypeEventStatusUpdated DomainEventType = CategoryEvent + "_STATUS_UPDATED"
	EventTypeEventMarkedStale   DomainEventType = CategoryEvent + "_MARKED_STALE"

	// Payment events
	EventTypePaymentInitiated DomainEventType = CategoryPayment + "_INITIATED"
	EventTypePaymentFailed    DomainEventType = CategoryPayment + "_FAILED"
	EventTypePaymentCompleted DomainEventType = CategoryPayment + "_COMPLETED"
	EventTypePaymentRejected  DomainEventType = CategoryPayment + "_REJECTED"
)

// BaseEvent carries the envelope fields of every published domain event.
type BaseEvent struct {
	ID        string          `json:"id"`
	Type      DomainEventType `json:"type"`
	EventID   string          `json:"eventId"`
	UserID    string          `json:"userId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
}

// EventMetadata for tracking and debugging
type EventMetadata struct {
	CorrelationID string            `json:"correlationId,omitempty"`
	Source        string            `json:"source"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// DomainEvent is a settlement lifecycle notification published to subscribers.
type DomainEvent struct {
	BaseEvent
	Metadata EventMetadata   `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Validate checks the envelope fields.
func (e DomainEvent) Validate() error {
	if e.ID == "" {
		return errors.ValidationFailed("invalid event", "event ID is required")
	}
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.EventID == "" {
		return errors.ValidationFailed("invalid event", "owning event ID is required")
	}
	if e.Timestamp.IsZero() {
		return errors.ValidationFailed("invalid event", "timestamp is required")
	}
	return nil
}

// EventPublisher distributes domain events per shared-expense event.
type EventPublisher interface {
	Publish(ctx context.Context, eventID string, event DomainEvent) error
}

// StatusChangedPayload accompanies EVENT_STATUS_UPDATED.
type StatusChangedPayload struct {
	OldStatus EventStatus `json:"oldStatus"`
	NewStatus EventStatus `json:"newStatus"`
}

// PlanPayload accompanies SETTLEMENT_GENERATED and SETTLEMENT_REGENERATED.
type PlanPayload struct {
	TotalTransactions int         `json:"totalTransactions"`
	TotalAmount       string      `json:"totalAmount"`
	Currency          string      `json:"currency"`
	Status            EventStatus `json:"status"`
	AffectedEntities  []string    `json:"affectedEntities,omitempty"`
}

// ApprovalPayload accompanies SETTLEMENT_APPROVED.
type ApprovalPayload struct {
	EntityID    string `json:"entityId"`
	AllApproved bool   `json:"allApproved"`
}

// PaymentPayload accompanies PAYMENT_* events.
type PaymentPayload struct {
	SettlementID  string           `json:"settlementId"`
	Status        SettlementStatus `json:"status"`
	FromUserID    string           `json:"fromUserId"`
	ToUserID      string           `json:"toUserId"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	FailureReason string           `json:"failureReason,omitempty"`
	RetryCount    int              `json:"retryCount"`
}
