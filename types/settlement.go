package types

import (
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/pkg/valueobjects"
	"github.com/shopspring/decimal"
)

// SettlementStatus is the payment state of a single transaction.
type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusInitiated SettlementStatus = "initiated"
	SettlementStatusFailed    SettlementStatus = "failed"
	SettlementStatusCompleted SettlementStatus = "completed"
)

// IsValidTransition checks if a payment status transition is allowed
func (s SettlementStatus) IsValidTransition(newStatus SettlementStatus) bool {
	transitions := map[SettlementStatus][]SettlementStatus{
		SettlementStatusPending: {
			SettlementStatusInitiated,
			SettlementStatusCompleted, // marked paid by payee
		},
		SettlementStatusInitiated: {
			SettlementStatusCompleted,
			SettlementStatusFailed,
		},
		SettlementStatusFailed: {
			SettlementStatusInitiated,
			SettlementStatusCompleted, // marked paid by payee
		},
		SettlementStatusCompleted: {}, // Terminal state
	}

	allowed, exists := transitions[s]
	if !exists {
		return false
	}
	for _, candidate := range allowed {
		if candidate == newStatus {
			return true
		}
	}
	return false
}

func (s SettlementStatus) String() string {
	return string(s)
}

// Payment failure reasons recorded by the engine itself.
const (
	FailureReasonRetryRequested  = "retry_requested_by_payer"
	FailureReasonRejectedByPayee = "rejected_by_payee"
)

// PaymentMethodManual marks a transaction the payee confirmed out of band.
const PaymentMethodManual = "manual"

// Balance is an entity's net position. Positive means the entity is owed money.
type Balance struct {
	EntityID   string              `json:"entityId"`
	EntityType EntityType          `json:"entityType"`
	Amount     valueobjects.Amount `json:"amount"`
}

// Settlement is one directed payment obligation between two entities.
type Settlement struct {
	ID                 string               `json:"id"`
	EventID            string               `json:"eventId"`
	FromEntityID       string               `json:"fromEntityId"`
	FromEntityType     EntityType           `json:"fromEntityType"`
	ToEntityID         string               `json:"toEntityId"`
	ToEntityType       EntityType           `json:"toEntityType"`
	FromUserID         string               `json:"fromUserId"`
	ToUserID           string               `json:"toUserId"`
	Amount             valueobjects.Amount  `json:"amount"`
	Currency           string               `json:"currency"`
	SettlementAmount   *valueobjects.Amount `json:"settlementAmount,omitempty"`
	SettlementCurrency string               `json:"settlementCurrency,omitempty"`
	FXRate             *decimal.Decimal     `json:"fxRate,omitempty"`
	Status             SettlementStatus     `json:"status"`
	PaymentMethod      string               `json:"paymentMethod,omitempty"`
	PaymentID          string               `json:"paymentId,omitempty"`
	CheckoutURL        string               `json:"checkoutUrl,omitempty"`
	FailureReason      string               `json:"failureReason,omitempty"`
	RetryCount         int                  `json:"retryCount"`
	InitiatedAt        *time.Time           `json:"initiatedAt,omitempty"`
	FailedAt           *time.Time           `json:"failedAt,omitempty"`
	CompletedAt        *time.Time           `json:"completedAt,omitempty"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

// ChargeAmount is the amount and currency the payment gateway is asked to collect.
func (s *Settlement) ChargeAmount() (valueobjects.Amount, string) {
	if s.SettlementAmount != nil && s.SettlementCurrency != "" {
		return *s.SettlementAmount, s.SettlementCurrency
	}
	return s.Amount, s.Currency
}

// Clone returns a deep copy so callers can mutate without aliasing stored rows.
func (s *Settlement) Clone() *Settlement {
	out := *s
	if s.SettlementAmount != nil {
		v := *s.SettlementAmount
		out.SettlementAmount = &v
	}
	if s.FXRate != nil {
		v := *s.FXRate
		out.FXRate = &v
	}
	out.InitiatedAt = cloneTime(s.InitiatedAt)
	out.FailedAt = cloneTime(s.FailedAt)
	out.CompletedAt = cloneTime(s.CompletedAt)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SettlementPlan is the full set of transactions produced for an event.
type SettlementPlan struct {
	EventID           string              `json:"eventId"`
	Settlements       []*Settlement       `json:"settlements"`
	TotalTransactions int                 `json:"totalTransactions"`
	TotalAmount       valueobjects.Amount `json:"totalAmount"`
	Currency          string              `json:"currency"`
}

// InitiateOptions carries caller preferences for starting a payment.
type InitiateOptions struct {
	UseRealGateway bool `json:"useRealGateway"`
}

// RejectPaymentRequest is the payee's optional rejection reason.
type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}
