package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus is the lifecycle state of a shared-expense event.
type EventStatus string

const (
	EventStatusActive  EventStatus = "active"  // expenses are being recorded
	EventStatusReview  EventStatus = "review"  // a settlement plan awaits approval
	EventStatusPayment EventStatus = "payment" // transactions are being paid
	EventStatusSettled EventStatus = "settled" // every transaction completed
	EventStatusClosed  EventStatus = "closed"  // archived
)

// IsValidTransition checks if a status transition is allowed
func (s EventStatus) IsValidTransition(newStatus EventStatus) bool {
	transitions := map[EventStatus][]EventStatus{
		EventStatusActive: {
			EventStatusReview,
			EventStatusSettled, // zero-transaction plan
			EventStatusPayment, // payment initiated before review finished
		},
		EventStatusReview: {
			EventStatusReview,
			EventStatusPayment,
			EventStatusSettled,
		},
		EventStatusPayment: {
			EventStatusSettled,
		},
		EventStatusSettled: {
			EventStatusClosed,
		},
		EventStatusClosed: {}, // Terminal state
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

func (s EventStatus) String() string {
	return string(s)
}

// LockStatus is the subset of statuses that forbid expense and group edits.
// The empty value means the event is editable.
type LockStatus string

const (
	LockStatusNone    LockStatus = ""
	LockStatusPayment LockStatus = LockStatus(EventStatusPayment)
	LockStatusSettled LockStatus = LockStatus(EventStatusSettled)
	LockStatusClosed  LockStatus = LockStatus(EventStatusClosed)
)

// FXMode selects where exchange rates come from.
type FXMode string

const (
	FXModePredefined FXMode = "predefined"
	FXModeEOD        FXMode = "eod"
)

// SettlementApproval is one entity's sign-off on the current plan.
type SettlementApproval struct {
	Approved    bool       `json:"approved"`
	EntityType  EntityType `json:"entityType"`
	DisplayName string     `json:"displayName"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
}

// Approvals is keyed by entity id.
type Approvals map[string]SettlementApproval

// AllApproved reports whether every entry is approved. An empty map counts as approved.
func (a Approvals) AllApproved() bool {
	for _, approval := range a {
		if !approval.Approved {
			return false
		}
	}
	return true
}

// Clone returns a copy that can be mutated without touching the original.
func (a Approvals) Clone() Approvals {
	out := make(Approvals, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Event holds the settlement-relevant fields of a shared-expense event.
type Event struct {
	ID                  string                     `json:"id"`
	Name                string                     `json:"name"`
	CreatedBy           string                     `json:"createdBy"`
	Admins              []string                   `json:"admins"`
	Currency            string                     `json:"currency"`
	SettlementCurrency  string                     `json:"settlementCurrency,omitempty"`
	FXMode              FXMode                     `json:"fxMode,omitempty"`
	PredefinedRates     map[string]decimal.Decimal `json:"predefinedRates,omitempty"`
	Status              EventStatus                `json:"status"`
	SettlementApprovals Approvals                  `json:"settlementApprovals"`
	SettlementStale     bool                       `json:"settlementStale"`
	Version             int64                      `json:"version"`
	CreatedAt           time.Time                  `json:"createdAt"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
}

// IsAdmin reports whether userID created the event or is listed as an admin.
func (e *Event) IsAdmin(userID string) bool {
	if userID == "" {
		return false
	}
	if e.CreatedBy == userID {
		return true
	}
	for _, admin := range e.Admins {
		if admin == userID {
			return true
		}
	}
	return false
}

// NeedsConversion reports whether settlements must carry a converted amount.
func (e *Event) NeedsConversion() bool {
	return e.SettlementCurrency != "" && e.SettlementCurrency != e.Currency
}

// EventStateUpdate is the full set of fields the settlement engine writes on an event.
type EventStateUpdate struct {
	Status              EventStatus `json:"status"`
	SettlementApprovals Approvals   `json:"settlementApprovals"`
	SettlementStale     bool        `json:"settlementStale"`
}

// StateOf captures the current state of an event as an update, for
// read-modify-write callers that change a single field.
func StateOf(e *Event) EventStateUpdate {
	return EventStateUpdate{
		Status:              e.Status,
		SettlementApprovals: e.SettlementApprovals.Clone(),
		SettlementStale:     e.SettlementStale,
	}
}

// ApprovalResult is returned after an approval is recorded.
type ApprovalResult struct {
	Approvals   Approvals   `json:"approvals"`
	AllApproved bool        `json:"allApproved"`
	Status      EventStatus `json:"status"`
}
