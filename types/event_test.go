package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventStatus_IsValidTransition(t *testing.T) {
	tests := []struct {
		from     EventStatus
		to       EventStatus
		expected bool
	}{
		{EventStatusActive, EventStatusReview, true},
		{EventStatusActive, EventStatusSettled, true},
		{EventStatusActive, EventStatusPayment, true},
		{EventStatusActive, EventStatusClosed, false},
		{EventStatusReview, EventStatusReview, true},
		{EventStatusReview, EventStatusPayment, true},
		{EventStatusReview, EventStatusSettled, true},
		{EventStatusReview, EventStatusActive, false},
		{EventStatusPayment, EventStatusSettled, true},
		{EventStatusPayment, EventStatusReview, false},
		{EventStatusSettled, EventStatusClosed, true},
		{EventStatusSettled, EventStatusActive, false},
		{EventStatusClosed, EventStatusActive, false},
		{EventStatus("bogus"), EventStatusActive, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.IsValidTransition(tt.to))
		})
	}
}

func TestSettlementStatus_IsValidTransition(t *testing.T) {
	assert.True(t, SettlementStatusPending.IsValidTransition(SettlementStatusInitiated))
	assert.True(t, SettlementStatusInitiated.IsValidTransition(SettlementStatusFailed))
	assert.True(t, SettlementStatusFailed.IsValidTransition(SettlementStatusInitiated))
	assert.True(t, SettlementStatusInitiated.IsValidTransition(SettlementStatusCompleted))
	assert.False(t, SettlementStatusCompleted.IsValidTransition(SettlementStatusFailed))
	assert.False(t, SettlementStatusPending.IsValidTransition(SettlementStatusFailed))
}

func TestApprovals(t *testing.T) {
	now := time.Now()
	approvals := Approvals{
		"u1": {Approved: true, EntityType: EntityTypeUser, ApprovedAt: &now},
		"g1": {Approved: false, EntityType: EntityTypeGroup},
	}
	assert.False(t, approvals.AllApproved())

	clone := approvals.Clone()
	clone["g1"] = SettlementApproval{Approved: true, EntityType: EntityTypeGroup}
	assert.True(t, clone.AllApproved())
	assert.False(t, approvals["g1"].Approved)

	assert.True(t, Approvals{}.AllApproved())
}

func TestEvent_IsAdmin(t *testing.T) {
	event := &Event{CreatedBy: "creator", Admins: []string{"admin"}}
	assert.True(t, event.IsAdmin("creator"))
	assert.True(t, event.IsAdmin("admin"))
	assert.False(t, event.IsAdmin("guest"))
	assert.False(t, event.IsAdmin(""))
}

func TestGroup_PayingUser(t *testing.T) {
	g := &Group{PayerUserID: "u1", Representative: "u2"}
	assert.Equal(t, "u1", g.PayingUser())
	assert.True(t, g.CanActFor("u1"))
	assert.True(t, g.CanActFor("u2"))
	assert.False(t, g.CanActFor("u3"))

	g = &Group{Representative: "u2"}
	assert.Equal(t, "u2", g.PayingUser())
}
