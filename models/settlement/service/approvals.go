package service

import (
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/types"
)

// BuildApprovalsMap seeds one unapproved entry per group and per accepted
// participant outside any group. Entities with no financial activity still
// get an entry.
func BuildApprovalsMap(groups []*types.Group, participants []*types.Participant) types.Approvals {
	approvals := make(types.Approvals)
	grouped := make(map[string]bool)
	for _, g := range groups {
		approvals[g.ID] = types.SettlementApproval{
			Approved:    false,
			EntityType:  types.EntityTypeGroup,
			DisplayName: g.Name,
		}
		for _, member := range g.Members {
			grouped[member] = true
		}
	}
	for _, p := range participants {
		if p.Status != types.ParticipantStatusAccepted || grouped[p.UserID] {
			continue
		}
		name := p.DisplayName
		if name == "" {
			name = p.UserID
		}
		approvals[p.UserID] = types.SettlementApproval{
			Approved:    false,
			EntityType:  types.EntityTypeUser,
			DisplayName: name,
		}
	}
	return approvals
}

// carryForwardApprovals copies earlier approvals of unaffected entities into fresh.
func carryForwardApprovals(fresh, previous types.Approvals, affected map[string]bool) types.Approvals {
	for id, entry := range fresh {
		if affected[id] {
			continue
		}
		if old, ok := previous[id]; ok && old.Approved {
			entry.Approved = true
			entry.ApprovedAt = old.ApprovedAt
			fresh[id] = entry
		}
	}
	return fresh
}

// resolveApprovalEntity decides which entry userID approves. A user's own
// entry comes first, then any group the user represents or pays for.
func resolveApprovalEntity(approvals types.Approvals, groups []*types.Group, userID string) (string, error) {
	alreadyApproved := false

	if entry, ok := approvals[userID]; ok && entry.EntityType == types.EntityTypeUser {
		if !entry.Approved {
			return userID, nil
		}
		alreadyApproved = true
	}

	for _, g := range groups {
		if !g.CanActFor(userID) {
			continue
		}
		entry, ok := approvals[g.ID]
		if !ok {
			continue
		}
		if !entry.Approved {
			return g.ID, nil
		}
		alreadyApproved = true
	}

	if alreadyApproved {
		return "", apperrors.InvalidState("settlement already approved", "every entity you can approve for has already approved")
	}
	return "", apperrors.Forbidden("not allowed to approve", "you are not a participant or group representative in this settlement")
}

// recordApproval returns a copy of approvals with entityID approved at now.
func recordApproval(approvals types.Approvals, entityID string, now time.Time) types.Approvals {
	out := approvals.Clone()
	entry := out[entityID]
	entry.Approved = true
	at := now
	entry.ApprovedAt = &at
	out[entityID] = entry
	return out
}
