package types

// Group pools its members' shares into a single financial entity.
type Group struct {
	ID             string   `json:"id"`
	EventID        string   `json:"eventId"`
	Name           string   `json:"name"`
	Members        []string `json:"members"`
	PayerUserID    string   `json:"payerUserId"`
	Representative string   `json:"representative,omitempty"`
}

// CanActFor reports whether userID may approve or pay on the group's behalf.
func (g *Group) CanActFor(userID string) bool {
	if userID == "" {
		return false
	}
	return g.Representative == userID || g.PayerUserID == userID
}

// PayingUser is the human who moves money for the group.
func (g *Group) PayingUser() string {
	if g.PayerUserID != "" {
		return g.PayerUserID
	}
	return g.Representative
}

// ParticipantStatus is a participant's invitation state.
type ParticipantStatus string

const (
	ParticipantStatusAccepted ParticipantStatus = "accepted"
	ParticipantStatusInvited  ParticipantStatus = "invited"
	ParticipantStatusDeclined ParticipantStatus = "declined"
)

// Participant is a user attached to an event.
type Participant struct {
	UserID      string            `json:"userId"`
	DisplayName string            `json:"displayName"`
	Status      ParticipantStatus `json:"status"`
}
