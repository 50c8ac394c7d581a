package events

import (
	"encoding/json"
	"time"

	apperrors "github.com/NomadCrew/nomad-crew-settlement/errors"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/google/uuid"
)

// Source identifies domain events emitted by this service.
const Source = "settlement-engine"

// NewDomainEvent builds a DomainEvent with a JSON payload and standard metadata.
func NewDomainEvent(eventType types.DomainEventType, eventID, userID string, payload interface{}) (types.DomainEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.DomainEvent{}, apperrors.Wrap(err, apperrors.ServerError, "Failed to marshal event payload")
	}

	return types.DomainEvent{
		BaseEvent: types.BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			EventID:   eventID,
			UserID:    userID,
			Timestamp: time.Now().UTC(),
			Version:   1,
		},
		Metadata: types.EventMetadata{
			Source: Source,
		},
		Payload: data,
	}, nil
}
