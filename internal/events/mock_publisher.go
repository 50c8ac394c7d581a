package events

import (
	"context"
	"errors"
	"sync"

	"github.com/NomadCrew/nomad-crew-settlement/types"
)

var errPublisherClosed = errors.New("publisher is closed")

// MockPublisher records published domain events in memory, keyed by the owning
// event id.
type MockPublisher struct {
	mu        sync.Mutex
	published map[string][]types.DomainEvent
	closed    bool
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{published: make(map[string][]types.DomainEvent)}
}

func (m *MockPublisher) Publish(_ context.Context, eventID string, event types.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errPublisherClosed
	}
	m.published[eventID] = append(m.published[eventID], event)
	return nil
}

// GetEvents returns a copy of what was published for eventID.
func (m *MockPublisher) GetEvents(eventID string) []types.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.DomainEvent(nil), m.published[eventID]...)
}

// Close makes every later Publish fail.
func (m *MockPublisher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}
