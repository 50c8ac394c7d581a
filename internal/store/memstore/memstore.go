// Package memstore is an in-memory implementation of the store interfaces used
// for local development and service tests. It honors the same version and
// status compare-and-set rules as the PostgreSQL store.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/internal/store"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/shopspring/decimal"
)

var (
	_ store.Store           = (*Store)(nil)
	_ store.EventStore      = (*Store)(nil)
	_ store.SettlementStore = (*Store)(nil)
	_ store.ExpenseStore    = (*Store)(nil)
	_ store.DirectoryStore  = (*Store)(nil)
)

// Store keeps every record in maps guarded by a single mutex.
type Store struct {
	mu           sync.RWMutex
	events       map[string]*types.Event
	settlements  map[string]*types.Settlement
	expenses     map[string][]*types.Expense
	groups       map[string][]*types.Group
	participants map[string][]*types.Participant
}

func New() *Store {
	return &Store{
		events:       make(map[string]*types.Event),
		settlements:  make(map[string]*types.Settlement),
		expenses:     make(map[string][]*types.Expense),
		groups:       make(map[string][]*types.Group),
		participants: make(map[string][]*types.Participant),
	}
}

func (s *Store) Events() store.EventStore           { return s }
func (s *Store) Settlements() store.SettlementStore { return s }
func (s *Store) Expenses() store.ExpenseStore       { return s }
func (s *Store) Directory() store.DirectoryStore    { return s }

// PutEvent inserts or replaces an event. A zero version starts at 1.
func (s *Store) PutEvent(e *types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneEvent(e)
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Status == "" {
		c.Status = types.EventStatusActive
	}
	if c.SettlementApprovals == nil {
		c.SettlementApprovals = types.Approvals{}
	}
	s.events[c.ID] = c
}

// AddExpense appends an expense to its event.
func (s *Store) AddExpense(e *types.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	c.Splits = append([]types.Split(nil), e.Splits...)
	c.PaidOnBehalfOf = append([]types.EntityRef(nil), e.PaidOnBehalfOf...)
	s.expenses[e.EventID] = append(s.expenses[e.EventID], &c)
}

// ReplaceExpenses swaps the event's expenses, as an expense edit would.
func (s *Store) ReplaceExpenses(eventID string, expenses []*types.Expense) {
	s.mu.Lock()
	s.expenses[eventID] = nil
	s.mu.Unlock()
	for _, e := range expenses {
		e.EventID = eventID
		s.AddExpense(e)
	}
}

// AddGroup appends a group to its event.
func (s *Store) AddGroup(g *types.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *g
	c.Members = append([]string(nil), g.Members...)
	s.groups[g.EventID] = append(s.groups[g.EventID], &c)
}

// AddParticipant attaches a participant to an event.
func (s *Store) AddParticipant(eventID string, p *types.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *p
	s.participants[eventID] = append(s.participants[eventID], &c)
}

func (s *Store) GetEvent(_ context.Context, id string) (*types.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("get event %s: %w", id, store.ErrNotFound)
	}
	return cloneEvent(e), nil
}

func (s *Store) UpdateSettlementState(_ context.Context, id string, expectedVersion int64, update types.EventStateUpdate) (*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.applyStateLocked(id, expectedVersion, update)
	if err != nil {
		return nil, err
	}
	return cloneEvent(e), nil
}

func (s *Store) applyStateLocked(id string, expectedVersion int64, update types.EventStateUpdate) (*types.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("update event %s: %w", id, store.ErrNotFound)
	}
	if e.Version != expectedVersion {
		return nil, fmt.Errorf("update event %s: version %d is stale: %w", id, expectedVersion, store.ErrConflict)
	}
	e.Status = update.Status
	e.SettlementApprovals = update.SettlementApprovals.Clone()
	e.SettlementStale = update.SettlementStale
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	return e, nil
}

func (s *Store) CommitSettlementPlan(_ context.Context, eventID string, expectedVersion int64, settlements []*types.Settlement, update types.EventStateUpdate) (*types.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.applyStateLocked(eventID, expectedVersion, update)
	if err != nil {
		return nil, err
	}
	for id, st := range s.settlements {
		if st.EventID == eventID {
			delete(s.settlements, id)
		}
	}
	for _, st := range settlements {
		s.settlements[st.ID] = st.Clone()
	}
	return cloneEvent(e), nil
}

func (s *Store) ListEventSettlements(_ context.Context, eventID string) ([]*types.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Settlement, 0)
	for _, st := range s.settlements {
		if st.EventID == eventID {
			out = append(out, st.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetSettlement(_ context.Context, id string) (*types.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.settlements[id]
	if !ok {
		return nil, fmt.Errorf("get settlement %s: %w", id, store.ErrNotFound)
	}
	return st.Clone(), nil
}

func (s *Store) UpdateSettlement(_ context.Context, st *types.Settlement, expected types.SettlementStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.settlements[st.ID]
	if !ok {
		return fmt.Errorf("update settlement %s: %w", st.ID, store.ErrNotFound)
	}
	if current.Status != expected {
		return fmt.Errorf("update settlement %s: status is no longer %s: %w", st.ID, expected, store.ErrConflict)
	}
	st.UpdatedAt = time.Now().UTC()
	s.settlements[st.ID] = st.Clone()
	return nil
}

func (s *Store) ListEventExpenses(_ context.Context, eventID string) ([]*types.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Expense, 0, len(s.expenses[eventID]))
	for _, e := range s.expenses[eventID] {
		c := *e
		c.Splits = append([]types.Split(nil), e.Splits...)
		c.PaidOnBehalfOf = append([]types.EntityRef(nil), e.PaidOnBehalfOf...)
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) GetEventGroups(_ context.Context, eventID string) ([]*types.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Group, 0, len(s.groups[eventID]))
	for _, g := range s.groups[eventID] {
		c := *g
		c.Members = append([]string(nil), g.Members...)
		out = append(out, &c)
	}
	return out, nil
}

func (s *Store) GetParticipants(_ context.Context, eventID string) ([]*types.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Participant, 0, len(s.participants[eventID]))
	for _, p := range s.participants[eventID] {
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func cloneEvent(e *types.Event) *types.Event {
	c := *e
	c.Admins = append([]string(nil), e.Admins...)
	c.SettlementApprovals = e.SettlementApprovals.Clone()
	if e.PredefinedRates != nil {
		c.PredefinedRates = make(map[string]decimal.Decimal, len(e.PredefinedRates))
		for k, v := range e.PredefinedRates {
			c.PredefinedRates[k] = v
		}
	}
	return &c
}
