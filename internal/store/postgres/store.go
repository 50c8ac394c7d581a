package postgres

import "github.com/NomadCrew/nomad-crew-settlement/internal/store"

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store bundles the PostgreSQL implementations over one pool.
type Store struct {
	events      *EventStore
	settlements *SettlementStore
	expenses    *ExpenseStore
	directory   *DirectoryStore
}

// NewStore creates every PostgreSQL store on the given pool.
func NewStore(pool Pool) *Store {
	return &Store{
		events:      NewEventStore(pool),
		settlements: NewSettlementStore(pool),
		expenses:    NewExpenseStore(pool),
		directory:   NewDirectoryStore(pool),
	}
}

func (s *Store) Events() store.EventStore           { return s.events }
func (s *Store) Settlements() store.SettlementStore { return s.settlements }
func (s *Store) Expenses() store.ExpenseStore       { return s.expenses }
func (s *Store) Directory() store.DirectoryStore    { return s.directory }
