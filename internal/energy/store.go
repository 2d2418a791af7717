package energy

import (
	"sort"
	"sync"
	"time"
)

// Store persists the ledger row and the append-only spend history. A fresh
// process reading the same store must observe the previous state; silently
// resetting to full energy is not acceptable.
type Store interface {
	// Load returns the persisted state. ok is false when no state has
	// been saved yet.
	Load() (state State, ok bool, err error)

	// Save replaces the persisted state.
	Save(State) error

	// AppendSpend records one spend in the history.
	AppendSpend(Spend) error

	// History returns past spends, most recent first, capped at limit.
	// A non-positive limit returns everything.
	History(limit int) ([]Spend, error)

	// PruneSpends deletes history entries older than before and returns
	// how many were removed.
	PruneSpends(before time.Time) (int, error)
}

// MemStore is an in-memory Store for tests and ephemeral runs.
type MemStore struct {
	mu     sync.Mutex
	state  State
	loaded bool
	spends []Spend
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Load implements Store.
func (m *MemStore) Load() (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.loaded, nil
}

// Save implements Store.
func (m *MemStore) Save(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.loaded = true
	return nil
}

// AppendSpend implements Store.
func (m *MemStore) AppendSpend(s Spend) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spends = append(m.spends, s)
	return nil
}

// History implements Store.
func (m *MemStore) History(limit int) ([]Spend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Spend, len(m.spends))
	copy(out, m.spends)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PruneSpends implements Store.
func (m *MemStore) PruneSpends(before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.spends[:0]
	removed := 0
	for _, s := range m.spends {
		if s.At.Before(before) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.spends = kept
	return removed, nil
}
