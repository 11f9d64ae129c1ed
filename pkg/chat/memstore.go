package chat

// MemStore is an in-memory Store implementation for tests and standalone CLI
// use, where no host application owns the transcript.
type MemStore struct {
	turns []*Turn
	saves int
}

// NewMemStore creates a store seeded with the given turns.
func NewMemStore(turns ...*Turn) *MemStore {
	return &MemStore{turns: turns}
}

// Turns returns the live transcript slice.
func (m *MemStore) Turns() []*Turn {
	return m.turns
}

// Append adds a turn to the end of the transcript.
func (m *MemStore) Append(t *Turn) {
	m.turns = append(m.turns, t)
}

// Save counts persistence requests; in-memory state is always current.
func (m *MemStore) Save() error {
	m.saves++
	return nil
}

// SaveCount returns how many times Save was called.
func (m *MemStore) SaveCount() int {
	return m.saves
}
