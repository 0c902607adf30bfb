package dialogue

import (
	"sync"

	"github.com/dohr-michael/askbetter/internal/events"
)

// Manager keeps one Engine per signed-in user.
type Manager struct {
	model   Model
	history HistoryWriter
	bus     *events.Bus

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager creates a Manager sharing model, history and bus across engines.
func NewManager(model Model, history HistoryWriter, bus *events.Bus) *Manager {
	return &Manager{
		model:   model,
		history: history,
		bus:     bus,
		engines: make(map[string]*Engine),
	}
}

// Get returns the user's engine, creating it on first use.
func (m *Manager) Get(userID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.engines[userID]
	if !ok {
		e = NewEngine(EngineConfig{
			UserID:  userID,
			Model:   m.model,
			History: m.history,
			Bus:     m.bus,
		})
		m.engines[userID] = e
	}
	return e
}

// Lookup returns the user's engine without creating one.
func (m *Manager) Lookup(userID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.engines[userID]
	return e, ok
}

// Drop forgets the user's engine, resetting it first so that a pending
// reply is discarded.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	e, ok := m.engines[userID]
	delete(m.engines, userID)
	m.mu.Unlock()

	if ok {
		e.Reset()
	}
}

// Len returns the number of live engines.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}
