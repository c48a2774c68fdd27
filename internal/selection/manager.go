package selection

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-elhub-stats/internal/model"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

type session struct {
	state    model.SelectionState
	lastSeen time.Time
}

// Manager keeps one selection state per session. States are copied in and out,
// so no two sessions ever share one.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a manager; sessions idle for longer than ttl are dropped.
// A zero ttl keeps sessions until deleted.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores an initial state under a new session id.
func (m *Manager) Create(state model.SelectionState) string {
	id := uuid.New().String()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	m.sessions[id] = &session{state: clone(state), lastSeen: m.now()}
	return id
}

// Get returns the state of a session.
func (m *Manager) Get(id string) (model.SelectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.liveLocked(id)
	if !ok {
		return model.SelectionState{}, ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return clone(s.state), nil
}

// Update applies fn to the session's state and stores the result.
func (m *Manager) Update(id string, fn func(model.SelectionState) (model.SelectionState, error)) (model.SelectionState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.liveLocked(id)
	if !ok {
		return model.SelectionState{}, ErrSessionNotFound
	}
	next, err := fn(clone(s.state))
	if err != nil {
		return clone(s.state), err
	}
	s.state = clone(next)
	s.lastSeen = m.now()
	return next, nil
}

// Delete ends a session.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictLocked()
	return len(m.sessions)
}

func (m *Manager) liveLocked(id string) (*session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.expired(s) {
		delete(m.sessions, id)
		return nil, false
	}
	return s, true
}

func (m *Manager) evictLocked() {
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) expired(s *session) bool {
	return m.ttl > 0 && m.now().Sub(s.lastSeen) > m.ttl
}

func clone(state model.SelectionState) model.SelectionState {
	return model.SelectionState{
		SelectedGroups:  append([]string{}, state.SelectedGroups...),
		SelectedOptions: append([]string{}, state.SelectedOptions...),
		Status:          state.Status,
	}
}
