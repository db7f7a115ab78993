package api

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"forecast-dashboard/dashboard"
	"forecast-dashboard/models"
	"forecast-dashboard/store"
)

// ErrSessionNotFound is returned for an unknown or expired session id
var ErrSessionNotFound = errors.New("session not found")

// Session is one viewer's dashboard
type Session struct {
	ID        string
	Dashboard *dashboard.Dashboard
	Created   time.Time

	lastSeen    time.Time
	unsubscribe func()
}

// SessionManager creates dashboards fed by the data store and expires idle ones
type SessionManager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
	data     *store.DataStore
	options  dashboard.Options
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSessionManager creates a manager building dashboards with options
func NewSessionManager(data *store.DataStore, options dashboard.Options, logger zerolog.Logger) *SessionManager {
	options.Logger = logger
	return &SessionManager{
		sessions: make(map[string]*Session),
		data:     data,
		options:  options,
		logger:   logger.With().Str("component", "sessions").Logger(),
		now:      time.Now,
	}
}

// Create starts a session for the given URL query string
func (m *SessionManager) Create(rawQuery string) *Session {
	d := dashboard.New(rawQuery, m.options)
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		Dashboard: d,
		Created:   now,
		lastSeen:  now,
	}

	s.unsubscribe = m.data.Subscribe(func(ds models.Dataset) {
		d.Publish(ds)
	})
	d.Publish(m.data.Snapshot())

	m.mutex.Lock()
	m.sessions[s.ID] = s
	m.mutex.Unlock()

	m.logger.Debug().Str("session", s.ID).Str("query", rawQuery).Msg("session created")
	return s
}

// Get returns a session and marks it as used
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	s.lastSeen = m.now()
	return s, nil
}

// Delete closes a session
func (m *SessionManager) Delete(id string) error {
	m.mutex.Lock()
	s, exists := m.sessions[id]
	delete(m.sessions, id)
	m.mutex.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	m.close(s)
	return nil
}

// PruneIdle closes sessions unused for longer than maxIdle and returns how
// many were closed
func (m *SessionManager) PruneIdle(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mutex.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mutex.Unlock()

	for _, s := range idle {
		m.close(s)
	}
	if len(idle) > 0 {
		m.logger.Info().Int("closed", len(idle)).Msg("pruned idle sessions")
	}
	return len(idle)
}

// IDs returns the ids of the open sessions, sorted
func (m *SessionManager) IDs() []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CloseAll closes every session
func (m *SessionManager) CloseAll() {
	m.mutex.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mutex.Unlock()

	for _, s := range all {
		m.close(s)
	}
}

func (m *SessionManager) close(s *Session) {
	s.unsubscribe()
	s.Dashboard.Close()
	m.logger.Debug().Str("session", s.ID).Msg("session closed")
}
