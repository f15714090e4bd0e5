package storage

import (
	"fmt"
	"sync"
	"time"

	"exoplanet-ai/internal/common"
)

// MemoryStore keeps everything in process memory. A single mutex serializes
// writers, so concurrent appends to the history never interleave.
type MemoryStore struct {
	mu       sync.RWMutex
	history  []SearchRecord
	byID     map[string]int
	users    map[string]*User // by id
	emails   map[string]string
	sessions map[string]Session
	settings map[string]Settings
	feedback []Feedback
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[string]int),
		users:    make(map[string]*User),
		emails:   make(map[string]string),
		sessions: make(map[string]Session),
		settings: make(map[string]Settings),
		now:      time.Now,
	}
}

func (m *MemoryStore) AppendSearch(rec SearchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[rec.ID]; exists {
		return fmt.Errorf("search %s: %w", rec.ID, common.ErrConflict)
	}
	m.byID[rec.ID] = len(m.history)
	m.history = append(m.history, rec)
	return nil
}

func (m *MemoryStore) GetSearch(id string) (SearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return SearchRecord{}, fmt.Errorf("search %s: %w", id, common.ErrNotFound)
	}
	return m.history[i], nil
}

func (m *MemoryStore) RecentSearches(limit int) ([]SearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recent := tail(m.history, limit)
	out := make([]SearchRecord, len(recent))
	copy(out, recent)
	return out, nil
}

func (m *MemoryStore) SearchesByOwner(userID string, limit int) ([]SearchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []SearchRecord
	for _, rec := range m.history {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return tail(out, limit), nil
}

func (m *MemoryStore) CountSearches() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.history), nil
}

func (m *MemoryStore) CreateUser(u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[u.Email]; taken {
		return fmt.Errorf("email %s: %w", u.Email, common.ErrConflict)
	}
	if _, taken := m.users[u.ID]; taken {
		return fmt.Errorf("user %s: %w", u.ID, common.ErrConflict)
	}
	stored := u
	m.users[u.ID] = &stored
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) UserByEmail(email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return User{}, fmt.Errorf("email %s: %w", email, common.ErrNotFound)
	}
	return *m.users[id], nil
}

func (m *MemoryStore) UserByID(id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	return *u, nil
}

func (m *MemoryStore) IncrementSearchCount(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, common.ErrNotFound)
	}
	u.SearchCount++
	return nil
}

func (m *MemoryStore) CreateSession(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = s
	return nil
}

func (m *MemoryStore) GetSession(token string) (Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return Session{}, fmt.Errorf("session: %w", common.ErrNotFound)
	}
	if s.Expired(m.now()) {
		_ = m.DeleteSession(token)
		return Session{}, fmt.Errorf("session expired: %w", common.ErrNotFound)
	}
	return s, nil
}

func (m *MemoryStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *MemoryStore) PutSettings(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.UserID] = s
	return nil
}

func (m *MemoryStore) GetSettings(userID string) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[userID]
	if !ok {
		return Settings{}, fmt.Errorf("settings %s: %w", userID, common.ErrNotFound)
	}
	return s, nil
}

func (m *MemoryStore) AddFeedback(f Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, f)
	return nil
}

func (m *MemoryStore) FeedbackStats(n int) (int, []Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := tail(m.feedback, n)
	out := make([]Feedback, len(latest))
	copy(out, latest)
	return len(m.feedback), out, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
