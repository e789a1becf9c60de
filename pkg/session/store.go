package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL bounds how long an unconfirmed purchase stays alive.
const DefaultTTL = 5 * time.Minute

// Store is the keyed session state owned by the orchestrator. Get,
// Put, Delete and Take on a given id are atomic with respect to each
// other, so the expiry sweep can never race a concurrent confirm.
type Store interface {
	Get(id string) (*Session, bool)
	Put(s *Session)
	Delete(id string)
	// Take atomically removes and returns the session, treating an
	// expired record the same as a missing one.
	Take(id string) (*Session, bool)
}

// MemoryStore keeps sessions in process memory. Persistence across
// restarts is deliberately out of scope; the Store interface keeps a
// networked backend pluggable.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Expired(m.ttl) {
		return nil, false
	}
	return s, true
}

func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *MemoryStore) Take(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	delete(m.sessions, id)
	if s.Expired(m.ttl) {
		return nil, false
	}
	return s, true
}

// Len reports the number of live records, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartSweeper runs a background goroutine that periodically removes
// expired sessions regardless of stage. It stops when ctx is done.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.sweep(); n > 0 && logger != nil {
					logger.Debug("expired_sessions_swept", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *MemoryStore) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		if s.Expired(m.ttl) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
