package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]*Session
}

// NewMemoryStore keeps sessions for ttl after their last update; ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[int64]*Session),
	}
}

func (m *MemoryStore) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}

// Prune drops every expired session and returns how many went.
func (m *MemoryStore) Prune() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for owner, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, owner)
			n++
		}
	}
	return n
}

// RunJanitor prunes every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Prune(); n > 0 {
				slog.Debug("Pruned expired sessions", "count", n)
			}
		}
	}
}

func (m *MemoryStore) Get(_ context.Context, owner int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[owner]
	if !ok {
		return nil, nil
	}
	if m.expired(s) {
		delete(m.sessions, owner)
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) Set(_ context.Context, owner int64, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	cp.Owner = owner
	cp.UpdatedAt = m.now()
	m.sessions[owner] = &cp
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, owner)
	return nil
}
