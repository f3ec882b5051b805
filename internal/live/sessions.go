package live

import (
	"sort"
	"sync"
	"time"
)

// ActiveSession describes one relayed conversation.
type ActiveSession struct {
	AccountID string    `json:"accountId"`
	StartedAt time.Time `json:"startedAt"`
}

// Sessions tracks relayed conversations, at most one per account.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]ActiveSession
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[string]ActiveSession),
	}
}

// Acquire claims the account's slot. It reports false when one is already held.
func (m *Sessions) Acquire(accountID string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[accountID]; ok {
		return false
	}
	m.sessions[accountID] = ActiveSession{AccountID: accountID, StartedAt: now}
	return true
}

func (m *Sessions) Release(accountID string) {
	m.mu.Lock()
	delete(m.sessions, accountID)
	m.mu.Unlock()
}

func (m *Sessions) Get(accountID string) (ActiveSession, bool) {
	m.mu.RLock()
	s, ok := m.sessions[accountID]
	m.mu.RUnlock()
	return s, ok
}

// List returns active sessions, oldest first.
func (m *Sessions) List() []ActiveSession {
	m.mu.RLock()
	out := make([]ActiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}
