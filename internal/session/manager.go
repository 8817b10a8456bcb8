package session

import (
	"log/slog"
	"sync"
	"time"
)

// Manager maps (user ID, tab session ID) to transcripts.
type Manager struct {
	mu       sync.RWMutex
	active   map[string]map[string]*Transcript
	now      func() time.Time
	onExpire func(userID, sessionID string)
	keep     func(userID, sessionID string) bool
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		active: make(map[string]map[string]*Transcript),
		now:    time.Now,
	}
}

// Get returns the transcript for a user and session, creating an empty one
// on first access.
func (m *Manager) Get(userID, sessionID string) *Transcript {
	if t := m.Peek(userID, sessionID); t != nil {
		return t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(userID, sessionID)
}

// Acquire returns the transcript for a user and session, creating it if
// needed, and marks it busy and active while holding the manager lock, so
// Sweep cannot remove it in between. It reports false when a call is
// already in flight. The caller must call End on the transcript.
func (m *Manager) Acquire(userID, sessionID string) (*Transcript, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.getLocked(userID, sessionID)
	if !t.TryBegin() {
		return nil, false
	}
	t.Touch()
	return t, true
}

func (m *Manager) getLocked(userID, sessionID string) *Transcript {
	sessions, ok := m.active[userID]
	if !ok {
		sessions = make(map[string]*Transcript)
		m.active[userID] = sessions
	}
	if t, ok := sessions[sessionID]; ok {
		return t
	}

	t := newTranscript(m.now)
	sessions[sessionID] = t
	slog.Debug("Chat session created", "user_id", userID, "session_id", sessionID)
	return t
}

// Peek returns the transcript for a user and session, or nil if none exists.
func (m *Manager) Peek(userID, sessionID string) *Transcript {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// OnExpire registers fn to be called, outside the lock, for every
// transcript removed by Sweep.
func (m *Manager) OnExpire(fn func(userID, sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = fn
}

// KeepIf registers fn to be asked, under the lock, whether an idle
// transcript is still in use. Sweep keeps those for which fn returns true.
func (m *Manager) KeepIf(fn func(userID, sessionID string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keep = fn
}

// Close discards the transcript for a user and session.
func (m *Manager) Close(userID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if _, exists := sessions[sessionID]; exists {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Chat session closed", "user_id", userID, "session_id", sessionID)
		}
	}
}

// Count returns the number of live transcripts.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}

// Sweep discards transcripts idle for longer than ttl and returns how many
// were removed. Sessions with a call in flight, or kept by the KeepIf
// predicate, survive.
func (m *Manager) Sweep(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	type key struct{ userID, sessionID string }
	var expired []key

	m.mu.Lock()
	for userID, sessions := range m.active {
		for sid, t := range sessions {
			if t.Busy() || !t.LastActive().Before(cutoff) {
				continue
			}
			if m.keep != nil && m.keep(userID, sid) {
				continue
			}
			delete(sessions, sid)
			expired = append(expired, key{userID, sid})
			slog.Debug("Chat session expired", "user_id", userID, "session_id", sid)
		}
		if len(sessions) == 0 {
			delete(m.active, userID)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, k := range expired {
			hook(k.userID, k.sessionID)
		}
	}
	return len(expired)
}
