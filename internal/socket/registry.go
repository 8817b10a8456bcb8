// Package socket serves the chat interface over WebSocket.
package socket

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Registry tracks the live connection of every user and tab. A tab has at
// most one connection; a newer one replaces and closes the older.
type Registry struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Connected reports whether a user and session have a live connection.
func (r *Registry) Connected(userID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[userID][sessionID]
	return ok
}

// Register records conn for a user and session, closing any previous one.
func (r *Registry) Register(userID, sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[userID]; !exists {
		r.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := r.active[userID][sessionID]; exists && existing != conn {
		// The close handshake waits for the peer; never hold the lock for it.
		go func() { _ = existing.Close(websocket.StatusPolicyViolation, "session opened elsewhere") }()
	}

	r.active[userID][sessionID] = conn
	slog.Debug("Chat socket registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the current one for the session.
func (r *Registry) Unregister(userID, sessionID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.active[userID]
	if !ok {
		return
	}
	if current, exists := sessions[sessionID]; exists && current == conn {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.active, userID)
		}
		slog.Debug("Chat socket unregistered", "user_id", userID, "session_id", sessionID)
	}
}

// Close terminates the connection for one session, if any. The close
// handshake runs in the background.
func (r *Registry) Close(userID, sessionID, reason string) {
	r.mu.Lock()
	sessions := r.active[userID]
	conn := sessions[sessionID]
	if conn != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.active, userID)
		}
	}
	r.mu.Unlock()

	if conn != nil {
		go func() { _ = conn.Close(websocket.StatusGoingAway, reason) }()
	}
}

// CloseAll terminates every connection concurrently and waits for the
// close handshakes, used on shutdown.
func (r *Registry) CloseAll(reason string) {
	r.mu.Lock()
	var conns []*websocket.Conn
	for userID, sessions := range r.active {
		for _, conn := range sessions {
			conns = append(conns, conn)
		}
		delete(r.active, userID)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = conn.Close(websocket.StatusGoingAway, reason)
		}()
	}
	wg.Wait()
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}
