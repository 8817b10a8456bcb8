// Package session keeps per-browser-session chat transcripts in memory.
package session

import (
	"sync"
	"time"

	"github.com/ashureev/coachlab/internal/domain"
)

// Transcript is the state handle for one session: an append-only list of
// turns plus an in-flight guard. The zero value is not usable; use
// NewTranscript or Manager.Get.
type Transcript struct {
	mu         sync.RWMutex
	turns      []domain.ChatTurn
	lastActive time.Time
	now        func() time.Time

	busy sync.Mutex
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return newTranscript(time.Now)
}

func newTranscript(now func() time.Time) *Transcript {
	return &Transcript{now: now, lastActive: now()}
}

// Turns returns a copy of the turns in arrival order. It never returns nil.
func (t *Transcript) Turns() []domain.ChatTurn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.ChatTurn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Append adds a turn at the tail.
func (t *Transcript) Append(turn domain.ChatTurn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = append(t.turns, turn)
	t.lastActive = t.now()
}

// Reset clears the transcript.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
	t.lastActive = t.now()
}

// Touch marks the session as active without changing its turns.
func (t *Transcript) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActive = t.now()
}

// LastActive returns the time of the last append, reset or touch.
func (t *Transcript) LastActive() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastActive
}

// TryBegin claims the session for one composer call. It returns false when
// another call is already in flight. Callers that get true must call End.
func (t *Transcript) TryBegin() bool {
	return t.busy.TryLock()
}

// End releases the claim taken by TryBegin.
func (t *Transcript) End() {
	t.busy.Unlock()
}

// Busy reports whether a composer call is in flight.
func (t *Transcript) Busy() bool {
	if t.busy.TryLock() {
		t.busy.Unlock()
		return false
	}
	return true
}
