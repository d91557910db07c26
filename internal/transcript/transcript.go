package transcript

import (
	"sync"
	"time"
)

// Role tags who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message. Values are never modified after creation.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is the ordered, append-only turn log of one session
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// New creates an empty transcript
func New() *Transcript {
	return &Transcript{now: time.Now}
}

// Append adds a turn at the end and returns it
func (t *Transcript) Append(role Role, content string) Turn {
	turn := Turn{Role: role, Content: content, CreatedAt: t.now().UTC()}

	t.mu.Lock()
	t.turns = append(t.turns, turn)
	t.mu.Unlock()

	return turn
}

// Turns returns a copy of all turns in insertion order
func (t *Transcript) Turns() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Len returns the number of turns
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Clear empties the transcript
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.turns = nil
	t.mu.Unlock()
}
