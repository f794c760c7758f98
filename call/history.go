package call

import (
	"errors"
	"sync"
	"time"
)

// ErrHistoryFull is returned when the history exceeds its maximum length
var ErrHistoryFull = errors.New("turn history full")

// Turn is one utterance in a call, from either side of the line.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// TurnHistory accumulates conversation turns for one call, bounded so a
// runaway call cannot grow without limit.
type TurnHistory struct {
	turns    []Turn
	maxTurns int
	mu       sync.Mutex
}

// NewTurnHistory creates a history with the specified maximum turn count
func NewTurnHistory(maxTurns int) *TurnHistory {
	return &TurnHistory{
		turns:    make([]Turn, 0),
		maxTurns: maxTurns,
	}
}

// MaxTurns returns the maximum history length
func (h *TurnHistory) MaxTurns() int {
	return h.maxTurns
}

// Append adds a turn to the history.
// Returns ErrHistoryFull if the history is at capacity.
func (h *TurnHistory) Append(role, content string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.turns) >= h.maxTurns {
		return ErrHistoryFull
	}

	h.turns = append(h.turns, Turn{Role: role, Content: content, At: time.Now()})
	return nil
}

// Turns returns a copy of all turns in order.
func (h *TurnHistory) Turns() []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Recent returns a copy of the last n turns (all of them if fewer).
func (h *TurnHistory) Recent(n int) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := len(h.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Len returns the number of turns recorded.
func (h *TurnHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear empties the history without returning data
func (h *TurnHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = make([]Turn, 0)
}
