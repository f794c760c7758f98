package call

import (
	"sync"
	"time"
)

// Stage is the slot-filling progress of a call. It is derived from which
// slots are set and only ever moves forward.
type Stage int

const (
	// StageAwaitingProblem means no issue has been captured yet.
	StageAwaitingProblem Stage = iota
	// StageAwaitingAddress means the issue is known but not the address.
	StageAwaitingAddress
	// StageReadyForTicket means both slots are filled.
	StageReadyForTicket
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingProblem:
		return "awaiting_problem"
	case StageAwaitingAddress:
		return "awaiting_address"
	case StageReadyForTicket:
		return "ready_for_ticket"
	default:
		return "unknown"
	}
}

// Session tracks one phone call's conversation state, keyed by the Twilio
// CallSid. Slots are write-once: a later turn never clears or overwrites a
// slot that was already captured.
type Session struct {
	SID         string
	CallerPhone string
	CreatedAt   time.Time

	History *TurnHistory

	mu           sync.RWMutex
	problem      string
	address      string
	ticketNumber string
	turnCount    int
	lastActivity time.Time
}

// NewSession creates a session for a call SID on its first webhook.
func NewSession(sid, callerPhone string, maxTurns int) *Session {
	now := time.Now()
	return &Session{
		SID:          sid,
		CallerPhone:  callerPhone,
		CreatedAt:    now,
		History:      NewTurnHistory(maxTurns),
		lastActivity: now,
	}
}

// Stage reports the current slot-filling stage.
func (s *Session) Stage() Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.problem == "":
		return StageAwaitingProblem
	case s.address == "":
		return StageAwaitingAddress
	default:
		return StageReadyForTicket
	}
}

// SetProblem fills the problem slot. Returns false if it was already set.
func (s *Session) SetProblem(problem string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.problem != "" || problem == "" {
		return false
	}
	s.problem = problem
	return true
}

// SetAddress fills the address slot. Returns false if it was already set.
func (s *Session) SetAddress(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.address != "" || address == "" {
		return false
	}
	s.address = address
	return true
}

// SetTicket records the ticket number issued for this call. The first ticket
// wins; repeat calls return false so ticket creation stays idempotent.
func (s *Session) SetTicket(number string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticketNumber != "" || number == "" {
		return false
	}
	s.ticketNumber = number
	return true
}

// Problem returns the captured issue description, if any.
func (s *Session) Problem() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.problem
}

// Address returns the captured address, if any.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// TicketNumber returns the issued ticket number, or "" if none yet.
func (s *Session) TicketNumber() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ticketNumber
}

// Touch bumps the activity clock and turn counter. Called once per webhook.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
	s.lastActivity = time.Now()
}

// TurnCount returns how many turns this call has taken.
func (s *Session) TurnCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnCount
}

// LastActivity returns the time of the last webhook for this call.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// IdleSince reports how long the call has been quiet.
func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastActivity)
}
