package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hotsheetiq/frontdesk/call"
	"github.com/hotsheetiq/frontdesk/rules"
	"github.com/hotsheetiq/frontdesk/tickets"
)

const (
	repromptReply   = "I didn't catch that. What can I help you with?"
	askAddressReply = "What's your address so I can create a service ticket?"
)

// issueKeywords classifies a problem description into an issue type. Classes
// are checked in order and the first keyword hit wins.
var issueKeywords = []struct {
	issueType string
	keywords  []string
}{
	{"electrical", []string{"electrical", "no power", "don't have power", "power", "electricity"}},
	{"heating", []string{"no heat", "heating", "heat", "cold"}},
	{"plumbing", []string{"water", "leak", "plumbing"}},
	{"noise complaint", []string{"noise", "loud", "neighbors"}},
}

// addressPattern picks a street address candidate out of free speech:
// a house number followed by a street name ending in a street suffix.
var addressPattern = regexp.MustCompile(`(?i)\b(\d+)\s+([a-z][a-z ]*?(?:street|avenue|ave|road|rd|court|ct|lane|ln|drive|dr))\b`)

// AddressVerifier checks a spoken address against the property portfolio and
// returns the canonical form when it matches.
type AddressVerifier interface {
	Verify(ctx context.Context, spoken string) (string, bool)
}

// TicketOpener opens a service ticket and returns it with its number
// already assigned.
type TicketOpener interface {
	Open(issueType, address, callerPhone string) tickets.Ticket
}

// Engine decides what the assistant says next. Replies are resolved in a
// fixed order: call memory (auto-ticket once both slots are known), taught
// rules, the built-in instant table, then stage-specific prompts with an
// optional LLM fallback.
type Engine struct {
	rules     *rules.Store
	verifier  AddressVerifier
	tickets   TicketOpener
	responder Responder
	now       func() time.Time
}

// NewEngine wires a turn engine. responder may be nil, in which case the
// engine falls back to canned prompts instead of the LLM.
func NewEngine(store *rules.Store, verifier AddressVerifier, opener TicketOpener, responder Responder) *Engine {
	return &Engine{
		rules:     store,
		verifier:  verifier,
		tickets:   opener,
		responder: responder,
		now:       time.Now,
	}
}

// HandleTurn processes one caller utterance and returns the assistant reply.
// The session's history and slots are updated in place; callers are expected
// to persist the session afterwards.
func (e *Engine) HandleTurn(ctx context.Context, s *call.Session, utterance string) string {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return repromptReply
	}

	s.Touch()

	// The current utterance goes to the responder separately, so it is
	// recorded only after the reply is decided.
	reply := e.respond(ctx, s, utterance)

	if err := s.History.Append("user", utterance); err != nil {
		log.Warn().Str("call_sid", s.SID).Err(err).Msg("dropping user turn from history")
	}
	if err := s.History.Append("assistant", reply); err != nil {
		log.Warn().Str("call_sid", s.SID).Err(err).Msg("dropping assistant turn from history")
	}
	return reply
}

func (e *Engine) respond(ctx context.Context, s *call.Session, utterance string) string {
	// Capture slots from this turn before anything else, so a caller who
	// volunteers a detail early is never asked for it again. The problem
	// slot fills first: one utterance can carry both an issue and a bad
	// address, and the issue has to survive the address re-ask below.
	if s.Problem() == "" {
		if DetectIssue(utterance) != "" {
			s.SetProblem(utterance)
		} else if remembered, ok := issueFromHistory(s.History); ok {
			s.SetProblem(remembered)
		}
	}
	if s.Address() == "" {
		if candidate := extractAddress(utterance); candidate != "" {
			verified, ok := e.verifier.Verify(ctx, candidate)
			if !ok {
				return fmt.Sprintf("I'm sorry, but I couldn't find '%s' in our property system. Could you please double-check the address?", candidate)
			}
			s.SetAddress(verified)
		}
	}

	// Once both slots are known the ticket happens immediately, and every
	// later turn restates it instead of re-asking.
	if s.Problem() != "" && s.Address() != "" {
		issueType := IssueType(s.Problem())
		if num := s.TicketNumber(); num != "" {
			return fmt.Sprintf("You're all set! Service ticket #%s for your %s issue at %s is already in. Dimitry will contact you within 2 to 4 hours.", num, issueType, s.Address())
		}
		t := e.tickets.Open(issueType, s.Address(), s.CallerPhone)
		s.SetTicket(t.Number)
		return t.Confirmation()
	}

	if response, ok := e.rules.Match(utterance); ok {
		return response
	}
	if response, ok := matchInstant(utterance, e.now()); ok {
		return response
	}

	switch s.Stage() {
	case call.StageAwaitingProblem:
		if s.Address() != "" {
			// The address arrived first; don't treat it as the problem.
			return fmt.Sprintf("Got it, %s. What's the issue there so I can create a service ticket?", s.Address())
		}
		// Whatever the caller said is the problem description.
		s.SetProblem(utterance)
		return "I'm sorry to hear that. " + askAddressReply
	case call.StageAwaitingAddress:
		if e.responder != nil {
			reply, err := e.responder.Respond(ctx, s.History.Recent(fallbackContextTurns), utterance)
			if err == nil && reply != "" {
				return reply
			}
			if err != nil {
				log.Warn().Str("call_sid", s.SID).Err(err).Msg("llm fallback failed")
			}
		}
		return "Thanks. " + askAddressReply
	default:
		return "Is there anything else I can help you with?"
	}
}

// issueFromHistory re-scans the whole conversation for an issue keyword the
// live capture missed, so a problem mentioned turns ago still fills the slot.
func issueFromHistory(h *call.TurnHistory) (string, bool) {
	for _, turn := range h.Turns() {
		if DetectIssue(turn.Content) != "" {
			return turn.Content, true
		}
	}
	return "", false
}

// DetectIssue returns the issue type a description implies, or "" when no
// known keyword appears.
func DetectIssue(description string) string {
	lowered := strings.ToLower(description)
	for _, class := range issueKeywords {
		for _, kw := range class.keywords {
			if strings.Contains(lowered, kw) {
				return class.issueType
			}
		}
	}
	return ""
}

// IssueType classifies a stored problem description, defaulting to
// "maintenance" when no keyword matches.
func IssueType(description string) string {
	if issue := DetectIssue(description); issue != "" {
		return issue
	}
	return "maintenance"
}

// Callers often drop the street suffix for the buildings we hear about
// most, so those are recognized before the general pattern.
var addressShortcuts = []struct{ fragment, address string }{
	{"29 port richmond", "29 Port Richmond Avenue"},
	{"122 targee", "122 Targee Street"},
	{"31 port richmond", "31 Port Richmond Avenue"},
}

// extractAddress returns the street-address candidate found in the
// utterance, or "" when there is none.
func extractAddress(utterance string) string {
	lowered := strings.ToLower(utterance)
	for _, s := range addressShortcuts {
		if strings.Contains(lowered, s.fragment) {
			return s.address
		}
	}
	m := addressPattern.FindStringSubmatch(utterance)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1] + " " + m[2])
}
