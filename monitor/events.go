package monitor

import (
	"time"

	"github.com/bytedance/sonic"
)

// Event types
const (
	TypeCallStarted   = "call_started"
	TypeTurn          = "turn"
	TypeTicketCreated = "ticket_created"
	TypeCallEvicted   = "call_evicted"
)

// Event is one call-lifecycle update pushed to dashboard clients.
type Event struct {
	Type    string      `json:"type"` // "call_started", "turn", "ticket_created", "call_evicted"
	CallSID string      `json:"callSid"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// CallStartedPayload describes a newly answered call.
type CallStartedPayload struct {
	CallerPhone string `json:"callerPhone"`
}

// TurnPayload carries one exchange of the conversation.
type TurnPayload struct {
	Utterance string `json:"utterance"`
	Reply     string `json:"reply"`
	Stage     string `json:"stage"`
}

// TicketCreatedPayload describes a ticket opened mid-call.
type TicketCreatedPayload struct {
	TicketNumber string `json:"ticketNumber"`
	IssueType    string `json:"issueType"`
	Address      string `json:"address"`
}

// CallEvictedPayload describes why a session was removed.
type CallEvictedPayload struct {
	Reason string `json:"reason"` // "idle", "completed", "shutdown"
}

// NewCallStartedEvent creates a call_started event.
func NewCallStartedEvent(callSID, callerPhone string) *Event {
	return &Event{
		Type:    TypeCallStarted,
		CallSID: callSID,
		At:      time.Now().UTC(),
		Payload: CallStartedPayload{CallerPhone: callerPhone},
	}
}

// NewTurnEvent creates a turn event.
func NewTurnEvent(callSID, utterance, reply, stage string) *Event {
	return &Event{
		Type:    TypeTurn,
		CallSID: callSID,
		At:      time.Now().UTC(),
		Payload: TurnPayload{Utterance: utterance, Reply: reply, Stage: stage},
	}
}

// NewTicketCreatedEvent creates a ticket_created event.
func NewTicketCreatedEvent(callSID, ticketNumber, issueType, address string) *Event {
	return &Event{
		Type:    TypeTicketCreated,
		CallSID: callSID,
		At:      time.Now().UTC(),
		Payload: TicketCreatedPayload{
			TicketNumber: ticketNumber,
			IssueType:    issueType,
			Address:      address,
		},
	}
}

// NewCallEvictedEvent creates a call_evicted event.
func NewCallEvictedEvent(callSID, reason string) *Event {
	return &Event{
		Type:    TypeCallEvicted,
		CallSID: callSID,
		At:      time.Now().UTC(),
		Payload: CallEvictedPayload{Reason: reason},
	}
}

// Encode marshals the event for the wire.
func (e *Event) Encode() ([]byte, error) {
	return sonic.Marshal(e)
}
