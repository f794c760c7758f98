package dialog

import (
	"strings"
	"time"
)

// instantResponse pairs a contained phrase with its canned reply. The list is
// a priority order: the first pattern contained in the utterance wins.
type instantResponse struct {
	pattern string
	respond func(now time.Time) string
}

func fixed(text string) func(time.Time) string {
	return func(time.Time) string { return text }
}

// instantResponses answer common phrases without any model round-trip.
var instantResponses = []instantResponse{
	// Office hours
	{"are you open", officeHoursResponse},
	{"open right now", officeHoursResponse},
	{"what are your hours", fixed("We're open Monday through Friday, 9 AM to 5 PM Eastern Time!")},
	{"hours", fixed("Our office hours are Monday through Friday, 9 AM to 5 PM Eastern.")},

	// Greetings
	{"hello", fixed("Hi there! I'm Chris from Grinberg Management. How can I help you today?")},
	{"hi", fixed("Hello! I'm Chris. What can I help you with?")},
	{"hey", fixed("Hey there! I'm Chris. How can I assist you?")},

	// Service information
	{"what services", fixed("I help with maintenance requests, office hours, and property questions. What do you need?")},
	{"what can you help with", fixed("I can help with maintenance requests, office hours, and property questions. What's happening?")},
	{"maintenance", fixed("I understand you need maintenance help. What's the issue and what's your address?")},

	// Common issues - ask for the address immediately
	{"no power", fixed("That's an electrical emergency! What's your address so I can create an urgent service ticket?")},
	{"don't have power", fixed("That's urgent! What's your address so I can get this handled right away?")},
	{"electrical", fixed("I understand you have an electrical issue. What's your address so I can create a service ticket?")},
	{"power", fixed("I understand you're having power issues. What's your address?")},

	// Thanks and confirmations
	{"thank you", fixed("You're welcome! Anything else I can help with?")},
	{"thanks", fixed("Happy to help! What else can I do for you?")},
	{"yes", fixed("Great! What else can I help you with?")},
	{"okay", fixed("Perfect! Anything else?")},
}

// matchInstant returns the first built-in response whose pattern appears in
// the utterance. Patterns match on word boundaries so "hi" doesn't fire
// inside "washing".
func matchInstant(utterance string, now time.Time) (string, bool) {
	normalized := " " + normalizeWords(utterance) + " "
	for _, ir := range instantResponses {
		if strings.Contains(normalized, " "+ir.pattern+" ") {
			return ir.respond(now), true
		}
	}
	return "", false
}

// normalizeWords lower-cases and reduces an utterance to space-separated
// words, dropping punctuation.
func normalizeWords(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// eastern resolves lazily so a missing tz database degrades to UTC instead of
// failing startup.
var eastern = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.UTC
	}
	return loc
}()

// officeHoursResponse answers "are you open" from the actual clock.
// Business hours: Monday-Friday 9AM-5PM Eastern.
func officeHoursResponse(now time.Time) string {
	local := now.In(eastern)
	hour := local.Hour()
	weekday := local.Weekday()

	isBusinessDay := weekday >= time.Monday && weekday <= time.Friday
	isBusinessHours := hour >= 9 && hour < 17

	switch {
	case isBusinessDay && isBusinessHours:
		return "Yes, we're open right now! Our office hours are Monday through Friday, 9 AM to 5 PM Eastern. How can I help you?"
	case isBusinessDay && hour < 9:
		return "We're closed right now but open at 9 AM this morning! Our office hours are Monday through Friday, 9 AM to 5 PM Eastern. What can I help you with?"
	case isBusinessDay:
		return "We're closed for the day, but open tomorrow at 9 AM! Our office hours are Monday through Friday, 9 AM to 5 PM Eastern. How can I assist you?"
	default:
		return "We're closed for the weekend, but open Monday at 9 AM! Our office hours are Monday through Friday, 9 AM to 5 PM Eastern. What can I help you with?"
	}
}
