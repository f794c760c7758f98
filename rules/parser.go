// Package rules turns free-form admin instructions into trigger/response
// pairs the dialog engine consults before its built-in responses.
package rules

import (
	"errors"
	"regexp"
	"strings"
)

// ErrNoTemplate is returned when no instruction template matches
var ErrNoTemplate = errors.New("no instruction template matched")

// templates is a priority list: earlier templates win on ambiguous input.
// Each must capture the trigger phrase as group 1 and the response as group 2.
var templates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)when someone says\s+(.+?)\s+respond\s+with\s+(.+)`),
	regexp.MustCompile(`(?i)when.*says?\s+(.+?)\s+respond.*with\s+(.+)`),
	regexp.MustCompile(`(?i)add.*response.*for\s+(.+?):\s*(.+)`),
	regexp.MustCompile(`(?i)if.*says?\s+(.+?)\s+say\s+(.+)`),
	regexp.MustCompile(`(?i)says?\s+(.+?)\s+respond.*with\s+(.+)`),
}

// Rule is one taught trigger/response pair. Trigger is stored lower-cased so
// matching is case-insensitive.
type Rule struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
}

// Parse extracts a rule from an admin instruction by trying each template in
// priority order. The trigger is lower-cased; both sides are stripped of
// surrounding whitespace and quotes.
func Parse(instruction string) (Rule, error) {
	for _, tmpl := range templates {
		m := tmpl.FindStringSubmatch(instruction)
		if len(m) < 3 {
			continue
		}
		trigger := stripQuotes(strings.ToLower(strings.TrimSpace(m[1])))
		response := stripQuotes(strings.TrimSpace(m[2]))
		if trigger == "" || response == "" {
			continue
		}
		return Rule{Trigger: trigger, Response: response}, nil
	}
	return Rule{}, ErrNoTemplate
}

func stripQuotes(s string) string {
	return strings.Trim(s, `'"`)
}
