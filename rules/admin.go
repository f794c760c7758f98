package rules

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultGreeting = "Hi there, you've reached Grinberg Management. I'm Chris, how can I help you today?"

var (
	greetingPattern = regexp.MustCompile(`(?i)(?:change|modify).*greeting.*['"]([^'"]+)['"]`)
	addressPattern  = regexp.MustCompile(`(?i)(?:add|include).*address[:\s]*([0-9]+\s+[a-z\s]+(?:street|avenue|ave|road|rd|court|ct|lane|ln|drive|dr))`)
)

// AddressBook is where admin-added property addresses go.
type AddressBook interface {
	AddKnownAddress(address string)
}

// Admin applies free-form admin instructions: teaching instant responses,
// changing the greeting, and registering property addresses.
type Admin struct {
	store     *Store
	addresses AddressBook

	mu       sync.RWMutex
	greeting string
}

// NewAdmin creates an admin action handler. addresses may be nil if no
// property directory is configured.
func NewAdmin(store *Store, addresses AddressBook) *Admin {
	return &Admin{
		store:     store,
		addresses: addresses,
		greeting:  defaultGreeting,
	}
}

// Greeting returns the current call greeting.
func (a *Admin) Greeting() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.greeting
}

// Apply routes an instruction to the matching admin action. It returns a
// spoken-style confirmation, or an explanation when nothing matched.
func (a *Admin) Apply(ctx context.Context, instruction string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(instruction))

	switch {
	case strings.Contains(lowered, "change greeting") || strings.Contains(lowered, "modify greeting"):
		return a.changeGreeting(instruction)
	case strings.Contains(lowered, "add property address") || strings.Contains(lowered, "add address"):
		return a.addPropertyAddress(instruction)
	default:
		return a.addInstantResponse(ctx, instruction)
	}
}

func (a *Admin) addInstantResponse(ctx context.Context, instruction string) (string, bool) {
	rule, err := Parse(instruction)
	if err != nil {
		return "I couldn't find a trigger and response in that. Try: when someone says 'hello chris' respond with 'Hi there!'", false
	}

	a.store.Add(ctx, rule)
	a.store.LogChange(Change{
		Type:        "instant_response",
		Instruction: instruction,
		Trigger:     rule.Trigger,
		Response:    rule.Response,
	})

	log.Info().Str("trigger", rule.Trigger).Str("response", rule.Response).Msg("admin added instant response")
	return fmt.Sprintf("Perfect! When customers say '%s', I'll now respond with '%s'. This change is active immediately for all future calls!", rule.Trigger, rule.Response), true
}

func (a *Admin) changeGreeting(instruction string) (string, bool) {
	m := greetingPattern.FindStringSubmatch(instruction)
	if len(m) < 2 {
		return "I understand you want to change my greeting. Could you put the new greeting in quotes?", false
	}

	newGreeting := strings.TrimSpace(m[1])
	a.mu.Lock()
	a.greeting = newGreeting
	a.mu.Unlock()

	a.store.LogChange(Change{Type: "greeting", Instruction: instruction, Response: newGreeting})
	log.Info().Str("greeting", newGreeting).Msg("admin changed greeting")
	return fmt.Sprintf("Excellent! I've updated my greeting to '%s'. The change is active for all future calls starting now!", newGreeting), true
}

func (a *Admin) addPropertyAddress(instruction string) (string, bool) {
	m := addressPattern.FindStringSubmatch(instruction)
	if len(m) < 2 {
		return "I understand you want to add a property address. Could you give the full address, like 'Add property address: 123 Main Street'?", false
	}

	address := strings.TrimSpace(m[1])
	if a.addresses != nil {
		a.addresses.AddKnownAddress(address)
	}

	a.store.LogChange(Change{Type: "property_address", Instruction: instruction, Response: address})
	log.Info().Str("address", address).Msg("admin added property address")
	return fmt.Sprintf("Perfect! I've added '%s' to my list of known property addresses.", address), true
}
