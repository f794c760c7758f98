package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// PropertyLister is the slice of the directory API the matcher needs.
type PropertyLister interface {
	ListProperties(ctx context.Context) ([]Property, error)
}

// Matcher verifies spoken addresses against the real property list so that
// service tickets are only opened for buildings we actually manage. When the
// backend is unreachable it falls back to a locally maintained address list.
type Matcher struct {
	lister PropertyLister

	mu         sync.RWMutex
	properties []Property
	loaded     bool
	known      []string
}

// defaultKnownAddresses seeds the fallback list with the managed buildings.
var defaultKnownAddresses = []string{
	"29 Port Richmond Avenue",
	"122 Targee Street",
	"31 Port Richmond Avenue",
	"2940 Richmond Avenue",
	"2944 Richmond Avenue",
	"2938 Richmond Avenue",
}

// NewMatcher creates an address matcher. lister may be nil; only the known
// address list is consulted then.
func NewMatcher(lister PropertyLister) *Matcher {
	known := make([]string, len(defaultKnownAddresses))
	copy(known, defaultKnownAddresses)
	return &Matcher{
		lister: lister,
		known:  known,
	}
}

// LoadProperties fills the property cache from the backend.
func (m *Matcher) LoadProperties(ctx context.Context) error {
	if m.lister == nil {
		return nil
	}

	props, err := m.lister.ListProperties(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.properties = props
	m.loaded = true
	m.mu.Unlock()

	log.Info().Int("count", len(props)).Msg("loaded properties for address matching")
	return nil
}

// Verify resolves a spoken address to a canonical property address. Match
// order: exact containment, two-word partial, then a single significant word.
// Unmatched addresses fall back to the known list; a miss there means the
// address is rejected.
func (m *Matcher) Verify(ctx context.Context, spoken string) (string, bool) {
	spokenClean := strings.ToLower(strings.TrimSpace(spoken))
	if spokenClean == "" {
		return "", false
	}

	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()
	if !loaded && m.lister != nil {
		if err := m.LoadProperties(ctx); err != nil {
			log.Warn().Err(err).Msg("property list unavailable, using known addresses")
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Exact containment against the live property list.
	for _, prop := range m.properties {
		name := strings.ToLower(propertyLabel(prop))
		if name == "" {
			continue
		}
		if strings.Contains(name, spokenClean) || strings.Contains(spokenClean, name) {
			return propertyLabel(prop), true
		}
	}

	// Partial: at least two spoken words present in the property name.
	words := significantWords(spokenClean, 2)
	for _, prop := range m.properties {
		name := strings.ToLower(propertyLabel(prop))
		matches := 0
		for _, w := range words {
			if strings.Contains(name, w) {
				matches++
			}
		}
		if matches >= 2 {
			return propertyLabel(prop), true
		}
	}

	// Single significant word, longer words only.
	for _, w := range words {
		if len(w) <= 4 {
			continue
		}
		for _, prop := range m.properties {
			if strings.Contains(strings.ToLower(propertyLabel(prop)), w) {
				return propertyLabel(prop), true
			}
		}
	}

	// Known-address fallback.
	for _, addr := range m.known {
		lowered := strings.ToLower(addr)
		if strings.Contains(lowered, spokenClean) || strings.Contains(spokenClean, lowered) {
			return addr, true
		}
	}

	log.Warn().Str("spoken", spoken).Msg("address not found in property system")
	return "", false
}

// AddKnownAddress registers an address in the fallback list. Satisfies
// rules.AddressBook.
func (m *Matcher) AddKnownAddress(address string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.known {
		if strings.EqualFold(existing, address) {
			return
		}
	}
	m.known = append(m.known, address)
}

// KnownAddresses returns a copy of the fallback address list.
func (m *Matcher) KnownAddresses() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.known))
	copy(out, m.known)
	return out
}

func propertyLabel(p Property) string {
	if p.Address != "" {
		return p.Address
	}
	return p.Name
}

func significantWords(s string, minLen int) []string {
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) > minLen {
			out = append(out, w)
		}
	}
	return out
}
