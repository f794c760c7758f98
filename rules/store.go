package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisRulesKey = "admin_rules"

	// changeLogLimit bounds the retained admin change log.
	changeLogLimit = 50
)

// Change records one applied admin action.
type Change struct {
	Type        string    `json:"type"` // "instant_response", "greeting", "property_address"
	Instruction string    `json:"instruction"`
	Trigger     string    `json:"trigger,omitempty"`
	Response    string    `json:"response,omitempty"`
	At          time.Time `json:"at"`
}

// Store holds taught rules in memory, mirrored to a Redis hash so they
// survive restarts. The in-memory map is authoritative within a process.
type Store struct {
	mu      sync.RWMutex
	order   []string // triggers in insertion order, for deterministic lookup
	rules   map[string]string
	changes []Change
	redis   *redis.Client
}

// NewStore creates a rule store. client may be nil for memory-only operation.
func NewStore(client *redis.Client) *Store {
	return &Store{
		rules: make(map[string]string),
		redis: client,
	}
}

// LoadFromRedis restores previously taught rules.
func (s *Store) LoadFromRedis(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	stored, err := s.redis.HGetAll(ctx, redisRulesKey).Result()
	if err != nil {
		return fmt.Errorf("loading rules from redis: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for trigger, response := range stored {
		if _, exists := s.rules[trigger]; !exists {
			s.order = append(s.order, trigger)
		}
		s.rules[trigger] = response
	}
	return nil
}

// Add registers a rule. Re-teaching a trigger overwrites its response but
// keeps its original priority position.
func (s *Store) Add(ctx context.Context, r Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trigger := strings.ToLower(r.Trigger)
	if _, exists := s.rules[trigger]; !exists {
		s.order = append(s.order, trigger)
	}
	s.rules[trigger] = r.Response

	if s.redis != nil {
		s.redis.HSet(ctx, redisRulesKey, trigger, r.Response)
	}
}

// Match returns the response for the first taught trigger contained in the
// utterance, lower-cased. Insertion order decides ties.
func (s *Store) Match(utterance string) (string, bool) {
	lowered := strings.ToLower(utterance)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, trigger := range s.order {
		if strings.Contains(lowered, trigger) {
			return s.rules[trigger], true
		}
	}
	return "", false
}

// Len returns the number of taught rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// LogChange appends to the admin change log, dropping the oldest entry once
// the log is at capacity.
func (s *Store) LogChange(c Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.At.IsZero() {
		c.At = time.Now()
	}
	s.changes = append(s.changes, c)
	if len(s.changes) > changeLogLimit {
		s.changes = s.changes[len(s.changes)-changeLogLimit:]
	}
}

// RecentChanges returns up to n most recent admin changes, newest last.
func (s *Store) RecentChanges(n int) []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.changes) - n
	if start < 0 {
		start = 0
	}
	out := make([]Change, len(s.changes)-start)
	copy(out, s.changes[start:])
	return out
}
