package call

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/hotsheetiq/frontdesk/config"
)

// maxHistoryTurns bounds the per-call transcript.
const maxHistoryTurns = 200

// Manager tracks all in-flight call sessions
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	redis    *redis.Client
	config   *config.Config

	// OnEvict, if set, is called for each session removed by the idle cleanup.
	OnEvict func(*Session)
}

// NewManager creates a call session manager with Redis connection
func NewManager(cfg *config.Config) (*Manager, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	// Test Redis connection; the manager degrades to memory-only without it
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, call state will be memory-only")
		redisClient = nil
	}

	return &Manager{
		sessions: make(map[string]*Session),
		redis:    redisClient,
		config:   cfg,
	}, nil
}

// NewManagerWithClient creates a manager around an existing Redis client.
// Pass nil to run memory-only.
func NewManagerWithClient(cfg *config.Config, client *redis.Client) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		redis:    client,
		config:   cfg,
	}
}

// EnsureSession returns the session for a call SID, creating it on the first
// webhook for that call. The bool reports whether the session is new.
func (m *Manager) EnsureSession(ctx context.Context, sid, callerPhone string) (*Session, bool, error) {
	if sid == "" {
		return nil, false, fmt.Errorf("empty call SID")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sid]; ok {
		return existing, false, nil
	}

	if len(m.sessions) >= m.config.MaxCalls {
		return nil, false, fmt.Errorf("maximum concurrent calls reached")
	}

	session := NewSession(sid, callerPhone, maxHistoryTurns)
	m.sessions[sid] = session
	m.mirrorSession(ctx, session)

	return session, true, nil
}

// mirrorSession saves a session snapshot to Redis
func (m *Manager) mirrorSession(ctx context.Context, s *Session) {
	if m.redis == nil {
		return
	}
	m.redis.HSet(ctx, "call:"+s.SID, map[string]interface{}{
		"caller":        s.CallerPhone,
		"stage":         s.Stage().String(),
		"problem":       s.Problem(),
		"address":       s.Address(),
		"ticket":        s.TicketNumber(),
		"created_at":    s.CreatedAt.Format(time.RFC3339),
		"last_activity": s.LastActivity().Format(time.RFC3339),
	})
	m.redis.SAdd(ctx, "active_calls", s.SID)
	m.redis.Expire(ctx, "call:"+s.SID, m.config.SessionTimeout)
}

// SyncSession refreshes the Redis mirror after slot changes.
func (m *Manager) SyncSession(ctx context.Context, s *Session) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.mirrorSession(ctx, s)
}

// GetSession retrieves a session by call SID
func (m *Manager) GetSession(sid string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[sid]
	return session, exists
}

// RemoveSession removes a session and its Redis mirror
func (m *Manager) RemoveSession(ctx context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sid]; !exists {
		return nil
	}

	delete(m.sessions, sid)

	if m.redis != nil {
		m.redis.Del(ctx, "call:"+sid)
		m.redis.SRem(ctx, "active_calls", sid)
	}

	return nil
}

// ActiveCallCount returns the current in-flight call count
func (m *Manager) ActiveCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CleanupIdleSessions removes calls that have gone quiet
func (m *Manager) CleanupIdleSessions(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for sid, session := range m.sessions {
		if session.IdleSince(now) > m.config.SessionTimeout {
			delete(m.sessions, sid)

			if m.redis != nil {
				m.redis.Del(ctx, "call:"+sid)
				m.redis.SRem(ctx, "active_calls", sid)
			}

			log.Info().Str("call_sid", sid).Msg("evicted idle call session")
			if m.OnEvict != nil {
				m.OnEvict(session)
			}
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of idle call sessions
func (m *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupIdleSessions(ctx)
		}
	}
}

// Redis exposes the shared client so other state (taught rules) can use the
// same connection. Nil when Redis is unavailable.
func (m *Manager) Redis() *redis.Client {
	return m.redis
}

// Shutdown drops all sessions and closes the Redis connection
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid := range m.sessions {
		delete(m.sessions, sid)
	}

	if m.redis != nil {
		m.redis.Close()
	}
}
