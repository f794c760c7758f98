package call

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotsheetiq/frontdesk/config"
)

func setupManager(t *testing.T, cfg *config.Config) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	if cfg == nil {
		cfg = &config.Config{MaxCalls: 100, SessionTimeout: 30 * time.Minute}
	}
	return NewManagerWithClient(cfg, client), mr
}

func TestManager_EnsureSessionCreatesOnce(t *testing.T) {
	m, _ := setupManager(t, nil)
	ctx := context.Background()

	s1, created, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)
	assert.True(t, created)

	s2, created, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s1, s2)

	assert.Equal(t, 1, m.ActiveCallCount())
}

func TestManager_EnsureSessionRejectsEmptySID(t *testing.T) {
	m, _ := setupManager(t, nil)

	_, _, err := m.EnsureSession(context.Background(), "", "+15551111111")
	assert.Error(t, err)
}

func TestManager_MaxCallsCap(t *testing.T) {
	m, _ := setupManager(t, &config.Config{MaxCalls: 1, SessionTimeout: time.Minute})
	ctx := context.Background()

	_, _, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)

	_, _, err = m.EnsureSession(ctx, "CA2", "+15552222222")
	assert.Error(t, err)

	// An existing call is still reachable at the cap.
	_, created, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestManager_MirrorsToRedis(t *testing.T) {
	m, mr := setupManager(t, nil)
	ctx := context.Background()

	s, _, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)

	assert.Equal(t, "+15551111111", mr.HGet("call:CA1", "caller"))
	assert.Equal(t, "awaiting_problem", mr.HGet("call:CA1", "stage"))
	members, err := mr.Members("active_calls")
	require.NoError(t, err)
	assert.Contains(t, members, "CA1")

	s.SetProblem("no heat")
	s.SetAddress("122 Targee Street")
	s.SetTicket("SV-12345")
	m.SyncSession(ctx, s)

	assert.Equal(t, "ready_for_ticket", mr.HGet("call:CA1", "stage"))
	assert.Equal(t, "SV-12345", mr.HGet("call:CA1", "ticket"))
}

func TestManager_RemoveSessionClearsRedis(t *testing.T) {
	m, mr := setupManager(t, nil)
	ctx := context.Background()

	_, _, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)

	require.NoError(t, m.RemoveSession(ctx, "CA1"))
	assert.Equal(t, 0, m.ActiveCallCount())
	assert.False(t, mr.Exists("call:CA1"))

	// Removing twice is fine.
	assert.NoError(t, m.RemoveSession(ctx, "CA1"))
}

func TestManager_CleanupEvictsIdleSessions(t *testing.T) {
	m, mr := setupManager(t, &config.Config{MaxCalls: 10, SessionTimeout: time.Nanosecond})
	ctx := context.Background()

	var evicted []string
	m.OnEvict = func(s *Session) { evicted = append(evicted, s.SID) }

	_, _, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	m.CleanupIdleSessions(ctx)

	assert.Equal(t, 0, m.ActiveCallCount())
	assert.Equal(t, []string{"CA1"}, evicted)
	assert.False(t, mr.Exists("call:CA1"))
}

func TestManager_MemoryOnlyWithoutRedis(t *testing.T) {
	cfg := &config.Config{MaxCalls: 10, SessionTimeout: time.Minute}
	m := NewManagerWithClient(cfg, nil)
	ctx := context.Background()

	s, created, err := m.EnsureSession(ctx, "CA1", "+15551111111")
	require.NoError(t, err)
	assert.True(t, created)

	m.SyncSession(ctx, s)
	require.NoError(t, m.RemoveSession(ctx, "CA1"))
}
