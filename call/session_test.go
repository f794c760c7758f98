package call

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_StageProgression(t *testing.T) {
	s := NewSession("CA123", "+15551234567", 10)

	assert.Equal(t, StageAwaitingProblem, s.Stage())

	assert.True(t, s.SetProblem("washing machine is broken"))
	assert.Equal(t, StageAwaitingAddress, s.Stage())

	assert.True(t, s.SetAddress("29 Port Richmond Avenue"))
	assert.Equal(t, StageReadyForTicket, s.Stage())
}

func TestSession_SlotsAreWriteOnce(t *testing.T) {
	s := NewSession("CA123", "+15551234567", 10)

	require.True(t, s.SetProblem("no heat"))
	assert.False(t, s.SetProblem("something else"))
	assert.Equal(t, "no heat", s.Problem())

	require.True(t, s.SetAddress("122 Targee Street"))
	assert.False(t, s.SetAddress("1 Fake Street"))
	assert.Equal(t, "122 Targee Street", s.Address())

	require.True(t, s.SetTicket("SV-12345"))
	assert.False(t, s.SetTicket("SV-99999"))
	assert.Equal(t, "SV-12345", s.TicketNumber())
}

func TestSession_EmptyValuesRejected(t *testing.T) {
	s := NewSession("CA123", "+15551234567", 10)

	assert.False(t, s.SetProblem(""))
	assert.False(t, s.SetAddress(""))
	assert.False(t, s.SetTicket(""))
	assert.Equal(t, StageAwaitingProblem, s.Stage())
}

func TestSession_TouchTracksActivity(t *testing.T) {
	s := NewSession("CA123", "+15551234567", 10)

	before := s.LastActivity()
	s.Touch()
	s.Touch()

	assert.Equal(t, 2, s.TurnCount())
	assert.False(t, s.LastActivity().Before(before))
	assert.Less(t, s.IdleSince(time.Now()), time.Second)
	assert.Greater(t, s.IdleSince(time.Now().Add(time.Hour)), 59*time.Minute)
}

func TestTurnHistory_Bounded(t *testing.T) {
	h := NewTurnHistory(2)

	require.NoError(t, h.Append("user", "hello"))
	require.NoError(t, h.Append("assistant", "hi"))
	assert.ErrorIs(t, h.Append("user", "one too many"), ErrHistoryFull)
	assert.Equal(t, 2, h.Len())
}

func TestTurnHistory_Recent(t *testing.T) {
	h := NewTurnHistory(10)
	require.NoError(t, h.Append("user", "first"))
	require.NoError(t, h.Append("assistant", "second"))
	require.NoError(t, h.Append("user", "third"))

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)

	assert.Len(t, h.Recent(99), 3)
}

func TestTurnHistory_TurnsReturnsCopy(t *testing.T) {
	h := NewTurnHistory(10)
	require.NoError(t, h.Append("user", "hello"))

	turns := h.Turns()
	turns[0].Content = "mutated"

	assert.Equal(t, "hello", h.Turns()[0].Content)
}
