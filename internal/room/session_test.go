package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollDiceBounds(t *testing.T) {
	s := NewSession()

	for _, sides := range []int{4, 6, 8, 10, 12, 20} {
		for i := 0; i < 200; i++ {
			roll, err := s.RollDice(sides, "u1", "Alex")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, roll.Result, 1)
			assert.LessOrEqual(t, roll.Result, sides)
		}
	}
}

func TestRollDiceRejectsBadSides(t *testing.T) {
	s := NewSession()

	_, err := s.RollDice(1, "u1", "Alex")
	assert.ErrorIs(t, err, ErrInvalidDice)
}

func TestDiceAutoClears(t *testing.T) {
	s := NewSession(WithDiceTTL(20 * time.Millisecond))

	roll, err := s.RollDice(20, "u1", "Alex")
	require.NoError(t, err)

	current := s.CurrentRoll()
	require.NotNil(t, current)
	assert.Equal(t, roll.Result, current.Result)

	// Never returns a previous result after the display window elapses.
	assert.Eventually(t, func() bool {
		return s.CurrentRoll() == nil
	}, time.Second, 5*time.Millisecond)
}

func TestNewerRollSupersedesPendingClear(t *testing.T) {
	s := NewSession(WithDiceTTL(30 * time.Millisecond))

	_, err := s.RollDice(6, "u1", "Alex")
	require.NoError(t, err)

	time.Sleep(15 * time.Millisecond)
	s.RecordRoll(DiceRoll{Sides: 20, Result: 17, RollerID: "u2", RollerName: "Sam"})

	// The first roll's expiry must not clear the second roll.
	time.Sleep(20 * time.Millisecond)
	current := s.CurrentRoll()
	require.NotNil(t, current)
	assert.Equal(t, 17, current.Result)
}

func TestTranscriptArrivalOrder(t *testing.T) {
	s := NewSession()

	// Arrival order wins even when carried timestamps disagree.
	s.AppendChat(ChatMessage{ID: "1", Content: "first", TimestampMs: 2000, Kind: KindChat})
	s.AppendChat(ChatMessage{ID: "2", Content: "second", TimestampMs: 1000, Kind: KindChat})
	s.AppendChat(ChatMessage{ID: "3", Content: "third", TimestampMs: 1500, Kind: KindSystem})

	msgs := s.Transcript()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestTimer(t *testing.T) {
	s := NewSession()

	s.TimerTick()
	assert.Equal(t, TimerState{}, s.Timer(), "tick while paused does nothing")

	s.StartTimer()
	s.TimerTick()
	s.TimerTick()
	assert.Equal(t, TimerState{ElapsedSeconds: 2, IsRunning: true}, s.Timer())

	s.PauseTimer()
	s.TimerTick()
	assert.Equal(t, 2, s.Timer().ElapsedSeconds)

	s.ResetTimer()
	assert.Equal(t, TimerState{}, s.Timer())
}

func TestTurn(t *testing.T) {
	s := NewSession()

	s.SetTurn("u2", "Sam")
	id, name := s.Turn()
	assert.Equal(t, "u2", id)
	assert.Equal(t, "Sam", name)
}
