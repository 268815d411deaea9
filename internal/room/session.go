package room

import (
	"math/rand/v2"
	"sync"
	"time"
)

// DiceDisplayWindow is how long a roll result stays on screen.
const DiceDisplayWindow = 3000 * time.Millisecond

// ChatKind tags a transcript entry.
type ChatKind string

const (
	KindChat       ChatKind = "chat"
	KindGameAction ChatKind = "game_action"
	KindSystem     ChatKind = "system"
)

// ChatMessage is one immutable transcript entry.
type ChatMessage struct {
	ID          string
	SenderID    string
	SenderName  string
	Content     string
	TimestampMs int64
	Kind        ChatKind
}

// DiceRoll is the ephemeral result of the most recent roll. It is cleared
// after DiceDisplayWindow and never persisted.
type DiceRoll struct {
	Sides      int
	Result     int
	RollerID   string
	RollerName string
}

// TimerState is the local session timer. It is not synchronized across
// participants; each player runs their own.
type TimerState struct {
	ElapsedSeconds int
	IsRunning      bool
}

// Session is the in-memory state of one room visit: the chat transcript,
// the last dice result, the timer, and whose turn it is. All mutation is
// synchronous; callers drive it from signaling events and user actions.
type Session struct {
	mu sync.RWMutex

	// Transcript is append-only, ordered by arrival. The carried timestamp
	// is display metadata only; sorting by it would reorder on clock skew.
	messages []ChatMessage

	dice     *DiceRoll
	diceGen  uint64
	diceTTL  time.Duration
	timer    TimerState
	turnID   string
	turnName string

	onChange func()
}

// SessionOption tweaks session construction.
type SessionOption func(*Session)

// WithDiceTTL overrides the dice display window.
func WithDiceTTL(ttl time.Duration) SessionOption {
	return func(s *Session) { s.diceTTL = ttl }
}

func NewSession(opts ...SessionOption) *Session {
	s := &Session{diceTTL: DiceDisplayWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a callback fired after every mutation, for rendering.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// AppendChat appends to the transcript in arrival order. Entries are never
// mutated or de-duplicated after creation.
func (s *Session) AppendChat(msg ChatMessage) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.notify()
}

// Transcript returns a copy of the full transcript.
func (s *Session) Transcript() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// RollDice draws a uniform result in [1, sides] and records it as the
// current roll. The display clears itself after the dice window elapses.
func (s *Session) RollDice(sides int, rollerID, rollerName string) (DiceRoll, error) {
	if sides < 2 {
		return DiceRoll{}, ErrInvalidDice
	}

	roll := DiceRoll{
		Sides:      sides,
		Result:     rand.IntN(sides) + 1,
		RollerID:   rollerID,
		RollerName: rollerName,
	}
	s.RecordRoll(roll)
	return roll, nil
}

// RecordRoll stores a roll (local or remote) and schedules its expiry. A
// newer roll supersedes the pending expiry of an older one.
func (s *Session) RecordRoll(roll DiceRoll) {
	s.mu.Lock()
	s.dice = &roll
	s.diceGen++
	gen := s.diceGen
	ttl := s.diceTTL
	s.mu.Unlock()
	s.notify()

	time.AfterFunc(ttl, func() {
		s.mu.Lock()
		if s.diceGen == gen {
			s.dice = nil
		}
		cleared := s.dice == nil
		s.mu.Unlock()
		if cleared {
			s.notify()
		}
	})
}

// CurrentRoll returns the roll on display, or nil after the window elapsed.
func (s *Session) CurrentRoll() *DiceRoll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dice == nil {
		return nil
	}
	cp := *s.dice
	return &cp
}

// TimerTick advances the timer by one second while it is running.
func (s *Session) TimerTick() {
	s.mu.Lock()
	if s.timer.IsRunning {
		s.timer.ElapsedSeconds++
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) StartTimer() {
	s.mu.Lock()
	s.timer.IsRunning = true
	s.mu.Unlock()
	s.notify()
}

func (s *Session) PauseTimer() {
	s.mu.Lock()
	s.timer.IsRunning = false
	s.mu.Unlock()
	s.notify()
}

func (s *Session) ResetTimer() {
	s.mu.Lock()
	s.timer = TimerState{}
	s.mu.Unlock()
	s.notify()
}

func (s *Session) Timer() TimerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timer
}

// SetTurn records whose turn it is, from a turn_change event.
func (s *Session) SetTurn(playerID, playerName string) {
	s.mu.Lock()
	s.turnID = playerID
	s.turnName = playerName
	s.mu.Unlock()
	s.notify()
}

// Turn returns the id and name of the player whose turn it is.
func (s *Session) Turn() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.turnID, s.turnName
}
