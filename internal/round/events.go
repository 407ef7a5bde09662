package round

import (
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/scoring"
)

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Begin asks for the first question.
type Begin struct{}

// QuestionReady puts a question on screen for the given round.
type QuestionReady struct {
	Question domain.Question
	Round    int
	At       time.Time
}

type Submit struct {
	Text string
	At   time.Time
}

type CooldownElapsed struct{ Epoch uint64 }

type AdvanceElapsed struct{ Epoch uint64 }

type UsePowerup struct {
	Kind PowerupKind
	At   time.Time
}

// Conceded resolves the round in the opponent's favour.
type Conceded struct{}

// SyncHP lowers HP to a value observed elsewhere. Higher values are
// ignored.
type SyncHP struct{ HP int }

// Finish ends the session with an outcome decided outside the reducer.
type Finish struct{ Outcome Outcome }

type Quit struct{}

func (Begin) isEvent()           {}
func (QuestionReady) isEvent()   {}
func (Submit) isEvent()          {}
func (CooldownElapsed) isEvent() {}
func (AdvanceElapsed) isEvent()  {}
func (UsePowerup) isEvent()      {}
func (Conceded) isEvent()        {}
func (SyncHP) isEvent()          {}
func (Finish) isEvent()          {}
func (Quit) isEvent()            {}

// Effect is work Reduce asks its controller to perform.
type Effect interface{ isEffect() }

type RequestQuestion struct{ Round int }

// Schedule asks for Timer to fire after Delay. The controller delivers the
// matching *Elapsed event carrying Epoch.
type Schedule struct {
	Timer TimerKind
	Delay time.Duration
	Epoch uint64
}

type CancelTimers struct{}

// StartClock starts the elapsed-time display for a round.
type StartClock struct{ At time.Time }

type StopClock struct{}

type Notify struct{ Notification Notification }

func (RequestQuestion) isEffect() {}
func (Schedule) isEffect()        {}
func (CancelTimers) isEffect()    {}
func (StartClock) isEffect()      {}
func (StopClock) isEffect()       {}
func (Notify) isEffect()          {}

// Notification is a state change a consumer may render.
type Notification interface{ isNotification() }

type RoundStarted struct {
	Round    int
	Question domain.Question
}

type RoundWon struct {
	Round   int
	Elapsed time.Duration
	Points  int
	Combo   int
}

type RoundLost struct {
	Round int
	HP    int
}

// AnswerWindowOpen follows a wrong-answer cooldown.
type AnswerWindowOpen struct{ Round int }

type RoundConceded struct {
	Round    int
	Expected string
}

type HPChanged struct{ HP int }

type HintRevealed struct{ Hint string }

type Skipped struct{ Round int }

type RejectReason string

const (
	ReasonEmpty  RejectReason = "empty answer"
	ReasonClosed RejectReason = "not accepting answers"
)

type InputRejected struct{ Reason RejectReason }

type PowerupUnavailable struct{ Kind PowerupKind }

type SessionEnded struct {
	Outcome Outcome
	Summary scoring.Summary
}

func (RoundStarted) isNotification()       {}
func (RoundWon) isNotification()           {}
func (RoundLost) isNotification()          {}
func (AnswerWindowOpen) isNotification()   {}
func (RoundConceded) isNotification()      {}
func (HPChanged) isNotification()          {}
func (HintRevealed) isNotification()       {}
func (Skipped) isNotification()            {}
func (InputRejected) isNotification()      {}
func (PowerupUnavailable) isNotification() {}
func (SessionEnded) isNotification()       {}

// The notifications below come from controllers, never from Reduce.

// Tick reports the running round clock.
type Tick struct {
	Round   int
	Elapsed time.Duration
}

type AchievementsUnlocked struct{ Achievements []scoring.Achievement }

type MatchStarted struct {
	MatchID  string
	Opponent string
	// Authority is set on the peer that generates the questions.
	Authority bool
}

type OpponentAnswered struct {
	Correct bool
	Elapsed time.Duration
}

type OpponentHPChanged struct{ HP int }

// Failure surfaces a recoverable error to the consumer.
type Failure struct {
	Op  string
	Err error
}

func (Tick) isNotification()                 {}
func (AchievementsUnlocked) isNotification() {}
func (MatchStarted) isNotification()         {}
func (OpponentAnswered) isNotification()     {}
func (OpponentHPChanged) isNotification()    {}
func (Failure) isNotification()              {}
