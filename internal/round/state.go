package round

import (
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/scoring"
)

type Phase int

const (
	// Idle is before the first question is on screen.
	Idle Phase = iota
	// Displayed means a question is shown; answers are accepted while
	// CanSubmit is set.
	Displayed
	// Resolved means the round is over and the next question is pending.
	Resolved
	Ended
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Displayed:
		return "displayed"
	case Resolved:
		return "resolved"
	case Ended:
		return "ended"
	}
	return "unknown"
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeWon
	OutcomeLost
	OutcomeDraw
	OutcomeQuit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLost:
		return "lost"
	case OutcomeDraw:
		return "draw"
	case OutcomeQuit:
		return "quit"
	}
	return "none"
}

// State is one player's session. It is a value: Reduce returns a new one
// and never mutates its input.
type State struct {
	Rules     Rules
	Phase     Phase
	Round     int
	HP        int
	CanSubmit bool
	Question  *domain.Question
	StartedAt time.Time

	Hints int
	Skips int

	Tally     scoring.Tally
	Completed int
	Outcome   Outcome

	// Epoch increases on every transition that invalidates pending
	// timers. A timer event carrying an older epoch is stale.
	Epoch uint64
}

// New returns an Idle session at round 1 with full HP and power-ups.
func New(rules Rules) State {
	return State{
		Rules: rules,
		Phase: Idle,
		Round: 1,
		HP:    rules.StartingHP,
		Hints: rules.HintCount,
		Skips: rules.SkipCount,
	}
}

func (s State) Ended() bool { return s.Phase == Ended }

// Summary reports the session for scoring and persistence.
func (s State) Summary() scoring.Summary {
	return scoring.Summary{
		Mode:            s.Rules.Mode,
		Won:             s.Outcome == OutcomeWon,
		Draw:            s.Outcome == OutcomeDraw,
		HP:              s.HP,
		RoundsCompleted: s.Completed,
		Tally:           s.Tally,
	}
}
