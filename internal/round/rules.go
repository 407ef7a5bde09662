// Package round implements the lifecycle of a single question as a pure
// reducer. Practice uses it directly; duel wraps it with synchronisation
// rules of its own.
package round

import (
	"fmt"
	"strings"
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/scoring"
)

// Rules fix the behaviour of a session for its whole lifetime.
type Rules struct {
	Mode        domain.GameMode
	TotalRounds int
	StartingHP  int

	// WrongAnswerDamage costs the player HP for every wrong answer.
	WrongAnswerDamage bool
	// AutoAdvance schedules the next round after a win or skip. Duel
	// rounds are advanced by the question authority instead.
	AutoAdvance bool

	WrongCooldown time.Duration
	AdvanceDelay  time.Duration
	SkipDelay     time.Duration

	HintCount  int
	HintReveal int
	SkipCount  int

	Scoring scoring.Rules
}

func PracticeRules() Rules {
	return Rules{
		Mode:              domain.ModePractice,
		TotalRounds:       15,
		StartingHP:        6,
		WrongAnswerDamage: true,
		AutoAdvance:       true,
		WrongCooldown:     500 * time.Millisecond,
		AdvanceDelay:      2 * time.Second,
		SkipDelay:         500 * time.Millisecond,
		HintCount:         1,
		HintReveal:        2,
		SkipCount:         2,
		Scoring:           scoring.DefaultRules(),
	}
}

// DuelRules have no power-ups and no wrong-answer penalty beyond the
// combo reset: HP is only lost when the opponent answers first.
func DuelRules() Rules {
	r := PracticeRules()
	r.Mode = domain.ModeDuel
	r.WrongAnswerDamage = false
	r.AutoAdvance = false
	r.WrongCooldown = 0
	r.HintCount = 0
	r.SkipCount = 0
	return r
}

func (r Rules) Validate() error {
	if r.TotalRounds < 1 {
		return fmt.Errorf("total rounds must be positive, got %d", r.TotalRounds)
	}
	if r.StartingHP < 1 {
		return fmt.Errorf("starting hp must be positive, got %d", r.StartingHP)
	}
	if r.WrongCooldown < 0 || r.AdvanceDelay < 0 || r.SkipDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if r.HintCount < 0 || r.SkipCount < 0 || r.HintReveal < 0 {
		return fmt.Errorf("power-up counts must not be negative")
	}
	return nil
}

type PowerupKind string

const (
	Hint PowerupKind = "hint"
	Skip PowerupKind = "skip"
)

func ParsePowerup(s string) (PowerupKind, error) {
	switch PowerupKind(strings.ToLower(strings.TrimSpace(s))) {
	case Hint:
		return Hint, nil
	case Skip:
		return Skip, nil
	}
	return "", fmt.Errorf("unknown power-up %q", s)
}

// TimerKind names a pending timer. Scheduling a kind replaces any pending
// timer of the same kind.
type TimerKind string

const (
	TimerCooldown TimerKind = "cooldown"
	TimerAdvance  TimerKind = "advance"
	TimerStart    TimerKind = "start"
)
