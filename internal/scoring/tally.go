// Package scoring turns round outcomes into points, session tallies,
// lifetime stats, and achievement unlocks. Everything here is a pure
// function of its inputs.
package scoring

import (
	"time"

	"cypher_arena/internal/cipher"
)

type Rules struct {
	BasePoints          int
	ComboMultiplier     int
	TimeBonusThreshold  time.Duration
	TimeBonusPoints     int
	SpeedDemonThreshold time.Duration
}

func DefaultRules() Rules {
	return Rules{
		BasePoints:          100,
		ComboMultiplier:     50,
		TimeBonusThreshold:  5 * time.Second,
		TimeBonusPoints:     50,
		SpeedDemonThreshold: 2 * time.Second,
	}
}

// Points awards a correct answer. combo is the combo after counting this
// answer.
func Points(r Rules, combo int, elapsed time.Duration) int {
	p := r.BasePoints + combo*r.ComboMultiplier
	if elapsed < r.TimeBonusThreshold {
		p += r.TimeBonusPoints
	}
	return p
}

// Tally accumulates one session's results. The zero value is a fresh
// session.
type Tally struct {
	Score     int `json:"score"`
	Combo     int `json:"combo"`
	BestCombo int `json:"best_combo"`
	Correct   int `json:"correct"`
	Wrong     int `json:"wrong"`
	Skipped   int `json:"skipped"`
	Conceded  int `json:"conceded"`

	TotalTime time.Duration `json:"total_time"`
	// Fastest is zero until the first correct answer.
	Fastest time.Duration `json:"fastest"`

	Schemes            cipher.SchemeSet `json:"schemes"`
	ROT13Streak        int              `json:"rot13_streak"`
	LongestROT13Streak int              `json:"longest_rot13_streak"`
	TookDamage         bool             `json:"took_damage"`
}

// Win records a correct answer and returns the points it earned.
func (t Tally) Win(r Rules, scheme cipher.Scheme, elapsed time.Duration) (Tally, int) {
	t.Correct++
	t.Combo++
	t.BestCombo = max(t.BestCombo, t.Combo)
	t.TotalTime += elapsed
	if t.Fastest == 0 || elapsed < t.Fastest {
		t.Fastest = elapsed
	}
	t.Schemes = t.Schemes.Add(scheme)
	if scheme == cipher.ROT13 {
		t.ROT13Streak++
		t.LongestROT13Streak = max(t.LongestROT13Streak, t.ROT13Streak)
	} else {
		t.ROT13Streak = 0
	}
	pts := Points(r, t.Combo, elapsed)
	t.Score += pts
	return t, pts
}

// Loss records a wrong answer.
func (t Tally) Loss() Tally {
	t.Wrong++
	t.Combo = 0
	t.ROT13Streak = 0
	return t
}

// Hit marks that the player lost HP this session.
func (t Tally) Hit() Tally {
	t.TookDamage = true
	return t
}

// Skip records a skipped round. The ROT13 streak survives a skip.
func (t Tally) Skip() Tally {
	t.Skipped++
	t.Combo = 0
	return t
}

// Concede records a duel round the opponent answered first.
func (t Tally) Concede() Tally {
	t.Conceded++
	t.Combo = 0
	return t
}

// Accuracy is the percentage of submitted answers that were correct.
func (t Tally) Accuracy() float64 {
	n := t.Correct + t.Wrong
	if n == 0 {
		return 0
	}
	return float64(t.Correct) / float64(n) * 100
}

func (t Tally) AverageTime() time.Duration {
	if t.Correct == 0 {
		return 0
	}
	return t.TotalTime / time.Duration(t.Correct)
}
