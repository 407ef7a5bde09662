package scoring

import (
	"maps"
	"slices"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
)

// Summary describes a finished session.
type Summary struct {
	Mode            domain.GameMode `json:"mode"`
	Won             bool            `json:"won"`
	Draw            bool            `json:"draw,omitempty"`
	HP              int             `json:"hp"`
	RoundsCompleted int             `json:"rounds_completed"`
	Tally           Tally           `json:"tally"`
}

// Lifetime is a player's cumulative record across sessions.
type Lifetime struct {
	Wins               int           `json:"total_wins"`
	Losses             int           `json:"total_losses"`
	Sessions           int           `json:"total_sessions"`
	Points             int           `json:"total_points"`
	Decodes            int           `json:"total_decodes"`
	BestCombo          int           `json:"best_combo"`
	FastestDecode      time.Duration `json:"fastest_decode"`
	LongestROT13Streak int           `json:"longest_rot13_streak"`
	// SchemeSessions counts the sessions in which each scheme was decoded
	// at least once.
	SchemeSessions map[cipher.Scheme]int `json:"encodings_decoded"`
}

// Record folds a finished session into the lifetime stats. A draw counts
// as neither a win nor a loss.
func (l Lifetime) Record(s Summary) Lifetime {
	l.Sessions++
	l.Points += s.Tally.Score
	l.Decodes += s.Tally.Correct
	switch {
	case s.Won:
		l.Wins++
	case !s.Draw:
		l.Losses++
	}
	l.BestCombo = max(l.BestCombo, s.Tally.BestCombo)
	if f := s.Tally.Fastest; f > 0 && (l.FastestDecode == 0 || f < l.FastestDecode) {
		l.FastestDecode = f
	}
	l.LongestROT13Streak = max(l.LongestROT13Streak, s.Tally.LongestROT13Streak)

	counts := make(map[cipher.Scheme]int, len(l.SchemeSessions)+1)
	maps.Copy(counts, l.SchemeSessions)
	for _, sc := range s.Tally.Schemes.Schemes() {
		counts[sc]++
	}
	l.SchemeSessions = counts
	return l
}

// Achievement is a one-time unlock checked at the end of every session.
type Achievement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`

	earned func(r Rules, l Lifetime, s Summary) bool
}

var catalog = []Achievement{
	{ID: "first_blood", Name: "First Blood", Description: "Win your first match",
		earned: func(_ Rules, l Lifetime, s Summary) bool { return s.Won && l.Wins == 1 }},
	{ID: "perfect", Name: "Perfect", Description: "Win without losing HP",
		earned: func(_ Rules, _ Lifetime, s Summary) bool { return s.Won && !s.Tally.TookDamage }},
	{ID: "speed_demon", Name: "Speed Demon", Description: "Decode in under 2 seconds",
		earned: func(r Rules, _ Lifetime, s Summary) bool {
			return s.Tally.Fastest > 0 && s.Tally.Fastest < r.SpeedDemonThreshold
		}},
	{ID: "rot13_master", Name: "ROT13 Master", Description: "10 consecutive ROT13 decodes",
		earned: func(_ Rules, _ Lifetime, s Summary) bool { return s.Tally.LongestROT13Streak >= 10 }},
	{ID: "comeback_kid", Name: "Comeback Kid", Description: "Win with 1 HP remaining",
		earned: func(_ Rules, _ Lifetime, s Summary) bool { return s.Won && s.HP == 1 }},
	{ID: "veteran", Name: "Veteran", Description: "Play 25 sessions",
		earned: func(_ Rules, l Lifetime, _ Summary) bool { return l.Sessions >= 25 }},
	{ID: "champion", Name: "Champion", Description: "Win 10 sessions",
		earned: func(_ Rules, l Lifetime, _ Summary) bool { return l.Wins >= 10 }},
	{ID: "decoder", Name: "Decoder", Description: "Decode 100 strings total",
		earned: func(_ Rules, l Lifetime, _ Summary) bool { return l.Decodes >= 100 }},
	{ID: "streak_5", Name: "On Fire", Description: "Get a 5x combo",
		earned: func(_ Rules, _ Lifetime, s Summary) bool { return s.Tally.BestCombo >= 5 }},
	{ID: "all_encodings", Name: "Polyglot", Description: "Decode every encoding type in one session",
		earned: func(_ Rules, _ Lifetime, s Summary) bool { return s.Tally.Schemes.Complete() }},
}

// Catalog lists every achievement in display order.
func Catalog() []Achievement {
	return slices.Clone(catalog)
}

// AchievementByID finds a catalog entry.
func AchievementByID(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

// Evaluate returns the achievements earned by s that are not already in
// unlocked. l must already include s.
func Evaluate(r Rules, l Lifetime, s Summary, unlocked []string) []Achievement {
	var out []Achievement
	for _, a := range catalog {
		if slices.Contains(unlocked, a.ID) {
			continue
		}
		if a.earned(r, l, s) {
			out = append(out, a)
		}
	}
	return out
}
