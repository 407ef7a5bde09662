package config

import (
	"errors"
	"testing"
	"time"

	"cypher_arena/internal/apperr"
)

func TestDuelAvailable(t *testing.T) {
	tests := []struct {
		name    string
		dbURL   string
		redis   string
		missing []string
	}{
		{"both", "postgres://x", "localhost:6379", nil},
		{"no redis", "postgres://x", "", []string{"REDIS_ADDR"}},
		{"nothing", "", "", []string{"DATABASE_URL", "REDIS_ADDR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", tt.dbURL)
			t.Setenv("REDIS_ADDR", tt.redis)
			err := Load().DuelAvailable()
			if tt.missing == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *apperr.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigurationError, got %v", err)
			}
			if len(ce.Missing) != len(tt.missing) {
				t.Fatalf("missing = %v, want %v", ce.Missing, tt.missing)
			}
			for i := range tt.missing {
				if ce.Missing[i] != tt.missing[i] {
					t.Fatalf("missing = %v, want %v", ce.Missing, tt.missing)
				}
			}
		})
	}
}

func TestRulesFromEnv(t *testing.T) {
	t.Setenv("TOTAL_ROUNDS", "5")
	t.Setenv("STARTING_HP", "3")
	t.Setenv("ROUND_DELAY_MS", "100")
	t.Setenv("HINT_COUNT", "4")
	t.Setenv("BASE_POINTS", "not-a-number")
	t.Setenv("MATCH_START_DELAY_MS", "250")

	cfg := Load()
	r := cfg.Rules()
	if r.TotalRounds != 5 || r.StartingHP != 3 || r.AdvanceDelay != 100*time.Millisecond || r.HintCount != 4 {
		t.Fatalf("practice rules = %+v", r)
	}
	if r.Scoring.BasePoints != 100 {
		t.Fatalf("malformed BASE_POINTS should fall back, got %d", r.Scoring.BasePoints)
	}
	if !r.WrongAnswerDamage {
		t.Fatal("practice rules lost wrong-answer damage")
	}

	d := cfg.DuelRules()
	if d.Round.TotalRounds != 5 || d.StartDelay != 250*time.Millisecond {
		t.Fatalf("duel rules = %+v", d)
	}
	if d.Round.HintCount != 0 || d.Round.WrongAnswerDamage {
		t.Fatalf("duel rules picked up practice power-ups: %+v", d.Round)
	}
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestProfilePath(t *testing.T) {
	t.Setenv("ARENA_DATA_DIR", "/tmp/arena")
	if got := Load().ProfilePath(); got != "/tmp/arena/profile.db" {
		t.Fatalf("ProfilePath = %q", got)
	}
}
