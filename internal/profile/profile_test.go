package profile

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/scoring"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "profile.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sq}
}

func TestRecorderFinish(t *testing.T) {
	ctx := context.Background()
	win := scoring.Summary{Mode: domain.ModePractice, Won: true, HP: 6, RoundsCompleted: 15, Tally: scoring.Tally{
		Score: 2400, Correct: 15, BestCombo: 15, Fastest: 1800 * time.Millisecond,
		Schemes: cipher.SetOf(cipher.ROT13, cipher.Hex),
	}}

	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			rec := NewRecorder(st, scoring.DefaultRules())

			res, err := rec.Finish(ctx, "p1", win)
			if err != nil {
				t.Fatal(err)
			}
			got := map[string]bool{}
			for _, a := range res.Unlocked {
				got[a.ID] = true
			}
			for _, id := range []string{"first_blood", "perfect", "speed_demon", "streak_5"} {
				if !got[id] {
					t.Fatalf("%s not unlocked; got %v", id, got)
				}
			}

			res, err = rec.Finish(ctx, "p1", win)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Unlocked) != 0 {
				t.Fatalf("second session re-unlocked %v", res.Unlocked)
			}

			life, err := st.LoadStats(ctx, "p1")
			if err != nil {
				t.Fatal(err)
			}
			if life.Sessions != 2 || life.Wins != 2 || life.Decodes != 30 || life.Points != 4800 {
				t.Fatalf("lifetime = %+v", life)
			}
			if life.FastestDecode != 1800*time.Millisecond || life.SchemeSessions[cipher.Hex] != 2 {
				t.Fatalf("lifetime = %+v", life)
			}

			ids, err := st.Unlocked(ctx, "p1")
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 4 {
				t.Fatalf("stored unlocks = %v", ids)
			}
			other, _ := st.Unlocked(ctx, "p2")
			if len(other) != 0 {
				t.Fatalf("unlocks leaked across players: %v", other)
			}
		})
	}
}

func TestUnlockIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := st.Unlock(ctx, "p", []string{"veteran", "veteran"}); err != nil {
				t.Fatal(err)
			}
			if err := st.Unlock(ctx, "p", []string{"veteran", "decoder"}); err != nil {
				t.Fatal(err)
			}
			ids, err := st.Unlocked(ctx, "p")
			if err != nil {
				t.Fatal(err)
			}
			if len(ids) != 2 {
				t.Fatalf("unlocked = %v", ids)
			}
		})
	}
}

func TestLoadMissingProfile(t *testing.T) {
	for name, st := range stores(t) {
		life, err := st.LoadStats(context.Background(), "nobody")
		if err != nil || life.Sessions != 0 {
			t.Fatalf("%s: LoadStats = %+v, %v", name, life, err)
		}
	}
}
