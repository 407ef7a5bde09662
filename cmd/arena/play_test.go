package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/round"
	"cypher_arena/internal/scoring"
)

// scriptedGame ends after it has seen a quit or two answers.
type scriptedGame struct {
	updates  chan round.Notification
	answers  []string
	powerups []round.PowerupKind
	quits    int
}

func newScriptedGame() *scriptedGame {
	return &scriptedGame{updates: make(chan round.Notification, 8)}
}

func (g *scriptedGame) SubmitAnswer(text string) {
	g.answers = append(g.answers, text)
	if len(g.answers) == 2 {
		g.end(round.OutcomeLost)
	}
}

func (g *scriptedGame) UsePowerup(kind round.PowerupKind) {
	g.powerups = append(g.powerups, kind)
}

func (g *scriptedGame) Quit() {
	g.quits++
	if g.quits == 1 {
		g.end(round.OutcomeQuit)
	}
}

func (g *scriptedGame) end(o round.Outcome) {
	g.updates <- round.SessionEnded{Outcome: o}
	close(g.updates)
}

func (g *scriptedGame) Updates() <-chan round.Notification { return g.updates }

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in   string
		want command
	}{
		{"/hint", cmdHint},
		{"/HINT", cmdHint},
		{"/skip", cmdSkip},
		{"/quit", cmdQuit},
		{"/exit", cmdQuit},
		{"trojan", cmdAnswer},
		{"/unknown", cmdAnswer},
	}
	for _, tt := range tests {
		if got := parseCommand(tt.in); got != tt.want {
			t.Errorf("parseCommand(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPlayDispatchesInput(t *testing.T) {
	g := newScriptedGame()
	lines := make(chan string, 4)
	lines <- "/hint"
	lines <- "wrong"
	lines <- "/skip"
	lines <- "also wrong"

	var out bytes.Buffer
	done := make(chan round.SessionEnded, 1)
	go func() { done <- play(context.Background(), g, lines, &out) }()

	select {
	case ended := <-done:
		if ended.Outcome != round.OutcomeLost {
			t.Fatalf("outcome = %v", ended.Outcome)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("play never returned")
	}
	if len(g.answers) != 2 || g.answers[0] != "wrong" {
		t.Fatalf("answers = %v", g.answers)
	}
	if len(g.powerups) != 2 || g.powerups[0] != round.Hint || g.powerups[1] != round.Skip {
		t.Fatalf("powerups = %v", g.powerups)
	}
	if !strings.Contains(out.String(), "Game over: lost") {
		t.Fatalf("missing summary in %q", out.String())
	}
}

func TestPlayQuitsOnEOF(t *testing.T) {
	g := newScriptedGame()
	lines := make(chan string)
	close(lines)

	ended := play(context.Background(), g, lines, &bytes.Buffer{})
	if ended.Outcome != round.OutcomeQuit || g.quits != 1 {
		t.Fatalf("outcome = %v after %d quits", ended.Outcome, g.quits)
	}
}

func TestRenderRoundStartedShowsKey(t *testing.T) {
	res, err := cipher.EncodeWithKey("botnet", cipher.XOR, 42)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	render(&out, round.RoundStarted{Round: 3, Question: domain.Question{
		Plaintext: "botnet", Encoded: res.Encoded, Scheme: cipher.XOR, Key: res.Key,
	}})
	got := out.String()
	if !strings.Contains(got, "Round 3") || !strings.Contains(got, res.Encoded) || !strings.Contains(got, "key=42") {
		t.Fatalf("render = %q", got)
	}
}

func TestWriteAchievementsMarksUnlocked(t *testing.T) {
	var out bytes.Buffer
	writeAchievements(&out, []string{"first_blood"})
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != len(scoring.Catalog()) {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "[x]") || !strings.Contains(lines[0], "First Blood") {
		t.Fatalf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[ ]") {
		t.Fatalf("second line = %q", lines[1])
	}
}
