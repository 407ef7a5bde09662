package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cypher_arena/internal/round"
	"cypher_arena/internal/scoring"
	"cypher_arena/internal/session"
)

// readLines feeds trimmed input lines to the returned channel until r hits
// EOF.
func readLines(r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			out <- strings.TrimSpace(sc.Text())
		}
	}()
	return out
}

type command int

const (
	cmdAnswer command = iota
	cmdHint
	cmdSkip
	cmdQuit
)

func parseCommand(line string) command {
	switch strings.ToLower(line) {
	case "/hint":
		return cmdHint
	case "/skip":
		return cmdSkip
	case "/quit", "/exit":
		return cmdQuit
	}
	return cmdAnswer
}

// play drives g from input lines and prints its notifications until the
// game has ended. EOF on input quits the game.
func play(ctx context.Context, g session.Game, lines <-chan string, out io.Writer) round.SessionEnded {
	var ended round.SessionEnded
	quit := func() {
		g.Quit()
		lines = nil
	}
	for {
		select {
		case n, ok := <-g.Updates():
			if !ok {
				return ended
			}
			if se, ok := n.(round.SessionEnded); ok {
				ended = se
			}
			render(out, n)
		case line, ok := <-lines:
			if !ok {
				quit()
				continue
			}
			switch parseCommand(line) {
			case cmdHint:
				g.UsePowerup(round.Hint)
			case cmdSkip:
				g.UsePowerup(round.Skip)
			case cmdQuit:
				quit()
			default:
				g.SubmitAnswer(line)
			}
		case <-ctx.Done():
			quit()
			ctx = context.Background()
		}
	}
}

func render(w io.Writer, n round.Notification) {
	switch n := n.(type) {
	case round.MatchStarted:
		role := "opponent deals the questions"
		if n.Authority {
			role = "you deal the questions"
		}
		fmt.Fprintf(w, "Match vs %s (%s)\n", n.Opponent, role)
	case round.RoundStarted:
		line := fmt.Sprintf("\nRound %d [%s] %s", n.Round, n.Question.Scheme.DisplayName(), n.Question.Encoded)
		if n.Question.Key != nil {
			line += fmt.Sprintf("  key=%d", *n.Question.Key)
		}
		fmt.Fprintln(w, line)
	case round.RoundWon:
		fmt.Fprintf(w, "Correct! +%d points (combo x%d, %s)\n", n.Points, n.Combo, seconds(n.Elapsed))
	case round.RoundLost:
		fmt.Fprintf(w, "Wrong. HP %d\n", n.HP)
	case round.AnswerWindowOpen:
		fmt.Fprintln(w, "Try again")
	case round.RoundConceded:
		fmt.Fprintf(w, "Opponent decoded it first: %s\n", n.Expected)
	case round.HPChanged:
		fmt.Fprintf(w, "HP %d\n", n.HP)
	case round.OpponentHPChanged:
		fmt.Fprintf(w, "Opponent HP %d\n", n.HP)
	case round.OpponentAnswered:
		if n.Correct {
			fmt.Fprintf(w, "Opponent answered in %s\n", seconds(n.Elapsed))
		}
	case round.HintRevealed:
		fmt.Fprintf(w, "Hint: %s\n", n.Hint)
	case round.Skipped:
		fmt.Fprintf(w, "Skipped round %d\n", n.Round)
	case round.InputRejected:
		fmt.Fprintf(w, "Ignored: %s\n", n.Reason)
	case round.PowerupUnavailable:
		fmt.Fprintf(w, "No %s left\n", n.Kind)
	case round.AchievementsUnlocked:
		for _, a := range n.Achievements {
			fmt.Fprintf(w, "Achievement unlocked: %s (%s)\n", a.Name, a.Description)
		}
	case round.Failure:
		fmt.Fprintf(w, "Connection problem during %s: %v\n", n.Op, n.Err)
	case round.SessionEnded:
		renderSummary(w, n.Outcome, n.Summary)
	}
}

func renderSummary(w io.Writer, o round.Outcome, s scoring.Summary) {
	fmt.Fprintf(w, "\nGame over: %s\n", o)
	fmt.Fprintf(w, "  score       %d\n", s.Tally.Score)
	fmt.Fprintf(w, "  rounds      %d\n", s.RoundsCompleted)
	fmt.Fprintf(w, "  accuracy    %.0f%%\n", s.Tally.Accuracy())
	fmt.Fprintf(w, "  avg time    %s\n", seconds(s.Tally.AverageTime()))
	fmt.Fprintf(w, "  best combo  %d\n", s.Tally.BestCombo)
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
