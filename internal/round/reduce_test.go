package round

import (
	"testing"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func question(plain string) domain.Question {
	res, _ := cipher.Encode(plain, cipher.ROT13)
	return domain.Question{Plaintext: plain, Encoded: res.Encoded, Scheme: cipher.ROT13, Category: "test"}
}

// started returns a practice session with a question on screen.
func started(t *testing.T, rules Rules) State {
	t.Helper()
	s, eff := Reduce(New(rules), Begin{})
	if len(eff) != 1 || eff[0] != (RequestQuestion{Round: 1}) {
		t.Fatalf("Begin effects = %#v", eff)
	}
	s, _ = Reduce(s, QuestionReady{Question: question("trojan"), Round: 1, At: t0})
	if s.Phase != Displayed || !s.CanSubmit {
		t.Fatalf("question not displayed: %+v", s)
	}
	return s
}

func findSchedule(t *testing.T, eff []Effect, kind TimerKind) Schedule {
	t.Helper()
	for _, e := range eff {
		if sc, ok := e.(Schedule); ok && sc.Timer == kind {
			return sc
		}
	}
	t.Fatalf("no %s schedule in %#v", kind, eff)
	return Schedule{}
}

func notifications(eff []Effect) []Notification {
	var out []Notification
	for _, e := range eff {
		if n, ok := e.(Notify); ok {
			out = append(out, n.Notification)
		}
	}
	return out
}

func sessionEnded(eff []Effect) (SessionEnded, bool) {
	for _, n := range notifications(eff) {
		if se, ok := n.(SessionEnded); ok {
			return se, true
		}
	}
	return SessionEnded{}, false
}

func TestThreeWrongAnswersEndOnTheThird(t *testing.T) {
	rules := PracticeRules()
	rules.StartingHP = 3
	s := started(t, rules)

	for i := 1; i <= 3; i++ {
		var eff []Effect
		s, eff = Reduce(s, Submit{Text: "worm", At: t0.Add(time.Duration(i) * time.Second)})
		_, ended := sessionEnded(eff)
		if i < 3 {
			if ended || s.Phase == Ended {
				t.Fatalf("session ended after wrong answer %d", i)
			}
			sc := findSchedule(t, eff, TimerCooldown)
			if sc.Delay != rules.WrongCooldown {
				t.Fatalf("cooldown delay = %v", sc.Delay)
			}
			if s.CanSubmit {
				t.Fatal("window open during cooldown")
			}
			s, _ = Reduce(s, CooldownElapsed{Epoch: sc.Epoch})
			if !s.CanSubmit {
				t.Fatalf("cooldown did not reopen the window after answer %d", i)
			}
			continue
		}
		if !ended || s.Phase != Ended || s.Outcome != OutcomeLost || s.HP != 0 {
			t.Fatalf("third wrong answer: phase=%v outcome=%v hp=%d", s.Phase, s.Outcome, s.HP)
		}
	}
	if s.Tally.Wrong != 3 || !s.Tally.TookDamage {
		t.Fatalf("tally = %+v", s.Tally)
	}
}

func TestQuitDuringCooldownRejectsStaleTimer(t *testing.T) {
	s := started(t, PracticeRules())
	s, eff := Reduce(s, Submit{Text: "wrong", At: t0.Add(time.Second)})
	sc := findSchedule(t, eff, TimerCooldown)

	s, eff = Reduce(s, Quit{})
	se, ok := sessionEnded(eff)
	if !ok || se.Outcome != OutcomeQuit {
		t.Fatalf("quit did not end the session: %#v", eff)
	}
	cancelled := false
	for _, e := range eff {
		_, cancelled = e.(CancelTimers)
		if cancelled {
			break
		}
	}
	if !cancelled {
		t.Fatal("quit did not cancel timers")
	}

	after, eff := Reduce(s, CooldownElapsed{Epoch: sc.Epoch})
	if len(eff) != 0 || after != s {
		t.Fatalf("stale cooldown changed an ended session: %+v", after)
	}
	after, eff = Reduce(s, AdvanceElapsed{Epoch: s.Epoch})
	if len(eff) != 0 || after != s {
		t.Fatal("advance after quit was not rejected")
	}
}

func TestStaleEpochIgnoredAfterNewQuestion(t *testing.T) {
	s := started(t, PracticeRules())
	s, eff := Reduce(s, Submit{Text: "wrong", At: t0})
	sc := findSchedule(t, eff, TimerCooldown)
	s, _ = Reduce(s, QuestionReady{Question: question("rootkit"), Round: 2, At: t0.Add(time.Second)})
	before := s
	s, eff = Reduce(s, CooldownElapsed{Epoch: sc.Epoch})
	if len(eff) != 0 || s != before {
		t.Fatal("cooldown from the previous question was applied")
	}
}

func TestEmptySubmissionRejected(t *testing.T) {
	s := started(t, PracticeRules())
	for _, text := range []string{"", "   ", "\t\n"} {
		after, eff := Reduce(s, Submit{Text: text, At: t0.Add(time.Second)})
		if after != s {
			t.Fatalf("empty answer %q changed the state", text)
		}
		ns := notifications(eff)
		if len(ns) != 1 || ns[0] != (InputRejected{Reason: ReasonEmpty}) {
			t.Fatalf("effects for %q = %#v", text, eff)
		}
	}
}

func TestCorrectAnswerAdvances(t *testing.T) {
	rules := PracticeRules()
	s := started(t, rules)

	s, eff := Reduce(s, Submit{Text: "  TROJAN ", At: t0.Add(1900 * time.Millisecond)})
	if s.Phase != Resolved || s.CanSubmit {
		t.Fatalf("after win: %+v", s)
	}
	var won RoundWon
	for _, n := range notifications(eff) {
		if w, ok := n.(RoundWon); ok {
			won = w
		}
	}
	if won.Points != 100+50+50 || won.Combo != 1 || won.Elapsed != 1900*time.Millisecond {
		t.Fatalf("RoundWon = %+v", won)
	}

	again, eff2 := Reduce(s, Submit{Text: "trojan", At: t0.Add(2 * time.Second)})
	if again != s || notifications(eff2)[0] != (InputRejected{Reason: ReasonClosed}) {
		t.Fatal("second answer accepted after resolution")
	}

	sc := findSchedule(t, eff, TimerAdvance)
	if sc.Delay != rules.AdvanceDelay {
		t.Fatalf("advance delay = %v", sc.Delay)
	}
	s, eff = Reduce(s, AdvanceElapsed{Epoch: sc.Epoch})
	if s.Round != 2 || len(eff) != 1 || eff[0] != (RequestQuestion{Round: 2}) {
		t.Fatalf("advance: round=%d effects=%#v", s.Round, eff)
	}
	dup, eff := Reduce(s, AdvanceElapsed{Epoch: sc.Epoch})
	if dup != s || len(eff) != 0 {
		t.Fatal("duplicate advance applied twice")
	}

	s, _ = Reduce(s, QuestionReady{Question: question("botnet"), Round: 2, At: t0.Add(5 * time.Second)})
	_, eff = Reduce(s, Submit{Text: "botnet", At: t0.Add(10001 * time.Millisecond)})
	for _, n := range notifications(eff) {
		if w, ok := n.(RoundWon); ok && w.Points != 100+2*50 {
			t.Fatalf("slow answer points = %d", w.Points)
		}
	}
}

func TestLastRoundWinsSession(t *testing.T) {
	rules := PracticeRules()
	rules.TotalRounds = 1
	s := started(t, rules)
	s, eff := Reduce(s, Submit{Text: "trojan", At: t0.Add(time.Second)})
	s, eff = Reduce(s, AdvanceElapsed{Epoch: findSchedule(t, eff, TimerAdvance).Epoch})
	se, ok := sessionEnded(eff)
	if !ok || se.Outcome != OutcomeWon || s.Outcome != OutcomeWon {
		t.Fatalf("session not won: %#v", eff)
	}
	if se.Summary.RoundsCompleted != 1 || !se.Summary.Won || se.Summary.HP != rules.StartingHP {
		t.Fatalf("summary = %+v", se.Summary)
	}
}

func TestPowerups(t *testing.T) {
	rules := PracticeRules()
	s := started(t, rules)
	s.Tally.Combo = 3

	s, eff := Reduce(s, UsePowerup{Kind: Hint, At: t0})
	if ns := notifications(eff); len(ns) != 1 || ns[0] != (HintRevealed{Hint: "tr____"}) {
		t.Fatalf("hint effects = %#v", eff)
	}
	if s.Hints != 0 || s.Phase != Displayed {
		t.Fatalf("hint changed state: %+v", s)
	}
	_, eff = Reduce(s, UsePowerup{Kind: Hint, At: t0})
	if ns := notifications(eff); ns[0] != (PowerupUnavailable{Kind: Hint}) {
		t.Fatalf("exhausted hint effects = %#v", eff)
	}

	hp := s.HP
	s, eff = Reduce(s, UsePowerup{Kind: Skip, At: t0})
	if s.Phase != Resolved || s.Tally.Combo != 0 || s.HP != hp || s.Skips != rules.SkipCount-1 {
		t.Fatalf("skip: %+v", s)
	}
	sc := findSchedule(t, eff, TimerAdvance)
	if sc.Delay != rules.SkipDelay {
		t.Fatalf("skip delay = %v", sc.Delay)
	}
	if _, eff = Reduce(s, UsePowerup{Kind: Skip}); notifications(eff)[0] != (PowerupUnavailable{Kind: Skip}) {
		t.Fatal("skip accepted while resolved")
	}
}

func TestDuelRulesWrongAnswer(t *testing.T) {
	s := started(t, DuelRules())
	s.Tally.Combo = 2
	s, eff := Reduce(s, Submit{Text: "nope", At: t0})
	if s.HP != DuelRules().StartingHP || !s.CanSubmit || s.Tally.Combo != 0 {
		t.Fatalf("duel wrong answer: %+v", s)
	}
	for _, e := range eff {
		if _, ok := e.(Schedule); ok {
			t.Fatal("duel wrong answer scheduled a cooldown")
		}
	}

	s, _ = Reduce(s, SyncHP{HP: 4})
	s, eff = Reduce(s, SyncHP{HP: 5})
	if s.HP != 4 || len(eff) != 0 {
		t.Fatalf("HP went back up: %d", s.HP)
	}
	s, _ = Reduce(s, Conceded{})
	if s.Phase != Resolved || s.Tally.Conceded != 1 {
		t.Fatalf("concede: %+v", s)
	}
}
