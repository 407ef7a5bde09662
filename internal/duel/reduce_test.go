package duel

import (
	"testing"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/round"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func question(plain string) domain.Question {
	res, _ := cipher.Encode(plain, cipher.ROT13)
	return domain.Question{Plaintext: plain, Encoded: res.Encoded, Scheme: cipher.ROT13, Category: "test"}
}

func record() domain.Match {
	return domain.Match{ID: "m1", RoomID: "r1", Player1ID: "a", Player2ID: "b", Player1HP: 6, Player2HP: 6, Status: domain.MatchActive}
}

func withQuestion(m domain.Match, q domain.Question, r int) domain.Match {
	return domain.QuestionPatch(q, r).Apply(m)
}

// playing returns self's state with the round-1 question on screen.
func playing(t *testing.T, self string, rules Rules) (MatchState, domain.Match) {
	t.Helper()
	m := record()
	s, _ := Reduce(New(rules, m, self, ""), Started{})
	m = withQuestion(m, question("trojan"), 1)
	s, eff := Reduce(s, RecordChanged{Match: m, At: t0})
	if _, ok := find[round.RoundStarted](eff); !ok {
		t.Fatalf("round 1 not started: %#v", eff)
	}
	return s, m
}

func find[T round.Notification](eff []Effect) (T, bool) {
	for _, e := range eff {
		if n, ok := e.(Notify); ok {
			if v, ok := n.Notification.(T); ok {
				return v, true
			}
		}
	}
	var zero T
	return zero, false
}

func effectOf[T Effect](eff []Effect) (T, bool) {
	for _, e := range eff {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func hasEffect[T Effect](eff []Effect) bool {
	_, ok := effectOf[T](eff)
	return ok
}

func TestOnlyAuthorityPublishes(t *testing.T) {
	m := record()
	tests := []struct {
		self      string
		authority bool
	}{
		{"a", true},
		{"b", false},
	}
	for _, tt := range tests {
		s := New(DefaultRules(), m, tt.self, "")
		if s.Authority != tt.authority {
			t.Fatalf("%s authority = %v", tt.self, s.Authority)
		}
		s, eff := Reduce(s, Started{})
		sc, scheduled := effectOf[Schedule](eff)
		if scheduled != tt.authority {
			t.Fatalf("%s scheduled start = %v", tt.self, scheduled)
		}
		if started, ok := find[round.MatchStarted](eff); !ok || started.Opponent != "Opponent" {
			t.Fatalf("%s MatchStarted = %+v", tt.self, started)
		}
		_, eff = Reduce(s, StartElapsed{Epoch: sc.Epoch})
		_, published := effectOf[PublishQuestion](eff)
		if published != tt.authority {
			t.Fatalf("%s published = %v", tt.self, published)
		}
		if tt.authority && sc.Delay != 1500*time.Millisecond {
			t.Fatalf("start delay = %v", sc.Delay)
		}
	}
}

func TestDuplicateAndStaleRecordsIgnored(t *testing.T) {
	s, m := playing(t, "b", DefaultRules())

	_, eff := Reduce(s, RecordChanged{Match: m, At: t0.Add(time.Second)})
	if _, ok := find[round.RoundStarted](eff); ok {
		t.Fatal("duplicate notification restarted the round")
	}

	m2 := withQuestion(m, question("rootkit"), 2)
	s, eff = Reduce(s, RecordChanged{Match: m2, At: t0.Add(2 * time.Second)})
	if rs, ok := find[round.RoundStarted](eff); !ok || rs.Round != 2 {
		t.Fatal("round 2 not started")
	}
	s, eff = Reduce(s, RecordChanged{Match: m, At: t0.Add(3 * time.Second)})
	if _, ok := find[round.RoundStarted](eff); ok || s.QuestionRound != 2 {
		t.Fatal("late round-1 notification went back a round")
	}
}

func TestFabricatedQuestionsIgnored(t *testing.T) {
	s, m := playing(t, "a", DefaultRules())

	sameRound := withQuestion(m, question("keylogger"), 1)
	bad := question("worm")
	bad.Encoded = "not rot13 of worm"
	broken := withQuestion(m, bad, 2)

	for name, rec := range map[string]domain.Match{"same round": sameRound, "does not decode": broken} {
		next, eff := Reduce(s, RecordChanged{Match: rec, At: t0})
		if _, ok := find[round.RoundStarted](eff); ok {
			t.Fatalf("%s: fabricated question accepted", name)
		}
		if q, _ := next.Local.CurrentQuestion(); q.Plaintext != "trojan" {
			t.Fatalf("%s: question replaced with %q", name, q.Plaintext)
		}
	}

	other := m
	other.ID = "m2"
	other = withQuestion(other, question("rootkit"), 2)
	if _, eff := Reduce(s, RecordChanged{Match: other, At: t0}); len(eff) != 0 {
		t.Fatalf("record of another match applied: %#v", eff)
	}
}

func TestOwnCorrectAnswerLatchesRound(t *testing.T) {
	s, _ := playing(t, "a", DefaultRules())

	s, eff := Reduce(s, Submit{Text: "TROJAN", At: t0.Add(1900 * time.Millisecond)})
	won, ok := find[round.RoundWon](eff)
	if !ok || won.Points != 200 {
		t.Fatalf("RoundWon = %+v, %v", won, ok)
	}
	b, _ := effectOf[BroadcastAnswer](eff)
	if !b.Answer.Correct || b.Answer.PlayerID != "a" || b.Answer.Round != 1 || b.Answer.TimeMS != 1900 {
		t.Fatalf("broadcast = %+v", b.Answer)
	}
	if d, _ := effectOf[WriteDamage](eff); d != (WriteDamage{PlayerID: "b", HP: 5}) {
		t.Fatalf("damage = %+v", d)
	}
	adv, ok := effectOf[Schedule](eff)
	if !ok || adv.Timer != round.TimerAdvance {
		t.Fatal("authority did not schedule the advance")
	}

	// Opponent's late correct answer and our echo change nothing.
	s, eff = Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "b", Round: 1, Correct: true}})
	if _, ok := find[round.RoundConceded](eff); ok {
		t.Fatal("conceded a round already won")
	}
	if _, eff = Reduce(s, AnswerReceived{Answer: b.Answer}); len(eff) != 0 {
		t.Fatalf("own echo produced %#v", eff)
	}
	_, eff = Reduce(s, Submit{Text: "trojan", At: t0.Add(3 * time.Second)})
	if rej, _ := find[round.InputRejected](eff); rej.Reason != round.ReasonClosed {
		t.Fatal("second answer accepted")
	}

	s, eff = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch})
	if p, _ := effectOf[PublishQuestion](eff); p.Round != 2 {
		t.Fatalf("advance published %+v", p)
	}
	if _, eff = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch}); len(eff) != 0 {
		t.Fatal("duplicate advance published again")
	}
}

func TestOpponentFirstConcedes(t *testing.T) {
	s, _ := playing(t, "b", DefaultRules())

	s, eff := Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "a", Round: 1, Correct: true, TimeMS: 800}})
	if c, ok := find[round.RoundConceded](eff); !ok || c.Expected != "trojan" {
		t.Fatalf("RoundConceded = %+v, %v", c, ok)
	}
	if _, ok := effectOf[Schedule](eff); ok {
		t.Fatal("non-authority scheduled an advance")
	}
	if s.Local.Tally.Combo != 0 || s.Local.Tally.Conceded != 1 {
		t.Fatalf("tally = %+v", s.Local.Tally)
	}
	_, eff = Reduce(s, Submit{Text: "trojan", At: t0.Add(time.Second)})
	if _, ok := effectOf[WriteDamage](eff); ok {
		t.Fatal("damage dealt after the round was lost")
	}
}

func TestEarlyBroadcastConcedesNextRound(t *testing.T) {
	s, m := playing(t, "b", DefaultRules())
	s, _ = Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "a", Round: 1, Correct: true}})
	m = domain.HPPatch(m, "b", 5).Apply(m)
	s, _ = Reduce(s, RecordChanged{Match: m, At: t0.Add(time.Second)})

	// a's round-2 broadcast overtakes the record that starts round 2.
	s, eff := Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "a", Round: 2, Correct: true, TimeMS: 400}})
	if len(eff) != 0 {
		t.Fatalf("early broadcast produced %#v", eff)
	}

	m = withQuestion(m, question("rootkit"), 2)
	m = domain.HPPatch(m, "b", 4).Apply(m)
	s, eff = Reduce(s, RecordChanged{Match: m, At: t0.Add(3 * time.Second)})
	if rs, ok := find[round.RoundStarted](eff); !ok || rs.Round != 2 {
		t.Fatalf("RoundStarted = %+v, %v", rs, ok)
	}
	if c, ok := find[round.RoundConceded](eff); !ok || c.Expected != "rootkit" {
		t.Fatalf("RoundConceded = %+v, %v", c, ok)
	}
	if !s.Answered || len(s.Early) != 0 || s.Local.HP != 4 {
		t.Fatalf("answered = %v, early = %v, hp = %d", s.Answered, s.Early, s.Local.HP)
	}

	_, eff = Reduce(s, Submit{Text: "rootkit", At: t0.Add(4 * time.Second)})
	if _, ok := effectOf[WriteDamage](eff); ok {
		t.Fatal("damage dealt for a round the opponent already took")
	}
	if rej, _ := find[round.InputRejected](eff); rej.Reason != round.ReasonClosed {
		t.Fatalf("submit after concede = %#v", eff)
	}
}

func TestEarlyBroadcastsHeldPerRound(t *testing.T) {
	s, _ := playing(t, "b", DefaultRules())
	tests := []struct {
		name string
		in   Answer
		held int
	}{
		{"wrong answer", Answer{PlayerID: "a", Round: 2}, 0},
		{"own answer", Answer{PlayerID: "b", Round: 2, Correct: true}, 0},
		{"past the last round", Answer{PlayerID: "a", Round: 99, Correct: true}, 0},
		{"next round", Answer{PlayerID: "a", Round: 2, Correct: true}, 1},
		{"same round again", Answer{PlayerID: "a", Round: 2, Correct: true, TimeMS: 10}, 1},
		{"later round", Answer{PlayerID: "a", Round: 3, Correct: true}, 2},
	}
	for _, tt := range tests {
		s, _ = Reduce(s, AnswerReceived{Answer: tt.in})
		if len(s.Early) != tt.held {
			t.Fatalf("%s: held %d, want %d", tt.name, len(s.Early), tt.held)
		}
	}
}

func TestDamageConcedesWithoutBroadcast(t *testing.T) {
	s, m := playing(t, "a", DefaultRules())

	// b's correct broadcast is lost; only the HP write arrives.
	m = domain.HPPatch(m, "a", 5).Apply(m)
	s, eff := Reduce(s, RecordChanged{Match: m, At: t0.Add(time.Second)})
	if _, ok := find[round.RoundConceded](eff); !ok || !s.Answered {
		t.Fatalf("damage did not close the round: %#v", eff)
	}
	adv, ok := effectOf[Schedule](eff)
	if !ok || adv.Timer != round.TimerAdvance {
		t.Fatal("authority did not schedule the advance")
	}

	s, eff = Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "b", Round: 1, Correct: true}})
	if _, ok := find[round.RoundConceded](eff); ok {
		t.Fatal("late broadcast conceded twice")
	}
	_, eff = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch})
	if p, _ := effectOf[PublishQuestion](eff); p.Round != 2 {
		t.Fatalf("advance published %+v", p)
	}
}

func TestLateDamageKeepsNextRoundOpen(t *testing.T) {
	s, m := playing(t, "a", DefaultRules())
	s, eff := Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "b", Round: 1, Correct: true}})
	adv, _ := effectOf[Schedule](eff)
	s, _ = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch})

	// Round 2 is on screen before b's round-1 damage write lands.
	m = withQuestion(m, question("rootkit"), 2)
	s, _ = Reduce(s, RecordChanged{Match: m, At: t0.Add(3 * time.Second)})
	m = domain.HPPatch(m, "a", 5).Apply(m)
	s, eff = Reduce(s, RecordChanged{Match: m, At: t0.Add(4 * time.Second)})
	if _, ok := find[round.RoundConceded](eff); ok || s.Answered {
		t.Fatal("round-1 damage conceded round 2")
	}
	if s.Local.HP != 5 {
		t.Fatalf("hp = %d", s.Local.HP)
	}
	if _, eff = Reduce(s, Submit{Text: "rootkit", At: t0.Add(5 * time.Second)}); !hasEffect[WriteDamage](eff) {
		t.Fatal("round 2 no longer winnable")
	}
}

func TestRepeatedQuestionStartsNextRound(t *testing.T) {
	s, m := playing(t, "b", DefaultRules())
	s, _ = Reduce(s, Submit{Text: "trojan", At: t0.Add(time.Second)})

	again := withQuestion(m, question("trojan"), 2)
	s, eff := Reduce(s, RecordChanged{Match: again, At: t0.Add(3 * time.Second)})
	if rs, ok := find[round.RoundStarted](eff); !ok || rs.Round != 2 {
		t.Fatalf("same phrase in round 2 did not start it: %#v", eff)
	}
	if s.Answered {
		t.Fatal("round 2 opened already answered")
	}
	if _, eff = Reduce(s, RecordChanged{Match: again, At: t0.Add(4 * time.Second)}); len(eff) != 0 {
		t.Fatalf("duplicate round-2 record produced %#v", eff)
	}
}

func TestWrongAnswerInDuel(t *testing.T) {
	s, _ := playing(t, "b", DefaultRules())
	s, eff := Reduce(s, Submit{Text: "virus", At: t0.Add(time.Second)})
	b, ok := effectOf[BroadcastAnswer](eff)
	if !ok || b.Answer.Correct {
		t.Fatalf("broadcast = %+v, %v", b, ok)
	}
	if s.Local.HP != 6 || !s.Local.CanSubmit {
		t.Fatalf("wrong answer cost hp or closed the window: %+v", s.Local)
	}
	if _, ok := effectOf[WriteDamage](eff); ok {
		t.Fatal("wrong answer dealt damage")
	}
}

func TestHPOnlyDecreases(t *testing.T) {
	s, m := playing(t, "b", DefaultRules())
	hit := domain.HPPatch(m, "b", 4).Apply(m)
	s, eff := Reduce(s, RecordChanged{Match: hit, At: t0})
	if hp, ok := find[round.HPChanged](eff); !ok || hp.HP != 4 {
		t.Fatalf("HPChanged = %+v, %v", hp, ok)
	}
	stale := domain.HPPatch(m, "b", 5).Apply(m)
	s, eff = Reduce(s, RecordChanged{Match: stale, At: t0})
	if _, ok := find[round.HPChanged](eff); ok || s.Local.HP != 4 {
		t.Fatalf("hp went back up to %d", s.Local.HP)
	}
}

func TestTerminationFromRecord(t *testing.T) {
	s, m := playing(t, "b", DefaultRules())

	dead := domain.HPPatch(m, "b", 0).Apply(m)
	ended, eff := Reduce(s, RecordChanged{Match: dead, At: t0})
	if w, ok := effectOf[WriteFinish](eff); !ok || w.WinnerID != "a" {
		t.Fatalf("WriteFinish = %+v, %v", w, ok)
	}
	if se, _ := find[round.SessionEnded](eff); se.Outcome != round.OutcomeLost {
		t.Fatalf("outcome = %v", se.Outcome)
	}
	if _, eff := Reduce(ended, RecordChanged{Match: dead, At: t0}); len(eff) != 0 {
		t.Fatal("ended match reacted to a record")
	}

	finished := domain.FinishPatch("b").Apply(m)
	_, eff = Reduce(s, RecordChanged{Match: finished, At: t0})
	if _, ok := effectOf[WriteFinish](eff); ok {
		t.Fatal("rewrote an already-finished record")
	}
	if se, _ := find[round.SessionEnded](eff); se.Outcome != round.OutcomeWon {
		t.Fatalf("outcome = %v", se.Outcome)
	}
}

func TestQuitForfeits(t *testing.T) {
	s, _ := playing(t, "a", DefaultRules())
	s, eff := Reduce(s, Submit{Text: "trojan", At: t0.Add(time.Second)})
	adv, _ := effectOf[Schedule](eff)

	s, eff = Reduce(s, Quit{})
	if w, _ := effectOf[WriteFinish](eff); w.WinnerID != "b" {
		t.Fatalf("forfeit winner = %q", w.WinnerID)
	}
	if _, ok := effectOf[CancelTimers](eff); !ok {
		t.Fatal("quit left timers running")
	}
	if se, _ := find[round.SessionEnded](eff); se.Outcome != round.OutcomeQuit {
		t.Fatalf("outcome = %v", se.Outcome)
	}
	if _, eff = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch}); len(eff) != 0 {
		t.Fatal("advance fired after quit")
	}
}

func TestRoundsExhausted(t *testing.T) {
	rules := DefaultRules()
	rules.Round.TotalRounds = 2

	// a wins round 1, b wins round 2: level on HP, so a draw.
	s, m := playing(t, "a", rules)
	s, eff := Reduce(s, Submit{Text: "trojan", At: t0.Add(time.Second)})
	adv, _ := effectOf[Schedule](eff)
	m = domain.HPPatch(m, "b", 5).Apply(m)
	s, _ = Reduce(s, RecordChanged{Match: m, At: t0})
	s, _ = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch})

	m = withQuestion(m, question("rootkit"), 2)
	s, _ = Reduce(s, RecordChanged{Match: m, At: t0.Add(3 * time.Second)})
	s, eff = Reduce(s, AnswerReceived{Answer: Answer{PlayerID: "b", Round: 2, Correct: true}})
	adv, _ = effectOf[Schedule](eff)
	m = domain.HPPatch(m, "a", 5).Apply(m)
	s, _ = Reduce(s, RecordChanged{Match: m, At: t0})

	_, eff = Reduce(s, AdvanceElapsed{Epoch: adv.Epoch})
	if _, ok := effectOf[PublishQuestion](eff); ok {
		t.Fatal("published past the last round")
	}
	if w, ok := effectOf[WriteFinish](eff); !ok || w.WinnerID != "" {
		t.Fatalf("WriteFinish = %+v, %v", w, ok)
	}
	if se, _ := find[round.SessionEnded](eff); se.Outcome != round.OutcomeDraw {
		t.Fatalf("outcome = %v", se.Outcome)
	}
}
