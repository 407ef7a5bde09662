package round

import (
	"strings"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/domain"
)

// Reduce applies one event. Events that do not apply to the current phase
// leave the state unchanged; timer events with a stale epoch and anything
// arriving after the session ended are dropped.
func Reduce(s State, ev Event) (State, []Effect) {
	if s.Phase == Ended {
		return s, nil
	}
	switch e := ev.(type) {
	case Begin:
		if s.Phase != Idle {
			return s, nil
		}
		return s, []Effect{RequestQuestion{Round: s.Round}}
	case QuestionReady:
		return questionReady(s, e)
	case Submit:
		return submit(s, e)
	case CooldownElapsed:
		if e.Epoch != s.Epoch || s.Phase != Displayed || s.CanSubmit {
			return s, nil
		}
		s.CanSubmit = true
		return s, []Effect{Notify{AnswerWindowOpen{Round: s.Round}}}
	case AdvanceElapsed:
		if e.Epoch != s.Epoch || s.Phase != Resolved {
			return s, nil
		}
		s.Epoch++
		s.Round++
		if s.Round > s.Rules.TotalRounds {
			return end(s, OutcomeWon)
		}
		return s, []Effect{RequestQuestion{Round: s.Round}}
	case UsePowerup:
		return usePowerup(s, e)
	case Conceded:
		if s.Phase != Displayed {
			return s, nil
		}
		s = resolve(s)
		s.Tally = s.Tally.Concede()
		expected := ""
		if s.Question != nil {
			expected = s.Question.Plaintext
		}
		return s, []Effect{StopClock{}, Notify{RoundConceded{Round: s.Round, Expected: expected}}}
	case SyncHP:
		if e.HP >= s.HP {
			return s, nil
		}
		s.HP = max(e.HP, 0)
		s.Tally = s.Tally.Hit()
		return s, []Effect{Notify{HPChanged{HP: s.HP}}}
	case Finish:
		return end(s, e.Outcome)
	case Quit:
		return end(s, OutcomeQuit)
	}
	return s, nil
}

func questionReady(s State, e QuestionReady) (State, []Effect) {
	if e.Round > 0 {
		s.Round = e.Round
	}
	q := e.Question
	s.Question = &q
	s.Phase = Displayed
	s.CanSubmit = true
	s.StartedAt = e.At
	s.Epoch++
	return s, []Effect{
		StartClock{At: e.At},
		Notify{RoundStarted{Round: s.Round, Question: q}},
	}
}

func submit(s State, e Submit) (State, []Effect) {
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return s, []Effect{Notify{InputRejected{Reason: ReasonEmpty}}}
	}
	if s.Phase != Displayed || !s.CanSubmit || s.Question == nil {
		return s, []Effect{Notify{InputRejected{Reason: ReasonClosed}}}
	}

	if cipher.Equal(text, s.Question.Plaintext) {
		elapsed := max(e.At.Sub(s.StartedAt), 0)
		var pts int
		s.Tally, pts = s.Tally.Win(s.Rules.Scoring, s.Question.Scheme, elapsed)
		s = resolve(s)
		effects := []Effect{
			StopClock{},
			Notify{RoundWon{Round: s.Round, Elapsed: elapsed, Points: pts, Combo: s.Tally.Combo}},
		}
		if s.Rules.AutoAdvance {
			effects = append(effects, Schedule{Timer: TimerAdvance, Delay: s.Rules.AdvanceDelay, Epoch: s.Epoch})
		}
		return s, effects
	}

	s.Tally = s.Tally.Loss()
	if s.Rules.WrongAnswerDamage {
		s.HP--
		s.Tally = s.Tally.Hit()
	}
	lost := Notify{RoundLost{Round: s.Round, HP: s.HP}}
	if s.HP <= 0 {
		s.HP = 0
		var effects []Effect
		s, effects = end(s, OutcomeLost)
		return s, append([]Effect{lost}, effects...)
	}
	if s.Rules.WrongCooldown <= 0 {
		return s, []Effect{lost}
	}
	s.CanSubmit = false
	s.Epoch++
	return s, []Effect{lost, Schedule{Timer: TimerCooldown, Delay: s.Rules.WrongCooldown, Epoch: s.Epoch}}
}

func usePowerup(s State, e UsePowerup) (State, []Effect) {
	if s.Phase != Displayed || s.Question == nil {
		return s, []Effect{Notify{PowerupUnavailable{Kind: e.Kind}}}
	}
	switch e.Kind {
	case Hint:
		if s.Hints <= 0 {
			return s, []Effect{Notify{PowerupUnavailable{Kind: Hint}}}
		}
		s.Hints--
		return s, []Effect{Notify{HintRevealed{Hint: cipher.Hint(s.Question.Plaintext, s.Rules.HintReveal)}}}
	case Skip:
		if s.Skips <= 0 {
			return s, []Effect{Notify{PowerupUnavailable{Kind: Skip}}}
		}
		s.Skips--
		s = resolve(s)
		s.Tally = s.Tally.Skip()
		return s, []Effect{
			StopClock{},
			Notify{Skipped{Round: s.Round}},
			Schedule{Timer: TimerAdvance, Delay: s.Rules.SkipDelay, Epoch: s.Epoch},
		}
	}
	return s, []Effect{Notify{PowerupUnavailable{Kind: e.Kind}}}
}

// resolve closes the current round.
func resolve(s State) State {
	s.Phase = Resolved
	s.CanSubmit = false
	s.Completed++
	s.Epoch++
	return s
}

func end(s State, o Outcome) (State, []Effect) {
	s.Phase = Ended
	s.CanSubmit = false
	s.Outcome = o
	s.Epoch++
	return s, []Effect{
		StopClock{},
		CancelTimers{},
		Notify{SessionEnded{Outcome: o, Summary: s.Summary()}},
	}
}

// CurrentQuestion returns a copy of the question on screen.
func (s State) CurrentQuestion() (domain.Question, bool) {
	if s.Question == nil {
		return domain.Question{}, false
	}
	return *s.Question, true
}
