package duel

import (
	"strings"

	"cypher_arena/internal/round"
)

// Reduce applies one event to a peer's match state. Once the local round
// state has ended every event is dropped.
func Reduce(s MatchState, ev Event) (MatchState, []Effect) {
	if s.Ended() {
		return s, nil
	}
	switch e := ev.(type) {
	case Started:
		if s.Begun {
			return s, nil
		}
		s.Begun = true
		effects := []Effect{Notify{round.MatchStarted{MatchID: s.MatchID, Opponent: s.OpponentName, Authority: s.Authority}}}
		if s.Authority {
			effects = append(effects, Schedule{Timer: round.TimerStart, Delay: s.Rules.StartDelay, Epoch: s.Epoch})
		}
		return s, effects
	case StartElapsed:
		if !s.Authority || e.Epoch != s.Epoch || s.QuestionRound != 0 {
			return s, nil
		}
		s.Epoch++
		return s, []Effect{PublishQuestion{Round: 1}}
	case RecordChanged:
		return recordChanged(s, e)
	case AnswerReceived:
		return answerReceived(s, e)
	case Submit:
		return submit(s, e)
	case CooldownElapsed:
		return s.step(round.CooldownElapsed{Epoch: e.Epoch})
	case AdvanceElapsed:
		if !s.Authority || e.Epoch != s.Epoch || !s.Answered {
			return s, nil
		}
		s.Epoch++
		if s.QuestionRound >= s.Rules.Round.TotalRounds {
			return finish(s, s.leader())
		}
		return s, []Effect{PublishQuestion{Round: s.QuestionRound + 1}}
	case Quit:
		s.Epoch++
		next, effects := s.step(round.Quit{})
		return next, append([]Effect{WriteFinish{WinnerID: s.Opponent}}, effects...)
	}
	return s, nil
}

func recordChanged(s MatchState, e RecordChanged) (MatchState, []Effect) {
	m := e.Match
	if m.ID != s.MatchID || !m.Involves(s.Self) {
		return s, nil
	}
	var effects []Effect
	add := func(next MatchState, more []Effect) {
		s = next
		effects = append(effects, more...)
	}

	// Deduplication gate: only a later round with a well-formed question
	// starts a round.
	accepted := false
	if q := m.CurrentQuestion; q != nil && m.CurrentRound > s.QuestionRound &&
		roundIdentity(m.CurrentRound, *q) != s.Identity && q.Verify() == nil {
		accepted = true
		s.QuestionRound = m.CurrentRound
		s.Identity = roundIdentity(m.CurrentRound, *q)
		s.Answered = false
		s.Epoch++
		add(s.step(round.QuestionReady{Question: *q, Round: m.CurrentRound, At: e.At}))

		next, a, ok := s.takeEarly(m.CurrentRound)
		s = next
		if ok {
			add(answerReceived(s, AnswerReceived{Answer: a, At: e.At}))
		}
	}

	if hp := m.HPOf(s.Self); hp < s.Local.HP {
		drop := s.Local.HP - max(hp, 0)
		owed := min(drop, s.Unseen)
		s.Unseen -= owed
		add(s.step(round.SyncHP{HP: hp}))
		// Damage not owed to an earlier round means the opponent took the
		// open one, even when their broadcast never arrives.
		if drop > owed && !accepted && s.QuestionRound > 0 && !s.Answered {
			add(concede(s))
		}
	}
	if hp := max(m.HPOf(s.Opponent), 0); hp < s.OpponentHP {
		s.OpponentHP = hp
		effects = append(effects, Notify{round.OpponentHPChanged{HP: hp}})
	}

	if m.Finished() {
		s.Epoch++
		add(s.step(round.Finish{Outcome: s.outcomeFor(m.WinnerID)}))
		return s, effects
	}
	if s.Local.HP <= 0 || s.OpponentHP <= 0 {
		add(finish(s, s.leader()))
	}
	return s, effects
}

func submit(s MatchState, e Submit) (MatchState, []Effect) {
	if s.Answered && strings.TrimSpace(e.Text) != "" {
		return s, []Effect{Notify{round.InputRejected{Reason: round.ReasonClosed}}}
	}
	before := s.Local
	s, effects := s.step(round.Submit{Text: e.Text, At: e.At})

	answer := Answer{PlayerID: s.Self, Round: s.QuestionRound, Text: strings.TrimSpace(e.Text)}
	switch {
	case s.Local.Tally.Correct > before.Tally.Correct:
		s.Answered = true
		answer.Correct = true
		answer.TimeMS = max(e.At.Sub(before.StartedAt), 0).Milliseconds()
		s.OpponentHP = max(s.OpponentHP-1, 0)
		effects = append(effects,
			BroadcastAnswer{Answer: answer},
			WriteDamage{PlayerID: s.Opponent, HP: s.OpponentHP},
			Notify{round.OpponentHPChanged{HP: s.OpponentHP}},
		)
		if s.Authority && s.OpponentHP > 0 {
			effects = append(effects, s.advance())
		}
	case s.Local.Tally.Wrong > before.Tally.Wrong:
		answer.TimeMS = max(e.At.Sub(before.StartedAt), 0).Milliseconds()
		effects = append(effects, BroadcastAnswer{Answer: answer})
	}
	return s, effects
}

func answerReceived(s MatchState, e AnswerReceived) (MatchState, []Effect) {
	a := e.Answer
	if a.PlayerID != s.Opponent {
		return s, nil
	}
	if a.Round > s.QuestionRound {
		if a.Correct && a.Round <= s.Rules.Round.TotalRounds {
			s = s.hold(a)
		}
		return s, nil
	}
	if s.QuestionRound == 0 || a.Round != s.QuestionRound {
		return s, nil
	}
	effects := []Effect{Notify{round.OpponentAnswered{Correct: a.Correct, Elapsed: a.Elapsed()}}}
	if !a.Correct || s.Answered {
		return s, effects
	}
	s.Unseen++
	s, local := concede(s)
	return s, append(effects, local...)
}

// concede latches the current round as taken by the opponent.
func concede(s MatchState) (MatchState, []Effect) {
	s.Answered = true
	s, effects := s.step(round.Conceded{})
	if s.Authority {
		effects = append(effects, s.advance())
	}
	return s, effects
}

func (s MatchState) advance() Effect {
	return Schedule{Timer: round.TimerAdvance, Delay: s.Rules.Round.AdvanceDelay, Epoch: s.Epoch}
}

// finish decides the match locally and writes the result.
func finish(s MatchState, winnerID string) (MatchState, []Effect) {
	s.Epoch++
	s, effects := s.step(round.Finish{Outcome: s.outcomeFor(winnerID)})
	return s, append([]Effect{WriteFinish{WinnerID: winnerID}}, effects...)
}

// step runs the local round reducer and lifts its effects.
func (s MatchState) step(ev round.Event) (MatchState, []Effect) {
	next, effects := round.Reduce(s.Local, ev)
	s.Local = next
	out := make([]Effect, 0, len(effects))
	for _, eff := range effects {
		switch e := eff.(type) {
		case round.Notify:
			out = append(out, Notify{e.Notification})
		case round.Schedule:
			out = append(out, Schedule{Timer: e.Timer, Delay: e.Delay, Epoch: e.Epoch})
		case round.CancelTimers:
			out = append(out, CancelTimers{})
		case round.StartClock:
			out = append(out, StartClock{At: e.At})
		case round.StopClock:
			out = append(out, StopClock{})
		}
	}
	return s, out
}
