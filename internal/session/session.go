// Package session runs a practice game: one round state owned by a single
// event loop, fed by API calls and timers.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cypher_arena/internal/logger"
	"cypher_arena/internal/metrics"
	"cypher_arena/internal/profile"
	"cypher_arena/internal/questions"
	"cypher_arena/internal/round"
	"cypher_arena/internal/timer"

	"github.com/jonboulle/clockwork"
)

// Game is what a consumer drives, practice or duel.
type Game interface {
	SubmitAnswer(text string)
	UsePowerup(kind round.PowerupKind)
	Quit()
	// Updates is closed once the game has ended and its result is recorded.
	Updates() <-chan round.Notification
}

const recordTimeout = 5 * time.Second

type Session struct {
	playerID string
	source   questions.Provider
	sched    *timer.Scheduler
	recorder *profile.Recorder
	log      *slog.Logger
	tick     time.Duration

	events  chan round.Event
	updates chan round.Notification
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	state round.State

	// loop-owned
	ticker    clockwork.Ticker
	clockFrom time.Time
}

type Option func(*Session)

func WithClock(c clockwork.Clock) Option {
	return func(s *Session) { s.sched = timer.New(c) }
}

// WithRecorder persists the result when the session ends.
func WithRecorder(r *profile.Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// WithTick emits a Tick notification every d while a round runs.
func WithTick(d time.Duration) Option {
	return func(s *Session) { s.tick = d }
}

// New validates rules and builds a session that has not started yet.
func New(playerID string, rules round.Rules, source questions.Provider, opts ...Option) (*Session, error) {
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("session rules: %w", err)
	}
	s := &Session{
		playerID: playerID,
		source:   source,
		log:      logger.For("session").With("player_id", playerID),
		events:   make(chan round.Event, 16),
		updates:  make(chan round.Notification, 64),
		done:     make(chan struct{}),
		state:    round.New(rules),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sched == nil {
		s.sched = timer.New(nil)
	}
	return s, nil
}

// Start launches the event loop and requests the first question. Cancelling
// ctx quits the session.
func (s *Session) Start(ctx context.Context) {
	s.once.Do(func() {
		go s.run(ctx)
		s.post(round.Begin{})
	})
}

func (s *Session) SubmitAnswer(text string) {
	s.post(round.Submit{Text: text, At: s.sched.Now()})
}

func (s *Session) UsePowerup(kind round.PowerupKind) {
	s.post(round.UsePowerup{Kind: kind, At: s.sched.Now()})
}

func (s *Session) Quit() {
	s.post(round.Quit{})
}

func (s *Session) Updates() <-chan round.Notification { return s.updates }

// Done is closed when the loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() round.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) post(ev round.Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.updates)
	defer s.sched.CancelAll()
	defer s.stopClock()

	for {
		var tickC <-chan time.Time
		if s.ticker != nil {
			tickC = s.ticker.Chan()
		}
		select {
		case <-ctx.Done():
			s.apply(ctx, round.Quit{})
		case ev := <-s.events:
			s.apply(ctx, ev)
		case now := <-tickC:
			st := s.Snapshot()
			s.emit(ctx, round.Tick{Round: st.Round, Elapsed: now.Sub(s.clockFrom)})
		}
		if st := s.Snapshot(); st.Ended() {
			s.finish(ctx, st)
			return
		}
	}
}

// apply reduces ev and any events its effects produce. Side effects run
// before notifications go out, so a consumer that sees a notification can
// rely on the timers behind it being armed.
func (s *Session) apply(ctx context.Context, ev round.Event) {
	queue := []round.Event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		s.mu.Lock()
		next, effects := round.Reduce(s.state, ev)
		s.state = next
		s.mu.Unlock()

		var notes []round.Notification
		for _, eff := range effects {
			switch e := eff.(type) {
			case round.RequestQuestion:
				q, err := s.source.Next(e.Round)
				if err != nil {
					s.log.Error("question source failed", "round", e.Round, "error", err)
					notes = append(notes, round.Failure{Op: "next question", Err: err})
					queue = append(queue, round.Quit{})
					continue
				}
				queue = append(queue, round.QuestionReady{Question: q, Round: e.Round, At: s.sched.Now()})
			case round.Schedule:
				s.schedule(e)
			case round.CancelTimers:
				s.sched.CancelAll()
			case round.StartClock:
				s.startClock(e.At)
			case round.StopClock:
				s.stopClock()
			case round.Notify:
				notes = append(notes, e.Notification)
			}
		}
		for _, n := range notes {
			s.observe(next, n)
			s.emit(ctx, n)
		}
	}
}

func (s *Session) schedule(e round.Schedule) {
	var ev round.Event
	switch e.Timer {
	case round.TimerCooldown:
		ev = round.CooldownElapsed{Epoch: e.Epoch}
	case round.TimerAdvance:
		ev = round.AdvanceElapsed{Epoch: e.Epoch}
	default:
		return
	}
	s.sched.Schedule(string(e.Timer), e.Delay, func() { s.post(ev) })
}

func (s *Session) startClock(at time.Time) {
	s.stopClock()
	s.clockFrom = at
	if s.tick > 0 {
		s.ticker = s.sched.Ticker(s.tick)
	}
}

func (s *Session) stopClock() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *Session) emit(ctx context.Context, n round.Notification) {
	select {
	case s.updates <- n:
	case <-ctx.Done():
	}
}

func (s *Session) observe(st round.State, n round.Notification) {
	mode := string(st.Rules.Mode)
	switch e := n.(type) {
	case round.RoundStarted:
		s.log.Debug("round started", "round", e.Round, "scheme", e.Question.Scheme)
	case round.RoundWon:
		metrics.Rounds.WithLabelValues(mode, "won").Inc()
		if st.Question != nil {
			metrics.DecodeSeconds.WithLabelValues(string(st.Question.Scheme)).Observe(e.Elapsed.Seconds())
		}
	case round.RoundLost:
		metrics.Rounds.WithLabelValues(mode, "wrong").Inc()
	case round.Skipped:
		metrics.Rounds.WithLabelValues(mode, "skipped").Inc()
	case round.SessionEnded:
		s.log.Info("session ended", "outcome", e.Outcome.String(), "score", e.Summary.Tally.Score,
			"rounds_completed", e.Summary.RoundsCompleted)
	}
}

// finish records a won or lost session. Quitting practice records nothing.
func (s *Session) finish(ctx context.Context, st round.State) {
	if s.recorder == nil || st.Outcome == round.OutcomeQuit {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	res, err := s.recorder.Finish(rctx, s.playerID, st.Summary())
	if err != nil {
		s.log.Warn("failed to record session", "error", err)
		s.emit(ctx, round.Failure{Op: "record session", Err: err})
		return
	}
	if len(res.Unlocked) > 0 {
		s.emit(ctx, round.AchievementsUnlocked{Achievements: res.Unlocked})
	}
}
