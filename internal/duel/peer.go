package duel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/metrics"
	"cypher_arena/internal/profile"
	"cypher_arena/internal/questions"
	"cypher_arena/internal/realtime"
	"cypher_arena/internal/round"
	"cypher_arena/internal/store"
	"cypher_arena/internal/timer"

	"github.com/jonboulle/clockwork"
)

const (
	defaultWriteTimeout = 5 * time.Second
	recordTimeout       = 5 * time.Second
)

// Peer runs one side of a duel. Like session.Session it owns its state in
// a single loop goroutine; store writes and broadcasts run beside it and
// report back as events.
type Peer struct {
	self     domain.Player
	match    domain.Match
	matchID  string
	store    store.Store
	bus      realtime.Bus
	source   questions.Provider
	sched    *timer.Scheduler
	recorder *profile.Recorder
	release  func(context.Context) error
	log      *slog.Logger
	tick     time.Duration
	timeout  time.Duration

	events  chan Event
	updates chan round.Notification
	stopped chan struct{}
	done    chan struct{}
	once    sync.Once
	writes  sync.WaitGroup

	mu    sync.Mutex
	state MatchState

	// loop-owned
	subs      []realtime.Subscription
	ticker    clockwork.Ticker
	clockFrom time.Time
}

type Option func(*Peer)

func WithClock(c clockwork.Clock) Option {
	return func(p *Peer) { p.sched = timer.New(c) }
}

func WithRecorder(r *profile.Recorder) Option {
	return func(p *Peer) { p.recorder = r }
}

// WithRelease runs fn once the match is over, typically returning the
// player to idle in the room.
func WithRelease(fn func(context.Context) error) Option {
	return func(p *Peer) { p.release = fn }
}

func WithTick(d time.Duration) Option {
	return func(p *Peer) { p.tick = d }
}

// WithWriteTimeout bounds each store write and broadcast.
func WithWriteTimeout(d time.Duration) Option {
	return func(p *Peer) { p.timeout = d }
}

// writeFailed reports a failed side effect back to the loop.
type writeFailed struct {
	op  string
	err error
}

type powerupRequested struct{ kind round.PowerupKind }

func (writeFailed) isEvent()      {}
func (powerupRequested) isEvent() {}

// NewPeer prepares self's side of m. The question source is required on
// player1's side only and is never called on the other.
func NewPeer(self domain.Player, m domain.Match, opponentName string, rules Rules,
	st store.Store, bus realtime.Bus, source questions.Provider, opts ...Option) (*Peer, error) {
	if !m.Involves(self.ID) {
		return nil, fmt.Errorf("player %s is not in match %s", self.ID, m.ID)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if m.IsPlayer1(self.ID) && source == nil {
		return nil, errors.New("question authority needs a question source")
	}
	p := &Peer{
		self:    self,
		match:   m,
		matchID: m.ID,
		store:   st,
		bus:     bus,
		source:  source,
		timeout: defaultWriteTimeout,
		log:     logger.For("duel").With("player_id", self.ID, "match_id", m.ID),
		events:  make(chan Event, 32),
		updates: make(chan round.Notification, 64),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
		state:   New(rules, m, self.ID, opponentName),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sched == nil {
		p.sched = timer.New(nil)
	}
	return p, nil
}

// Start subscribes to the match channels, launches the loop and fetches
// the current record so a late joiner catches up. Cancelling ctx
// forfeits.
func (p *Peer) Start(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		err = p.subscribe(ctx)
		if err != nil {
			return
		}
		go p.run(ctx)
		p.post(Started{})
		if m, ferr := p.store.MatchByID(ctx, p.matchID); ferr == nil {
			p.post(RecordChanged{Match: m, At: p.sched.Now()})
		} else {
			p.log.Warn("failed to fetch match record", "error", ferr)
		}
	})
	return err
}

func (p *Peer) subscribe(ctx context.Context) error {
	rows, err := p.bus.Subscribe(ctx, store.MatchRowChannel(p.matchID), func(msg realtime.Message) {
		if msg.Event != realtime.EventChange {
			return
		}
		var ch realtime.Change
		if err := msg.Decode(&ch); err != nil || ch.Table != realtime.TableMatches {
			return
		}
		var m domain.Match
		if err := ch.DecodeNew(&m); err != nil {
			p.log.Warn("malformed match change", "error", err)
			return
		}
		p.post(RecordChanged{Match: m, At: p.sched.Now()})
	})
	if err != nil {
		return err
	}
	answers, err := p.bus.Subscribe(ctx, realtime.MatchChannel(p.matchID), func(msg realtime.Message) {
		if msg.Event != realtime.EventAnswer {
			return
		}
		var a Answer
		if err := msg.Decode(&a); err != nil {
			p.log.Warn("malformed answer broadcast", "error", err)
			return
		}
		p.post(AnswerReceived{Answer: a, At: p.sched.Now()})
	})
	if err != nil {
		_ = rows.Close()
		return err
	}
	p.subs = []realtime.Subscription{rows, answers}
	return nil
}

func (p *Peer) SubmitAnswer(text string) {
	p.post(Submit{Text: text, At: p.sched.Now()})
}

// UsePowerup always reports the power-up as unavailable; duels have none.
func (p *Peer) UsePowerup(kind round.PowerupKind) {
	p.post(powerupRequested{kind: kind})
}

func (p *Peer) Quit() { p.post(Quit{}) }

func (p *Peer) Updates() <-chan round.Notification { return p.updates }

// Done is closed once the loop has exited and in-flight writes finished.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) Snapshot() MatchState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// post hands ev to the loop. Events posted after the loop stopped are
// dropped.
func (p *Peer) post(ev Event) {
	select {
	case p.events <- ev:
	case <-p.stopped:
	}
}

func (p *Peer) run(ctx context.Context) {
	defer close(p.done)
	defer close(p.updates)
	defer p.writes.Wait()
	defer p.sched.CancelAll()
	defer p.stopClock()
	defer func() {
		close(p.stopped)
		for _, s := range p.subs {
			_ = s.Close()
		}
	}()

	for {
		var tickC <-chan time.Time
		if p.ticker != nil {
			tickC = p.ticker.Chan()
		}
		select {
		case <-ctx.Done():
			p.apply(ctx, Quit{})
		case ev := <-p.events:
			p.apply(ctx, ev)
		case now := <-tickC:
			st := p.Snapshot()
			p.emit(ctx, round.Tick{Round: st.QuestionRound, Elapsed: now.Sub(p.clockFrom)})
		}
		if st := p.Snapshot(); st.Ended() {
			p.finish(ctx, st)
			return
		}
	}
}

func (p *Peer) apply(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case writeFailed:
		p.emit(ctx, round.Failure{Op: e.op, Err: e.err})
		return
	case powerupRequested:
		p.emit(ctx, round.PowerupUnavailable{Kind: e.kind})
		return
	}

	p.mu.Lock()
	next, effects := Reduce(p.state, ev)
	p.state = next
	p.mu.Unlock()

	var notes []round.Notification
	for _, eff := range effects {
		switch e := eff.(type) {
		case PublishQuestion:
			p.publishQuestion(e.Round)
		case BroadcastAnswer:
			p.async("broadcast answer", func(ctx context.Context) error {
				return p.bus.Publish(ctx, realtime.MatchChannel(p.matchID), realtime.EventAnswer, e.Answer)
			})
		case WriteDamage:
			p.async("write damage", func(ctx context.Context) error {
				return p.update(ctx, domain.HPPatch(p.match, e.PlayerID, e.HP))
			})
		case WriteFinish:
			p.async("write finish", func(ctx context.Context) error {
				return p.update(ctx, domain.FinishPatch(e.WinnerID))
			})
		case Schedule:
			p.schedule(e)
		case CancelTimers:
			p.sched.CancelAll()
		case StartClock:
			p.startClock(e.At)
		case StopClock:
			p.stopClock()
		case Notify:
			notes = append(notes, e.Notification)
		}
	}
	for _, n := range notes {
		p.observe(n)
		p.emit(ctx, n)
	}
}

func (p *Peer) publishQuestion(r int) {
	p.async("publish question", func(ctx context.Context) error {
		q, err := p.source.Next(r)
		if err != nil {
			return fmt.Errorf("next question: %w", err)
		}
		return p.update(ctx, domain.QuestionPatch(q, r))
	})
}

// update writes a patch and feeds the resulting record back into the loop,
// so progress does not depend on the change notification arriving.
func (p *Peer) update(ctx context.Context, patch domain.MatchPatch) error {
	m, err := p.store.UpdateMatch(ctx, p.matchID, patch)
	if err != nil {
		return err
	}
	p.post(RecordChanged{Match: m, At: p.sched.Now()})
	return nil
}

// async runs a write beside the loop. Writes in flight when the match ends
// are allowed to complete; failures are reported, never retried.
func (p *Peer) async(op string, fn func(context.Context) error) {
	p.writes.Add(1)
	go func() {
		defer p.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			metrics.TransportErrors.WithLabelValues(op).Inc()
			p.log.Warn("duel write failed", "op", op, "error", err)
			p.post(writeFailed{op: op, err: err})
		}
	}()
}

func (p *Peer) schedule(e Schedule) {
	var ev Event
	switch e.Timer {
	case round.TimerStart:
		ev = StartElapsed{Epoch: e.Epoch}
	case round.TimerAdvance:
		ev = AdvanceElapsed{Epoch: e.Epoch}
	case round.TimerCooldown:
		ev = CooldownElapsed{Epoch: e.Epoch}
	default:
		return
	}
	p.sched.Schedule(string(e.Timer), e.Delay, func() { p.post(ev) })
}

func (p *Peer) startClock(at time.Time) {
	p.stopClock()
	p.clockFrom = at
	if p.tick > 0 {
		p.ticker = p.sched.Ticker(p.tick)
	}
}

func (p *Peer) stopClock() {
	if p.ticker != nil {
		p.ticker.Stop()
		p.ticker = nil
	}
}

func (p *Peer) emit(ctx context.Context, n round.Notification) {
	select {
	case p.updates <- n:
	case <-ctx.Done():
	}
}

func (p *Peer) observe(n round.Notification) {
	switch e := n.(type) {
	case round.RoundStarted:
		p.log.Debug("round started", "round", e.Round, "scheme", e.Question.Scheme)
	case round.RoundWon:
		metrics.Rounds.WithLabelValues(string(domain.ModeDuel), "won").Inc()
		if q, ok := p.Snapshot().Local.CurrentQuestion(); ok {
			metrics.DecodeSeconds.WithLabelValues(string(q.Scheme)).Observe(e.Elapsed.Seconds())
		}
	case round.RoundConceded:
		metrics.Rounds.WithLabelValues(string(domain.ModeDuel), "conceded").Inc()
	case round.SessionEnded:
		metrics.Matches.WithLabelValues(e.Outcome.String()).Inc()
		p.log.Info("match ended", "outcome", e.Outcome.String(), "score", e.Summary.Tally.Score, "hp", e.Summary.HP)
	}
}

// finish records the duel, a forfeit included, and releases the player.
func (p *Peer) finish(ctx context.Context, st MatchState) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if p.release != nil {
		if err := p.release(rctx); err != nil {
			p.log.Warn("failed to release player", "error", err)
		}
	}
	if p.recorder == nil {
		return
	}
	res, err := p.recorder.Finish(rctx, p.self.ID, st.Local.Summary())
	if err != nil {
		p.log.Warn("failed to record duel", "error", err)
		p.emit(ctx, round.Failure{Op: "record duel", Err: err})
		return
	}
	if len(res.Unlocked) > 0 {
		p.emit(ctx, round.AchievementsUnlocked{Achievements: res.Unlocked})
	}
}
