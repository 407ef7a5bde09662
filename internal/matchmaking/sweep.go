package matchmaking

import (
	"context"
	"log/slog"
	"time"

	"cypher_arena/internal/logger"
	"cypher_arena/internal/store"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Sweeper periodically deactivates rooms everyone has left.
type Sweeper struct {
	store store.Store
	age   time.Duration
	clock clockwork.Clock
	sched gocron.Scheduler
	log   *slog.Logger
}

// NewSweeper schedules a sweep every interval that closes empty rooms
// created more than age ago. Call Start to begin.
func NewSweeper(st store.Store, interval, age time.Duration, clock clockwork.Clock) (*Sweeper, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, err
	}
	s := &Sweeper{store: st, age: age, clock: clock, sched: sched, log: logger.For("sweeper")}
	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { s.Sweep(context.Background()) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() { s.sched.Start() }

func (s *Sweeper) Stop() error { return s.sched.Shutdown() }

// Sweep runs one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	n, err := s.store.SweepRooms(ctx, s.clock.Now().Add(-s.age))
	if err != nil {
		s.log.Warn("room sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.log.Info("closed stale rooms", "count", n)
	}
}
