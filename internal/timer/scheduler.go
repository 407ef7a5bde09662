// Package timer runs the named one-shot timers of a game controller on an
// injectable clock.
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler keeps at most one pending timer per kind.
type Scheduler struct {
	clock clockwork.Clock

	mu      sync.Mutex
	pending map[string]entry
	seq     uint64
}

type entry struct {
	t   clockwork.Timer
	seq uint64
}

func New(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{clock: clock, pending: make(map[string]entry)}
}

func (s *Scheduler) Clock() clockwork.Clock { return s.clock }

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Schedule runs fn after d on a clock goroutine, replacing any pending
// timer of the same kind.
func (s *Scheduler) Schedule(kind string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.pending[kind]; ok {
		old.t.Stop()
	}
	s.seq++
	seq := s.seq
	t := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		if cur, ok := s.pending[kind]; ok && cur.seq == seq {
			delete(s.pending, kind)
		}
		s.mu.Unlock()
		fn()
	})
	s.pending[kind] = entry{t: t, seq: seq}
}

func (s *Scheduler) Cancel(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[kind]; ok {
		e.t.Stop()
		delete(s.pending, kind)
	}
}

// CancelAll stops every pending timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind, e := range s.pending {
		e.t.Stop()
		delete(s.pending, kind)
	}
}

// Pending reports how many timers have not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Ticker returns a ticker on the scheduler's clock.
func (s *Scheduler) Ticker(d time.Duration) clockwork.Ticker {
	return s.clock.NewTicker(d)
}
