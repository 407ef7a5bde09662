package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScheduleFires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var fired atomic.Int32
	s.Schedule("advance", 2*time.Second, func() { fired.Add(1) })

	clock.Advance(time.Second)
	if fired.Load() != 0 {
		t.Fatal("fired early")
	}
	clock.Advance(time.Second)
	waitFor(t, func() bool { return fired.Load() == 1 })
	waitFor(t, func() bool { return s.Pending() == 0 })
}

func TestScheduleReplacesSameKind(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var first, second atomic.Int32
	s.Schedule("cooldown", time.Second, func() { first.Add(1) })
	s.Schedule("cooldown", 3*time.Second, func() { second.Add(1) })
	if s.Pending() != 1 {
		t.Fatalf("pending = %d; want 1", s.Pending())
	}

	clock.Advance(3 * time.Second)
	waitFor(t, func() bool { return second.Load() == 1 })
	if first.Load() != 0 {
		t.Fatal("replaced timer fired")
	}
}

func TestCancelAll(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock)
	var fired atomic.Int32
	s.Schedule("cooldown", time.Second, func() { fired.Add(1) })
	s.Schedule("advance", time.Second, func() { fired.Add(1) })
	s.CancelAll()
	if s.Pending() != 0 {
		t.Fatalf("pending after CancelAll = %d", s.Pending())
	}
	clock.Advance(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer fired")
	}
}
