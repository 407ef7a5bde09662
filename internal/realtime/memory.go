package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/logger"
)

const memoryQueue = 256

// MemoryBus is an in-process Bus. Every subscription gets its own delivery
// goroutine, so handlers never run on the publisher's goroutine.
type MemoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[uint64]*memorySub
	seq  uint64

	duplicate func(Message) bool
	drop      func(Message) bool
	log       *slog.Logger
}

type MemoryOption func(*MemoryBus)

// WithDuplicates delivers a message twice when fn returns true.
func WithDuplicates(fn func(Message) bool) MemoryOption {
	return func(b *MemoryBus) { b.duplicate = fn }
}

// WithDrops silently discards a message when fn returns true.
func WithDrops(fn func(Message) bool) MemoryOption {
	return func(b *MemoryBus) { b.drop = fn }
}

func NewMemoryBus(opts ...MemoryOption) *MemoryBus {
	b := &MemoryBus{subs: make(map[string]map[uint64]*memorySub), log: logger.For("bus")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type memorySub struct {
	bus     *MemoryBus
	channel string
	id      uint64
	queue   chan Message
	done    chan struct{}
	once    sync.Once
}

func (b *MemoryBus) Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error) {
	b.mu.Lock()
	b.seq++
	sub := &memorySub{
		bus:     b,
		channel: channel,
		id:      b.seq,
		queue:   make(chan Message, memoryQueue),
		done:    make(chan struct{}),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[uint64]*memorySub)
	}
	b.subs[channel][sub.id] = sub
	b.mu.Unlock()

	go func() {
		for {
			select {
			case m := <-sub.queue:
				h(m)
			case <-sub.done:
				return
			case <-ctx.Done():
				_ = sub.Close()
				return
			}
		}
	}()
	return sub, nil
}

func (b *MemoryBus) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return &apperr.TransportError{Op: "publish " + channel, Err: err}
	}
	m := Message{Channel: channel, Event: event, Payload: raw}
	if b.drop != nil && b.drop(m) {
		return nil
	}
	times := 1
	if b.duplicate != nil && b.duplicate(m) {
		times = 2
	}

	b.mu.RLock()
	targets := make([]*memorySub, 0, len(b.subs[channel]))
	for _, s := range b.subs[channel] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		for i := 0; i < times; i++ {
			select {
			case s.queue <- m:
			case <-s.done:
			default:
				b.log.Warn("subscriber queue full, dropping message", "channel", channel, "event", event)
			}
		}
	}
	return nil
}

// Subscribers reports how many live subscriptions a channel has.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

func (s *memorySub) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.channel], s.id)
		if len(s.bus.subs[s.channel]) == 0 {
			delete(s.bus.subs, s.channel)
		}
		s.bus.mu.Unlock()
		close(s.done)
	})
	return nil
}
