package middleware

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// memoryLimiter is a fixed-window counter used when Redis is not
// configured.
type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*window
}

func newMemoryLimiter() *memoryLimiter {
	return &memoryLimiter{now: time.Now, windows: make(map[string]*window)}
}

// incr counts one request for key and returns the count in the current
// window.
func (l *memoryLimiter) incr(key string, size time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) > size {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return int64(w.count)
}
