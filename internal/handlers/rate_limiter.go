package handlers

import (
	"strings"
	"sync"
	"time"
)

// resetThrottle caps how many credential emails one user can be sent within a window.
type resetThrottle interface {
	// Allow records an attempt for key and reports whether it is within the limit. When it is
	// not, the returned duration is the time until the window resets.
	Allow(key string) (bool, time.Duration)
}

type windowThrottle struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]throttleWindow
}

type throttleWindow struct {
	count int
	reset time.Time
}

// newWindowThrottle returns nil, meaning unlimited, when limit or window is not positive.
func newWindowThrottle(limit int, window time.Duration, clock func() time.Time) resetThrottle {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &windowThrottle{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]throttleWindow),
	}
}

func (t *windowThrottle) Allow(key string) (bool, time.Duration) {
	key = strings.TrimSpace(key)
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	current, ok := t.windows[key]
	if !ok || !now.Before(current.reset) {
		t.windows[key] = throttleWindow{count: 1, reset: now.Add(t.window)}
		t.dropExpiredLocked(now)
		return true, 0
	}
	if current.count >= t.limit {
		return false, current.reset.Sub(now)
	}
	current.count++
	t.windows[key] = current
	return true, 0
}

func (t *windowThrottle) dropExpiredLocked(now time.Time) {
	for key, w := range t.windows {
		if !now.Before(w.reset) {
			delete(t.windows, key)
		}
	}
}
