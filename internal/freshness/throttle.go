package freshness

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultCooldown is the minimum spacing between two refreshes of one location.
const DefaultCooldown = 30 * time.Second

// Throttle remembers when a refresh was last initiated per location and
// refuses new ones until the cooldown has passed.
type Throttle struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	cooldown time.Duration
	last     map[string]time.Time
}

// NewThrottle creates an empty throttle. A non-positive cooldown selects DefaultCooldown.
func NewThrottle(clock clockwork.Clock, cooldown time.Duration) *Throttle {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Throttle{
		clock:    clock,
		cooldown: cooldown,
		last:     make(map[string]time.Time),
	}
}

// Cooldown returns the configured cooldown.
func (t *Throttle) Cooldown() time.Duration {
	return t.cooldown
}

// CanRefresh reports whether a refresh for id may be initiated now.
func (t *Throttle) CanRefresh(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canRefreshLocked(id, t.clock.Now())
}

func (t *Throttle) canRefreshLocked(id string, now time.Time) bool {
	last, ok := t.last[id]
	return !ok || now.Sub(last) > t.cooldown
}

// RecordRefresh marks a refresh for id as initiated now.
func (t *Throttle) RecordRefresh(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[id] = t.clock.Now()
}

// TryAcquire records a refresh for id and returns true if one is allowed;
// otherwise it leaves the record untouched and returns false.
func (t *Throttle) TryAcquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	if !t.canRefreshLocked(id, now) {
		return false
	}
	t.last[id] = now
	return true
}

// CooldownRemaining returns how long until id may be refreshed again, or zero.
func (t *Throttle) CooldownRemaining(id string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	last, ok := t.last[id]
	if !ok {
		return 0
	}
	if remaining := t.cooldown - t.clock.Now().Sub(last); remaining > 0 {
		return remaining
	}
	return 0
}
