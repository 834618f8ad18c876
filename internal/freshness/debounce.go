package freshness

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultDebounceDelay is how long a burst of triggers must settle before the action runs.
const DefaultDebounceDelay = 300 * time.Millisecond

// Debouncer collapses bursts of Trigger calls into a single trailing call of
// its action, made delay after the last Trigger with the last argument.
type Debouncer[T any] struct {
	clock  clockwork.Clock
	delay  time.Duration
	action func(T)

	mu    sync.Mutex
	timer clockwork.Timer
	gen   uint64

	// Serializes action calls.
	run sync.Mutex
}

// NewDebouncer wraps action. A non-positive delay selects DefaultDebounceDelay.
func NewDebouncer[T any](clock clockwork.Clock, delay time.Duration, action func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDebounceDelay
	}
	return &Debouncer[T]{
		clock:  clock,
		delay:  delay,
		action: action,
	}
}

// Trigger cancels any pending call and schedules action(arg) after the delay.
func (d *Debouncer[T]) Trigger(arg T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen, arg) })
}

// A timer that already fired cannot be stopped, so fire checks that no newer
// Trigger or Stop happened in the meantime.
func (d *Debouncer[T]) fire(gen uint64, arg T) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.run.Lock()
	defer d.run.Unlock()
	d.action(arg)
}

// Pending reports whether a call is scheduled and has not fired yet.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call, if any. Later Triggers work as usual.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}
