package freshness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultFetchTimeout bounds a single background fetch.
const DefaultFetchTimeout = 30 * time.Second

// Options tunes a Controller. Zero values select the package defaults.
type Options struct {
	Clock         clockwork.Clock
	TTL           time.Duration
	Cooldown      time.Duration
	DebounceDelay time.Duration
	FetchTimeout  time.Duration
}

// Controller decides, on every change of the active location and on every
// payload arrival, what to show and whether to refresh in the background.
//
// Cached data is shown straight away even when stale; a stale entry schedules
// a debounced refresh. A location with nothing cached is fetched at once.
// Every fetch passes the throttle first.
type Controller struct {
	fetcher Fetcher
	dir     Directory
	prefs   Preferences

	clock        clockwork.Clock
	cache        *Cache
	throttle     *Throttle
	debounce     *Debouncer[string]
	fetchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	active       string
	displayed    *weather.WeatherSnapshot
	displayedAt  time.Time
	state        State
	revalidating bool
	fetchErr     error
	inflight     map[string]int
	closed       bool
}

// NewController creates a controller with empty cache and throttle state.
// prefs may be nil, in which case the last viewed location is not persisted.
func NewController(fetcher Fetcher, dir Directory, prefs Preferences, opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		fetcher:      fetcher,
		dir:          dir,
		prefs:        prefs,
		clock:        clock,
		cache:        NewCache(clock, opts.TTL),
		throttle:     NewThrottle(clock, opts.Cooldown),
		fetchTimeout: timeout,
		ctx:          ctx,
		cancel:       cancel,
		state:        StateNoData,
		inflight:     make(map[string]int),
	}
	c.debounce = NewDebouncer(clock, opts.DebounceDelay, c.revalidate)
	return c
}

// Cache exposes the controller's weather cache.
func (c *Controller) Cache() *Cache {
	return c.cache
}

// Throttle exposes the controller's refresh throttle.
func (c *Controller) Throttle() *Throttle {
	return c.throttle
}

// ActiveLocation returns the id of the location being shown.
func (c *Controller) ActiveLocation() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetActiveLocation switches the dashboard to id.
//
// The display is updated before returning. A non-empty id is then written to
// preferences; the write error, if any, is returned.
func (c *Controller) SetActiveLocation(ctx context.Context, id string) error {
	c.mu.Lock()
	c.active = id
	c.fetchErr = nil
	c.revalidating = false

	var trigger, fetchNow, cooling bool
	if id == "" {
		c.displayed = nil
		c.displayedAt = time.Time{}
		c.state = StateNoData
	} else if entry, ok := c.cache.Peek(id); ok {
		payload := entry.Payload
		c.displayed = &payload
		c.displayedAt = entry.FetchedAt
		c.state = StateShowingCachedFresh
		if c.cache.IsStale(id) {
			c.revalidating = true
			c.state = StateShowingCachedStaleRevalidating
			trigger = true
		}
	} else {
		c.displayed = nil
		c.displayedAt = time.Time{}
		c.state = StateNoData
		fetchNow = c.throttle.TryAcquire(id)
		cooling = !fetchNow
	}
	c.mu.Unlock()

	switch {
	case trigger:
		glog.V(1).Infof("freshness: %s is stale, scheduling revalidation", id)
		c.debounce.Trigger(id)
	case fetchNow:
		glog.V(1).Infof("freshness: nothing cached for %s, fetching", id)
		c.initiate(id)
	case cooling:
		glog.V(1).Infof("freshness: nothing cached for %s and refresh is cooling down", id)
	}

	if id == "" || c.prefs == nil {
		return nil
	}
	return c.prefs.SetLastLocation(ctx, id)
}

// Mount restores the last viewed location when none is active yet.
//
// The stored id is used only if it still names a saved location, the device
// location or the home location. Otherwise the device location is used if
// known, then the home location, then nothing. A preferences read error is
// returned after the fallback has been applied.
func (c *Controller) Mount(ctx context.Context) error {
	if c.ActiveLocation() != "" {
		return nil
	}

	var readErr error
	id := ""
	if c.prefs != nil {
		saved, ok, err := c.prefs.LastLocation(ctx)
		if err != nil {
			glog.Warningf("freshness: reading last location: %v", err)
			readErr = err
		} else if ok && c.restorable(saved) {
			id = saved
		}
	}
	if id == "" {
		id = c.fallbackLocation()
	}
	if id == "" {
		return readErr
	}

	glog.Infof("freshness: restoring location %s", id)
	return errors.Join(readErr, c.SetActiveLocation(ctx, id))
}

func (c *Controller) restorable(id string) bool {
	if id == "" {
		return false
	}
	if id == CurrentLocationID {
		return true
	}
	if c.dir == nil {
		return false
	}
	if home, ok := c.dir.Home(); ok && home.ID == id {
		return true
	}
	for _, loc := range c.dir.SavedLocations() {
		if loc.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) fallbackLocation() string {
	if c.dir == nil {
		return ""
	}
	if _, ok := c.dir.Current(); ok {
		return CurrentLocationID
	}
	if home, ok := c.dir.Home(); ok {
		return home.ID
	}
	return ""
}

// EffectiveLocation is the key refreshes apply to: the active location, else
// the device location, else home, else DefaultLocationKey.
func (c *Controller) EffectiveLocation() string {
	if active := c.ActiveLocation(); active != "" {
		return active
	}
	if id := c.fallbackLocation(); id != "" {
		return id
	}
	return DefaultLocationKey
}

// Refresh starts a fetch of the effective location right away, unless the
// throttle refuses, in which case a *ThrottledError is returned.
func (c *Controller) Refresh() error {
	id := c.EffectiveLocation()
	if !c.throttle.TryAcquire(id) {
		return &ThrottledError{LocationID: id, Remaining: c.throttle.CooldownRemaining(id)}
	}

	c.mu.Lock()
	if id == c.active && c.displayed != nil {
		c.revalidating = true
		c.state = StateShowingCachedRevalidating
		if c.cache.IsStale(id) {
			c.state = StateShowingCachedStaleRevalidating
		}
	}
	c.mu.Unlock()

	c.initiate(id)
	return nil
}

// Tick schedules a debounced revalidation of the effective location if its
// cached payload is stale. The scheduler calls it at the refresh interval.
func (c *Controller) Tick() {
	id := c.EffectiveLocation()
	if !c.cache.IsStale(id) {
		return
	}

	c.mu.Lock()
	if id == c.active && c.displayed != nil {
		c.revalidating = true
		c.state = StateShowingCachedStaleRevalidating
	}
	c.mu.Unlock()

	c.debounce.Trigger(id)
}

// revalidate is the debounced action.
func (c *Controller) revalidate(id string) {
	if !c.cache.IsStale(id) {
		c.settle(id)
		return
	}
	if !c.throttle.TryAcquire(id) {
		glog.V(1).Infof("freshness: revalidation of %s skipped, cooling down for %s",
			id, c.throttle.CooldownRemaining(id))
		c.settle(id)
		return
	}
	c.initiate(id)
}

// settle clears the revalidating indicator when no fetch is going to follow.
func (c *Controller) settle(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.active || !c.revalidating {
		return
	}
	c.revalidating = false
	if c.displayed != nil {
		c.state = c.idleStateLocked(id)
	}
}

// idleStateLocked is the state of a displayed cached payload with no fetch
// outstanding.
func (c *Controller) idleStateLocked(id string) State {
	if c.cache.IsStale(id) {
		return StateShowingCachedStale
	}
	return StateShowingCachedFresh
}

// initiate launches a fetch for id. The caller has already passed the throttle.
// It does nothing once the controller is closed.
func (c *Controller) initiate(id string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		glog.V(1).Infof("freshness: controller closed, not fetching %s", id)
		return
	}
	c.inflight[id]++
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.ctx, c.fetchTimeout)
		defer cancel()

		payload, err := c.fetcher.Fetch(ctx, id)

		c.mu.Lock()
		if c.inflight[id]--; c.inflight[id] <= 0 {
			delete(c.inflight, id)
		}
		c.mu.Unlock()

		if err != nil {
			c.Fail(id, err)
			return
		}
		c.Deliver(id, payload)
	}()
}

// Deliver records a fresh payload for id. It replaces the display only when id
// is still the active location.
func (c *Controller) Deliver(id string, payload weather.WeatherSnapshot) {
	c.cache.Put(id, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.active {
		glog.V(1).Infof("freshness: cached late payload for inactive location %s", id)
		return
	}
	p := payload
	c.displayed = &p
	c.displayedAt = c.clock.Now()
	c.state = StateShowingLive
	c.revalidating = false
	c.fetchErr = nil
}

// Fail records a fetch failure for id. The error is shown only when id is
// active and nothing is displayed; stale data wins over an error.
func (c *Controller) Fail(id string, err error) {
	ferr := &FetchError{LocationID: id, Err: err}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.active {
		glog.Warningf("freshness: %v (location no longer active)", ferr)
		return
	}
	c.revalidating = false
	if c.displayed == nil {
		glog.Errorf("freshness: %v", ferr)
		c.fetchErr = ferr
		c.state = StateShowingError
		return
	}
	glog.Warningf("freshness: %v, keeping cached payload", ferr)
	switch c.state {
	case StateShowingCachedStaleRevalidating, StateShowingCachedRevalidating:
		c.state = c.idleStateLocked(id)
	}
}

// View returns what the UI should currently show.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		LocationID:   c.active,
		State:        c.state,
		Revalidating: c.revalidating,
		Loading:      c.inflight[c.active] > 0,
	}
	if c.displayed != nil {
		p := *c.displayed
		at := c.displayedAt
		v.Payload = &p
		v.FetchedAt = &at
	}
	if c.fetchErr != nil {
		v.Error = c.fetchErr.Error()
	}
	if c.active != "" {
		v.CooldownRemaining = c.throttle.CooldownRemaining(c.active)
	}
	return v
}

// Close cancels pending revalidations and in-flight fetches and waits for the
// fetch goroutines to return. No fetch starts after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.debounce.Stop()
	c.cancel()
	c.wg.Wait()
}
