package freshness

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-dashboard/internal/weather"
)

func snapshot(id string, temp float64) weather.WeatherSnapshot {
	return weather.WeatherSnapshot{
		Location:    weather.Location{ID: id},
		Temperature: temp,
		Unit:        weather.Celsius,
		Condition:   weather.ConditionClear,
	}
}

func TestCacheGetWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(clock, DefaultTTL)

	c.Put("nyc", snapshot("nyc", 21))

	clock.Advance(100 * time.Second)
	entry, ok := c.Get("nyc")
	if !ok {
		t.Fatal("expected cache hit at t=100s")
	}
	if entry.Payload.Temperature != 21 {
		t.Errorf("expected temperature 21, got %v", entry.Payload.Temperature)
	}
	if c.IsStale("nyc") {
		t.Error("expected nyc to be fresh at t=100s")
	}

	clock.Advance(201 * time.Second)
	if !c.IsStale("nyc") {
		t.Error("expected nyc to be stale at t=301s")
	}
	if _, ok := c.Get("nyc"); ok {
		t.Fatal("expected cache miss at t=301s")
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entry to be evicted, have %d entries", c.Len())
	}
}

func TestCacheBoundaryIsInclusive(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(clock, DefaultTTL)
	c.Put("nyc", snapshot("nyc", 1))

	clock.Advance(DefaultTTL)
	if _, ok := c.Get("nyc"); !ok {
		t.Fatal("entry aged exactly TTL must still be returned")
	}
	if c.IsStale("nyc") {
		t.Error("entry aged exactly TTL must not be stale")
	}

	clock.Advance(time.Millisecond)
	if !c.IsStale("nyc") {
		t.Error("entry older than TTL must be stale")
	}
}

func TestCacheIsStaleDoesNotEvict(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(clock, time.Minute)
	c.Put("paris", snapshot("paris", 15))

	clock.Advance(2 * time.Minute)
	for i := 0; i < 3; i++ {
		if !c.IsStale("paris") {
			t.Fatal("expected paris to stay stale")
		}
	}
	entry, ok := c.Peek("paris")
	if !ok || entry.Payload.Temperature != 15 {
		t.Fatalf("expected stale entry to survive IsStale, got %+v %v", entry, ok)
	}
	if age := entry.Age(clock.Now()); age != 2*time.Minute {
		t.Errorf("expected age 2m, got %s", age)
	}
}

func TestCachePutResetsAge(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(clock, time.Minute)
	c.Put("oslo", snapshot("oslo", -3))

	clock.Advance(90 * time.Second)
	if !c.IsStale("oslo") {
		t.Fatal("expected oslo to be stale")
	}

	c.Put("oslo", snapshot("oslo", -1))
	entry, ok := c.Get("oslo")
	if !ok || entry.Payload.Temperature != -1 {
		t.Fatalf("expected fresh overwrite, got %+v %v", entry, ok)
	}
	if c.IsStale("oslo") {
		t.Error("expected oslo to be fresh after Put")
	}
}

func TestCacheUnknownLocation(t *testing.T) {
	c := NewCache(clockwork.NewFakeClock(), 0)
	if c.TTL() != DefaultTTL {
		t.Errorf("expected default TTL, got %s", c.TTL())
	}
	if _, ok := c.Get("nowhere"); ok {
		t.Error("expected miss for unknown location")
	}
	if !c.IsStale("nowhere") {
		t.Error("unknown location must be stale")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(clockwork.NewFakeClock(), time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Put("shared", snapshot("shared", float64(i)))
			c.Get("shared")
			c.IsStale("shared")
		}(i)
	}
	wg.Wait()

	if _, ok := c.Get("shared"); !ok {
		t.Fatal("expected shared entry")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("expected empty cache after Clear")
	}
}
