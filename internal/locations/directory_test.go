package locations

import (
	"testing"

	"github.com/i474232898/weather-dashboard/internal/freshness"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var (
	_ freshness.Directory = (*Directory)(nil)
	_ weather.Resolver    = (*Directory)(nil)
)

func TestIDForIsStable(t *testing.T) {
	a := IDFor("Paris", "FR")
	b := IDFor(" paris ", "fr")
	if a != b {
		t.Errorf("expected case and space insensitive ids, got %s and %s", a, b)
	}
	if a == IDFor("Paris", "US") {
		t.Error("expected different countries to get different ids")
	}
	// The controller persists its pseudo id and the directory resolves it.
	if CurrentID != freshness.CurrentLocationID {
		t.Errorf("pseudo ids disagree: %q vs %q", CurrentID, freshness.CurrentLocationID)
	}
}

func TestDirectoryResolve(t *testing.T) {
	paris := NewLocation("Paris", "FR")
	home := NewLocation("Oslo", "NO")
	d := NewDirectory([]weather.Location{paris, paris}, &home)

	if got := d.SavedLocations(); len(got) != 1 {
		t.Fatalf("expected duplicates dropped, got %d", len(got))
	}
	if loc, ok := d.Resolve(paris.ID); !ok || loc.City != "Paris" {
		t.Errorf("expected paris, got %+v %v", loc, ok)
	}
	if loc, ok := d.Resolve(home.ID); !ok || loc.Name != "Oslo, NO" {
		t.Errorf("expected home, got %+v %v", loc, ok)
	}
	if _, ok := d.Resolve("nowhere"); ok {
		t.Error("expected unknown id to miss")
	}
	if _, ok := d.Resolve(CurrentID); ok {
		t.Error("expected no device location before it is reported")
	}

	d.SetCurrent(59.91, 10.75)
	loc, ok := d.Resolve(CurrentID)
	if !ok || !loc.HasCoordinates() || *loc.Lat != 59.91 {
		t.Errorf("expected device location, got %+v %v", loc, ok)
	}
}
