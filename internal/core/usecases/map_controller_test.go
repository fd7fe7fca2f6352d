package usecases_test

import (
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/usecases"
)

func testPins() []domain.Pin {
	return []domain.Pin{
		{RecordID: "esb", Name: "Empire State", Coordinate: empireState},
		{RecordID: "ts", Name: "Times Square", Coordinate: timesSquare},
	}
}

func fixAt(p domain.GeoPoint) *domain.LiveLocation {
	return &domain.LiveLocation{Coordinate: p, Accuracy: 5, Timestamp: time.Now()}
}

// routeReady returns a controller with pins, a selection and a live location.
func routeReady(t *testing.T) *usecases.MapController {
	t.Helper()
	c := usecases.NewMapController(defaultRange)
	pins := testPins()
	if err := c.SetPins(pins); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SelectPin(&pins[0]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.SetLiveLocation(fixAt(timesSquare)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestMapController_InitialState(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	s := c.Snapshot()
	if !s.Loading {
		t.Error("expected loading on construction")
	}
	if s.Region != defaultRange {
		t.Errorf("expected default region, got %+v", s.Region)
	}
	if len(s.Pins) != 0 || s.SelectedPin != nil || s.RouteVisible {
		t.Errorf("unexpected initial state: %+v", s)
	}
}

func TestMapController_ToggleRoute_NoSelectionIsNoop(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	_ = c.SetPins(testPins())
	before := c.Snapshot()

	visible, err := c.ToggleRoute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visible {
		t.Error("route must stay hidden without a selection")
	}
	after := c.Snapshot()
	if after.Version != before.Version || after.RouteVisible {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}

	adv := c.Advisories()
	if len(adv) != 1 || adv[0].Message != "Please select a bathroom to navigate to." {
		t.Errorf("unexpected advisories: %+v", adv)
	}
}

func TestMapController_ToggleRoute(t *testing.T) {
	c := routeReady(t)

	visible, err := c.ToggleRoute()
	if err != nil || !visible {
		t.Fatalf("expected route on, got %v %v", visible, err)
	}
	s := c.Snapshot()
	if s.Route == nil || s.Route.Mode != domain.TravelModeWalking {
		t.Fatalf("expected walking route overlay, got %+v", s.Route)
	}
	if s.Route.Origin != timesSquare || s.Route.Destination != empireState {
		t.Errorf("unexpected overlay: %+v", s.Route)
	}

	visible, _ = c.ToggleRoute()
	if visible || c.Snapshot().Route != nil {
		t.Error("expected route off after second toggle")
	}
}

func TestMapController_ToggleRoute_NeedsLiveLocation(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	pins := testPins()
	_ = c.SetPins(pins)
	_ = c.SelectPin(&pins[1])

	visible, err := c.ToggleRoute()
	if err != nil || visible {
		t.Fatalf("expected no-op, got %v %v", visible, err)
	}
	if len(c.Advisories()) != 1 {
		t.Errorf("expected one advisory, got %d", len(c.Advisories()))
	}
}

func TestMapController_RouteHiddenOnCascade(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *usecases.MapController) error
	}{
		{"live location lost", func(c *usecases.MapController) error { return c.SetLiveLocation(nil) }},
		{"selection cleared", func(c *usecases.MapController) error { return c.SelectPin(nil) }},
		{"selected pin removed", func(c *usecases.MapController) error {
			return c.SetPins([]domain.Pin{{RecordID: "other", Coordinate: nyc}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := routeReady(t)
			if v, _ := c.ToggleRoute(); !v {
				t.Fatal("expected route on")
			}
			before := c.Snapshot().Version

			if err := tt.mutate(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s := c.Snapshot()
			if s.RouteVisible || s.Route != nil {
				t.Errorf("route must be hidden, got %+v", s)
			}
			if s.Version != before+1 {
				t.Errorf("expected a single update, version %d -> %d", before, s.Version)
			}
		})
	}
}

func TestMapController_SelectPin_NotMember(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	_ = c.SetPins(testPins())

	err := c.SelectPin(&domain.Pin{RecordID: "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if c.Snapshot().SelectedPin != nil {
		t.Error("selection must be unchanged")
	}
}

func TestMapController_SetRegion_Invalid(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	err := c.SetRegion(domain.Region{Center: nyc})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if c.Snapshot().Region != defaultRange {
		t.Error("region must be unchanged")
	}
}

func TestMapController_SetPins_ReplacesAndStopsLoading(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	_ = c.SetPins(testPins())
	_ = c.SetPins([]domain.Pin{{RecordID: "only", Coordinate: nyc}})

	s := c.Snapshot()
	if s.Loading {
		t.Error("expected loading cleared")
	}
	if len(s.Pins) != 1 || s.Pins[0].RecordID != "only" {
		t.Errorf("expected pins replaced, got %+v", s.Pins)
	}
}

func TestMapController_LoadingTimeout(t *testing.T) {
	c := usecases.NewMapController(defaultRange, usecases.WithLoadingTimeout(20*time.Millisecond))
	if !waitFor(func() bool { return !c.Snapshot().Loading }) {
		t.Fatal("loading never cleared")
	}
	if len(c.Snapshot().Pins) != 0 {
		t.Error("timeout must not touch pins")
	}
}

func TestMapController_GenerationGuard(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	first := c.BeginLoad()
	second := c.BeginLoad()

	if c.ApplyPins(first, testPins()) {
		t.Error("superseded load must not apply")
	}
	if len(c.Snapshot().Pins) != 0 {
		t.Error("pins changed by stale load")
	}
	if !c.ApplyPins(second, testPins()) {
		t.Error("current load must apply")
	}
}

func TestMapController_ClosedDropsMutations(t *testing.T) {
	c := routeReady(t)
	gen := c.BeginLoad()
	c.Close()
	before := c.Snapshot()

	if err := c.SetPins(nil); !errors.Is(err, domain.ErrSessionClosed) {
		t.Errorf("SetPins: expected ErrSessionClosed, got %v", err)
	}
	if err := c.SetRegion(domain.RegionAround(timesSquare, 0.05)); !errors.Is(err, domain.ErrSessionClosed) {
		t.Errorf("SetRegion: expected ErrSessionClosed, got %v", err)
	}
	if err := c.SetLiveLocation(nil); !errors.Is(err, domain.ErrSessionClosed) {
		t.Errorf("SetLiveLocation: expected ErrSessionClosed, got %v", err)
	}
	if _, err := c.ToggleRoute(); !errors.Is(err, domain.ErrSessionClosed) {
		t.Errorf("ToggleRoute: expected ErrSessionClosed, got %v", err)
	}
	if c.ApplyPins(gen, nil) {
		t.Error("ApplyPins on closed controller must fail")
	}
	c.Advise("Error", "late")

	after := c.Snapshot()
	if after.Version != before.Version || len(after.Pins) != len(before.Pins) {
		t.Errorf("closed controller mutated: %+v -> %+v", before, after)
	}
	if len(c.Advisories()) != 0 {
		t.Error("closed controller must drop advisories")
	}
}

func TestMapController_Subscribe(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	ch, cancel := c.Subscribe()
	defer cancel()

	initial := <-ch
	if !initial.State.Loading {
		t.Error("expected initial view to be loading")
	}

	_ = c.SetPins(testPins())
	select {
	case v := <-ch:
		if len(v.State.Pins) != 2 {
			t.Errorf("expected 2 pins, got %d", len(v.State.Pins))
		}
	case <-time.After(time.Second):
		t.Fatal("no view after SetPins")
	}

	c.Close()
	if _, ok := <-ch; ok {
		t.Error("expected channel closed after Close")
	}
}

func TestMapController_SnapshotIsCopy(t *testing.T) {
	c := routeReady(t)
	s := c.Snapshot()
	s.Pins[0].Name = "mutated"
	s.SelectedPin.Name = "mutated"

	again := c.Snapshot()
	if again.Pins[0].Name == "mutated" || again.SelectedPin.Name == "mutated" {
		t.Error("snapshot shares memory with controller state")
	}
}

func TestMapController_VisibleAndNearest(t *testing.T) {
	c := usecases.NewMapController(domain.RegionAround(empireState, 0.005))
	_ = c.SetPins(testPins())

	visible := c.VisiblePins()
	if len(visible) != 1 || visible[0].RecordID != "esb" {
		t.Errorf("expected only esb visible, got %+v", visible)
	}

	pin, dist, err := c.NearestPin(domain.GeoPoint{Lat: 40.757, Lon: -73.986})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pin.RecordID != "ts" || dist > 200 {
		t.Errorf("expected ts nearby, got %s at %.0fm", pin.RecordID, dist)
	}
}

func TestMapController_AdvisoriesBounded(t *testing.T) {
	c := usecases.NewMapController(defaultRange)
	for i := 0; i < 30; i++ {
		c.Advise("Error", "x")
	}
	if n := len(c.Advisories()); n != 20 {
		t.Errorf("expected 20 advisories kept, got %d", n)
	}
}
