package usecases

import (
	"fmt"
	"sync"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/pkg/geoindex"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
)

// maxAdvisories bounds the advisory log kept per controller.
const maxAdvisories = 20

// subscriberBuffer is the per-subscriber queue depth. A subscriber that falls
// further behind loses its oldest queued views, never the newest.
const subscriberBuffer = 8

// Advisory titles and messages shown to the user.
const (
	titleError            = "Error"
	titlePermissionDenied = "Permission Denied"
	titleNoResults        = "No Results"
	titleNoLocation       = "Location Unavailable"

	msgPermissionRequired = "Location permission is required to use this feature."
	msgFixFailed          = "Failed to fetch current location."
	msgPinsFailed         = "Failed to load bathroom pins from the database."
	msgRecenterFailed     = "Unable to center on your location."
	msgEmptySearch        = "Please enter an address to search."
	msgAddressNotFound    = "Address not found."
	msgSearchFailed       = "Failed to search for the address."
	msgSelectFirst        = "Please select a bathroom to navigate to."
	msgRouteNeedsLocation = "Your current location is needed to show a route."
)

// MapController owns one MapViewState. All mutation goes through its methods,
// each of which applies its change and re-establishes the route invariant
// under a single lock before anything is published.
//
// Once Close is called the controller is dead: mutators return
// domain.ErrSessionClosed and change nothing.
type MapController struct {
	mu         sync.Mutex
	state      domain.MapViewState
	advisories []domain.Advisory
	index      *geoindex.PinIndex
	closed     bool
	generation uint64
	loadTimer  *time.Timer

	loadingTimeout time.Duration

	subs    map[int]chan domain.ScreenView
	nextSub int

	now func() time.Time
}

// ControllerOption configures a MapController.
type ControllerOption func(*MapController)

// WithLoadingTimeout clears the loading flag after d even if no pins arrive.
func WithLoadingTimeout(d time.Duration) ControllerOption {
	return func(c *MapController) {
		c.loadingTimeout = d
	}
}

// WithClock overrides the clock used to stamp advisories.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *MapController) { c.now = now }
}

// NewMapController creates a controller showing region, in the loading state.
func NewMapController(region domain.Region, opts ...ControllerOption) *MapController {
	c := &MapController{
		state: domain.MapViewState{
			Region:  region,
			Pins:    []domain.Pin{},
			Loading: true,
		},
		index: geoindex.New(nil),
		subs:  make(map[int]chan domain.ScreenView),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loadingTimeout > 0 {
		c.mu.Lock()
		c.loadTimer = time.AfterFunc(c.loadingTimeout, c.FinishLoading)
		c.mu.Unlock()
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *MapController) Snapshot() domain.MapViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// View returns the current state together with the advisory log.
func (c *MapController) View() domain.ScreenView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

// Closed reports whether Close has been called.
func (c *MapController) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SetPins replaces the pin set. A selected pin that is no longer present is
// deselected, which also hides the route.
func (c *MapController) SetPins(pins []domain.Pin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.setPinsLocked(pins)
	return nil
}

// BeginLoad starts a new pin load and returns its generation. Any load
// started earlier can no longer apply its result.
func (c *MapController) BeginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// ApplyPins sets pins produced by the load with the given generation. It
// reports false, and changes nothing, if the controller is closed or a newer
// load has started since.
func (c *MapController) ApplyPins(generation uint64, pins []domain.Pin) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || generation != c.generation {
		return false
	}
	c.setPinsLocked(pins)
	return true
}

func (c *MapController) setPinsLocked(pins []domain.Pin) {
	next := make([]domain.Pin, len(pins))
	copy(next, pins)

	c.state.Pins = next
	c.state.Loading = false
	c.index = geoindex.New(next)
	if c.state.SelectedPin != nil && !containsPin(next, *c.state.SelectedPin) {
		c.state.SelectedPin = nil
	}
	c.stopLoadTimer()
	c.commitLocked()
}

// SetLiveLocation publishes a new fix, or clears it when loc is nil.
// Clearing it hides the route.
func (c *MapController) SetLiveLocation(loc *domain.LiveLocation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.state.LiveLocation = copyLocation(loc)
	c.commitLocked()
	return nil
}

// FocusLiveLocation publishes a fix and centres the region on it with the
// given span, as one update.
func (c *MapController) FocusLiveLocation(loc domain.LiveLocation, span float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.state.LiveLocation = copyLocation(&loc)
	c.state.Region = domain.RegionAround(loc.Coordinate, span)
	c.commitLocked()
	return nil
}

// SelectPin selects p, or clears the selection when p is nil. Clearing hides
// the route. p must be one of the current pins.
func (c *MapController) SelectPin(p *domain.Pin) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	if p == nil {
		c.state.SelectedPin = nil
		c.commitLocked()
		return nil
	}
	if !containsPin(c.state.Pins, *p) {
		return fmt.Errorf("pin %q: %w", p.RecordID, domain.ErrNotFound)
	}
	sel := *p
	c.state.SelectedPin = &sel
	c.commitLocked()
	return nil
}

// SetRegion moves the camera.
func (c *MapController) SetRegion(r domain.Region) error {
	if !r.Valid() {
		return fmt.Errorf("region %+v: %w", r, domain.ErrValidation)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrSessionClosed
	}
	c.state.Region = r
	c.commitLocked()
	return nil
}

// ToggleRoute flips route visibility and returns the new value. Showing a
// route needs a selected pin and a live location; without them the state is
// left as is and an advisory is raised instead.
func (c *MapController) ToggleRoute() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, domain.ErrSessionClosed
	}
	if c.state.RouteVisible {
		c.state.RouteVisible = false
		c.commitLocked()
		return false, nil
	}
	if c.state.SelectedPin == nil {
		c.adviseLocked(titleError, msgSelectFirst)
		return false, nil
	}
	if c.state.LiveLocation == nil {
		c.adviseLocked(titleNoLocation, msgRouteNeedsLocation)
		return false, nil
	}
	c.state.RouteVisible = true
	c.commitLocked()
	return true, nil
}

// FinishLoading clears the loading flag. It is a no-op once loading is over.
func (c *MapController) FinishLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.state.Loading {
		return
	}
	c.state.Loading = false
	c.stopLoadTimer()
	c.commitLocked()
}

// Advise records a user-facing message. Advisories do not change the view
// state or its version.
func (c *MapController) Advise(title, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.adviseLocked(title, message)
}

func (c *MapController) adviseLocked(title, message string) {
	c.advisories = append(c.advisories, domain.Advisory{Title: title, Message: message, Time: c.now()})
	if len(c.advisories) > maxAdvisories {
		c.advisories = append([]domain.Advisory(nil), c.advisories[len(c.advisories)-maxAdvisories:]...)
	}
	metrics.Advisories.WithLabelValues(title).Inc()
	c.publishLocked()
}

// Advisories returns the advisory log, oldest first.
func (c *MapController) Advisories() []domain.Advisory {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Advisory(nil), c.advisories...)
}

// VisiblePins returns the pins inside the current region.
func (c *MapController) VisiblePins() []domain.Pin {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.InBounds(c.state.Region.Bounds())
}

// NearestPin returns the pin closest to p and its distance in meters.
func (c *MapController) NearestPin(p domain.GeoPoint) (domain.Pin, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pin, dist, ok := c.index.Nearest(p)
	if !ok {
		return domain.Pin{}, 0, fmt.Errorf("no pins: %w", domain.ErrNotFound)
	}
	return pin, dist, nil
}

// Subscribe returns a channel receiving the view after every change, and a
// function that cancels the subscription. The channel is closed when the
// controller is closed or the subscription cancelled.
func (c *MapController) Subscribe() (<-chan domain.ScreenView, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan domain.ScreenView, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.viewLocked()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close kills the controller. Later mutations are dropped and subscribers'
// channels are closed. Close is idempotent.
func (c *MapController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopLoadTimer()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
}

// commitLocked re-establishes the route invariant, derives the route overlay
// and publishes the result as a new version.
func (c *MapController) commitLocked() {
	s := &c.state
	if s.RouteVisible && (s.SelectedPin == nil || s.LiveLocation == nil) {
		s.RouteVisible = false
	}
	if s.RouteVisible {
		s.Route = &domain.RouteOverlay{
			Origin:      s.LiveLocation.Coordinate,
			Destination: s.SelectedPin.Coordinate,
			Mode:        domain.TravelModeWalking,
		}
	} else {
		s.Route = nil
	}
	s.Version++
	c.publishLocked()
}

func (c *MapController) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	view := c.viewLocked()
	for _, ch := range c.subs {
		select {
		case ch <- view:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (c *MapController) viewLocked() domain.ScreenView {
	return domain.ScreenView{
		State:      c.state.Clone(),
		Advisories: append([]domain.Advisory{}, c.advisories...),
	}
}

func (c *MapController) stopLoadTimer() {
	if c.loadTimer != nil {
		c.loadTimer.Stop()
		c.loadTimer = nil
	}
}

func containsPin(pins []domain.Pin, p domain.Pin) bool {
	for _, q := range pins {
		if q == p {
			return true
		}
	}
	return false
}

func copyLocation(loc *domain.LiveLocation) *domain.LiveLocation {
	if loc == nil {
		return nil
	}
	l := *loc
	return &l
}
