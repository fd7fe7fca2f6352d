package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
)

// SessionConfig holds the explore screen's region defaults.
type SessionConfig struct {
	DefaultRegion  domain.Region
	FocusSpan      float64
	LoadingTimeout time.Duration
	// FixTimeout bounds the wait for the first position fix; zero waits
	// until the session closes.
	FixTimeout time.Duration
}

// ExploreSession is one explore screen: a MapController fed by the pin
// pipeline, a location tracker and address search. Closing the session
// cancels everything it started; results that arrive afterwards are dropped.
type ExploreSession struct {
	id       string
	ctrl     *MapController
	tracker  *LocationTracker
	provider ports.LocationProvider
	pins     *PinResolver
	search   *SearchService
	cfg      SessionConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastSeen time.Time
	closing  bool
	now      func() time.Time
}

// NewExploreSession creates a session showing region. Nothing runs until Start.
func NewExploreSession(id string, region domain.Region, cfg SessionConfig, provider ports.LocationProvider, pins *PinResolver, search *SearchService) *ExploreSession {
	ctx, cancel := context.WithCancel(context.Background())
	ctrl := NewMapController(region, WithLoadingTimeout(cfg.LoadingTimeout))
	return &ExploreSession{
		id:       id,
		ctrl:     ctrl,
		tracker:  NewLocationTracker(provider, ctrl, cfg.FocusSpan, WithFixTimeout(cfg.FixTimeout)),
		provider: provider,
		pins:     pins,
		search:   search,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		lastSeen: time.Now(),
		now:      time.Now,
	}
}

func (s *ExploreSession) ID() string { return s.id }
func (s *ExploreSession) Controller() *MapController { return s.ctrl }
func (s *ExploreSession) Tracker() *LocationTracker { return s.tracker }
func (s *ExploreSession) Context() context.Context { return s.ctx }
func (s *ExploreSession) View() domain.ScreenView { return s.ctrl.View() }
func (s *ExploreSession) Snapshot() domain.MapViewState { return s.ctrl.Snapshot() }

// Start kicks off the location request and the first pin load concurrently.
func (s *ExploreSession) Start() {
	s.goBackground(func(ctx context.Context) {
		if err := s.tracker.RequestAndStart(ctx); err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
			slog.Warn("location start failed", "session_id", s.id, "error", err)
		}
	})
	s.ReloadAsync()
}

// Reload runs the pin pipeline and applies the result if no newer load has
// started and the session is still open. It stops early when either ctx or
// the session ends.
func (s *ExploreSession) Reload(ctx context.Context) error {
	if s.ctrl.Closed() {
		return domain.ErrSessionClosed
	}
	ctx, stop := context.WithCancel(ctx)
	defer stop()
	unhook := context.AfterFunc(s.ctx, stop)
	defer unhook()

	gen := s.ctrl.BeginLoad()
	pins, err := s.pins.Load(ctx)
	if err != nil {
		if s.ctrl.Closed() {
			return domain.ErrSessionClosed
		}
		s.ctrl.Advise(titleError, msgPinsFailed)
		s.ctrl.FinishLoading()
		slog.Error("failed to load pins", "session_id", s.id, "generation", gen, "error", err)
		return err
	}

	if !s.ctrl.ApplyPins(gen, pins) {
		slog.Debug("discarding stale pin load", "session_id", s.id, "generation", gen)
		if s.ctrl.Closed() {
			return domain.ErrSessionClosed
		}
	}
	return nil
}

// ReloadAsync runs Reload in the background under the session's context.
func (s *ExploreSession) ReloadAsync() {
	s.goBackground(func(ctx context.Context) {
		_ = s.Reload(ctx)
	})
}

// Search centres the map on the address matching query.
func (s *ExploreSession) Search(ctx context.Context, query string) (domain.GeoPoint, error) {
	s.touch()
	return s.search.Search(ctx, s.ctrl, query)
}

// Recenter moves the map back onto the live location.
func (s *ExploreSession) Recenter() error {
	s.touch()
	live := s.ctrl.Snapshot().LiveLocation
	if live == nil {
		s.ctrl.Advise(titleError, msgRecenterFailed)
		return fmt.Errorf("no live location: %w", domain.ErrNotFound)
	}
	return s.ctrl.SetRegion(domain.RegionAround(live.Coordinate, s.cfg.FocusSpan))
}

// SelectIndex selects the pin at idx in the current pin list, or clears the
// selection when idx is nil.
func (s *ExploreSession) SelectIndex(idx *int) error {
	s.touch()
	if idx == nil {
		return s.ctrl.SelectPin(nil)
	}
	pins := s.ctrl.Snapshot().Pins
	if *idx < 0 || *idx >= len(pins) {
		return fmt.Errorf("pin index %d out of range: %w", *idx, domain.ErrNotFound)
	}
	return s.ctrl.SelectPin(&pins[*idx])
}

// ToggleRoute flips the walking route overlay.
func (s *ExploreSession) ToggleRoute() (bool, error) {
	s.touch()
	return s.ctrl.ToggleRoute()
}

// SetRegion moves the camera to r.
func (s *ExploreSession) SetRegion(r domain.Region) error {
	s.touch()
	return s.ctrl.SetRegion(r)
}

// ReportPermission relays the client's answer to the permission prompt.
func (s *ExploreSession) ReportPermission(granted bool) error {
	s.touch()
	if s.ctrl.Closed() {
		return domain.ErrSessionClosed
	}
	r, ok := s.provider.(ports.LocationReporter)
	if !ok {
		return fmt.Errorf("location provider does not accept reports: %w", domain.ErrValidation)
	}
	r.ReportPermission(granted)
	return nil
}

// ReportFix relays a position fix from the client.
func (s *ExploreSession) ReportFix(loc domain.LiveLocation) error {
	s.touch()
	if s.ctrl.Closed() {
		return domain.ErrSessionClosed
	}
	if !loc.Coordinate.Valid() {
		return fmt.Errorf("fix %+v: %w", loc.Coordinate, domain.ErrValidation)
	}
	if loc.Timestamp.IsZero() {
		loc.Timestamp = s.now()
	}
	if r, ok := s.provider.(ports.LocationReporter); ok {
		r.ReportFix(loc)
	}
	return s.tracker.Update(loc)
}

// LoseFix reports that the device no longer has a position.
func (s *ExploreSession) LoseFix() error {
	s.touch()
	return s.tracker.Lose()
}

// VisiblePins returns the pins inside the current region.
func (s *ExploreSession) VisiblePins() []domain.Pin {
	s.touch()
	return s.ctrl.VisiblePins()
}

// NearestPin returns the pin closest to the live location.
func (s *ExploreSession) NearestPin() (domain.Pin, float64, error) {
	s.touch()
	live := s.ctrl.Snapshot().LiveLocation
	if live == nil {
		return domain.Pin{}, 0, fmt.Errorf("no live location: %w", domain.ErrNotFound)
	}
	return s.ctrl.NearestPin(live.Coordinate)
}

// LastSeen returns when the session was last used.
func (s *ExploreSession) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Close tears the session down and waits for its background work to stop.
func (s *ExploreSession) Close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.cancel()
	s.ctrl.Close()
	s.wg.Wait()
}

func (s *ExploreSession) touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

func (s *ExploreSession) goBackground(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}
