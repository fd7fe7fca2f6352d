package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
)

// TrackerState is a state of the live location state machine.
type TrackerState int

const (
	TrackerUnrequested TrackerState = iota
	TrackerPermissionRequested
	TrackerGranted
	TrackerDenied
	TrackerTracking
	TrackerLost
)

func (s TrackerState) String() string {
	switch s {
	case TrackerPermissionRequested:
		return "permission_requested"
	case TrackerGranted:
		return "granted"
	case TrackerDenied:
		return "denied"
	case TrackerTracking:
		return "tracking"
	case TrackerLost:
		return "lost"
	default:
		return "unrequested"
	}
}

// LocationTracker drives the permission prompt and feeds position fixes into
// a MapController. Denial is terminal: the tracker never asks again.
//
//	Unrequested -> PermissionRequested -> Granted | Denied
//	Granted -> Tracking -> Tracking | Lost
//	Lost -> Tracking
type LocationTracker struct {
	provider   ports.LocationProvider
	ctrl       *MapController
	focusSpan  float64
	fixTimeout time.Duration

	// pushMu orders state changes with the controller writes that follow them.
	pushMu sync.Mutex

	mu       sync.Mutex
	state    TrackerState
	centered bool
	fixing   bool
}

// TrackerOption configures a LocationTracker.
type TrackerOption func(*LocationTracker)

// WithFixTimeout bounds how long RequestAndStart waits for the first fix
// once permission is granted.
func WithFixTimeout(d time.Duration) TrackerOption {
	return func(t *LocationTracker) { t.fixTimeout = d }
}

// NewLocationTracker creates a tracker. The first fix centres ctrl on the
// device with focusSpan.
func NewLocationTracker(provider ports.LocationProvider, ctrl *MapController, focusSpan float64, opts ...TrackerOption) *LocationTracker {
	t := &LocationTracker{provider: provider, ctrl: ctrl, focusSpan: focusSpan}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// State returns the current state.
func (t *LocationTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RequestAndStart asks for permission if it has not been decided, then takes
// one fix. Denial raises a single advisory and returns
// domain.ErrPermissionDenied, as does every later call. A failed fix raises an
// advisory and leaves the tracker Granted so a later fix can still start
// tracking. With WithFixTimeout set, a fix that never arrives counts as failed.
func (t *LocationTracker) RequestAndStart(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLocationStart)
	defer span.End()

	t.mu.Lock()
	switch t.state {
	case TrackerDenied:
		t.mu.Unlock()
		return domain.ErrPermissionDenied
	case TrackerPermissionRequested:
		t.mu.Unlock()
		return fmt.Errorf("permission request already pending: %w", domain.ErrValidation)
	case TrackerTracking, TrackerLost:
		t.mu.Unlock()
		return nil
	}
	ask := t.state == TrackerUnrequested
	if ask {
		t.state = TrackerPermissionRequested
	}
	t.mu.Unlock()

	if ask {
		status, err := t.provider.RequestPermission(ctx)
		if err != nil {
			t.setState(TrackerUnrequested)
			span.RecordError(err)
			span.SetStatus(codes.Error, "permission request failed")
			t.ctrl.Advise(titleError, msgFixFailed)
			return fmt.Errorf("request permission: %w", err)
		}
		span.SetAttributes(attribute.String("permission", status.String()))

		// An undetermined answer is treated as a refusal.
		if status != domain.PermissionGranted {
			t.setState(TrackerDenied)
			t.ctrl.Advise(titlePermissionDenied, msgPermissionRequired)
			slog.Info("location permission denied", "status", status.String())
			return domain.ErrPermissionDenied
		}
	}

	// Granted and fixing flip together so Update never sees a granted
	// tracker that is about to fetch its own first fix.
	t.mu.Lock()
	if ask {
		t.state = TrackerGranted
	}
	t.fixing = true
	t.mu.Unlock()

	fixCtx := ctx
	if t.fixTimeout > 0 {
		var cancel context.CancelFunc
		fixCtx, cancel = context.WithTimeout(ctx, t.fixTimeout)
		defer cancel()
	}
	loc, err := t.provider.CurrentPosition(fixCtx)

	t.mu.Lock()
	t.fixing = false
	t.mu.Unlock()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no fix")
		t.ctrl.Advise(titleError, msgFixFailed)
		slog.Warn("failed to get position fix", "error", err)
		return fmt.Errorf("current position: %w: %w", domain.ErrTransient, err)
	}
	return t.apply(loc)
}

// Update feeds a later fix. It never recentres the map once the initial
// centring has happened. Fixes arriving while permission is pending or a fix
// request is in flight are left to that request.
func (t *LocationTracker) Update(loc domain.LiveLocation) error {
	t.mu.Lock()
	state, fixing := t.state, t.fixing
	t.mu.Unlock()

	switch {
	case state == TrackerDenied:
		return domain.ErrPermissionDenied
	case state == TrackerUnrequested:
		return fmt.Errorf("location tracking not started: %w", domain.ErrValidation)
	case state == TrackerPermissionRequested || fixing:
		return nil
	}
	return t.apply(loc)
}

// Lose marks the fix as lost and clears the live location, which also hides
// any visible route.
func (t *LocationTracker) Lose() error {
	t.pushMu.Lock()
	defer t.pushMu.Unlock()

	t.mu.Lock()
	if t.state != TrackerTracking {
		t.mu.Unlock()
		return nil
	}
	t.state = TrackerLost
	t.mu.Unlock()

	return t.ctrl.SetLiveLocation(nil)
}

func (t *LocationTracker) apply(loc domain.LiveLocation) error {
	if !loc.Coordinate.Valid() {
		return fmt.Errorf("fix %+v: %w", loc.Coordinate, domain.ErrValidation)
	}

	t.pushMu.Lock()
	defer t.pushMu.Unlock()

	t.mu.Lock()
	if t.state == TrackerDenied {
		t.mu.Unlock()
		return domain.ErrPermissionDenied
	}
	t.state = TrackerTracking
	first := !t.centered
	t.centered = true
	t.mu.Unlock()

	if first {
		return t.ctrl.FocusLiveLocation(loc, t.focusSpan)
	}
	return t.ctrl.SetLiveLocation(&loc)
}

func (t *LocationTracker) setState(s TrackerState) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}
