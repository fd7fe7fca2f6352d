package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
)

// SessionRegistry keeps the open explore sessions of this process.
type SessionRegistry struct {
	cfg         SessionConfig
	pins        *PinResolver
	search      *SearchService
	locator     ports.RegionLocator
	newProvider func() ports.LocationProvider

	mu       sync.RWMutex
	sessions map[string]*ExploreSession
}

// NewSessionRegistry creates a registry. newProvider builds the location
// provider for each new session; locator may be nil.
func NewSessionRegistry(cfg SessionConfig, pins *PinResolver, search *SearchService, locator ports.RegionLocator, newProvider func() ports.LocationProvider) *SessionRegistry {
	return &SessionRegistry{
		cfg:         cfg,
		pins:        pins,
		search:      search,
		locator:     locator,
		newProvider: newProvider,
		sessions:    make(map[string]*ExploreSession),
	}
}

// Create opens and starts a session. When clientIP resolves through the
// region locator the session starts over that position instead of the
// configured default.
func (r *SessionRegistry) Create(clientIP string) *ExploreSession {
	region := r.cfg.DefaultRegion
	if r.locator != nil && clientIP != "" {
		if pt, ok := r.locator.Locate(clientIP); ok {
			region = domain.RegionAround(pt, r.cfg.DefaultRegion.SpanLat)
		}
	}

	s := NewExploreSession(uuid.NewString(), region, r.cfg, r.newProvider(), r.pins, r.search)

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()

	s.Start()
	slog.Info("explore session opened", "session_id", s.ID(), "center", region.Center)
	return s
}

// Get returns the session with the given id.
func (r *SessionRegistry) Get(id string) (*ExploreSession, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Close tears down and forgets the session with the given id.
func (r *SessionRegistry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	s.Close()
	metrics.ActiveSessions.Dec()
	slog.Info("explore session closed", "session_id", id)
	return nil
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ReloadAll re-runs the pin pipeline in every open session.
func (r *SessionRegistry) ReloadAll() {
	for _, s := range r.list() {
		s.ReloadAsync()
	}
}

// Sweep closes sessions unused for longer than idle and returns how many it closed.
func (r *SessionRegistry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	n := 0
	for _, s := range r.list() {
		if s.LastSeen().Before(cutoff) {
			if err := r.Close(s.ID()); err == nil {
				n++
			}
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx ends.
func (r *SessionRegistry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				slog.Info("closed idle explore sessions", "count", n)
			}
		}
	}
}

// CloseAll tears down every session.
func (r *SessionRegistry) CloseAll() {
	for _, s := range r.list() {
		_ = r.Close(s.ID())
	}
}

func (r *SessionRegistry) list() []*ExploreSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ExploreSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
