// Package device provides location providers for explore sessions whose
// device lives on the other side of an API: the client answers the
// permission prompt and streams fixes, and the provider hands them to
// whoever is waiting.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// ReportedProvider implements ports.LocationProvider and
// ports.LocationReporter.
type ReportedProvider struct {
	mu         sync.Mutex
	permission domain.PermissionStatus
	decided    chan struct{}
	last       *domain.LiveLocation
	fixed      chan struct{}
}

// NewReportedProvider creates a provider with no decision and no fix.
func NewReportedProvider() *ReportedProvider {
	return &ReportedProvider{
		decided: make(chan struct{}),
		fixed:   make(chan struct{}),
	}
}

// RequestPermission waits for the client's answer. Only the first answer counts.
func (p *ReportedProvider) RequestPermission(ctx context.Context) (domain.PermissionStatus, error) {
	select {
	case <-p.decided:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.permission, nil
	case <-ctx.Done():
		return domain.PermissionUndetermined, fmt.Errorf("waiting for permission: %w", ctx.Err())
	}
}

// CurrentPosition returns the latest reported fix, waiting for one if none
// has arrived yet.
func (p *ReportedProvider) CurrentPosition(ctx context.Context) (domain.LiveLocation, error) {
	p.mu.Lock()
	fixed := p.fixed
	p.mu.Unlock()

	select {
	case <-fixed:
		p.mu.Lock()
		defer p.mu.Unlock()
		return *p.last, nil
	case <-ctx.Done():
		return domain.LiveLocation{}, fmt.Errorf("waiting for fix: %w", ctx.Err())
	}
}

// ReportPermission records the client's answer to the permission prompt.
func (p *ReportedProvider) ReportPermission(granted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.decided:
		return
	default:
	}
	if granted {
		p.permission = domain.PermissionGranted
	} else {
		p.permission = domain.PermissionDenied
	}
	close(p.decided)
}

// ReportFix records a position fix.
func (p *ReportedProvider) ReportFix(loc domain.LiveLocation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := loc
	p.last = &l
	select {
	case <-p.fixed:
	default:
		close(p.fixed)
	}
}
