package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

func TestReportedProvider_PermissionWaits(t *testing.T) {
	p := NewReportedProvider()

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.ReportPermission(true)
		p.ReportPermission(false) // ignored
	}()

	status, err := p.RequestPermission(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != domain.PermissionGranted {
		t.Errorf("expected granted, got %s", status)
	}
}

func TestReportedProvider_FixLatestWins(t *testing.T) {
	p := NewReportedProvider()
	p.ReportFix(domain.LiveLocation{Coordinate: domain.GeoPoint{Lat: 1, Lon: 1}})
	p.ReportFix(domain.LiveLocation{Coordinate: domain.GeoPoint{Lat: 2, Lon: 2}})

	loc, err := p.CurrentPosition(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Coordinate.Lat != 2 {
		t.Errorf("expected latest fix, got %+v", loc)
	}
}

func TestReportedProvider_ContextEnds(t *testing.T) {
	p := NewReportedProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := p.RequestPermission(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if _, err := p.CurrentPosition(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
