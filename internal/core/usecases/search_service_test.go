package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/usecases"
)

func TestSearchService_TimesSquare(t *testing.T) {
	geo := geocoderFromTable(map[string]domain.GeoPoint{"times square": timesSquare})
	svc := usecases.NewSearchService(geo, 0.05)

	ctrl := usecases.NewMapController(defaultRange)
	_ = ctrl.SetPins(testPins())
	before := ctrl.Snapshot()

	pt, err := svc.Search(context.Background(), ctrl, "times square")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt != timesSquare {
		t.Errorf("expected %+v, got %+v", timesSquare, pt)
	}

	after := ctrl.Snapshot()
	if after.Region != domain.RegionAround(timesSquare, 0.05) {
		t.Errorf("expected region centred on match, got %+v", after.Region)
	}
	if len(after.Pins) != len(before.Pins) {
		t.Fatalf("pins changed: %d -> %d", len(before.Pins), len(after.Pins))
	}
	for i := range after.Pins {
		if after.Pins[i] != before.Pins[i] {
			t.Errorf("pin %d changed: %+v -> %+v", i, before.Pins[i], after.Pins[i])
		}
	}
}

func TestSearchService_Failures(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		geoErr    error
		wantErr   error
		wantMsg   string
		wantCalls int32
	}{
		{"blank query", "   ", nil, domain.ErrValidation, "Please enter an address to search.", 0},
		{"not found", "atlantis", domain.ErrNotFound, domain.ErrNotFound, "Address not found.", 1},
		{"transient", "broadway", fmt.Errorf("timeout: %w", domain.ErrTransient), domain.ErrTransient, "Failed to search for the address.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &mockGeocoder{
				geocodeFn: func(ctx context.Context, address string) (domain.GeoPoint, error) {
					return domain.GeoPoint{}, tt.geoErr
				},
			}
			svc := usecases.NewSearchService(geo, 0.05)
			ctrl := usecases.NewMapController(defaultRange)

			_, err := svc.Search(context.Background(), ctrl, tt.query)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if ctrl.Snapshot().Region != defaultRange {
				t.Error("region must be unchanged")
			}
			adv := ctrl.Advisories()
			if len(adv) != 1 || adv[0].Message != tt.wantMsg {
				t.Errorf("unexpected advisories: %+v", adv)
			}
			if geo.calls.Load() != tt.wantCalls {
				t.Errorf("expected %d geocoder calls, got %d", tt.wantCalls, geo.calls.Load())
			}
		})
	}
}
