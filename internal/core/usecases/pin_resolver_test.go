package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/usecases"
)

func TestPinResolver_ResolveAll_EmpireState(t *testing.T) {
	geo := geocoderFromTable(map[string]domain.GeoPoint{
		"350 5th Ave, New York, NY": empireState,
	})
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, time.Second)

	pins := svc.ResolveAll(context.Background(), []domain.RestroomRecord{
		{ID: "1", Name: "Empire State", Address: "350 5th Ave, New York, NY"},
		{ID: "2", Name: "Nowhere", Address: "not-a-real-place-xyz"},
	})

	if len(pins) != 1 {
		t.Fatalf("expected 1 pin, got %d", len(pins))
	}
	if pins[0].Coordinate != empireState {
		t.Errorf("expected %+v, got %+v", empireState, pins[0].Coordinate)
	}
	if pins[0].RecordID != "1" || pins[0].Name != "Empire State" {
		t.Errorf("unexpected pin: %+v", pins[0])
	}
}

func TestPinResolver_ResolveAll_Empty(t *testing.T) {
	geo := &mockGeocoder{}
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, time.Second)

	pins := svc.ResolveAll(context.Background(), nil)
	if pins == nil || len(pins) != 0 {
		t.Errorf("expected empty non-nil pins, got %v", pins)
	}
	if geo.calls.Load() != 0 {
		t.Errorf("expected no geocoder calls, got %d", geo.calls.Load())
	}
}

func TestPinResolver_ResolveAll_TransientIsolated(t *testing.T) {
	geo := &mockGeocoder{
		geocodeFn: func(ctx context.Context, address string) (domain.GeoPoint, error) {
			if address == "addr-2" {
				return domain.GeoPoint{}, fmt.Errorf("upstream 429: %w", domain.ErrTransient)
			}
			var n float64
			fmt.Sscanf(address, "addr-%g", &n)
			return domain.GeoPoint{Lat: 40 + n/100, Lon: -74}, nil
		},
	}
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, time.Second)

	var records []domain.RestroomRecord
	for i := 0; i < 5; i++ {
		records = append(records, domain.RestroomRecord{ID: fmt.Sprint(i), Address: fmt.Sprintf("addr-%d", i)})
	}

	pins := svc.ResolveAll(context.Background(), records)
	if len(pins) != 4 {
		t.Fatalf("expected 4 pins, got %d", len(pins))
	}
	if geo.calls.Load() != 5 {
		t.Errorf("expected 5 geocoder calls, got %d", geo.calls.Load())
	}
	for _, p := range pins {
		if p.RecordID == "2" {
			t.Error("failed record must not produce a pin")
		}
	}
}

func TestPinResolver_ResolveAll_InputOrder(t *testing.T) {
	// Later records answer first; output must still follow input order.
	geo := &mockGeocoder{
		geocodeFn: func(ctx context.Context, address string) (domain.GeoPoint, error) {
			var n int
			fmt.Sscanf(address, "addr-%d", &n)
			time.Sleep(time.Duration(5-n) * 5 * time.Millisecond)
			return domain.GeoPoint{Lat: float64(n), Lon: float64(n)}, nil
		},
	}
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, time.Second)

	var records []domain.RestroomRecord
	for i := 0; i < 5; i++ {
		records = append(records, domain.RestroomRecord{ID: fmt.Sprint(i), Address: fmt.Sprintf("addr-%d", i)})
	}

	for run := 0; run < 3; run++ {
		pins := svc.ResolveAll(context.Background(), records)
		if len(pins) != 5 {
			t.Fatalf("expected 5 pins, got %d", len(pins))
		}
		for i, p := range pins {
			if p.RecordID != fmt.Sprint(i) {
				t.Fatalf("run %d: pin %d has record %s", run, i, p.RecordID)
			}
		}
	}
}

func TestPinResolver_ResolveAll_StuckAddressTimesOut(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	geo := &mockGeocoder{
		geocodeFn: func(ctx context.Context, address string) (domain.GeoPoint, error) {
			if address == "stuck" {
				<-release // ignores ctx on purpose
			}
			return empireState, nil
		},
	}
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, 50*time.Millisecond)

	start := time.Now()
	pins := svc.ResolveAll(context.Background(), []domain.RestroomRecord{
		{ID: "1", Address: "350 5th Ave"},
		{ID: "2", Address: "stuck"},
	})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("barrier waited %v on a stuck address", elapsed)
	}
	if len(pins) != 1 || pins[0].RecordID != "1" {
		t.Errorf("expected only record 1, got %+v", pins)
	}
}

func TestPinResolver_ResolveAll_BlankAddressSkipsGeocoder(t *testing.T) {
	geo := &mockGeocoder{}
	svc := usecases.NewPinResolver(&mockRestroomRepo{}, geo, time.Second)

	pins := svc.ResolveAll(context.Background(), []domain.RestroomRecord{{ID: "1", Address: "   "}})
	if len(pins) != 0 {
		t.Errorf("expected no pins, got %d", len(pins))
	}
	if geo.calls.Load() != 0 {
		t.Errorf("expected no geocoder calls, got %d", geo.calls.Load())
	}
}

func TestPinResolver_Load_SourceFailure(t *testing.T) {
	repo := &mockRestroomRepo{
		listFn: func(ctx context.Context) ([]domain.RestroomRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	geo := &mockGeocoder{}
	svc := usecases.NewPinResolver(repo, geo, time.Second)

	_, err := svc.Load(context.Background())
	if !errors.Is(err, domain.ErrSourceFailure) {
		t.Fatalf("expected ErrSourceFailure, got %v", err)
	}
	if geo.calls.Load() != 0 {
		t.Errorf("expected no geocoder calls, got %d", geo.calls.Load())
	}
}

func TestPinResolver_Load(t *testing.T) {
	repo := &mockRestroomRepo{
		listFn: func(ctx context.Context) ([]domain.RestroomRecord, error) {
			return []domain.RestroomRecord{
				{ID: "a", Name: "Bryant Park", Address: "Bryant Park", Description: "clean"},
			}, nil
		},
	}
	geo := geocoderFromTable(map[string]domain.GeoPoint{"Bryant Park": {Lat: 40.7536, Lon: -73.9832}})
	svc := usecases.NewPinResolver(repo, geo, time.Second)

	pins, err := svc.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pins) != 1 || pins[0].Description != "clean" {
		t.Errorf("unexpected pins: %+v", pins)
	}
}
