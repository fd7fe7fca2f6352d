package valkey

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrMiss
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type countingGeocoder struct {
	calls int
	pt    domain.GeoPoint
	err   error
}

func (c *countingGeocoder) Geocode(ctx context.Context, address string) (domain.GeoPoint, error) {
	c.calls++
	return c.pt, c.err
}

func TestGeocodeCache_HitAfterMiss(t *testing.T) {
	esb := domain.GeoPoint{Lat: 40.7484, Lon: -73.9857}
	next := &countingGeocoder{pt: esb}
	cache := newMemCache()
	g := NewGeocodeCache(next, cache, 3600)

	for _, addr := range []string{"350 5th Ave, New York", "  350 5TH AVE,   new york "} {
		pt, err := g.Geocode(context.Background(), addr)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pt != esb {
			t.Errorf("expected %+v, got %+v", esb, pt)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", next.calls)
	}
	if cache.ttls[GeocodeKey("350 5th ave, new york")] != 3600 {
		t.Error("expected entry stored with ttl")
	}
}

func TestGeocodeCache_FailuresNotCached(t *testing.T) {
	next := &countingGeocoder{err: domain.ErrNotFound}
	cache := newMemCache()
	g := NewGeocodeCache(next, cache, 3600)

	for i := 0; i < 2; i++ {
		if _, err := g.Geocode(context.Background(), "atlantis"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", next.calls)
	}
	if len(cache.data) != 0 {
		t.Errorf("expected nothing cached, got %v", cache.data)
	}
}

func TestGeocodeCache_CorruptEntryReplaced(t *testing.T) {
	esb := domain.GeoPoint{Lat: 40.7484, Lon: -73.9857}
	next := &countingGeocoder{pt: esb}
	cache := newMemCache()
	cache.data[GeocodeKey("esb")] = []byte("{not json")
	g := NewGeocodeCache(next, cache, 60)

	pt, err := g.Geocode(context.Background(), "esb")
	if err != nil || pt != esb {
		t.Fatalf("expected %+v, got %+v %v", esb, pt, err)
	}
	if next.calls != 1 {
		t.Errorf("expected upstream call, got %d", next.calls)
	}
}

func TestGeocodeCache_BlankBypassesCache(t *testing.T) {
	next := &countingGeocoder{err: domain.ErrValidation}
	g := NewGeocodeCache(next, newMemCache(), 60)

	if _, err := g.Geocode(context.Background(), "   "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
