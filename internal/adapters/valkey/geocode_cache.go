package valkey

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
)

const geocodeKeyPrefix = "geocode:"

// GeocodeCache puts a cache in front of a ports.Geocoder. Only successful
// lookups are stored; not-found and failed lookups always go upstream.
type GeocodeCache struct {
	next  ports.Geocoder
	cache ports.CacheService
	ttl   int
}

// NewGeocodeCache wraps next. ttlSeconds bounds how long a coordinate is reused.
func NewGeocodeCache(next ports.Geocoder, cache ports.CacheService, ttlSeconds int) *GeocodeCache {
	return &GeocodeCache{next: next, cache: cache, ttl: ttlSeconds}
}

// Geocode returns the cached coordinate for address or asks the wrapped geocoder.
func (g *GeocodeCache) Geocode(ctx context.Context, address string) (domain.GeoPoint, error) {
	key := GeocodeKey(address)
	if key == geocodeKeyPrefix {
		return g.next.Geocode(ctx, address)
	}

	if data, err := g.cache.Get(ctx, key); err == nil {
		var pt domain.GeoPoint
		if err := json.Unmarshal(data, &pt); err == nil && pt.Valid() {
			metrics.CacheHits.WithLabelValues("geocode").Inc()
			return pt, nil
		}
		_ = g.cache.Delete(ctx, key)
	}
	metrics.CacheMisses.WithLabelValues("geocode").Inc()

	pt, err := g.next.Geocode(ctx, address)
	if err != nil {
		return domain.GeoPoint{}, err
	}

	if data, err := json.Marshal(pt); err == nil {
		if err := g.cache.Set(ctx, key, data, g.ttl); err != nil {
			slog.Warn("failed to cache geocode", "address", address, "error", err)
		}
	}
	return pt, nil
}

// GeocodeKey is the cache key for address: case and runs of whitespace are
// ignored so trivially different spellings share an entry.
func GeocodeKey(address string) string {
	return geocodeKeyPrefix + strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
