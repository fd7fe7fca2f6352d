package ports

import (
	"context"
	"io"
	"time"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// Geocoder resolves a free-text address to a coordinate.
// Errors wrap domain.ErrValidation, domain.ErrNotFound or domain.ErrTransient.
// Implementations issue at most one upstream request per call and never retry.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (domain.GeoPoint, error)
}

// LocationProvider is the device's permission prompt and position source.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (domain.PermissionStatus, error)
	CurrentPosition(ctx context.Context) (domain.LiveLocation, error)
}

// LocationReporter is implemented by providers that are fed from outside,
// e.g. by a client posting its permission decision and fixes.
type LocationReporter interface {
	ReportPermission(granted bool)
	ReportFix(loc domain.LiveLocation)
}

// RegionLocator maps a client network address to a coarse position.
type RegionLocator interface {
	Locate(ip string) (domain.GeoPoint, bool)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRestroomCreated(ctx context.Context, ev *domain.RestroomCreated) error
	PublishRestroomGeocoded(ctx context.Context, ev *domain.RestroomGeocoded) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeRestroomCreated(ctx context.Context, handler func(ctx context.Context, ev *domain.RestroomCreated) error) error
	SubscribeRestroomGeocoded(ctx context.Context, handler func(ctx context.Context, ev *domain.RestroomGeocoded) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// PhotoStore keeps restroom photos in object storage.
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
