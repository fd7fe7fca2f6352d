package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
)

// Activity names as registered on the worker.
const (
	ActivityResolveAddress  = "ResolveAddress"
	ActivityPublishGeocoded = "PublishGeocoded"
)

// errTypeUnresolvable marks addresses the geocoder will never resolve.
const errTypeUnresolvable = "Unresolvable"

// GeocodeActivities holds the activity implementations for the warm-up workflow.
// Geocoder is expected to be the cached geocoder so that a successful
// resolution lands in the shared cache.
type GeocodeActivities struct {
	Geocoder  ports.Geocoder
	Publisher ports.EventPublisher
}

// ResolveAddress geocodes address. Addresses that are blank or have no match
// fail with a non-retryable error; upstream failures are retried.
func (a *GeocodeActivities) ResolveAddress(ctx context.Context, address string) (domain.GeoPoint, error) {
	pt, err := a.Geocoder.Geocode(ctx, address)
	switch {
	case err == nil:
		return pt, nil
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrValidation):
		return domain.GeoPoint{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("address %q is not resolvable", address), errTypeUnresolvable, err)
	default:
		return domain.GeoPoint{}, fmt.Errorf("geocode %q: %w", address, err)
	}
}

// PublishGeocoded announces that the record's address now resolves.
func (a *GeocodeActivities) PublishGeocoded(ctx context.Context, recordID string, pt domain.GeoPoint) error {
	if a.Publisher == nil {
		slog.Info("geocoded (no publisher)", "record_id", recordID, "lat", pt.Lat, "lon", pt.Lon)
		return nil
	}
	ev := &domain.RestroomGeocoded{RecordID: recordID, Coordinate: pt, Time: time.Now().UTC()}
	if err := a.Publisher.PublishRestroomGeocoded(ctx, ev); err != nil {
		return fmt.Errorf("publish restroom.geocoded %s: %w", recordID, err)
	}
	return nil
}
