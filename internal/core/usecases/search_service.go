package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
)

// SearchService resolves free-text queries typed by the user and moves the
// map to the match.
type SearchService struct {
	geocoder ports.Geocoder
	span     float64
}

// NewSearchService creates a SearchService that zooms to span degrees around
// each match.
func NewSearchService(geocoder ports.Geocoder, span float64) *SearchService {
	return &SearchService{geocoder: geocoder, span: span}
}

// Resolve geocodes query. Blank queries fail with domain.ErrValidation
// without reaching the geocoder.
func (s *SearchService) Resolve(ctx context.Context, query string) (domain.GeoPoint, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.GeoPoint{}, fmt.Errorf("search query must not be empty: %w", domain.ErrValidation)
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSearch)
	defer span.End()
	span.SetAttributes(attribute.String("query", query))

	pt, err := s.geocoder.Geocode(ctx, query)
	if err != nil {
		span.RecordError(err)
		return domain.GeoPoint{}, err
	}
	return pt, nil
}

// Search resolves query and centres ctrl on the match. On failure the region
// is left alone and an advisory explains why. Pins are never touched.
func (s *SearchService) Search(ctx context.Context, ctrl *MapController, query string) (domain.GeoPoint, error) {
	pt, err := s.Resolve(ctx, query)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		ctrl.Advise(titleError, msgEmptySearch)
		return domain.GeoPoint{}, err
	case errors.Is(err, domain.ErrNotFound):
		ctrl.Advise(titleNoResults, msgAddressNotFound)
		return domain.GeoPoint{}, err
	default:
		ctrl.Advise(titleError, msgSearchFailed)
		return domain.GeoPoint{}, err
	}

	if err := ctrl.SetRegion(domain.RegionAround(pt, s.span)); err != nil {
		return domain.GeoPoint{}, err
	}
	return pt, nil
}
