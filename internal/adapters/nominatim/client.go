// Package nominatim is a forward geocoder for Nominatim-compatible search
// endpoints (OpenStreetMap, LocationIQ and self-hosted instances).
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
)

// place is one candidate in a /search response. Coordinates arrive as
// decimal-degree strings.
type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Client implements ports.Geocoder. Every call issues exactly one GET
// /search request and never retries.
type Client struct {
	http      *fasthttp.Client
	baseURL   string
	userAgent string
	timeout   time.Duration
}

// New creates a Client for baseURL. Each request is bounded by timeout.
func New(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		http: &fasthttp.Client{
			Name:                userAgent,
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Geocode resolves address to the first match returned upstream.
// Blank input fails with domain.ErrValidation before any request is made;
// an empty result list is domain.ErrNotFound; timeouts, transport errors and
// unexpected responses are domain.ErrTransient.
func (c *Client) Geocode(ctx context.Context, address string) (domain.GeoPoint, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		metrics.GeocodeRequests.WithLabelValues("invalid").Inc()
		return domain.GeoPoint{}, fmt.Errorf("address must not be empty: %w", domain.ErrValidation)
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGeocode)
	defer span.End()
	span.SetAttributes(attribute.String("address", address))

	pt, outcome, err := c.do(ctx, address)
	metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		if outcome != "not_found" {
			span.SetStatus(codes.Error, outcome)
		}
		return domain.GeoPoint{}, err
	}
	return pt, nil
}

func (c *Client) do(ctx context.Context, address string) (domain.GeoPoint, string, error) {
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout || timeout <= 0 {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil || timeout <= 0 {
		return domain.GeoPoint{}, "transient", fmt.Errorf("geocode %q: %w: deadline exceeded before request", address, domain.ErrTransient)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")
	req.SetRequestURI(c.baseURL + "/search?" + q.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent(c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	err := c.http.DoTimeout(req, resp, timeout)
	metrics.GeocodeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.GeoPoint{}, "transient", fmt.Errorf("geocode %q: %w: %w", address, domain.ErrTransient, err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return domain.GeoPoint{}, "transient", fmt.Errorf("geocode %q: %w: upstream status %d", address, domain.ErrTransient, status)
	}

	var places []place
	if err := json.Unmarshal(resp.Body(), &places); err != nil {
		return domain.GeoPoint{}, "transient", fmt.Errorf("geocode %q: %w: decode: %w", address, domain.ErrTransient, err)
	}
	if len(places) == 0 {
		return domain.GeoPoint{}, "not_found", fmt.Errorf("geocode %q: %w", address, domain.ErrNotFound)
	}

	pt, err := places[0].point()
	if err != nil {
		return domain.GeoPoint{}, "transient", fmt.Errorf("geocode %q: %w: %w", address, domain.ErrTransient, err)
	}
	return pt, "resolved", nil
}

func (p place) point() (domain.GeoPoint, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("bad latitude %q", p.Lat)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("bad longitude %q", p.Lon)
	}
	pt := domain.GeoPoint{Lat: lat, Lon: lon}
	if !pt.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("coordinate out of range: %g,%g", lat, lon)
	}
	return pt, nil
}
