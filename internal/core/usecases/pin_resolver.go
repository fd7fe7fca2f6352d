package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/poonyc/internal/core/domain"
	"github.com/samirrijal/poonyc/internal/core/ports"
	"github.com/samirrijal/poonyc/internal/pkg/metrics"
	"github.com/samirrijal/poonyc/internal/pkg/telemetry"
)

// outcome tags what happened to one record during resolution.
type outcome int

const (
	outcomeResolved outcome = iota
	outcomeNotFound
	outcomeFailed
	outcomeInvalid
)

func (o outcome) String() string {
	switch o {
	case outcomeResolved:
		return "resolved"
	case outcomeNotFound:
		return "not_found"
	case outcomeInvalid:
		return "invalid"
	default:
		return "failed"
	}
}

type branchResult struct {
	outcome outcome
	point   domain.GeoPoint
	err     error
}

// PinResolver turns restroom records into map pins by geocoding every
// address concurrently.
type PinResolver struct {
	records  ports.RestroomRepository
	geocoder ports.Geocoder
	timeout  time.Duration
}

// NewPinResolver creates a PinResolver. Each address gets at most timeout to
// resolve; zero means no per-address limit beyond the caller's context.
func NewPinResolver(records ports.RestroomRepository, geocoder ports.Geocoder, timeout time.Duration) *PinResolver {
	return &PinResolver{records: records, geocoder: geocoder, timeout: timeout}
}

// Load reads every record from the record source and resolves it. A record
// source failure is returned wrapped in domain.ErrSourceFailure.
func (r *PinResolver) Load(ctx context.Context) ([]domain.Pin, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPipelineLoad)
	defer span.End()

	records, err := r.records.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list restrooms")
		return nil, fmt.Errorf("list restrooms: %w: %w", domain.ErrSourceFailure, err)
	}
	return r.ResolveAll(ctx, records), nil
}

// ResolveAll geocodes every record's address concurrently and waits for all
// of them to settle. Records that cannot be resolved are left out; the
// returned pins follow the order of records.
func (r *PinResolver) ResolveAll(ctx context.Context, records []domain.RestroomRecord) []domain.Pin {
	if len(records) == 0 {
		return []domain.Pin{}
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPipelineResolve)
	defer span.End()

	start := time.Now()
	metrics.PipelineRuns.Inc()

	results := make([]branchResult, len(records))
	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.resolveOne(ctx, records[i].Address)
		}(i)
	}
	wg.Wait()

	pins := make([]domain.Pin, 0, len(records))
	for i, res := range results {
		rec := records[i]
		metrics.PipelineRecords.WithLabelValues(res.outcome.String()).Inc()

		switch res.outcome {
		case outcomeResolved:
			pins = append(pins, domain.Pin{
				RecordID:    rec.ID,
				Name:        rec.Name,
				Coordinate:  res.point,
				Description: rec.Description,
			})
		case outcomeNotFound:
			slog.Debug("address not found, skipping", "record_id", rec.ID, "address", rec.Address)
		default:
			slog.Warn("failed to geocode address, skipping",
				"record_id", rec.ID, "address", rec.Address, "outcome", res.outcome.String(), "error", res.err)
		}
	}

	metrics.PipelineDuration.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("pins", len(pins)),
	)
	return pins
}

// resolveOne runs a single geocode. The branch gives up when its timeout or
// the caller's context ends, whether or not the geocoder honours cancellation.
func (r *PinResolver) resolveOne(ctx context.Context, address string) branchResult {
	if strings.TrimSpace(address) == "" {
		return branchResult{outcome: outcomeInvalid, err: fmt.Errorf("empty address: %w", domain.ErrValidation)}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan branchResult, 1)
	go func() {
		pt, err := r.geocoder.Geocode(ctx, address)
		done <- classify(pt, err)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return branchResult{outcome: outcomeFailed, err: fmt.Errorf("geocode %q: %w: %w", address, domain.ErrTransient, ctx.Err())}
	}
}

func classify(pt domain.GeoPoint, err error) branchResult {
	switch {
	case err == nil:
		return branchResult{outcome: outcomeResolved, point: pt}
	case errors.Is(err, domain.ErrNotFound):
		return branchResult{outcome: outcomeNotFound, err: err}
	case errors.Is(err, domain.ErrValidation):
		return branchResult{outcome: outcomeInvalid, err: err}
	default:
		return branchResult{outcome: outcomeFailed, err: err}
	}
}
