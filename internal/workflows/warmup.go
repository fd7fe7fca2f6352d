package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/poonyc/internal/core/domain"
)

// WarmupInput is the input for the geocode warm-up workflow.
type WarmupInput struct {
	RecordID string
	Address  string
}

// WorkflowID returns the workflow ID used for a record, so a redelivered
// creation event does not start a second run.
func WorkflowID(recordID string) string {
	return "geocode-warmup-" + recordID
}

// GeocodeWarmupWorkflow resolves a newly created record's address ahead of
// the next pin load and tells live sessions to reload. A record whose address
// cannot be resolved ends the workflow successfully; it simply has no pin.
func GeocodeWarmupWorkflow(ctx workflow.Context, input WarmupInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting geocode warm-up", "recordID", input.RecordID)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	var pt domain.GeoPoint
	err := workflow.ExecuteActivity(ctx, ActivityResolveAddress, input.Address).Get(ctx, &pt)
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() == errTypeUnresolvable {
			logger.Info("Address not resolvable, no pin", "recordID", input.RecordID)
			return nil
		}
		return err
	}

	if err := workflow.ExecuteActivity(ctx, ActivityPublishGeocoded, input.RecordID, pt).Get(ctx, nil); err != nil {
		return err
	}

	logger.Info("Geocode warm-up done", "recordID", input.RecordID, "lat", pt.Lat, "lon", pt.Lon)
	return nil
}
