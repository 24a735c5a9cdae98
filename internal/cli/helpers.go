package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/liftwatch/liftwatch/internal/adapters/slack"
	"github.com/liftwatch/liftwatch/internal/domain"
	"github.com/liftwatch/liftwatch/internal/engine"
	"github.com/liftwatch/liftwatch/internal/ports"
)

// selectExperiment resolves the test to analyze: an explicit ID
// argument, or the single active experiment when there is exactly one.
func selectExperiment(ctx context.Context, api ports.AnalyticsAPI, args []string) (*domain.Experiment, error) {
	if len(args) > 0 {
		exp, err := api.Experiment(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return exp, nil
	}

	experiments, err := api.ActiveExperiments(ctx)
	if err != nil {
		return nil, err
	}
	switch len(experiments) {
	case 0:
		return nil, fmt.Errorf("no active experiments found")
	case 1:
		return experiments[0], nil
	}

	fmt.Printf("Found %d active experiments:\n", len(experiments))
	for _, exp := range experiments {
		fmt.Printf("  %s  %s (running %d days)\n", exp.ID, exp.Name, exp.RuntimeDays(time.Now()))
	}
	return nil, fmt.Errorf("multiple active experiments, pass a test ID")
}

// fetchSegments fetches every audience dimension. A dimension that
// cannot be fetched is skipped with a warning rather than failing the
// whole analysis.
func fetchSegments(ctx context.Context, api ports.AnalyticsAPI, experimentID string) []engine.SegmentSnapshot {
	var segments []engine.SegmentSnapshot
	for _, dim := range domain.SegmentDimensions {
		snap, err := api.SegmentMetrics(ctx, experimentID, dim.Key)
		if err != nil {
			fmt.Printf("  Warning: could not fetch %s segments: %v\n", dim.Label, err)
			continue
		}
		segments = append(segments, engine.SegmentSnapshot{Dimension: dim, Snapshot: snap})
	}
	return segments
}

func deviceSegments(segments []engine.SegmentSnapshot) *domain.Snapshot {
	for _, s := range segments {
		if s.Dimension.Key == "device_type" {
			return s.Snapshot
		}
	}
	return nil
}

// saveReport persists an analysis result when a repository is
// configured and records the run in telemetry either way.
func saveReport(ctx context.Context, app *AppContext, experimentID, kind, verdict string, payload any) error {
	app.Metrics.RecordAnalysis(ctx, kind, verdict)
	if app.Reports == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	report := &domain.Report{
		ID:           uuid.NewString(),
		ExperimentID: experimentID,
		Kind:         kind,
		Verdict:      verdict,
		Payload:      raw,
		CreatedAt:    time.Now().UTC(),
	}
	if err := app.Reports.Save(ctx, report); err != nil {
		return err
	}
	fmt.Printf("Saved report %s\n", report.ID)
	return nil
}

// sendToSlack posts the blocks and confirms delivery on the terminal.
func sendToSlack(ctx context.Context, webhookURL string, blocks []slack.Block, fallback string) error {
	if err := slack.NewWebhook(webhookURL).Send(ctx, blocks, fallback); err != nil {
		return fmt.Errorf("failed to send to Slack: %w", err)
	}
	fmt.Println("Sent to Slack")
	return nil
}
