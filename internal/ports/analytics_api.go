package ports

import (
	"context"

	"github.com/liftwatch/liftwatch/internal/domain"
)

// AnalyticsAPI fetches experiments and their metrics from the
// Intelligems platform.
type AnalyticsAPI interface {
	ActiveExperiments(ctx context.Context) ([]*domain.Experiment, error)
	EndedExperiments(ctx context.Context) ([]*domain.Experiment, error)
	Experiment(ctx context.Context, id string) (*domain.Experiment, error)
	OverviewMetrics(ctx context.Context, experimentID string) (*domain.Snapshot, error)
	SegmentMetrics(ctx context.Context, experimentID, dimension string) (*domain.Snapshot, error)
}
