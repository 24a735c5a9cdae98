package ports

import "context"

// MetricsExporter exports telemetry about analysis runs to an external
// observability system.
type MetricsExporter interface {
	// RecordAnalysis counts a completed analysis run by kind and verdict.
	RecordAnalysis(ctx context.Context, kind, verdict string)
	// RecordAPIRequest counts an upstream API call by endpoint and status.
	RecordAPIRequest(ctx context.Context, endpoint string, status int)
	// Close shuts down the exporter and flushes any pending metrics.
	Close(ctx context.Context) error
}
