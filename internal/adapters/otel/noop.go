package otel

import "context"

// NoOpExporter is a metrics exporter that does nothing.
type NoOpExporter struct{}

// NewNoOpExporter creates a new no-op exporter for graceful degradation.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

func (e *NoOpExporter) RecordAnalysis(ctx context.Context, kind, verdict string) {}

func (e *NoOpExporter) RecordAPIRequest(ctx context.Context, endpoint string, status int) {}

func (e *NoOpExporter) Close(ctx context.Context) error {
	return nil
}
