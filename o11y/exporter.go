package o11y

import (
	"context"
	"time"
)

// TraceExporter is implemented by backends that capture detailed retrieval
// operation records for analysis, debugging, or latency tracking. Examples
// include a metrics warehouse, a search-quality dashboard, or a custom
// analytics store.
type TraceExporter interface {
	// ExportOperation sends a completed pipeline operation record to the backend.
	ExportOperation(ctx context.Context, data OperationData) error
}

// OperationData captures the full details of a single pipeline operation
// (a strategy invocation, a fusion pass, a rerank, or a full Execute call)
// for export to observability backends.
type OperationData struct {
	// Operation names the pipeline stage (e.g. "execute", "dense", "fuse").
	Operation string

	// Strategy is the retrieval strategy involved, if any (e.g. "sparse").
	Strategy string

	// QueryID identifies the query this operation served.
	QueryID string

	// HitCount is the number of hits the operation produced.
	HitCount int

	// Duration is the wall-clock time of the operation.
	Duration time.Duration

	// Error is non-empty when the operation failed.
	Error string

	// Metadata carries additional key-value data such as trace IDs,
	// tenant IDs, or user-defined labels.
	Metadata map[string]any
}

// MultiExporter fans out operation data to multiple TraceExporters. If any
// exporter returns an error, the first error encountered is returned but all
// exporters are still called.
type MultiExporter struct {
	exporters []TraceExporter
}

// NewMultiExporter creates a MultiExporter that writes to all given exporters.
func NewMultiExporter(exporters ...TraceExporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

// ExportOperation sends data to every registered exporter. All exporters are
// called even if one returns an error; the first error is returned.
func (m *MultiExporter) ExportOperation(ctx context.Context, data OperationData) error {
	var firstErr error
	for _, exp := range m.exporters {
		if err := exp.ExportOperation(ctx, data); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
