// Package o11y provides observability primitives for the retrieval engine:
// OpenTelemetry-based tracing and metrics over retrieval-domain attributes,
// structured logging via slog, health checks, and operation trace exporting.
//
// # Tracing
//
// Tracing is built on OpenTelemetry with retrieval-domain attribute
// conventions (retrieval.* namespace). [StartSpan] creates spans with typed
// attributes, and [InitTracer] configures the global OTel tracer provider:
//
//	shutdown, err := o11y.InitTracer("my-service",
//	    o11y.WithSpanExporter(exporter),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shutdown()
//
//	ctx, span := o11y.StartSpan(ctx, "orchestrator.execute", o11y.Attrs{
//	    o11y.AttrQueryID:   queryID,
//	    o11y.AttrOperationName: "execute",
//	})
//	defer span.End()
//
// The [Span] interface wraps OTel spans with a simplified API for setting
// attributes, recording errors, and setting status codes.
//
// # Metrics
//
// Pre-registered metric instruments track hit counts, strategy errors,
// operation duration, and fusion candidate volume:
//
//	o11y.HitCount(ctx, "dense", len(hits))
//	o11y.OperationDuration(ctx, "execute", durationMs)
//	o11y.FusionCandidates(ctx, len(candidates))
//
// [InitMeter] configures the package-level meter with a service name.
// Generic [Counter] and [Histogram] functions allow recording custom metrics.
//
// # Logging
//
// [Logger] wraps slog.Logger with context-aware convenience methods and
// functional options for configuration:
//
//	logger := o11y.NewLogger(
//	    o11y.WithLogLevel("debug"),
//	    o11y.WithJSON(),
//	)
//	logger.Info(ctx, "query served",
//	    "query_id", queryID,
//	    "hits", len(resp.Hits),
//	)
//
// Loggers propagate through context via [WithLogger] and [FromContext].
//
// # Trace Exporting
//
// The [TraceExporter] interface captures completed pipeline operations for
// export to analysis backends. [OperationData] holds the operation name,
// strategy, hit count, and duration. [MultiExporter] fans out to multiple
// backends simultaneously:
//
//	multi := o11y.NewMultiExporter(warehouseExp, dashboardExp)
//	err := multi.ExportOperation(ctx, data)
//
// # Health Checks
//
// The [HealthChecker] interface provides health probes for components.
// [HealthRegistry] aggregates named checkers and runs them concurrently
// via [HealthRegistry.CheckAll]:
//
//	registry := o11y.NewHealthRegistry()
//	registry.Register("vectorstore", vsChecker)
//	registry.Register("graphstore", graphChecker)
//	results := registry.CheckAll(ctx)
//
// [HealthCheckerFunc] adapts plain functions to the HealthChecker interface.
//
// # Attribute Constants
//
// The package exports retrieval-domain attribute keys: [AttrStrategyName],
// [AttrOperationName], [AttrQueryID], [AttrTopK], [AttrHitCount], and
// [AttrDocID].
package o11y
