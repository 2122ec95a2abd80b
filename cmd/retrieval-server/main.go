// Command retrieval-server runs the hybrid retrieval pipeline as an HTTP
// service. It loads Settings, wires the embedding/vector-store/full-text/
// graph backends into the strategy registry, and serves /search,
// /search/systematic, and /health until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"

	"github.com/coreason/retrieval-engine/audit"
	"github.com/coreason/retrieval-engine/auth"
	"github.com/coreason/retrieval-engine/cache"
	"github.com/coreason/retrieval-engine/config"
	"github.com/coreason/retrieval-engine/fusion"
	"github.com/coreason/retrieval-engine/graph"
	"github.com/coreason/retrieval-engine/httpserver"
	"github.com/coreason/retrieval-engine/o11y"
	"github.com/coreason/retrieval-engine/pipeline"
	"github.com/coreason/retrieval-engine/rag/embedding"
	"github.com/coreason/retrieval-engine/rag/retriever"
	"github.com/coreason/retrieval-engine/rag/retriever/providers/bleve"
	"github.com/coreason/retrieval-engine/rag/vectorstore/providers/pgvector"
	"github.com/coreason/retrieval-engine/rerank"
	"github.com/coreason/retrieval-engine/scout"

	_ "github.com/coreason/retrieval-engine/cache/providers/inmemory"
	_ "github.com/coreason/retrieval-engine/rag/embedding/providers/inmemory"
	_ "github.com/coreason/retrieval-engine/rag/embedding/providers/openai"
)

// defaultAddr is used when the ADDR environment variable is unset.
const defaultAddr = ":8080"

// embeddingCacheTTL bounds how long a query embedding is reused before the
// provider is asked to recompute it.
const embeddingCacheTTL = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "retrieval-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logger := o11y.NewLogger(o11y.WithLogLevel(logLevelFor(settings.Env)), o11y.WithJSON())
	ctx := o11y.WithLogger(context.Background(), logger)
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initMetrics(settings); err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	shutdownTracer, err := initTracing(ctx, settings)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer()

	pool, err := pgxpool.New(ctx, settings.DatabaseURI)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	embedder, err := buildEmbedder(settings)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	ftsStore, err := bleve.New()
	if err != nil {
		return fmt.Errorf("build full-text index: %w", err)
	}

	registry := retriever.Registry{
		Dense:  retriever.NewDenseRetriever(embedder, pgvector.New(pool)),
		Sparse: retriever.NewSparseRetriever(ftsStore),
		Graph:  retriever.NewGraphRetriever(graph.NewFixtureStore()),
	}

	reranker := rerank.NewLengthReranker()
	logger.Info(ctx, "reranker configured", "model_name", settings.Reranker.ModelName, "note", "LengthReranker is the only Reranker implementation wired; model_name is carried for future routing")

	policy := auth.DefaultFetchPolicy(logger.Slog())
	guardedFetch := auth.GuardFetcher(policy, subjectFromUserContext, auth.DefaultResourceOf, noopFetcher)
	distiller := scout.New(scoutThreshold(settings), guardedFetch)

	sink := audit.NewMultiSink(audit.NewLoggingSink(logger))

	orchestrator := pipeline.New(registry, fusion.New(fusion.DefaultK), reranker, distiller, sink)

	health := o11y.NewHealthRegistry()
	health.Register("database", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		if err := pool.Ping(ctx); err != nil {
			return o11y.HealthResult{Component: "database", Status: o11y.Unhealthy, Message: err.Error()}
		}
		return o11y.HealthResult{Component: "database", Status: o11y.Healthy}
	}))
	health.Register("fulltext_index", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		if _, err := ftsStore.Version(ctx); err != nil {
			return o11y.HealthResult{Component: "fulltext_index", Status: o11y.Unhealthy, Message: err.Error()}
		}
		return o11y.HealthResult{Component: "fulltext_index", Status: o11y.Healthy}
	}))

	srv := httpserver.New(httpserver.NewExecutor(orchestrator), health)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = defaultAddr
	}

	logger.Info(ctx, "retrieval-server listening", "addr", addr, "env", settings.Env)
	return srv.ListenAndServe(ctx, addr)
}

// initMetrics installs the Prometheus MeterProvider reader; the handler
// that serves /metrics to a scraper lives in httpserver, registered against
// the same default Prometheus registry this exporter writes to.
func initMetrics(settings config.Settings) error {
	reader, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("build prometheus exporter: %w", err)
	}
	return o11y.InitMeterProvider("retrieval-server", reader)
}

// initTracing installs the global TracerProvider with the configured span
// exporter: "otlp" batches spans to Observability.OTELEndpoint over gRPC,
// "stdout" (the default) pretty-prints them, useful for local runs with no
// collector. Spans are created either way; this only controls where
// completed spans are shipped.
func initTracing(ctx context.Context, settings config.Settings) (func(), error) {
	switch settings.Observability.TraceExporter {
	case "otlp":
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(settings.Observability.OTELEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("build otlp span exporter: %w", err)
		}
		return o11y.InitTracer("retrieval-server", o11y.WithSpanExporter(exporter))
	default:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("build stdout span exporter: %w", err)
		}
		return o11y.InitTracer("retrieval-server", o11y.WithSpanExporter(exporter))
	}
}

// buildEmbedder constructs the configured embedding provider, wrapped with
// a query-embedding cache so repeat queries skip the provider round-trip.
func buildEmbedder(settings config.Settings) (embedding.Embedder, error) {
	providerName := settings.Embedding.Provider
	if providerName == "" {
		providerName = "inmemory"
	}

	base, err := embedding.New(providerName, settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("construct embedding provider %q: %w", providerName, err)
	}

	embeddingCache, err := cache.New("inmemory", cache.Config{TTL: embeddingCacheTTL, MaxSize: 10_000})
	if err != nil {
		return nil, fmt.Errorf("construct embedding cache: %w", err)
	}

	return cache.NewCachingEmbedder(base, embeddingCache, embeddingCacheTTL), nil
}

// scoutThreshold returns settings.Scout.Threshold, falling back to
// scout.DefaultThreshold when unset.
func scoutThreshold(settings config.Settings) float64 {
	if settings.Scout.Threshold <= 0 {
		return scout.DefaultThreshold
	}
	return settings.Scout.Threshold
}

// subjectFromUserContext extracts the caller identity string a SearchRequest
// carries as its opaque user_context, defaulting to "anonymous".
func subjectFromUserContext(userContext any) string {
	if s, ok := userContext.(string); ok && s != "" {
		return s
	}
	return "anonymous"
}

// noopFetcher is the FetcherHook used when no JIT content backend is
// configured: every hit relies on its already-stored OriginalText.
func noopFetcher(_ context.Context, _ map[string]any, _ any) (*string, error) {
	return nil, nil
}

func logLevelFor(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}
