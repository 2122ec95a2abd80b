package o11y

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// meter holds the package-level OTel meter used by metric recording functions.
var meter metric.Meter

// Pre-registered retrieval-pipeline instruments.
var (
	hitCounter        metric.Int64Counter
	strategyErrors    metric.Int64Counter
	operationDuration metric.Float64Histogram
	candidateGauge    metric.Int64Counter

	meterOnce sync.Once
	meterErr  error
)

func init() {
	meter = otel.Meter("retrieval/o11y")
}

// initInstruments lazily creates the pre-defined metric instruments. This is
// deferred so callers can configure the meter provider before first use.
func initInstruments() error {
	meterOnce.Do(func() {
		var err error

		hitCounter, err = meter.Int64Counter(
			"retrieval.hits.count",
			metric.WithDescription("Number of hits returned by a retrieval stage"),
			metric.WithUnit("{hit}"),
		)
		if err != nil {
			meterErr = err
			return
		}

		strategyErrors, err = meter.Int64Counter(
			"retrieval.strategy.errors",
			metric.WithDescription("Number of retrieval strategy invocations that failed"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			meterErr = err
			return
		}

		operationDuration, err = meter.Float64Histogram(
			"retrieval.operation.duration",
			metric.WithDescription("Duration of a retrieval pipeline operation"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			meterErr = err
			return
		}

		candidateGauge, err = meter.Int64Counter(
			"retrieval.fusion.candidates",
			metric.WithDescription("Number of candidates fed into the fusion stage"),
			metric.WithUnit("{candidate}"),
		)
		if err != nil {
			meterErr = err
			return
		}
	})
	return meterErr
}

// InitMeter configures the package-level meter with the given service name.
// This should be called after setting up the OTel meter provider. If not called,
// the default global meter provider is used.
func InitMeter(serviceName string) error {
	meter = otel.Meter(
		"retrieval/o11y",
		metric.WithInstrumentationAttributes(
			attribute.String("service.name", serviceName),
		),
	)
	// Reset so instruments are re-created with the new meter.
	meterOnce = sync.Once{}
	meterErr = nil
	return initInstruments()
}

// InitMeterProvider installs a global MeterProvider backed by reader (a
// Prometheus pull exporter or a stdout push exporter, typically) and
// reinitialises the package-level meter and instruments against it. Callers
// that don't need metrics exported anywhere can skip this and use InitMeter
// directly; the instruments still work, they simply aren't collected.
func InitMeterProvider(serviceName string, reader sdkmetric.Reader) error {
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	return InitMeter(serviceName)
}

// HitCount records the number of hits a strategy or stage produced.
func HitCount(ctx context.Context, strategy string, n int) {
	if err := initInstruments(); err != nil {
		return
	}
	hitCounter.Add(ctx, int64(n), metric.WithAttributes(attribute.String(AttrStrategyName, strategy)))
}

// StrategyError records a failed strategy invocation, attributed to its name.
func StrategyError(ctx context.Context, strategy string) {
	if err := initInstruments(); err != nil {
		return
	}
	strategyErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStrategyName, strategy)))
}

// OperationDuration records the duration of a pipeline operation in milliseconds.
func OperationDuration(ctx context.Context, op string, durationMs float64) {
	if err := initInstruments(); err != nil {
		return
	}
	operationDuration.Record(ctx, durationMs, metric.WithAttributes(attribute.String(AttrOperationName, op)))
}

// FusionCandidates records the number of candidates entering the fusion stage.
func FusionCandidates(ctx context.Context, n int) {
	if err := initInstruments(); err != nil {
		return
	}
	candidateGauge.Add(ctx, int64(n))
}

// Counter records an increment to a named counter metric.
func Counter(ctx context.Context, name string, value int64) {
	c, err := meter.Int64Counter(name)
	if err != nil {
		return
	}
	c.Add(ctx, value)
}

// Histogram records a value to a named histogram metric.
func Histogram(ctx context.Context, name string, value float64) {
	h, err := meter.Float64Histogram(name)
	if err != nil {
		return
	}
	h.Record(ctx, value)
}
