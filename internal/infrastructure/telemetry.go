package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"loanrisk/internal/config"
)

const instrumentationName = "loanrisk"

// Telemetry holds the tracer and meter used by one batch run. Metrics are
// collected into a private Prometheus registry and written out as a
// textfile at the end of the run, since batch jobs are never scraped.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *PipelineMetrics

	traceOut io.Closer
	logger   *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics according to cfg. Disabled
// signals get no-op implementations so callers never nil-check.
func InitializeTelemetry(cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		attribute.String("service.instance.id", GenerateTraceID()),
	)

	t := &Telemetry{logger: logger}

	if cfg.EnableTracing {
		if err := t.initTracing(cfg, res); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	} else {
		t.Tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
	}

	if cfg.EnableMetrics {
		if err := t.initMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	} else {
		t.Meter = metricnoop.NewMeterProvider().Meter(instrumentationName)
	}

	metrics, err := NewPipelineMetrics(t.Meter)
	if err != nil {
		return nil, err
	}
	t.Metrics = metrics

	logger.Debug("Telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return t, nil
}

func (t *Telemetry) initTracing(cfg config.TelemetryConfig, res *resource.Resource) error {
	var w io.Writer = os.Stdout
	if cfg.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0755); err != nil {
			return fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		t.traceOut = f
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func (t *Telemetry) initMetrics(res *resource.Resource) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Registry = registry
	t.MeterProvider = mp
	t.Meter = mp.Meter(instrumentationName, metric.WithInstrumentationVersion(config.AppVersion))
	otel.SetMeterProvider(mp)
	return nil
}

// StartStage opens a span for a pipeline stage. The returned function ends
// the span and records the stage duration and outcome.
func (t *Telemetry) StartStage(ctx context.Context, stage string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := t.Tracer.Start(WithStage(ctx, stage), stage)
	if traceID := GetTraceID(ctx); traceID != "" {
		span.SetAttributes(attribute.String("run.id", traceID))
	}

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		t.Metrics.RecordStage(ctx, stage, time.Since(start), err)
		t.Metrics.RecordHeap(ctx, stage)
	}
}

// WriteMetrics writes the collected metrics in the Prometheus text format.
// It is a no-op when metrics are disabled.
func (t *Telemetry) WriteMetrics(path string) error {
	if t.Registry == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	t.logger.Info("Metrics written", slog.String("path", path))
	return nil
}

// Shutdown flushes pending spans and releases providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var firstErr error
	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown meter provider: %w", err)
		}
	}
	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PipelineMetrics groups the instruments shared by every stage
type PipelineMetrics struct {
	rows     metric.Int64Counter
	duration metric.Float64Histogram
	score    metric.Float64Gauge
	heap     metric.Int64Gauge
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rows, err := meter.Int64Counter("loanrisk_rows",
		metric.WithDescription("Rows processed per stage, split by status and reason"))
	if err != nil {
		return nil, fmt.Errorf("create rows counter: %w", err)
	}

	duration, err := meter.Float64Histogram("loanrisk_stage_duration",
		metric.WithDescription("Pipeline stage duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create stage duration histogram: %w", err)
	}

	score, err := meter.Float64Gauge("loanrisk_model_score",
		metric.WithDescription("Cross-validation scores per fold"))
	if err != nil {
		return nil, fmt.Errorf("create score gauge: %w", err)
	}

	heap, err := meter.Int64Gauge("loanrisk_heap",
		metric.WithDescription("Live heap after a stage; the dataset is held in memory"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("create heap gauge: %w", err)
	}

	return &PipelineMetrics{rows: rows, duration: duration, score: score, heap: heap}, nil
}

// RecordRows adds n rows for a stage with a status (kept, excluded) and reason
func (m *PipelineMetrics) RecordRows(ctx context.Context, stage, status, reason string, n int) {
	if n <= 0 {
		return
	}
	m.rows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
		attribute.String("reason", reason),
	))
}

// RecordStage records how long a stage took and whether it failed
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration, err error) {
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("failed", err != nil),
	))
}

// RecordScore records a named evaluation score for a fold. fold < 0 marks
// the aggregate.
func (m *PipelineMetrics) RecordScore(ctx context.Context, name string, fold int, v float64) {
	m.score.Record(ctx, v, metric.WithAttributes(
		attribute.String("metric", name),
		attribute.Int("fold", fold),
	))
}

// RecordHeap samples the live heap size at the end of a stage
func (m *PipelineMetrics) RecordHeap(ctx context.Context, stage string) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.heap.Record(ctx, int64(ms.HeapAlloc), metric.WithAttributes(attribute.String("stage", stage)))
}
