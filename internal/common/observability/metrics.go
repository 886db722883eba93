package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Observability records submission outcomes through the OpenTelemetry meter,
// exported on the default Prometheus registry, and owns the tracer provider.
type Observability struct {
	meterProvider      *metric.MeterProvider
	tracerProvider     *sdktrace.TracerProvider
	tracer             trace.Tracer
	submissionCounter  otelmetric.Int64Counter
	submissionDuration otelmetric.Float64Histogram
	uploadFailures     otelmetric.Int64Counter
}

func New(serviceName string, tracing TracingConfig, log *zap.Logger) *Observability {
	o := &Observability{}
	if tracing.Enabled {
		tp, err := newTracerProvider(serviceName, tracing)
		if err != nil {
			log.Warn("tracing disabled", zap.Error(err))
		} else {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.TraceContext{})
			o.tracerProvider = tp
			o.tracer = tp.Tracer(serviceName)
		}
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", zap.Error(err))
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	submissionCounter, _ := meter.Int64Counter(
		"submissions.processed",
		otelmetric.WithDescription("Number of submissions processed"),
	)

	submissionDuration, _ := meter.Float64Histogram(
		"submissions.duration",
		otelmetric.WithDescription("Submission processing duration"),
		otelmetric.WithUnit("ms"),
	)

	uploadFailures, _ := meter.Int64Counter(
		"submissions.upload_failures",
		otelmetric.WithDescription("Items that failed to upload during a submission"),
	)

	o.meterProvider = provider
	o.submissionCounter = submissionCounter
	o.submissionDuration = submissionDuration
	o.uploadFailures = uploadFailures
	return o
}

// NewNoop returns an Observability whose recorders do nothing.
func NewNoop() *Observability {
	return &Observability{}
}

func (o *Observability) RecordSubmission(ctx context.Context, status string, claims int) {
	if o == nil || o.submissionCounter == nil {
		return
	}
	o.submissionCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("status", status),
		attribute.Int("claims", claims),
	))
}

func (o *Observability) RecordSubmissionDuration(ctx context.Context, duration time.Duration, status string) {
	if o == nil || o.submissionDuration == nil {
		return
	}
	o.submissionDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("status", status),
	))
}

func (o *Observability) RecordUploadFailures(ctx context.Context, count int) {
	if o == nil || o.uploadFailures == nil || count == 0 {
		return
	}
	o.uploadFailures.Add(ctx, int64(count))
}

func (o *Observability) Shutdown() {
	if o == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
}
