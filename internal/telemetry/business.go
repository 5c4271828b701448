package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ForecastTracer opens spans around warmup and verification work.
type ForecastTracer struct {
	tracer trace.Tracer
}

// NewForecastTracer creates a tracer backed by the global provider.
func NewForecastTracer() *ForecastTracer {
	return &ForecastTracer{tracer: GetForecastTracer()}
}

// NewForecastTracerWith creates a tracer backed by the given provider.
func NewForecastTracerWith(tp trace.TracerProvider) *ForecastTracer {
	return &ForecastTracer{tracer: tp.Tracer("trendcast/forecast")}
}

// WarmupOutcome is what a warmup span records when it ends.
type WarmupOutcome struct {
	Status   string
	Stale    bool
	Partial  bool
	Duration time.Duration
}

// TraceWarmup starts a span for one comparison warmup.
func (ft *ForecastTracer) TraceWarmup(ctx context.Context, key, subjectA, subjectB string, horizonDays int) (context.Context, trace.Span) {
	return ft.tracer.Start(ctx, "forecast.warmup", trace.WithAttributes(
		attribute.String("forecast.key", key),
		attribute.StringSlice("forecast.subjects", []string{subjectA, subjectB}),
		attribute.Int("forecast.horizon_days", horizonDays),
	))
}

// RecordWarmup adds the warmup outcome to the span.
func (ft *ForecastTracer) RecordWarmup(span trace.Span, outcome WarmupOutcome) {
	span.SetAttributes(
		attribute.String("warmup.status", outcome.Status),
		attribute.Bool("warmup.stale", outcome.Stale),
		attribute.Bool("warmup.partial", outcome.Partial),
		attribute.Int64("warmup.duration_ms", outcome.Duration.Milliseconds()),
	)
	if outcome.Status == "failed" {
		span.SetStatus(codes.Error, "warmup failed")
	}
}

// TraceSubject starts a child span for forecasting a single subject.
func (ft *ForecastTracer) TraceSubject(ctx context.Context, subject string) (context.Context, trace.Span) {
	return ft.tracer.Start(ctx, "forecast.subject", trace.WithAttributes(attribute.String("forecast.subject", subject)))
}

// TraceVerification starts a span for verifying a cached comparison.
func (ft *ForecastTracer) TraceVerification(ctx context.Context, key string) (context.Context, trace.Span) {
	return ft.tracer.Start(ctx, "forecast.verify", trace.WithAttributes(attribute.String("forecast.key", key)))
}

// RecordVerification adds the verification metrics to the span.
func (ft *ForecastTracer) RecordVerification(span trace.Span, points int, mae, mape, hitRate80 float64) {
	span.SetAttributes(
		attribute.Int("verify.points", points),
		attribute.Float64("verify.mae", mae),
		attribute.Float64("verify.mape", mape),
		attribute.Float64("verify.hit_rate_80", hitRate80),
	)
}
