package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/faisal-mohamed/rfdb-new"

// Outcomes recorded against workflow actions.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics records workflow and extraction measurements.
type Metrics struct {
	actions    metric.Int64Counter
	extraction metric.Float64Histogram
	renders    metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	actions, err := meter.Int64Counter("rfdb.workflow.actions",
		metric.WithDescription("Workflow actions by action and outcome"))
	if err != nil {
		return nil, err
	}
	extraction, err := meter.Float64Histogram("rfdb.extraction.duration",
		metric.WithDescription("Extraction service call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	renders, err := meter.Int64Counter("rfdb.render.documents",
		metric.WithDescription("Generated deliverables by format and outcome"))
	if err != nil {
		return nil, err
	}
	return &Metrics{actions: actions, extraction: extraction, renders: renders}, nil
}

// NewDefaultMetrics uses the global meter provider and falls back to a no-op
// meter if instrument creation fails.
func NewDefaultMetrics() *Metrics {
	m, err := NewMetrics(otel.Meter(instrumentationName))
	if err != nil {
		return Noop()
	}
	return m
}

// Noop returns Metrics that record nothing.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

func (m *Metrics) RecordAction(ctx context.Context, action, outcome string) {
	m.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordExtraction(ctx context.Context, versionType string, d time.Duration, err error) {
	m.extraction.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("version_type", versionType),
		attribute.Bool("success", err == nil),
	))
}

func (m *Metrics) RecordRender(ctx context.Context, format string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.renders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("outcome", outcome),
	))
}

// Tracer returns the tracer used for workflow spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
