// Package observability wires OpenTelemetry metrics through the Prometheus
// exporter and provides the instruments the relay records.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "character-chat-relay"

// SetupMetrics initializes the Prometheus exporter and installs the global
// meter provider. The returned provider should be shut down with the process.
func SetupMetrics() (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Metrics holds the relay's instruments. A nil *Metrics is valid and records
// nothing, so tests can pass one through without setup.
type Metrics struct {
	completions    metric.Int64Counter
	providerErrors metric.Int64Counter
	latency        metric.Float64Histogram
}

// NewMetrics creates the relay's instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	completions, err := meter.Int64Counter("chat_completions_total",
		metric.WithDescription("Completed chat completion requests by outcome"))
	if err != nil {
		return nil, err
	}

	providerErrors, err := meter.Int64Counter("chat_provider_errors_total",
		metric.WithDescription("Upstream completion failures by error class"))
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("chat_completion_duration_seconds",
		metric.WithDescription("End-to-end chat completion latency"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		completions:    completions,
		providerErrors: providerErrors,
		latency:        latency,
	}, nil
}

// RecordCompletion records one finished completion attempt.
func (m *Metrics) RecordCompletion(ctx context.Context, providerName string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.Bool("success", success),
	)
	m.completions.Add(ctx, 1, attrs)
	m.latency.Record(ctx, duration.Seconds(), attrs)
}

// RecordProviderError records an upstream failure by taxonomy class
// (network, upstream_rejected, malformed_response).
func (m *Metrics) RecordProviderError(ctx context.Context, providerName, class string) {
	if m == nil {
		return
	}
	m.providerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.String("class", class),
	))
}
